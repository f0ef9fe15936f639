package dumpsync

import (
	"context"
	"fmt"
	"time"

	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/registry"
	"github.com/usher2/u2dumpsync/internal/store"
)

// RequestDump - send the signed request and remember the code.
func (s *Syncer) RequestDump(ctx context.Context) (*registry.SendResult, error) {
	request, signature, err := registry.ReadRequestFiles(s.opts.RequestFile, s.opts.SignatureFile)
	if err != nil {
		return nil, err
	}

	version := s.opts.FormatVersion
	if version == "" {
		if version, err = s.params.Get(ctx, store.ParamDumpFormatVersion); err != nil {
			return nil, err
		}
	}

	res, err := s.remote.SendRequest(ctx, request, signature, version)
	if err != nil {
		return nil, err
	}

	logger.Info.Printf("Request accepted: code %s\n", res.Code)

	if err := s.params.Set(ctx, store.ParamLastCode, res.Code); err != nil {
		return nil, err
	}

	if err := s.params.Set(ctx, store.ParamLastAction, actionSendRequest); err != nil {
		return nil, err
	}

	if err := s.history.AddHistory(ctx, res.Code, true, false, s.now()); err != nil {
		return nil, err
	}

	return res, nil
}

// PollResult - wait for the dump archive of code.
func (s *Syncer) PollResult(ctx context.Context, code string) ([]byte, error) {
	deadline := time.NewTimer(s.opts.PollTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	failures := 0

	for attempt := 1; ; attempt++ {
		res, err := s.remote.GetResult(ctx, code)

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			failures++
			if failures > s.opts.PollRetries {
				return nil, fmt.Errorf("get result %s: %w", code, err)
			}

			logger.Warning.Printf("Get result %s: attempt %d failed (%d/%d): %s\n",
				code, attempt, failures, s.opts.PollRetries, err)
		case res.ResultCode == registry.ResultInProgress:
			failures = 0

			logger.Info.Printf("Dump %s is not ready: %s\n", code, res.Comment)
		case res.Result && res.ResultCode == registry.ResultReady:
			logger.Info.Printf("Dump %s is ready: %d bytes, format %s\n", code, len(res.Archive), res.DumpFormatVersion)

			return res.Archive, nil
		default:
			return nil, fmt.Errorf("%w: get result %s: code %d: %s",
				registry.ErrTransport, code, res.ResultCode, res.Comment)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s after %s", ErrPollTimeout, code, s.opts.PollTimeout)
		case <-ticker.C:
		}
	}
}
