package dumpsync

import (
	"context"
	"fmt"
	"time"

	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/registry"
	"github.com/usher2/u2dumpsync/internal/store"
)

// dumpInfo - getLastDumpDateEx answer, asked once per cycle.
func (s *Syncer) dumpInfo(ctx context.Context) (*registry.DumpInfo, error) {
	if s.info != nil {
		return s.info, nil
	}

	info, err := s.remote.GetLastDumpDateEx(ctx)
	if err != nil {
		return nil, err
	}

	s.info = info

	return info, nil
}

// HasNewDump - true when the registry has a dump that was not synced yet
// or when the previous cycle failed.
func (s *Syncer) HasNewDump(ctx context.Context) (bool, error) {
	logger.Info.Println("Check if dump.xml has updates since last sync")

	info, err := s.dumpInfo(ctx)
	if err != nil {
		return false, err
	}

	storedNormal, err := s.params.GetInt(ctx, store.ParamLastDumpDate)
	if err != nil {
		return false, err
	}

	storedUrgent, err := s.params.GetInt(ctx, store.ParamLastDumpDateUrgently)
	if err != nil {
		return false, err
	}

	lastResult, err := s.params.Get(ctx, store.ParamLastResult)
	if err != nil {
		return false, err
	}

	remoteNormal := info.LastDumpDate / 1000
	remoteUrgent := info.LastDumpDateUrgently / 1000

	var remote, current int64

	switch {
	case s.opts.Urgent && !s.opts.Normal:
		remote, current = remoteUrgent, storedUrgent
	case s.opts.Normal && !s.opts.Urgent:
		remote, current = remoteNormal, storedNormal
	default:
		remote, current = max(remoteNormal, remoteUrgent), max(storedNormal, storedUrgent)
	}

	s.selected = remote

	logger.Info.Printf("Current date: lastDumpDate: %s, lastDumpDateUrgently: %s\n",
		formatEpoch(storedNormal), formatEpoch(storedUrgent))
	logger.Info.Printf("Last date: lastDumpDate: %s, lastDumpDateUrgently: %s\n",
		formatEpoch(remoteNormal), formatEpoch(remoteUrgent))

	changed := remote != current || lastResult == resultError

	result := resultLastDump
	if changed {
		result = resultNewDump

		logger.Info.Println("New dump is available")
	} else {
		logger.Info.Println("Dump date without changes")
	}

	if err := s.params.Set(ctx, store.ParamLastAction, actionGetLastDumpDate); err != nil {
		return false, err
	}

	if err := s.params.Set(ctx, store.ParamLastResult, result); err != nil {
		return false, err
	}

	return changed, nil
}

// CheckServiceVersions - store new service versions and describe what changed.
// The message is empty when nothing changed.
func (s *Syncer) CheckServiceVersions(ctx context.Context) (string, error) {
	info, err := s.dumpInfo(ctx)
	if err != nil {
		return "", err
	}

	var msg string

	for _, v := range []struct {
		name  string
		value string
	}{
		{store.ParamWebServiceVersion, info.WebServiceVersion},
		{store.ParamDumpFormatVersion, info.DumpFormatVersion},
		{store.ParamDocVersion, info.DocVersion},
	} {
		current, err := s.params.Get(ctx, v.name)
		if err != nil {
			return "", err
		}

		if current == v.value {
			continue
		}

		logger.Warning.Printf("New %s: %s\n", v.name, v.value)

		msg += fmt.Sprintf("Current %s: %s\nNew %s: %s\n\n", v.name, current, v.name, v.value)

		if err := s.params.Set(ctx, v.name, v.value); err != nil {
			return "", err
		}
	}

	return msg, nil
}

func formatEpoch(x int64) string {
	return time.Unix(x, 0).UTC().Format(time.DateTime)
}
