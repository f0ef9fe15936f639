package dumpsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gorm.io/gorm"

	"github.com/usher2/u2dumpsync/internal/dump"
	"github.com/usher2/u2dumpsync/internal/lock"
	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/store"
)

const cacheFileName = "dump.zip"

// RunLocked - Run under the cycle lock, lock.ErrLocked when another cycle runs.
// A cycle that loses the lock midway is canceled and fails with lock.ErrLockLost.
func (s *Syncer) RunLocked(ctx context.Context, locker lock.Locker) (Result, error) {
	held, release, err := locker.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}

	defer release()

	res, err := s.Run(held)
	if err != nil && ctx.Err() == nil {
		if cause := context.Cause(held); errors.Is(cause, lock.ErrLockLost) {
			err = fmt.Errorf("%w: %w", err, cause)
		}
	}

	return res, err
}

// Run - one sync cycle. A dump is either committed completely or not at all,
// a failed cycle leaves lastResult = Error so the next one retries.
func (s *Syncer) Run(ctx context.Context) (res Result, err error) {
	start := s.now()
	s.info = nil
	s.selected = 0

	defer func() {
		if err != nil {
			res.State = StateError
		}

		if s.observer != nil {
			s.observer.ObserveCycle(res, err, s.now().Sub(start))
		}
	}()

	s.transition(StateCheckingVersion)

	msg, err := s.CheckServiceVersions(ctx)
	if err != nil {
		return res, s.fail(ctx, res, err)
	}

	if msg != "" {
		logger.Warning.Printf("Service versions changed:\n%s", msg)
	}

	res.VersionMessage = msg

	s.transition(StateCheckingDump)

	changed, err := s.HasNewDump(ctx)
	if err != nil {
		return res, s.fail(ctx, res, err)
	}

	if !changed {
		s.transition(StateNoChange)
		s.transition(StateIdle)

		res.State = StateNoChange

		return res, nil
	}

	res.NewDump = true

	s.transition(StateFetching)

	sent, err := s.RequestDump(ctx)
	if err != nil {
		return res, s.fail(ctx, res, err)
	}

	res.Code = sent.Code

	archive, err := s.PollResult(ctx, sent.Code)
	if err != nil {
		return res, s.fail(ctx, res, err)
	}

	s.transition(StateParsing)

	reg, err := dump.ParseArchive(archive)
	if err != nil {
		return res, s.fail(ctx, res, err)
	}

	epoch := reg.Epoch()
	if epoch == 0 {
		epoch = s.selected
	}

	res.Epoch = epoch

	s.transition(StateReconciling)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stats, err := dump.ReconcileTx(ctx, tx, reg, epoch)
		if err != nil {
			return err
		}

		res.Stats = stats

		return s.commit(tx)
	})
	if err != nil {
		res.Stats = dump.Stats{}

		return res, s.fail(ctx, res, err)
	}

	dump.LogStats(res.Stats)

	s.transition(StateCommitted)

	res.State = StateCommitted

	s.cache(archive)
	s.runHooks(ctx)

	s.transition(StateIdle)

	return res, nil
}

// commit - remember the synced dump in the reconcile transaction.
func (s *Syncer) commit(tx *gorm.DB) error {
	for _, p := range []struct{ name, value string }{
		{store.ParamLastDumpDate, strconv.FormatInt(s.info.LastDumpDate/1000, 10)},
		{store.ParamLastDumpDateUrgently, strconv.FormatInt(s.info.LastDumpDateUrgently/1000, 10)},
		{store.ParamLastAction, actionGetResult},
		{store.ParamLastResult, resultOk},
	} {
		if err := store.SetParam(tx, p.name, p.value); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}

	return nil
}

func (s *Syncer) fail(ctx context.Context, res Result, err error) error {
	failed := s.state

	s.transition(StateError)

	var normal, urgent int64
	if s.info != nil {
		normal, urgent = s.info.LastDumpDate/1000, s.info.LastDumpDateUrgently/1000
	}

	logger.Error.Printf("Cycle failed: state: %s code: %q lastDumpDate: %d lastDumpDateUrgently: %d: %s\n",
		failed, res.Code, normal, urgent, err)

	// the cycle context may be gone already
	if perr := s.params.Set(context.WithoutCancel(ctx), store.ParamLastResult, resultError); perr != nil {
		logger.Error.Printf("Can't save lastResult: %s\n", perr)
	}

	return fmt.Errorf("%s: %w", failed, err)
}

// cache - keep the last archive on disk.
func (s *Syncer) cache(archive []byte) {
	if s.opts.CacheDir == "" {
		return
	}

	if err := writeFileAtomic(filepath.Join(s.opts.CacheDir, cacheFileName), archive); err != nil {
		logger.Warning.Printf("Can't cache dump: %s\n", err)

		return
	}

	logger.Debug.Printf("Dump cached in %s\n", s.opts.CacheDir)
}

func (s *Syncer) runHooks(ctx context.Context) {
	for _, h := range s.hooks {
		if err := h.fn(ctx); err != nil {
			logger.Error.Printf("Hook %s: %s\n", h.name, err)

			continue
		}

		logger.Debug.Printf("Hook %s: done\n", h.name)
	}
}

func writeFileAtomic(filename string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tfn := fmt.Sprintf("%s-tmp", filename)

	if err := os.WriteFile(tfn, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	if err := os.Rename(tfn, filename); err != nil {
		return fmt.Errorf("file rename: %w", err)
	}

	return nil
}
