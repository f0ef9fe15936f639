package main

import (
	"context"
	"errors"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/usher2/u2dumpsync/internal/config"
	"github.com/usher2/u2dumpsync/internal/lock"
	"github.com/usher2/u2dumpsync/internal/logger"
)

// runService - the run command: listeners plus the sync loop until SIGINT/SIGTERM.
func runService(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.loadIndex(ctx); err != nil {
		logger.Error.Printf("%s\n", err)
	}

	srv, err := startServers(a)
	if err != nil {
		return err
	}
	defer srv.stop()

	dumpPoll(ctx, cfg.Sync.Interval, func(ctx context.Context) {
		dumpRefresh(ctx, a)
	})

	logger.Warning.Println("Exiting...")

	return nil
}

// dumpPoll - refresh now and then every d until ctx is done.
func dumpPoll(ctx context.Context, d time.Duration, refresh func(ctx context.Context)) {
	refresh(ctx)

	timer := time.NewTimer(d)
	defer timer.Stop()

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			refresh(ctx)
			timer.Reset(d)
		}
	}
}

func dumpRefresh(ctx context.Context, a *app) {
	res, err := a.syncer.RunLocked(ctx, a.locker)

	switch {
	case errors.Is(err, lock.ErrLocked):
		logger.Info.Println("Another cycle is running, skipped")
	case err != nil:
		logger.Error.Printf("Sync cycle failed: %s\n", err)
	default:
		logger.Info.Printf("Sync cycle: %s\n", res.State)
	}

	runtime.GC()
	logger.Debug.Println("Complete GC")
}
