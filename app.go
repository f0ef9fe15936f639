package main

import (
	"context"
	"fmt"

	"github.com/usher2/u2dumpsync/internal/config"
	"github.com/usher2/u2dumpsync/internal/dumpsync"
	"github.com/usher2/u2dumpsync/internal/index"
	"github.com/usher2/u2dumpsync/internal/lock"
	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/metrics"
	"github.com/usher2/u2dumpsync/internal/registry"
	"github.com/usher2/u2dumpsync/internal/resolver"
	"github.com/usher2/u2dumpsync/internal/store"
)

// app - everything a command needs, wired from the config.
type app struct {
	cfg     *config.Config
	st      *store.Store
	remote  *registry.Client
	syncer  *dumpsync.Syncer
	idx     *index.Index
	metrics *metrics.Metrics
	locker  lock.Locker
	redis   *lock.Redis
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.Open(ctx, cfg.Database.Type, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		st:      st,
		remote:  registry.NewClient(cfg.Registry.URL, cfg.Registry.Timeout),
		idx:     index.New(),
		metrics: metrics.New(),
		locker:  lock.NewLocal(),
	}

	if cfg.Redis.URL != "" {
		a.redis, err = lock.NewRedisURL(cfg.Redis.URL, cfg.Redis.LockKey, cfg.Redis.LockTTL)
		if err != nil {
			_ = st.Close()

			return nil, err
		}

		a.locker = a.redis
	}

	a.syncer = dumpsync.New(st, a.remote, dumpsync.Options{
		Normal:        cfg.Dump.Normal,
		Urgent:        cfg.Dump.Urgent,
		RequestFile:   cfg.Registry.RequestFile,
		SignatureFile: cfg.Registry.SignatureFile,
		FormatVersion: cfg.Registry.FormatVersion,
		PollInterval:  cfg.Dump.PollInterval,
		PollTimeout:   cfg.Dump.PollTimeout,
		PollRetries:   cfg.Dump.PollRetries,
		CacheDir:      cfg.Dump.CacheDir,
	})
	a.syncer.SetObserver(a.metrics)
	a.syncer.AddHook("index", func(ctx context.Context) error {
		return a.idx.Rebuild(ctx, st)
	})

	if cfg.Resolver.Enabled {
		r, err := resolver.New(st, resolver.Options{
			Nameservers: cfg.Resolver.Nameservers,
			Concurrency: cfg.Resolver.Concurrency,
			Timeout:     cfg.Resolver.Timeout,
		})
		if err != nil {
			a.close()

			return nil, err
		}

		a.syncer.AddHook("resolver", func(ctx context.Context) error {
			_, err := r.Run(ctx)

			return err
		})
	}

	return a, nil
}

// loadIndex - build the index from a store that already holds a dump.
func (a *app) loadIndex(ctx context.Context) error {
	n, err := a.st.CountActive(ctx)
	if err != nil {
		return err
	}

	if n == 0 {
		logger.Info.Println("No saved records, index waits for the first dump")

		return nil
	}

	if err := a.idx.Rebuild(ctx, a.st); err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	return nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warning.Printf("Can't close redis: %s\n", err)
		}
	}

	if err := a.st.Close(); err != nil {
		logger.Warning.Printf("Can't close store: %s\n", err)
	}
}
