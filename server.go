package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"

	"github.com/usher2/u2dumpsync/internal/check"
	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// servers - optional gRPC check and HTTP metrics listeners.
type servers struct {
	grpc *grpc.Server
	http *http.Server
}

func startServers(a *app) (*servers, error) {
	s := &servers{}

	if listen := a.cfg.Check.Listen; listen != "" {
		lis, err := net.Listen("tcp", listen)
		if err != nil {
			return nil, err
		}

		s.grpc = check.NewGRPCServer(a.idx)

		go func() {
			logger.Info.Printf("Check service listens on %s\n", listen)

			if err := s.grpc.Serve(lis); err != nil {
				logger.Error.Printf("Check service failed: %s\n", err)
			}
		}()
	}

	if listen := a.cfg.HTTP.Listen; listen != "" {
		s.http = &http.Server{
			Addr:              listen,
			Handler:           metrics.NewRouter(a.metrics, a.st, a.idx),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info.Printf("HTTP listens on %s\n", listen)

			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error.Printf("HTTP server failed: %s\n", err)
			}
		}()
	}

	return s, nil
}

func (s *servers) stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}

	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.http.Shutdown(ctx); err != nil {
			logger.Warning.Printf("HTTP shutdown: %s\n", err)
		}
	}
}
