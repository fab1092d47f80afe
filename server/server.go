package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"procinfo/collector"
	"procinfo/config"
	"procinfo/models"
	"procinfo/query"
)

// Querier runs one process query.
type Querier interface {
	Execute(ctx context.Context, f query.Filter) ([]models.ProcessMetrics, error)
}

// Server exposes a Querier over HTTP (REST + GraphQL) and optionally gRPC.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	engine   Querier
	version  string
	schema   *graphql.Schema
	caps     models.Capabilities
	hostInfo func(ctx context.Context) models.HostInfo
}

func New(cfg *config.Config, engine Querier, logger *slog.Logger, version string) (*Server, error) {
	schema, err := NewSchema(engine)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		version: version,
		schema:  schema,
		caps:    collector.DetectCapabilities(logger),
		hostInfo: func(ctx context.Context) models.HostInfo {
			return collector.CollectHostInfo(ctx, logger)
		},
	}, nil
}

// Run serves until ctx is canceled, then drains both listeners within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", s.cfg.ListenAddr, err)
	}

	var grpcLn net.Listener
	if s.cfg.GRPCListenAddr != "" {
		grpcLn, err = net.Listen("tcp", s.cfg.GRPCListenAddr)
		if err != nil {
			_ = httpLn.Close()
			return fmt.Errorf("listen grpc %s: %w", s.cfg.GRPCListenAddr, err)
		}
	}

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http endpoint listening", "addr", httpLn.Addr().String())
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	var grpcSrv *grpc.Server
	if grpcLn != nil {
		grpcSrv = s.GRPCServer()
		g.Go(func() error {
			s.logger.Info("grpc endpoint listening", "addr", grpcLn.Addr().String())
			if err := grpcSrv.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve grpc: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if grpcSrv != nil {
			stopGRPC(shutdownCtx, grpcSrv)
		}
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func stopGRPC(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
	}
}
