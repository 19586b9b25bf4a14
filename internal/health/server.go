// ABOUTME: HTTP and gRPC health endpoints plus the Prometheus scrape handler
// ABOUTME: Readiness pings the store and mirrors the result into the gRPC health service

package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/2389/shopkeeper/internal/config"
)

// ServiceName is the gRPC health service name reported for the bot.
const ServiceName = "shopkeeper"

const (
	pingTimeout     = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Pinger reports whether a dependency is reachable. store.Store satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Server  config.ServerConfig
	Metrics config.MetricsConfig

	// Store is pinged by /health/ready
	Store Pinger

	// Gatherer backs the metrics endpoint; defaults to prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server owns the optional HTTP and gRPC listeners.
type Server struct {
	opts   Options
	logger *slog.Logger
	health *health.Server
	grpc   *grpc.Server
	http   *http.Server
}

// New builds the servers without listening. An empty address disables that
// server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger.With("component", "health"),
		health: health.NewServer(),
	}
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	if opts.Server.GRPCAddr != "" {
		s.grpc = grpc.NewServer(
			grpc.KeepaliveParams(keepalive.ServerParameters{
				Time:    15 * time.Second,
				Timeout: 5 * time.Second,
			}),
		)
		healthpb.RegisterHealthServer(s.grpc, s.health)
	}
	if opts.Server.HTTPAddr != "" {
		s.http = &http.Server{
			Addr:              opts.Server.HTTPAddr,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Handler serves /health, /health/ready and, when enabled, the metrics path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/ready", s.handleReady)
	if s.opts.Metrics.Enabled {
		mux.Handle(s.opts.Metrics.Path, promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// SetServing flips the gRPC status, e.g. once the Matrix sync has started.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ping(r.Context()); err != nil {
		s.SetServing(false)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "store unavailable: %v", err)
		return
	}
	s.SetServing(true)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) ping(ctx context.Context) error {
	if s.opts.Store == nil {
		return errors.New("no store configured")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.opts.Store.Ping(ctx)
}

// Run listens on the configured addresses and blocks until ctx is canceled
// or a server fails.
func (s *Server) Run(ctx context.Context) error {
	var httpLn, grpcLn net.Listener
	var err error
	if s.http != nil {
		if httpLn, err = net.Listen("tcp", s.opts.Server.HTTPAddr); err != nil {
			return fmt.Errorf("listening on HTTP address: %w", err)
		}
	}
	if s.grpc != nil {
		if grpcLn, err = net.Listen("tcp", s.opts.Server.GRPCAddr); err != nil {
			if httpLn != nil {
				_ = httpLn.Close()
			}
			return fmt.Errorf("listening on gRPC address: %w", err)
		}
	}
	return s.Serve(ctx, httpLn, grpcLn)
}

// Serve runs on the given listeners; either may be nil.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	errCh := make(chan error, 2)
	if httpLn != nil && s.http != nil {
		s.logger.Info("serving health endpoints", "http_addr", httpLn.Addr().String(), "metrics", s.opts.Metrics.Enabled)
		go func() {
			if err := s.http.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP server: %w", err)
			}
		}()
	}
	if grpcLn != nil && s.grpc != nil {
		s.logger.Info("serving gRPC health", "grpc_addr", grpcLn.Addr().String())
		go func() {
			if err := s.grpc.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	var serverErr error
	select {
	case <-ctx.Done():
	case serverErr = <-errCh:
	}

	// ctx is already canceled here
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := s.Shutdown(shutdownCtx)
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// Shutdown stops both servers, forcing the gRPC server if ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	var err error
	if s.http != nil {
		if herr := s.http.Shutdown(ctx); herr != nil {
			err = fmt.Errorf("HTTP shutdown: %w", herr)
		}
	}
	if s.grpc != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.grpc.Stop()
		}
	}
	return err
}
