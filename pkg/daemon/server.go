package daemon

import (
	"context"
	"net"
	"os"
	"path/filepath"

	"google.golang.org/grpc"

	atelierv1 "github.com/jamesainslie/atelier/pkg/api/atelier/v1"
	"github.com/jamesainslie/atelier/pkg/atelier/logging"
)

// Config holds daemon configuration.
type Config struct {
	SocketPath string
	DataDir    string
}

// Server is the atelierd gRPC server.
type Server struct {
	cfg      Config
	svc      *Service
	grpc     *grpc.Server
	listener net.Listener
}

// NewServer listens on the configured socket and registers svc.
func NewServer(cfg Config, svc *Service) (*Server, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	// Remove stale socket if exists
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:      cfg,
		svc:      svc,
		grpc:     grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary)),
		listener: listener,
	}
	atelierv1.RegisterWorkspaceServer(srv.grpc, svc)

	return srv, nil
}

// logUnary logs failed calls at debug level.
func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		logging.Get("daemon").Debug("rpc failed", "method", info.FullMethod, "error", err)
	}
	return resp, err
}

// Serve starts the gRPC server. Blocks until stopped.
func (s *Server) Serve() error {
	return s.grpc.Serve(s.listener)
}

// Close stops the server, its mirrors and removes the socket. Watch
// streams end first so GracefulStop does not wait on them.
func (s *Server) Close() error {
	_ = s.svc.Close()
	s.grpc.GracefulStop()
	return os.RemoveAll(s.cfg.SocketPath)
}
