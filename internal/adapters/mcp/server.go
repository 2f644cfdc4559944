// Package mcpadapter exposes the question answering pipeline as MCP tools.
package mcpadapter

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/factoid-qa/internal/core/ports"
)

const (
	serverName = "factoid-qa"
	Version    = "0.1.0"
)

var ErrMissingAnswerer = errors.New("mcp: question answerer is required")

// Ports aggregates the driving ports used by the tools.
type Ports struct {
	Classifier   ports.QuestionClassifier
	Reformulator ports.QueryReformulator
	Answerer     ports.QuestionAnswerer
}

func (p *Ports) Validate() error {
	if p == nil || p.Answerer == nil {
		return ErrMissingAnswerer
	}
	return nil
}

type Server struct {
	ports  *Ports
	server *server.MCPServer
	logger *slog.Logger
}

func NewServer(p *Ports, logger *slog.Logger) (*Server, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ports:  p,
		server: server.NewMCPServer(serverName, Version, server.WithToolCapabilities(false), server.WithRecovery()),
		logger: logger.With("component", "mcp_server"),
	}
	s.registerTools()
	return s, nil
}

// Serve speaks JSON-RPC over the given streams until ctx is cancelled or
// the input is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.server)
	s.logger.Info("mcp_server_started", "version", Version)
	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
