// Package mcp exposes the memory engine as Model Context Protocol tools over
// stdio.
package mcp

import (
	"context"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/stridemem/internal/core"
	"github.com/sandevgo/stridemem/internal/service/memory"
	"github.com/sandevgo/stridemem/pkg/log"
)

type Server struct {
	mcp    *server.MCPServer
	engine *memory.Engine
	memory core.Memory
	limit  int
	in     io.Reader
	out    io.Writer

	// locks serialises writes per subject; handlers run concurrently.
	locks sync.Map
}

// NewServer registers every memory tool. mem may be nil, in which case the
// message log and context tools are not offered.
func NewServer(engine *memory.Engine, mem core.Memory, recallLimit int, in io.Reader, out io.Writer) *Server {
	if recallLimit <= 0 {
		recallLimit = memory.DefaultRecallLimit
	}

	s := &Server{
		mcp: server.NewMCPServer(
			core.StrideName,
			core.StrideVersion,
			server.WithToolCapabilities(false),
		),
		engine: engine,
		memory: mem,
		limit:  recallLimit,
		in:     in,
		out:    out,
	}

	s.registerExtractTool()
	s.registerRecallTool()
	s.registerSummarizeTool()
	s.registerForgetTool()
	if mem != nil {
		s.registerLogTool()
		s.registerContextTool()
	}
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Start serves stdio until ctx is cancelled or the input is closed.
func (s *Server) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "mcp")
	log.FromCtx(ctx).Info().Msg("starting mcp stdio server")

	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, s.in, s.out); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return nil
}

func (s *Server) lock(subjectID string) func() {
	v, _ := s.locks.LoadOrStore(subjectID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
