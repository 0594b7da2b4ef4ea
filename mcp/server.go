// Package mcp exposes the memory layer as Model Context Protocol tools so an
// assistant can load, record and forget memories over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/PodJamz/8gent-sub005/ingest"
	"github.com/PodJamz/8gent-sub005/memory"
)

const serverName = "rlm"

// Server binds a memory.Manager (and optionally an ingest.Importer) to an MCP server.
type Server struct {
	manager  *memory.Manager
	importer *ingest.Importer
	userID   string
	logger   zerolog.Logger
	mcp      *server.MCPServer
}

// NewServer registers every memory tool. importer may be nil, in which case
// memory_ingest reports that ingestion is not configured.
func NewServer(manager *memory.Manager, importer *ingest.Importer, userID, version string, logger zerolog.Logger) (*Server, error) {
	if manager == nil {
		return nil, memory.ErrStoreUnavailable
	}
	if userID == "" {
		return nil, fmt.Errorf("default user id is required")
	}
	s := &Server{
		manager:  manager,
		importer: importer,
		userID:   userID,
		logger:   logger.With().Str("component", "mcp_server").Logger(),
		mcp: server.NewMCPServer(serverName, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying server, e.g. for an in-process client.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves tools on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info().Str("user_id", s.userID).Msg("Serving memory tools on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	for _, t := range s.tools() {
		s.mcp.AddTool(t.tool, s.wrap(t.tool.Name, t.handler))
	}
}

// wrap adds call logging and converts handler errors into tool error results.
func (s *Server) wrap(name string, h toolHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID := req.GetString("user_id", s.userID)
		if userID == "" {
			userID = s.userID
		}
		s.logger.Debug().
			Str("method", "CallTool").
			Str("tool", name).
			Str("user_id", userID).
			Msg("called")

		res, err := h(ctx, userID, req)
		if err != nil {
			s.logger.Error().
				Str("tool", name).
				Str("user_id", userID).
				Err(err).
				Msg("Tool call failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return res, nil
	}
}

// jsonResult renders v as indented JSON text.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
