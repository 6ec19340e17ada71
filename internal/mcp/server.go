package mcp

import (
	"context"
	"fmt"

	"growth-mcp/internal/assistant"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const serverName = "growth-mcp"

// Server exposes the growth assistant as MCP tools.
type Server struct {
	assistant *assistant.Assistant
	server    *mcpsdk.Server
}

// NewServer creates a new MCP server and registers its tools.
func NewServer(a *assistant.Assistant, version string) (*Server, error) {
	s := &Server{
		assistant: a,
		server:    mcpsdk.NewServer(&mcpsdk.Implementation{Name: serverName, Version: version}, nil),
	}
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the MCP loop over Stdio until the client disconnects or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	log.Info().Str("server", serverName).Msg("MCP Server starting Stdio loop")
	if err := s.server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}

// Connect attaches the server to an arbitrary transport (used for in-process clients).
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// inputSchema infers the JSON schema of T and restricts the named string
// properties to the given values.
func inputSchema[T any](enums map[string][]string) (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to infer input schema: %w", err)
	}
	for name, values := range enums {
		prop, ok := schema.Properties[name]
		if !ok {
			return nil, fmt.Errorf("input schema has no property %q", name)
		}
		prop.Enum = make([]any, len(values))
		for i, v := range values {
			prop.Enum[i] = v
		}
	}
	return schema, nil
}
