// Package mcpserver exposes the tool surface over the Model Context Protocol,
// either as a streamable HTTP handler or on stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/gateway"
	"github.com/starford/recall/internal/tools"
)

// Authenticator returns the caller's identity for one tool call.
type Authenticator func(ctx context.Context) (*gateway.AuthContext, error)

// FromRequestContext reads the AuthContext the gateway middleware stored on
// the HTTP request and HTTPHandler copied into the call context.
func FromRequestContext(ctx context.Context) (*gateway.AuthContext, error) {
	ac, ok := gateway.FromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	return ac, nil
}

// StaticCredentials authenticates every call with fixed credentials, as in
// stdio mode. The credentials are re-resolved on each call, so a revoked key
// stops working without a restart.
func StaticCredentials(gw *gateway.Gateway, c gateway.Credentials) Authenticator {
	return func(ctx context.Context) (*gateway.AuthContext, error) {
		return gw.Authenticate(ctx, c)
	}
}

// Server wraps the MCP server with recall tools.
type Server struct {
	mcp     *server.MCPServer
	surface *tools.Surface
	auth    Authenticator
	logger  *slog.Logger
}

// New creates an MCP server with every tool descriptor registered.
func New(surface *tools.Surface, auth Authenticator, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{surface: surface, auth: auth, logger: logger}

	s.mcp = server.NewMCPServer(
		"Recall",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Read "+UsageURI+" (or call get_usage_guide) before using the note tools."),
	)

	for _, d := range tools.Descriptors() {
		s.mcp.AddTool(newTool(d), s.handler(d.Name))
	}

	s.mcp.AddTool(mcp.NewTool("get_usage_guide",
		mcp.WithDescription("Returns the rules for using the note tools. Call this before updating or deleting notes."),
		mcp.WithTitleAnnotation("Usage Guide"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	), s.getUsageGuide)

	s.mcp.AddResource(
		mcp.NewResource(UsageURI, "Usage Guide",
			mcp.WithResourceDescription("How an assistant should search, create, update and delete notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readUsageResource,
	)

	return s
}

// HTTPHandler returns the streamable HTTP transport. It must be mounted
// behind the gateway middleware.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if ac, ok := gateway.FromContext(r.Context()); ok {
				return gateway.WithAuth(ctx, ac)
			}
			return ctx
		}),
	)
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func newTool(d tools.Descriptor) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(d.Description),
		mcp.WithTitleAnnotation(d.Title),
		mcp.WithReadOnlyHintAnnotation(d.ReadOnly),
		mcp.WithDestructiveHintAnnotation(d.Destructive),
		mcp.WithIdempotentHintAnnotation(d.Idempotent),
		mcp.WithOpenWorldHintAnnotation(false),
	}
	for _, f := range d.Fields {
		props := []mcp.PropertyOption{mcp.Description(f.Description)}
		if f.Required {
			props = append(props, mcp.Required())
		}
		switch f.Type {
		case "number":
			opts = append(opts, mcp.WithNumber(f.Name, props...))
		default:
			opts = append(opts, mcp.WithString(f.Name, props...))
		}
	}
	return mcp.NewTool(d.Name, opts...)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ac, err := s.auth(ctx)
		if err != nil {
			msg := "Authentication required."
			if apperr.Kind(err) == apperr.ErrRateLimited {
				msg = "Rate limit exceeded. Please slow down."
			}
			return mcp.NewToolResultError(msg), nil
		}

		res := s.surface.Invoke(ctx, ac, name, req.GetArguments())
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			s.logger.Error("mcp: encode result failed", slog.String("tool", name), slog.String("error", err.Error()))
			return mcp.NewToolResultError("internal error"), nil
		}
		if !res.Success {
			return mcp.NewToolResultError(string(out)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func (s *Server) getUsageGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(UsageGuide), nil
}

func (s *Server) readUsageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      UsageURI,
			MIMEType: "text/markdown",
			Text:     UsageGuide,
		},
	}, nil
}
