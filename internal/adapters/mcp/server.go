// Package mcp exposes read-only membership administration as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/staffgate/internal/logging"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/persistence/middleware"
	"github.com/aretw0/staffgate/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// Admin is the slice of the membership engine the tools read from.
type Admin interface {
	Staff(ctx context.Context) ([]domain.StaffRecord, error)
	StaffText(staff []domain.StaffRecord) string
	UnreservedFiles(ctx context.Context) ([]domain.File, error)
}

// StaffResponse is the output of list_staff.
type StaffResponse struct {
	Staff []domain.StaffRecord `json:"staff" jsonschema_description:"Accepted members, superuser excluded"`
	Text  string               `json:"text" jsonschema_description:"The list as the superuser sees it in chat"`
}

// FilesResponse is the output of list_unreserved_files.
type FilesResponse struct {
	Files []domain.File `json:"files" jsonschema_description:"Documents not yet pinned to a member"`
}

// ConversationResponse is the output of inspect_conversation.
type ConversationResponse struct {
	Found        bool                 `json:"found"`
	Conversation *domain.Conversation `json:"conversation,omitempty" jsonschema_description:"Conversation with contact data masked"`
}

type inspectArgs struct {
	Identity domain.Identity `mapstructure:"identity"`
}

// Server wraps an MCP server bound to the membership engine.
type Server struct {
	admin         Admin
	conversations ports.StateStore
	logger        *slog.Logger
	mcpServer     *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer registers the tools. Conversations are read through the PII
// middleware.
func NewServer(admin Admin, conversations ports.StateStore, version string, opts ...Option) *Server {
	s := &Server{
		admin:         admin,
		conversations: middleware.Chain(conversations, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)),
		logger:        logging.NewNop(),
		mcpServer:     server.NewMCPServer("staffgate-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// SSEHandler returns the SSE transport mounted at /sse and /message.
// baseURL is the address clients reach the server on.
func (s *Server) SSEHandler(baseURL string) http.Handler {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	r := chi.NewRouter()
	r.Use(cors)
	r.Handle("/sse", sse.SSEHandler())
	r.Handle("/message", sse.MessageHandler())
	return r
}

// ServeSSE serves the SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SSEHandler(fmt.Sprintf("http://localhost:%d", port)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("stop mcp server: %w", err)
		}
		return nil
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_staff",
		mcp.WithDescription("List accepted members sorted by role and alias."),
		mcp.WithOutputSchema[StaffResponse](),
	), mcp.NewStructuredToolHandler(s.handleListStaff))

	s.mcpServer.AddTool(mcp.NewTool("list_unreserved_files",
		mcp.WithDescription("List candidate documents that no member holds yet."),
		mcp.WithOutputSchema[FilesResponse](),
	), mcp.NewStructuredToolHandler(s.handleListFiles))

	s.mcpServer.AddTool(mcp.NewTool("inspect_conversation",
		mcp.WithDescription("Show the state and data of one identity's conversation. Contact data is masked."),
		mcp.WithNumber("identity", mcp.Required(), mcp.Description("Chat identity")),
		mcp.WithOutputSchema[ConversationResponse](),
	), mcp.NewStructuredToolHandler(s.handleInspect))
}

func (s *Server) handleListStaff(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (StaffResponse, error) {
	staff, err := s.admin.Staff(ctx)
	if err != nil {
		return StaffResponse{}, err
	}
	return StaffResponse{Staff: middleware.MaskStaff(staff), Text: s.admin.StaffText(staff)}, nil
}

func (s *Server) handleListFiles(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (FilesResponse, error) {
	files, err := s.admin.UnreservedFiles(ctx)
	if err != nil {
		return FilesResponse{}, err
	}
	if files == nil {
		files = []domain.File{}
	}
	return FilesResponse{Files: files}, nil
}

func (s *Server) handleInspect(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (ConversationResponse, error) {
	var in inspectArgs
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &in,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ConversationResponse{}, err
	}
	if err := dec.Decode(args); err != nil {
		return ConversationResponse{}, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Identity.IsZero() {
		return ConversationResponse{}, errors.New("identity is required")
	}

	conv, err := s.conversations.Load(ctx, in.Identity)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return ConversationResponse{Found: false}, nil
	}
	if err != nil {
		s.logger.Error("inspect conversation failed", "identity", in.Identity, "error", err)
		return ConversationResponse{}, err
	}
	conv.Sealed = ""
	return ConversationResponse{Found: true, Conversation: conv}, nil
}
