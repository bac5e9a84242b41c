package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName         = "A2A Conversation MCP"
	serverInstructions = "This server implements conversation tools for agents to communicate with each other."
	SendMessageTool    = "send_message_to_policy_agents"
)

// Server exposes the relay as an MCP tool over streamable HTTP.
type Server struct {
	mcpServer *server.MCPServer
	relay     *Relay
	http      *http.Server
}

// NewServer registers the relay tool on a new MCP server listening on addr.
func NewServer(relay *Relay, version, addr string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(ServerName, version,
			server.WithToolCapabilities(false),
			server.WithInstructions(serverInstructions),
		),
		relay: relay,
	}
	s.registerTools()

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(s.mcpServer, server.WithStateLess(true)))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","service":"` + ServerName + `"}`))
	})
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(SendMessageTool,
		mcp.WithDescription("Used to send messages to Personal Policy Reviewer, and Medical Reviewer agents. "+
			"Use this tool when you need to send a message to one of these agents."),
		mcp.WithString("agent",
			mcp.Required(),
			mcp.Description("The agent to send the message to. Must be one of: PolicyReviewer, MedicalReviewer"),
			mcp.Enum(AgentPolicyReviewer, AgentMedicalReviewer),
		),
		mcp.WithString("conversationID",
			mcp.Required(),
			mcp.Description("The unique identifier for the conversation. Autogenerate if not provided."),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The message to send to the agent."),
		),
	), s.handleSendMessage)
}

// handleSendMessage implements the send_message_to_policy_agents tool. An
// unknown agent is a tool error; downstream failures are regular results
// carrying an "error" key.
func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent, err := request.RequireString("agent")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'agent' argument"), nil
	}
	conversationID, err := request.RequireString("conversationID")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'conversationID' argument"), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("Missing or invalid 'message' argument"), nil
	}

	data, err := s.relay.Send(ctx, agent, conversationID, message)
	if err != nil {
		slog.Warn("Rejected relay call.", "agent", agent, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode agent response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	slog.Info("Starting MCP server.", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down MCP server.")
	return s.http.Shutdown(ctx)
}
