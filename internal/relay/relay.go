// Package relay forwards messages between agents. It holds no state: each
// call is one POST to the target agent, without retries.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/pdftomarkdown/internal/config"
	"github.com/Lllllllleong/pdftomarkdown/internal/models"
)

const (
	AgentPolicyReviewer  = "PolicyReviewer"
	AgentMedicalReviewer = "MedicalReviewer"
)

// ErrUnknownAgent matches the error returned for agent names the relay has no
// route for.
var ErrUnknownAgent = errors.New("unknown agent")

// UnknownAgentError names an agent the relay has no route for.
type UnknownAgentError struct {
	Agent string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("Unknown agent: %s", e.Agent)
}

func (e *UnknownAgentError) Is(target error) bool {
	return target == ErrUnknownAgent
}

// Relay forwards messages to the configured agents.
type Relay struct {
	client *http.Client
	agents map[string]string
}

// New creates a relay for the agents in cfg using client.
func New(client *http.Client, cfg *config.RelayConfig) *Relay {
	return &Relay{
		client: client,
		agents: map[string]string{
			AgentPolicyReviewer:  cfg.PolicyReviewerURL,
			AgentMedicalReviewer: cfg.MedicalReviewerURL,
		},
	}
}

// AgentURL returns the endpoint of agent.
func (r *Relay) AgentURL(agent string) (string, error) {
	url, ok := r.agents[agent]
	if !ok {
		return "", models.ConfigError("", &UnknownAgentError{Agent: agent})
	}
	return url, nil
}

// Send posts message to agent and returns the agent's decoded JSON reply.
// Only an unknown agent is returned as an error; transport and HTTP failures
// come back as {"error": "..."} so the calling agent can read them.
func (r *Relay) Send(ctx context.Context, agent, conversationID, message string) (any, error) {
	url, err := r.AgentURL(agent)
	if err != nil {
		return nil, err
	}
	logCtx := slog.With("agent", agent, "conversationId", conversationID)

	data, err := r.post(ctx, url, models.AgentMessage{SessionID: conversationID, Message: message})
	if err != nil {
		logCtx.Warn("Relay call failed.", "error", err)
		return map[string]string{"error": err.Error()}, nil
	}
	logCtx.Info("Relayed message to agent.")
	return data, nil
}

// statusError is a non-2xx reply from an agent.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error occurred: %d - %s", e.code, e.body)
}

func (r *Relay) post(ctx context.Context, url string, payload models.AgentMessage) (any, error) {
	if url == "" {
		return nil, fmt.Errorf("no URL configured for this agent")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	var data any
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, fmt.Errorf("agent returned invalid JSON: %w", err)
	}
	return data, nil
}
