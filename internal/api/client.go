// Package api is the HTTP client for the personalization backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pathwaylabs/engage/internal/domain"
	"github.com/pathwaylabs/engage/internal/logging"
)

// TokenStore persists the backend session token pair under fixed keys.
type TokenStore interface {
	// Tokens returns the stored pair; ok is false when no access token exists.
	Tokens() (access, refresh string, ok bool)

	// SaveTokens stores the pair.
	SaveTokens(access, refresh string) error

	// ClearTokens removes the pair.
	ClearTokens() error
}

// MemoryTokenStore is an in-memory TokenStore, used in tests and as the
// fallback when durable storage is unavailable.
type MemoryTokenStore struct {
	access  string
	refresh string
}

func (m *MemoryTokenStore) Tokens() (string, string, bool) {
	return m.access, m.refresh, m.access != ""
}

func (m *MemoryTokenStore) SaveTokens(access, refresh string) error {
	m.access, m.refresh = access, refresh
	return nil
}

func (m *MemoryTokenStore) ClearTokens() error {
	m.access, m.refresh = "", ""
	return nil
}

// Client talks to the personalization backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	log     *logging.Logger
}

// NewClient creates a backend client. Timeout of 0 defaults to 30 seconds.
func NewClient(baseURL string, tokens TokenStore, timeout time.Duration, log *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log.Sub("api"),
	}
}

// InitSession creates a new backend session and stores the returned token
// pair. A response without an access token is a fatal initialization error.
func (c *Client) InitSession(ctx context.Context) error {
	body := map[string]string{"visitor_id": uuid.New().String()}

	var tokens sessionTokens
	if err := c.do(ctx, http.MethodPost, "/api/auth/session", body, &tokens, false); err != nil {
		return err
	}

	access, refresh := tokens.AccessToken, tokens.RefreshToken
	if tokens.Data != nil && access == "" {
		access, refresh = tokens.Data.AccessToken, tokens.Data.RefreshToken
	}
	if access == "" {
		return fmt.Errorf("session response missing access_token")
	}

	if err := c.tokens.SaveTokens(access, refresh); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist session tokens")
	}
	return nil
}

// ResetSession invalidates the server-side session and clears local tokens.
// The caller re-initializes afterwards.
func (c *Client) ResetSession(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/reset", nil, nil, true); err != nil {
		return err
	}
	if err := c.tokens.ClearTokens(); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear session tokens")
	}
	return nil
}

// SubmitGoal sends the visitor's first-turn business goal.
func (c *Client) SubmitGoal(ctx context.Context, goal string) (*GoalResponse, error) {
	var resp GoalResponse
	if err := c.do(ctx, http.MethodPost, "/api/goal", goalRequest{Message: goal}, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClarifyGoal sends a follow-up message against an already-set goal.
func (c *Client) ClarifyGoal(ctx context.Context, message string) (*ClarifyResponse, error) {
	var resp ClarifyResponse
	if err := c.do(ctx, http.MethodPost, "/api/clarify", goalRequest{Message: message}, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPersonalised fetches the full personalisation payload.
func (c *Client) GetPersonalised(ctx context.Context) (*domain.Personalisation, error) {
	var resp domain.Personalisation
	if err := c.do(ctx, http.MethodGet, "/api/personalised", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteMission submits a mission completion artifact.
func (c *Client) CompleteMission(ctx context.Context, missionID, answer string) (*CompleteMissionResponse, error) {
	req := CompleteMissionRequest{
		MissionID: missionID,
		Artifact:  domain.MissionArtifact{Answer: answer},
	}
	var resp CompleteMissionResponse
	if err := c.do(ctx, http.MethodPost, "/api/mission/complete", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chat sends a free-form chat message with optional context.
func (c *Client) Chat(ctx context.Context, message, chatContext string) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", chatRequest{Message: message, Context: chatContext}, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do performs one request. Authenticated calls attach the bearer token; a
// 401 purges stored tokens and surfaces a typed AuthError.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		access, _, ok := c.tokens.Tokens()
		if !ok {
			return &AuthError{Reason: "no access token"}
		}
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.tokens.ClearTokens(); err != nil {
			c.log.Warn().Err(err).Msg("failed to clear tokens after 401")
		}
		return &AuthError{Reason: "session rejected"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		msg := extractMessage(respBody, resp.StatusCode)
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Str("error", msg).Msg("backend error")
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

// RetryAuth runs fn, and on an auth failure re-initializes the session once
// and retries fn once. A second failure is returned to the caller.
func RetryAuth(ctx context.Context, c SessionInitializer, fn func() error) error {
	err := fn()
	if err == nil || !IsAuth(err) {
		return err
	}
	if initErr := c.InitSession(ctx); initErr != nil {
		return initErr
	}
	return fn()
}

// SessionInitializer is the slice of Backend needed by RetryAuth.
type SessionInitializer interface {
	InitSession(ctx context.Context) error
}
