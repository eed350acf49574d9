// Package delivery pushes search answers into Humains conversations.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"maamar-search/internal/contextutil"
)

const (
	// MaxValueRunes caps every injected string value.
	MaxValueRunes = 30000
	// DefaultTimeout bounds login and inject calls.
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrNotConfigured is returned when URLs or credentials are missing.
	ErrNotConfigured = errors.New("humains delivery is not configured")
	// ErrNoToken is returned when login succeeds without a token in the body.
	ErrNoToken = errors.New("login response has no token")
)

// Client logs in with basic auth and injects values with the bearer token
// it receives. The token is cached and renewed once when an inject is
// rejected with 401.
type Client struct {
	loginURL  string
	injectURL string
	username  string
	password  string
	client    *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a delivery client. A non-positive timeout uses DefaultTimeout.
func NewClient(loginURL, injectURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		loginURL:  loginURL,
		injectURL: injectURL,
		username:  username,
		password:  password,
		client:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the client has everything it needs to inject.
func (c *Client) Configured() bool {
	return c != nil && c.loginURL != "" && c.injectURL != "" && c.username != "" && c.password != ""
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// Login fetches a fresh token and caches it.
func (c *Client) Login(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send login request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	token := strings.TrimSpace(lr.Token)
	if token == "" {
		token = strings.TrimSpace(lr.AccessToken)
	}
	if token == "" {
		return "", ErrNoToken
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return token, nil
}

func (c *Client) cachedToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

type injectRequest struct {
	ClientID       string            `json:"client_id"`
	ConversationID string            `json:"conversation_id"`
	Values         map[string]string `json:"values"`
}

// Inject sends values to one conversation.
func (c *Client) Inject(ctx context.Context, clientID, conversationID string, values map[string]string) error {
	logger := contextutil.LoggerFromContext(ctx)

	token := c.cachedToken()
	if token == "" {
		var err error
		if token, err = c.Login(ctx); err != nil {
			return fmt.Errorf("cannot inject: %w", err)
		}
	}

	body, err := json.Marshal(injectRequest{
		ClientID:       clientID,
		ConversationID: conversationID,
		Values:         TruncateValues(values, MaxValueRunes),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal inject request: %w", err)
	}

	status, raw, err := c.post(ctx, token, body)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		logger.InfoContext(ctx, "inject token rejected, logging in again")
		if token, err = c.Login(ctx); err != nil {
			return fmt.Errorf("cannot inject: %w", err)
		}
		if status, raw, err = c.post(ctx, token, body); err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("inject failed with status %d: %s", status, raw)
	}

	logger.InfoContext(ctx, "injected response", "conversation_id", conversationID, "status", status)
	return nil
}

func (c *Client) post(ctx context.Context, token string, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.injectURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create inject request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("failed to send inject request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(raw), nil
}

// TruncateValues copies values, cutting strings longer than limit runes and
// marking the cut with "...".
func TruncateValues(values map[string]string, limit int) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if r := []rune(v); len(r) > limit {
			v = string(r[:limit]) + "..."
		}
		out[k] = v
	}
	return out
}
