package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/germanamz/localmcp/pkg/chats/chat"
	"github.com/germanamz/localmcp/pkg/chats/message"
	"github.com/germanamz/localmcp/pkg/modeladapter/usage"
	"github.com/germanamz/localmcp/pkg/tools/toolbox"
)

// Completer sends a transcript to an LLM and returns the assistant's reply.
// tools declares the MCP tools the model may call on this turn.
type Completer interface {
	Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error)
}

// UsageReporter is implemented by completers that embed ModelAdapter.
type UsageReporter interface {
	UsageTracker() *usage.Tracker
}

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Auth holds authentication settings for a provider API.
type Auth struct {
	Key    string // API key value; empty disables auth (e.g. local Ollama).
	Header string // Header name (default "Authorization").
	Scheme string // Prefix (default "Bearer" when Header is "Authorization").
}

// ModelAdapter holds state shared by provider implementations. Embed it and
// define a Complete method to shadow the stub.
type ModelAdapter struct {
	Name        string            // Model identifier.
	Temperature float64           // Sampling temperature; 0 leaves the provider default.
	MaxTokens   int               // Response token cap; 0 leaves the provider default.
	Auth        Auth              // Authentication settings.
	BaseURL     string            // API base URL without trailing slash.
	Client      *http.Client      // Nil falls back to http.DefaultClient.
	Headers     map[string]string // Extra headers applied to every request.
	Usage       usage.Tracker     // Token usage for the lifetime of this adapter.
}

// New creates a ModelAdapter.
func New(baseURL string, auth Auth, client *http.Client) ModelAdapter {
	return ModelAdapter{
		Auth:    auth,
		BaseURL: baseURL,
		Client:  client,
	}
}

// UsageTracker returns the adapter's token usage tracker.
func (a *ModelAdapter) UsageTracker() *usage.Tracker { return &a.Usage }

// Complete is a stub; providers define their own.
func (a *ModelAdapter) Complete(_ context.Context, _ *chat.Chat, _ []toolbox.Tool) (message.Message, error) {
	return message.Message{}, errors.New("adapter: Complete not implemented")
}

// httpClient has no timeout of its own: a query blocks until the model answers
// unless the caller's context carries a deadline.
func (a *ModelAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

// NewRequest builds a request against BaseURL with auth and custom headers set.
func (a *ModelAdapter) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	if a.Auth.Key != "" {
		header := a.Auth.Header
		if header == "" {
			header = "Authorization"
		}

		value := a.Auth.Key
		if header == "Authorization" {
			scheme := a.Auth.Scheme
			if scheme == "" {
				scheme = "Bearer"
			}
			value = scheme + " " + value
		} else if a.Auth.Scheme != "" {
			value = a.Auth.Scheme + " " + value
		}

		req.Header.Set(header, value)
	}

	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// PostJSON marshals payload, POSTs it to path, checks for a 2xx status and
// decodes the response into dest. A nil dest discards the body.
func (a *ModelAdapter) PostJSON(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := a.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient().Do(req) //nolint:gosec // URL is built from the configured BaseURL
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
