package client

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
	"sync/atomic"
	"time"

	"parley/internal/logging"
	"parley/internal/types"
)

const (
	defaultBaseURL        = "http://127.0.0.1:5700"
	defaultRequestTimeout = 10 * time.Second
	connectProbeTimeout   = 3 * time.Second
	cancelSettleTimeout   = 250 * time.Millisecond
)

// Client talks to the agent service: JSON request/response plus the
// chunked generation stream. It tracks in-flight cancelable requests so a
// caller can abort any pending generation before starting a new one.
type Client struct {
	baseURL   string
	http      *http.Client
	log       logging.Logger
	connected atomic.Bool

	mu      sync.Mutex
	pending map[int64]*pendingRequest
	nextID  int64
}

type pendingRequest struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Client)

func WithLogger(log logging.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
		log:     logging.Nop(),
		pending: map[int64]*pendingRequest{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Connected reports the result of the most recent connectivity probe.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// CheckConnection probes the service liveness endpoint. It never returns an
// error: any failure (network, non-2xx, timeout) reads as false and flips
// the connectivity flag.
func (c *Client) CheckConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, connectProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api", nil)
	if err != nil {
		c.connected.Store(false)
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("connection probe failed", logging.F("err", err))
		c.connected.Store(false)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.connected.Store(ok)
	return ok
}

func (c *Client) GetConversations(ctx context.Context, limit int) ([]ConversationSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []ConversationSummary
	path := fmt.Sprintf("/api/conversations?limit=%d", limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (*ConversationDetail, error) {
	var out ConversationDetail
	if err := c.doJSON(ctx, http.MethodGet, "/api/conversations/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateConversation(ctx context.Context, id string, messages []types.Message) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("conversation id is required")
	}
	req := CreateConversationRequest{Messages: messages}
	return c.doJSON(ctx, http.MethodPut, "/api/conversations/"+id, req, nil)
}

func (c *Client) SendMessage(ctx context.Context, id string, msg types.Message, branch string) error {
	req := AppendMessageRequest{
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		Branch:    branch,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/conversations/"+id, req, nil)
}

// ConfirmTool resolves a pending tool call. A 404 means the service
// predates the confirmation capability and maps to
// ErrConfirmationUnavailable so callers can degrade.
func (c *Client) ConfirmTool(ctx context.Context, id string, req ConfirmToolRequest) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/conversations/"+id+"/confirm", req, nil)
	if apiErr := AsAPIError(err); apiErr != nil && apiErr.StatusCode == http.StatusNotFound {
		return ErrConfirmationUnavailable
	}
	return err
}

// Interrupt asks the service to stop the conversation's current
// generation. Best effort: a 404 from a legacy service is not an error
// because canceling the stream already stops delivery.
func (c *Client) Interrupt(ctx context.Context, id string) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/conversations/"+id+"/interrupt", nil, nil)
	if apiErr := AsAPIError(err); apiErr != nil && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

// CancelPending aborts every in-flight cancelable request and waits
// briefly for their handlers to settle, so a new request cannot race the
// cleanup of the one it replaces.
func (c *Client) CancelPending() {
	c.mu.Lock()
	waiting := make([]*pendingRequest, 0, len(c.pending))
	for _, p := range c.pending {
		p.cancel()
		waiting = append(waiting, p)
	}
	c.mu.Unlock()

	deadline := time.After(cancelSettleTimeout)
	for _, p := range waiting {
		select {
		case <-p.done:
		case <-deadline:
			return
		}
	}
}

func (c *Client) track(cancel context.CancelFunc) (id int64, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id = c.nextID
	done = make(chan struct{})
	c.pending[id] = &pendingRequest{cancel: cancel, done: done}
	return id, done
}

func (c *Client) untrack(id int64, done chan struct{}) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
	close(done)
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	req, err := c.newJSONRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
