package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Backend is the persistence and inference boundary. The real implementation
// is the REST client below; MockBackend serves the same surface in-process.
type Backend interface {
	Health(ctx context.Context) error

	ListProjects(ctx context.Context) ([]Project, error)
	CreateProject(ctx context.Context, name, description string) (*Project, error)
	RenameProject(ctx context.Context, id, name string) error
	UpdateProjectColor(ctx context.Context, id, color string) error
	UpdateProjectIcon(ctx context.Context, id, icon string) error
	RefreshProjectSummary(ctx context.Context, id string) error
	DeleteProject(ctx context.Context, id string) error

	ListSessions(ctx context.Context) ([]ChatSession, error)
	CreateSession(ctx context.Context, title, projectID string) (*ChatSession, error)
	RenameSession(ctx context.Context, id, title string) error
	AssignSessionProject(ctx context.Context, id, projectID string) error
	DeleteSession(ctx context.Context, id string) error
	GenerateTitle(ctx context.Context, id, firstMessage string) (string, error)
	GetMessages(ctx context.Context, id string) ([]Message, error)

	// SendChat starts a streaming exchange. The caller owns the returned
	// body and must close it; frame it with NewStreamDecoder.
	SendChat(ctx context.Context, sessionID, message string) (io.ReadCloser, error)
}

// TransportError is a failed HTTP round-trip or a non-success status.
type TransportError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %.120s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the chat backend's REST API. BaseURL includes the API
// prefix, e.g. http://localhost:8000/api.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	mock    *MockBackend
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
	// mock:// serves the whole API in-process so the client runs without a
	// backend.
	if strings.HasPrefix(baseURL, "mock://") {
		c.mock = NewMockBackend()
	}
	return c
}

var _ Backend = (*Client)(nil)

func (c *Client) Health(ctx context.Context) error {
	if c.mock != nil {
		return c.mock.Health(ctx)
	}
	// /health lives beside the API prefix, not under it.
	base := strings.TrimSuffix(c.BaseURL, "/api")
	return c.do(ctx, http.MethodGet, base+"/health", nil, nil)
}

// --- Projects ---

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	if c.mock != nil {
		return c.mock.ListProjects(ctx)
	}
	var out []Project
	if err := c.do(ctx, http.MethodGet, c.BaseURL+"/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (*Project, error) {
	if c.mock != nil {
		return c.mock.CreateProject(ctx, name, description)
	}
	body := map[string]any{"name": name}
	if description != "" {
		body["description"] = description
	}
	var out Project
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/projects", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenameProject(ctx context.Context, id, name string) error {
	if c.mock != nil {
		return c.mock.RenameProject(ctx, id, name)
	}
	return c.do(ctx, http.MethodPatch, c.projectURL(id, "rename"), map[string]any{"name": name}, nil)
}

func (c *Client) UpdateProjectColor(ctx context.Context, id, color string) error {
	if c.mock != nil {
		return c.mock.UpdateProjectColor(ctx, id, color)
	}
	return c.do(ctx, http.MethodPatch, c.projectURL(id, "color"), map[string]any{"color": color}, nil)
}

func (c *Client) UpdateProjectIcon(ctx context.Context, id, icon string) error {
	if c.mock != nil {
		return c.mock.UpdateProjectIcon(ctx, id, icon)
	}
	return c.do(ctx, http.MethodPatch, c.projectURL(id, "icon"), map[string]any{"icon": icon}, nil)
}

func (c *Client) RefreshProjectSummary(ctx context.Context, id string) error {
	if c.mock != nil {
		return c.mock.RefreshProjectSummary(ctx, id)
	}
	return c.do(ctx, http.MethodPost, c.projectURL(id, "summary"), nil, nil)
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	if c.mock != nil {
		return c.mock.DeleteProject(ctx, id)
	}
	return c.do(ctx, http.MethodDelete, c.projectURL(id, ""), nil, nil)
}

// --- Sessions ---

func (c *Client) ListSessions(ctx context.Context) ([]ChatSession, error) {
	if c.mock != nil {
		return c.mock.ListSessions(ctx)
	}
	var out []ChatSession
	if err := c.do(ctx, http.MethodGet, c.BaseURL+"/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSession(ctx context.Context, title, projectID string) (*ChatSession, error) {
	if c.mock != nil {
		return c.mock.CreateSession(ctx, title, projectID)
	}
	body := map[string]any{"title": title}
	if projectID != "" {
		body["project_id"] = projectID
	}
	var out ChatSession
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/sessions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	if c.mock != nil {
		return c.mock.RenameSession(ctx, id, title)
	}
	return c.do(ctx, http.MethodPatch, c.sessionURL(id, "rename"), map[string]any{"title": title}, nil)
}

// AssignSessionProject moves a session between projects; an empty projectID
// detaches it (the backend expects an explicit null).
func (c *Client) AssignSessionProject(ctx context.Context, id, projectID string) error {
	if c.mock != nil {
		return c.mock.AssignSessionProject(ctx, id, projectID)
	}
	body := map[string]any{"project_id": nil}
	if projectID != "" {
		body["project_id"] = projectID
	}
	return c.do(ctx, http.MethodPatch, c.sessionURL(id, "project"), body, nil)
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if c.mock != nil {
		return c.mock.DeleteSession(ctx, id)
	}
	return c.do(ctx, http.MethodDelete, c.sessionURL(id, ""), nil, nil)
}

func (c *Client) GenerateTitle(ctx context.Context, id, firstMessage string) (string, error) {
	if c.mock != nil {
		return c.mock.GenerateTitle(ctx, id, firstMessage)
	}
	var out struct {
		Title string `json:"title"`
	}
	err := c.do(ctx, http.MethodPost, c.sessionURL(id, "generate-title"),
		map[string]any{"first_message": firstMessage}, &out)
	if err != nil {
		return "", err
	}
	return out.Title, nil
}

func (c *Client) GetMessages(ctx context.Context, id string) ([]Message, error) {
	if c.mock != nil {
		return c.mock.GetMessages(ctx, id)
	}
	var out []Message
	if err := c.do(ctx, http.MethodGet, c.sessionURL(id, "messages"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Chat ---

func (c *Client) SendChat(ctx context.Context, sessionID, message string) (io.ReadCloser, error) {
	if c.mock != nil {
		return c.mock.SendChat(ctx, sessionID, message)
	}
	payload, err := json.Marshal(map[string]string{
		"message":    message,
		"session_id": sessionID,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	// The default client timeout would cut long streams short; rely on the
	// caller's context instead.
	streamClient := &http.Client{Transport: c.HTTP.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "send chat", Err: err}
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &TransportError{Op: "send chat", Status: resp.StatusCode, Body: string(body)}
	}
	return resp.Body, nil
}

// --- internals ---

func (c *Client) projectURL(id, tail string) string {
	u := c.BaseURL + "/projects/" + url.PathEscape(id)
	if tail != "" {
		u += "/" + tail
	}
	return u
}

func (c *Client) sessionURL(id, tail string) string {
	u := c.BaseURL + "/sessions/" + url.PathEscape(id)
	if tail != "" {
		u += "/" + tail
	}
	return u
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	op := strings.ToLower(method) + " " + url
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
