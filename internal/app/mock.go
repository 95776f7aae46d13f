package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errNotFound = errors.New("not found")

// MockBackend is an in-process stand-in for the chat backend, used when the
// base URL is mock:// and throughout the tests. Replies are canned: a couple
// of status updates followed by a short answer, streamed token by token with
// the same framing the real backend uses.
type MockBackend struct {
	mu       sync.Mutex
	projects map[string]*Project
	sessions map[string]*ChatSession
	messages map[string][]Message

	// Reply overrides the canned answer when set. StatusLines precede it.
	Reply       string
	StatusLines []string
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		projects:    make(map[string]*Project),
		sessions:    make(map[string]*ChatSession),
		messages:    make(map[string][]Message),
		StatusLines: []string{"Thinking..."},
	}
}

var _ Backend = (*MockBackend)(nil)

func (m *MockBackend) Health(ctx context.Context) error { return nil }

func (m *MockBackend) ListProjects(ctx context.Context) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (m *MockBackend) CreateProject(ctx context.Context, name, description string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Color:       DefaultProjectColor,
		Icon:        DefaultProjectIcon,
		CreatedAt:   time.Now().UTC(),
	}
	m.projects[p.ID] = p
	out := *p
	return &out, nil
}

func (m *MockBackend) RenameProject(ctx context.Context, id, name string) error {
	return m.withProject(id, func(p *Project) { p.Name = name })
}

func (m *MockBackend) UpdateProjectColor(ctx context.Context, id, color string) error {
	return m.withProject(id, func(p *Project) { p.Color = color })
}

func (m *MockBackend) UpdateProjectIcon(ctx context.Context, id, icon string) error {
	return m.withProject(id, func(p *Project) { p.Icon = icon })
}

func (m *MockBackend) RefreshProjectSummary(ctx context.Context, id string) error {
	// The real backend recomputes asynchronously; here the refresh lands at
	// once so tests can observe it on the next list.
	return m.withProject(id, func(p *Project) {
		p.ContextSummary = fmt.Sprintf("Summary refreshed at %s", time.Now().UTC().Format(time.RFC3339))
	})
}

func (m *MockBackend) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return errNotFound
	}
	delete(m.projects, id)
	// No cascade: sessions keep their stale project id.
	return nil
}

func (m *MockBackend) ListSessions(ctx context.Context) ([]ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (m *MockBackend) CreateSession(ctx context.Context, title, projectID string) (*ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if title == "" {
		title = "New Chat"
	}
	s := &ChatSession{
		ID:        uuid.NewString(),
		Title:     title,
		ProjectID: projectID,
		CreatedAt: time.Now().UTC(),
	}
	m.sessions[s.ID] = s
	out := *s
	return &out, nil
}

func (m *MockBackend) RenameSession(ctx context.Context, id, title string) error {
	return m.withSession(id, func(s *ChatSession) { s.Title = title })
}

func (m *MockBackend) AssignSessionProject(ctx context.Context, id, projectID string) error {
	return m.withSession(id, func(s *ChatSession) { s.ProjectID = projectID })
}

func (m *MockBackend) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return errNotFound
	}
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}

func (m *MockBackend) GenerateTitle(ctx context.Context, id, firstMessage string) (string, error) {
	title := TitleFromMessage(firstMessage)
	if err := m.RenameSession(ctx, id, title); err != nil {
		return "", err
	}
	return title, nil
}

func (m *MockBackend) GetMessages(ctx context.Context, id string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return nil, errNotFound
	}
	return append([]Message(nil), m.messages[id]...), nil
}

func (m *MockBackend) SendChat(ctx context.Context, sessionID, message string) (io.ReadCloser, error) {
	m.mu.Lock()
	if _, ok := m.sessions[sessionID]; !ok {
		m.mu.Unlock()
		return nil, errNotFound
	}
	reply := m.Reply
	if reply == "" {
		reply = fmt.Sprintf("You said: %q. This is the offline mock backend.", message)
	}
	statuses := append([]string(nil), m.StatusLines...)

	now := time.Now().UTC()
	m.messages[sessionID] = append(m.messages[sessionID],
		Message{ID: uuid.NewString(), SessionID: sessionID, Role: RoleUser, Content: message, CreatedAt: now},
		Message{ID: uuid.NewString(), SessionID: sessionID, Role: RoleAssistant, Content: reply, CreatedAt: now},
	)
	m.mu.Unlock()

	var buf bytes.Buffer
	for _, s := range statuses {
		buf.Write(EncodeStreamEvent(StreamEvent{Type: EventStatus, Content: s}))
	}
	for _, word := range strings.SplitAfter(reply, " ") {
		if word == "" {
			continue
		}
		buf.Write(EncodeStreamEvent(StreamEvent{Type: EventToken, Content: word}))
	}
	buf.Write(EncodeStreamEvent(StreamEvent{Type: EventDone}))
	return io.NopCloser(&buf), nil
}

func (m *MockBackend) withProject(id string, fn func(*Project)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return errNotFound
	}
	fn(p)
	return nil
}

func (m *MockBackend) withSession(id string, fn func(*ChatSession)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return errNotFound
	}
	fn(s)
	return nil
}

// TitleFromMessage derives a session title from the first user message:
// collapse whitespace, truncate to 50 runes with an ellipsis. It is the
// client-side fallback when the generate-title call fails, and what the mock
// backend serves.
func TitleFromMessage(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "New Chat"
	}
	runes := []rune(text)
	if len(runes) <= 50 {
		return text
	}
	return string(runes[:47]) + "..."
}
