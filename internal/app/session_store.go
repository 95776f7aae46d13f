package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SessionStore owns the set of chat sessions and the active session id.
// Mutations update local state optimistically and call through to the
// backend; a backend failure is surfaced to the caller, never silently
// reverted.
type SessionStore struct {
	mu       sync.Mutex
	backend  Backend
	sessions []ChatSession
	activeID string
}

func NewSessionStore(backend Backend) *SessionStore {
	return &SessionStore{backend: backend}
}

// Refresh replaces the local session list with the backend's.
func (s *SessionStore) Refresh(ctx context.Context) error {
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = sessions
	if s.activeID != "" && s.lookup(s.activeID) == nil {
		s.activeID = ""
	}
	return nil
}

// List returns a copy of the known sessions, newest first.
func (s *SessionStore) List() []ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatSession(nil), s.sessions...)
}

func (s *SessionStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns the active session, or nil when none is selected.
func (s *SessionStore) Active() *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.lookup(s.activeID); sess != nil {
		out := *sess
		return &out
	}
	return nil
}

func (s *SessionStore) Get(id string) *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.lookup(id); sess != nil {
		out := *sess
		return &out
	}
	return nil
}

// Create asks the backend for a new session. Selecting it is the caller's
// decision.
func (s *SessionStore) Create(ctx context.Context, title, projectID string) (*ChatSession, error) {
	if title == "" {
		title = "New Chat"
	}
	sess, err := s.backend.CreateSession(ctx, title, projectID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.mu.Lock()
	s.sessions = append([]ChatSession{*sess}, s.sessions...)
	s.mu.Unlock()
	return sess, nil
}

// Select marks a known session active. Loading its messages is the
// controller's job; the store only tracks identity.
func (s *SessionStore) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookup(id) == nil {
		return fmt.Errorf("select session %s: %w", id, errNotFound)
	}
	s.activeID = id
	return nil
}

// ClearActive deselects without touching the session list.
func (s *SessionStore) ClearActive() {
	s.mu.Lock()
	s.activeID = ""
	s.mu.Unlock()
}

func (s *SessionStore) Rename(ctx context.Context, id, title string) error {
	s.setTitle(id, title)
	if err := s.backend.RenameSession(ctx, id, title); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

// SetTitleLocal records a title already applied remotely (the generate-title
// endpoint renames server-side as part of its work).
func (s *SessionStore) SetTitleLocal(id, title string) {
	s.setTitle(id, title)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	if s.activeID == id {
		s.activeID = ""
	}
	s.mu.Unlock()
	if err := s.backend.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// AssignToProject moves a session into a project; empty id detaches it.
func (s *SessionStore) AssignToProject(ctx context.Context, id, projectID string) error {
	s.mu.Lock()
	if sess := s.lookup(id); sess != nil {
		sess.ProjectID = projectID
	}
	s.mu.Unlock()
	if err := s.backend.AssignSessionProject(ctx, id, projectID); err != nil {
		return fmt.Errorf("assign session: %w", err)
	}
	return nil
}

func (s *SessionStore) setTitle(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.lookup(id); sess != nil {
		sess.Title = title
	}
}

// lookup returns the stored session; callers hold s.mu.
func (s *SessionStore) lookup(id string) *ChatSession {
	if id == "" {
		return nil
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return &s.sessions[i]
		}
	}
	return nil
}
