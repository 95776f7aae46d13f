package app

import (
	"context"
	"errors"
	"testing"
)

func TestSessionStore_CreateAndSelect(t *testing.T) {
	store := NewSessionStore(NewMockBackend())
	ctx := context.Background()

	sess, err := store.Create(ctx, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Title != "New Chat" {
		t.Fatalf("default title = %q, want %q", sess.Title, "New Chat")
	}
	if store.ActiveID() != "" {
		t.Fatal("create must not auto-select")
	}

	if err := store.Select(sess.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := store.Active(); got == nil || got.ID != sess.ID {
		t.Fatalf("active = %+v", got)
	}

	if err := store.Select("nope"); err == nil {
		t.Fatal("selecting unknown session must fail")
	}
	if store.ActiveID() != sess.ID {
		t.Fatal("failed select must not change the active session")
	}
}

func TestSessionStore_RefreshNewestFirst(t *testing.T) {
	backend := NewMockBackend()
	store := NewSessionStore(backend)
	ctx := context.Background()

	first, _ := backend.CreateSession(ctx, "first", "")
	second, _ := backend.CreateSession(ctx, "second", "")
	// CreatedAt ties are possible at clock resolution; force an order.
	_ = backend.withSession(second.ID, func(s *ChatSession) {
		s.CreatedAt = first.CreatedAt.Add(1)
	})

	if err := store.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	list := store.List()
	if len(list) != 2 {
		t.Fatalf("got %d sessions", len(list))
	}
	if list[0].ID != second.ID {
		t.Fatalf("newest first violated: %+v", list)
	}
}

func TestSessionStore_RefreshClearsVanishedActive(t *testing.T) {
	backend := NewMockBackend()
	store := NewSessionStore(backend)
	ctx := context.Background()

	sess, _ := store.Create(ctx, "gone", "")
	if err := store.Select(sess.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := backend.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("backend delete: %v", err)
	}
	if err := store.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if store.ActiveID() != "" {
		t.Fatal("active id must clear when the session vanished remotely")
	}
}

func TestSessionStore_RenameOptimisticAndSurfaced(t *testing.T) {
	backend := NewMockBackend()
	store := NewSessionStore(backend)
	ctx := context.Background()

	sess, _ := store.Create(ctx, "", "")
	if err := store.Rename(ctx, sess.ID, "Renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got := store.Get(sess.ID); got.Title != "Renamed" {
		t.Fatalf("local title = %q", got.Title)
	}
	remote, _ := backend.ListSessions(ctx)
	if remote[0].Title != "Renamed" {
		t.Fatalf("remote title = %q", remote[0].Title)
	}

	// Unknown id: local state untouched, backend error surfaced.
	if err := store.Rename(ctx, "nope", "x"); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSessionStore_DeleteClearsActive(t *testing.T) {
	store := NewSessionStore(NewMockBackend())
	ctx := context.Background()

	a, _ := store.Create(ctx, "a", "")
	b, _ := store.Create(ctx, "b", "")
	if err := store.Select(a.ID); err != nil {
		t.Fatalf("select: %v", err)
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.ActiveID() != "" {
		t.Fatal("deleting the active session must deselect")
	}
	if store.Get(a.ID) != nil {
		t.Fatal("deleted session still listed")
	}
	if store.Get(b.ID) == nil {
		t.Fatal("unrelated session lost")
	}
}

func TestSessionStore_AssignToProject(t *testing.T) {
	backend := NewMockBackend()
	store := NewSessionStore(backend)
	ctx := context.Background()

	sess, _ := store.Create(ctx, "", "")
	if err := store.AssignToProject(ctx, sess.ID, "p1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := store.Get(sess.ID); got.ProjectID != "p1" {
		t.Fatalf("project id = %q", got.ProjectID)
	}
	if err := store.AssignToProject(ctx, sess.ID, ""); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if got := store.Get(sess.ID); got.ProjectID != "" {
		t.Fatalf("detach left project id %q", got.ProjectID)
	}
}
