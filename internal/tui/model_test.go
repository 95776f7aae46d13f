package tui

import (
	"context"
	"testing"
	"time"

	"github.com/Peppe37/mask/internal/app"
)

func testApplication() *app.Application {
	client := app.NewClient("mock://", time.Second)
	sessions := app.NewSessionStore(client)
	projects := app.NewProjectStore(client)
	jobs := app.NewJobRunner(nil)
	return &app.Application{
		Config:     app.DefaultConfig(),
		Logger:     app.NewLogger(nil),
		Backend:    client,
		Sessions:   sessions,
		Projects:   projects,
		Jobs:       jobs,
		Controller: app.NewController(client, sessions, projects, jobs, app.NewLogger(nil)),
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("hello", 10); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := truncateRunes("hello world", 8); got != "hello w…" {
		t.Fatalf("got %q", got)
	}
	if got := truncateRunes("héllo wörld", 6); got != "héllo…" {
		t.Fatalf("got %q", got)
	}
	if got := truncateRunes("x", 0); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\r\nb\n  c   d"); got != "a b c d" {
		t.Fatalf("got %q", got)
	}
}

func TestCycleProjectFilterWalksAllProjects(t *testing.T) {
	a := testApplication()
	ctx := context.Background()
	p1, _ := a.Projects.Create(ctx, "alpha", "")
	p2, _ := a.Projects.Create(ctx, "beta", "")

	m := New(a)
	if m.projectFilter != "" {
		t.Fatalf("initial filter %q", m.projectFilter)
	}
	m.cycleProjectFilter()
	if m.projectFilter != p1.ID || a.Projects.ActiveID() != p1.ID {
		t.Fatalf("first cycle: %q", m.projectFilter)
	}
	m.cycleProjectFilter()
	if m.projectFilter != p2.ID {
		t.Fatalf("second cycle: %q", m.projectFilter)
	}
	m.cycleProjectFilter()
	if m.projectFilter != "" {
		t.Fatalf("wraparound: %q", m.projectFilter)
	}
}

func TestRefreshSessionsAppliesProjectFilter(t *testing.T) {
	a := testApplication()
	ctx := context.Background()
	proj, _ := a.Projects.Create(ctx, "work", "")
	if _, err := a.Sessions.Create(ctx, "in project", proj.ID); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := a.Sessions.Create(ctx, "loose", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	m := New(a)
	if len(m.sessions) != 2 {
		t.Fatalf("unfiltered: %d", len(m.sessions))
	}
	m.projectFilter = proj.ID
	m.refreshSessions()
	if len(m.sessions) != 1 || m.sessions[0].Title != "in project" {
		t.Fatalf("filtered: %+v", m.sessions)
	}
}

func TestRecallHistory(t *testing.T) {
	a := testApplication()
	m := New(a)
	m.history = []string{"one", "two"}
	m.historyPos = 2

	if !m.recallHistory(-1) || m.input.Value() != "two" {
		t.Fatalf("recall: %q", m.input.Value())
	}
	if !m.recallHistory(-1) || m.input.Value() != "one" {
		t.Fatalf("recall: %q", m.input.Value())
	}
	// Stepping past the oldest entry stays put.
	if !m.recallHistory(-1) || m.input.Value() != "one" {
		t.Fatalf("underflow: %q", m.input.Value())
	}
	if !m.recallHistory(1) || m.input.Value() != "two" {
		t.Fatalf("forward: %q", m.input.Value())
	}
	// Walking forward past the newest restores the draft (empty here).
	if !m.recallHistory(1) || m.input.Value() != "" {
		t.Fatalf("draft: %q", m.input.Value())
	}
}
