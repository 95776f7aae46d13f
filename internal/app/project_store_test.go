package app

import (
	"context"
	"strings"
	"testing"
)

func TestProjectStore_CreateDefaults(t *testing.T) {
	store := NewProjectStore(NewMockBackend())
	ctx := context.Background()

	proj, err := store.Create(ctx, "Work", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if proj.DisplayColor() != DefaultProjectColor {
		t.Fatalf("color = %q", proj.DisplayColor())
	}
	if proj.DisplayIcon() != DefaultProjectIcon {
		t.Fatalf("icon = %q", proj.DisplayIcon())
	}
}

func TestProjectStore_ListSortedByName(t *testing.T) {
	store := NewProjectStore(NewMockBackend())
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := store.Create(ctx, name, ""); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	list := store.List()
	if len(list) != 3 || list[0].Name != "alpha" || list[2].Name != "zeta" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestProjectStore_ResolveStaleID(t *testing.T) {
	store := NewProjectStore(NewMockBackend())
	ctx := context.Background()

	proj, _ := store.Create(ctx, "Work", "")
	if store.Resolve(proj.ID) == nil {
		t.Fatal("live project did not resolve")
	}
	if store.Resolve("") != nil || store.Resolve("ghost") != nil {
		t.Fatal("empty or unknown id must resolve to nil")
	}

	if err := store.Delete(ctx, proj.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.Resolve(proj.ID) != nil {
		t.Fatal("deleted project still resolves")
	}
}

func TestProjectStore_DeleteClearsActiveFilter(t *testing.T) {
	store := NewProjectStore(NewMockBackend())
	ctx := context.Background()

	proj, _ := store.Create(ctx, "Work", "")
	store.SetActive(proj.ID)
	if err := store.Delete(ctx, proj.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if store.ActiveID() != "" {
		t.Fatal("active filter must clear with the project")
	}
}

func TestProjectStore_SessionsInTreatsStaleAsUnassigned(t *testing.T) {
	backend := NewMockBackend()
	store := NewProjectStore(backend)
	ctx := context.Background()

	proj, _ := store.Create(ctx, "Work", "")
	sessions := []ChatSession{
		{ID: "s1", ProjectID: proj.ID},
		{ID: "s2", ProjectID: ""},
		{ID: "s3", ProjectID: "deleted-project"},
	}

	in := store.SessionsIn(proj.ID, sessions)
	if len(in) != 1 || in[0].ID != "s1" {
		t.Fatalf("project view: %+v", in)
	}
	loose := store.SessionsIn("", sessions)
	if len(loose) != 2 || loose[0].ID != "s2" || loose[1].ID != "s3" {
		t.Fatalf("unassigned view: %+v", loose)
	}

	// Once the project is gone its sessions fall into the unassigned view.
	if err := store.Delete(ctx, proj.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	loose = store.SessionsIn("", sessions)
	if len(loose) != 3 {
		t.Fatalf("post-delete unassigned view: %+v", loose)
	}
}

func TestProjectStore_SummaryVisibleAfterRefresh(t *testing.T) {
	backend := NewMockBackend()
	store := NewProjectStore(backend)
	ctx := context.Background()

	proj, _ := store.Create(ctx, "Work", "")
	if err := store.RefreshSummary(ctx, proj.ID); err != nil {
		t.Fatalf("refresh summary: %v", err)
	}
	// The recomputed summary only lands locally on the next list refresh.
	if got := store.Resolve(proj.ID); got.ContextSummary != "" {
		t.Fatalf("summary visible before refresh: %q", got.ContextSummary)
	}
	if err := store.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	got := store.Resolve(proj.ID)
	if got == nil || !strings.HasPrefix(got.ContextSummary, "Summary refreshed") {
		t.Fatalf("summary after refresh: %+v", got)
	}
}
