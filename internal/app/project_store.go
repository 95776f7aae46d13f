package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ProjectStore owns the set of projects and the active project filter.
// Project↔session association is by id only; deleting a project does not
// cascade, and a session whose project id no longer resolves is treated as
// unassigned at read time.
type ProjectStore struct {
	mu       sync.Mutex
	backend  Backend
	projects []Project
	activeID string
}

func NewProjectStore(backend Backend) *ProjectStore {
	return &ProjectStore{backend: backend}
}

// Refresh replaces the local project list with the backend's. This is also
// when refreshed context summaries become visible.
func (p *ProjectStore) Refresh(ctx context.Context) error {
	projects, err := p.backend.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Name < projects[j].Name
	})
	p.mu.Lock()
	defer p.mu.Unlock()
	p.projects = projects
	if p.activeID != "" && p.lookup(p.activeID) == nil {
		p.activeID = ""
	}
	return nil
}

func (p *ProjectStore) List() []Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Project(nil), p.projects...)
}

// Resolve maps a project id to the project, or nil when the id is empty,
// unknown, or stale.
func (p *ProjectStore) Resolve(id string) *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	if proj := p.lookup(id); proj != nil {
		out := *proj
		return &out
	}
	return nil
}

// SetActive sets the project filter; empty id clears it. The id is not
// required to resolve, a stale filter simply matches nothing.
func (p *ProjectStore) SetActive(id string) {
	p.mu.Lock()
	p.activeID = id
	p.mu.Unlock()
}

func (p *ProjectStore) ActiveID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeID
}

func (p *ProjectStore) Active() *Project {
	p.mu.Lock()
	defer p.mu.Unlock()
	if proj := p.lookup(p.activeID); proj != nil {
		out := *proj
		return &out
	}
	return nil
}

func (p *ProjectStore) Create(ctx context.Context, name, description string) (*Project, error) {
	proj, err := p.backend.CreateProject(ctx, name, description)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	p.mu.Lock()
	p.projects = append(p.projects, *proj)
	sort.Slice(p.projects, func(i, j int) bool {
		return p.projects[i].Name < p.projects[j].Name
	})
	p.mu.Unlock()
	return proj, nil
}

// Rename is its own backend operation, idempotent per id+name.
func (p *ProjectStore) Rename(ctx context.Context, id, name string) error {
	p.update(id, func(proj *Project) { proj.Name = name })
	if err := p.backend.RenameProject(ctx, id, name); err != nil {
		return fmt.Errorf("rename project: %w", err)
	}
	return nil
}

func (p *ProjectStore) UpdateColor(ctx context.Context, id, color string) error {
	p.update(id, func(proj *Project) { proj.Color = color })
	if err := p.backend.UpdateProjectColor(ctx, id, color); err != nil {
		return fmt.Errorf("update project color: %w", err)
	}
	return nil
}

func (p *ProjectStore) UpdateIcon(ctx context.Context, id, icon string) error {
	p.update(id, func(proj *Project) { proj.Icon = icon })
	if err := p.backend.UpdateProjectIcon(ctx, id, icon); err != nil {
		return fmt.Errorf("update project icon: %w", err)
	}
	return nil
}

// RefreshSummary asks the backend to recompute the project's context summary.
// The result is not awaited; it shows up on a later Refresh.
func (p *ProjectStore) RefreshSummary(ctx context.Context, id string) error {
	if err := p.backend.RefreshProjectSummary(ctx, id); err != nil {
		return fmt.Errorf("refresh project summary: %w", err)
	}
	return nil
}

// Delete removes the project. Sessions referencing it keep their stale id;
// Resolve turns those into "no project" from here on.
func (p *ProjectStore) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	kept := p.projects[:0]
	for _, proj := range p.projects {
		if proj.ID != id {
			kept = append(kept, proj)
		}
	}
	p.projects = kept
	if p.activeID == id {
		p.activeID = ""
	}
	p.mu.Unlock()
	if err := p.backend.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// SessionsIn filters sessions by project. An empty projectID selects the
// unassigned ones, including sessions whose project no longer resolves.
func (p *ProjectStore) SessionsIn(projectID string, sessions []ChatSession) []ChatSession {
	var out []ChatSession
	for _, sess := range sessions {
		resolved := p.Resolve(sess.ProjectID)
		switch {
		case projectID == "" && resolved == nil:
			out = append(out, sess)
		case resolved != nil && resolved.ID == projectID:
			out = append(out, sess)
		}
	}
	return out
}

func (p *ProjectStore) update(id string, fn func(*Project)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if proj := p.lookup(id); proj != nil {
		fn(proj)
	}
}

// lookup returns the stored project; callers hold p.mu.
func (p *ProjectStore) lookup(id string) *Project {
	if id == "" {
		return nil
	}
	for i := range p.projects {
		if p.projects[i].ID == id {
			return &p.projects[i]
		}
	}
	return nil
}
