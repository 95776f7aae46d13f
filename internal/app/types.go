package app

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a conversation as the backend returns it.
// The ID is assigned server-side for persisted messages; messages appended
// optimistically by the client carry a generated id until the next reload.
type Message struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ChatSession is a single conversation. ProjectID is a weak reference: the
// project it names may have been deleted, in which case the session is
// treated as unassigned at read time.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	ProjectID string    `json:"project_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Project groups sessions and carries shared appearance plus an advisory,
// backend-computed context summary.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ContextSummary string    `json:"context_summary,omitempty"`
	Color          string    `json:"color,omitempty"`
	Icon           string    `json:"icon,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Backend appearance defaults, applied for display when a project row
// predates the color/icon columns.
const (
	DefaultProjectColor = "#7c3aed"
	DefaultProjectIcon  = "📁"
)

func (p *Project) DisplayColor() string {
	if p.Color == "" {
		return DefaultProjectColor
	}
	return p.Color
}

func (p *Project) DisplayIcon() string {
	if p.Icon == "" {
		return DefaultProjectIcon
	}
	return p.Icon
}
