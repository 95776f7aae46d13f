package app

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PromptHistory keeps recent prompts across runs so the input can recall
// them. Stored as a small JSON file under the user data dir.
type PromptHistory struct {
	Entries   []string  `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

func DefaultHistoryPath() string {
	if base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); base != "" {
		return filepath.Join(base, "mask", "prompt_history.json")
	}
	if base, err := os.UserHomeDir(); err == nil && base != "" {
		return filepath.Join(base, ".local", "share", "mask", "prompt_history.json")
	}
	return filepath.Join(os.TempDir(), "mask", "prompt_history.json")
}

func LoadPromptHistory(path string) ([]string, error) {
	if path == "" {
		path = DefaultHistoryPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var history PromptHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history.Entries, nil
}

func SavePromptHistory(path string, entries []string, max int) error {
	if path == "" {
		path = DefaultHistoryPath()
	}
	history := PromptHistory{
		Entries:   normalizePromptHistory(entries, max),
		UpdatedAt: time.Now().UTC(),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// normalizePromptHistory drops blanks and immediate duplicates and bounds
// the list, keeping the newest entries.
func normalizePromptHistory(entries []string, max int) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == entry {
			continue
		}
		out = append(out, entry)
	}
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}
