package app

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestPromptHistory_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask", "prompt_history.json")

	entries := []string{"first prompt", "second prompt"}
	if err := SavePromptHistory(path, entries, 100); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadPromptHistory(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Fatalf("round trip: got %v, want %v", got, entries)
	}
}

func TestPromptHistory_MissingFile(t *testing.T) {
	got, err := LoadPromptHistory(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil entries, got %v", got)
	}
}

func TestNormalizePromptHistory(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		max  int
		want []string
	}{
		{
			name: "drops blanks",
			in:   []string{"a", "  ", "", "b"},
			max:  10,
			want: []string{"a", "b"},
		},
		{
			name: "drops immediate duplicates",
			in:   []string{"a", "a", "b", "a"},
			max:  10,
			want: []string{"a", "b", "a"},
		},
		{
			name: "bounds to newest",
			in:   []string{"a", "b", "c", "d"},
			max:  2,
			want: []string{"c", "d"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizePromptHistory(tc.in, tc.max)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
