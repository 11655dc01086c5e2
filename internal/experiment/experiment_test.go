package experiment

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write definition: %v", err)
	}
	return path
}

func TestLoadValidDefinition(t *testing.T) {
	path := writeDefinition(t, `
title: cuteness
instructions: "You will see {trials} pairs. Pick the cuter one."
left_stimuli: [puppy, bunny, duckling]
right_stimuli: [kitten, hamster, chick]
`)

	def, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if def.Title != "cuteness" {
		t.Errorf("title = %q", def.Title)
	}
	if def.TrialCount() != 3 {
		t.Errorf("TrialCount() = %d, want 3", def.TrialCount())
	}
	want := "You will see 3 pairs. Pick the cuter one."
	if got := def.RenderInstructions(); got != want {
		t.Errorf("RenderInstructions() = %q, want %q", got, want)
	}
}

func TestLoadRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "empty lists",
			content: "title: x\n",
		},
		{
			name: "mismatched lengths",
			content: `
left_stimuli: [a, b]
right_stimuli: [c]
`,
		},
		{
			name: "blank stimulus",
			content: `
left_stimuli: [a, ""]
right_stimuli: [c, d]
`,
		},
		{
			name:    "not yaml",
			content: "{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDefinition(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected Load() error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
