package diffengine

import (
	"strings"
	"testing"
)

func TestSynthesize_Identical(t *testing.T) {
	if got := Synthesize("a\nb\nc", "a\nb\nc", "f.txt"); got != "" {
		t.Errorf("expected empty diff for identical text, got %q", got)
	}
}

func TestSynthesize_RoundTrip(t *testing.T) {
	old := "a\nb\nc\nd\ne"
	new := "a\nB\nc\nD\ne"

	patch := Synthesize(old, new, "f.txt")
	if patch == "" {
		t.Fatal("expected a non-empty diff")
	}
	if !strings.Contains(patch, "-b") || !strings.Contains(patch, "+B") {
		t.Errorf("expected -b/+B in diff:\n%s", patch)
	}
	if !strings.Contains(patch, "-d") || !strings.Contains(patch, "+D") {
		t.Errorf("expected -d/+D in diff:\n%s", patch)
	}

	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch of synthesized diff: %v\n%s", err, patch)
	}

	got, _, err := applyHunks(old, patches[0].Hunks)
	if err != nil {
		t.Fatalf("applyHunks: %v", err)
	}
	if got != new {
		t.Errorf("round-trip mismatch:\ngot:  %q\nwant: %q", got, new)
	}
}

func TestSynthesize_InsertionAndDeletion(t *testing.T) {
	old := "line1\nline2\nline3\n"
	new := "line1\ninserted\nline2\nline3\n"

	patch := Synthesize(old, new, "f.txt")
	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch: %v\n%s", err, patch)
	}
	got, _, err := applyHunks(old, patches[0].Hunks)
	if err != nil {
		t.Fatalf("applyHunks: %v", err)
	}
	if got != new {
		t.Errorf("got %q, want %q", got, new)
	}
}

func TestSynthesize_HunkCoalescing(t *testing.T) {
	// Two edits close together (closer than 2*CONTEXT+1 apart) should
	// coalesce into a single hunk.
	old := strings.Join([]string{"a", "b", "c", "d", "e", "f", "g", "h"}, "\n")
	new := strings.Join([]string{"a", "B", "c", "d", "e", "F", "g", "h"}, "\n")

	patch := Synthesize(old, new, "f.txt")
	count := strings.Count(patch, "@@ -")
	if count != 1 {
		t.Errorf("expected edits within context range to coalesce into 1 hunk, got %d:\n%s", count, patch)
	}
}

func TestSynthesize_FarApartEditsSplitHunks(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = "line"
	}
	oldLines := append([]string(nil), lines...)
	newLines := append([]string(nil), lines...)
	oldLines[2] = "old-near-start"
	newLines[2] = "new-near-start"
	oldLines[35] = "old-near-end"
	newLines[35] = "new-near-end"

	patch := Synthesize(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"), "f.txt")
	count := strings.Count(patch, "@@ -")
	if count != 2 {
		t.Errorf("expected 2 separate hunks for far-apart edits, got %d:\n%s", count, patch)
	}
}

func TestApply_SynthesizedPatchRecreatesNewText(t *testing.T) {
	old := "a\nb\nc\nd\ne"
	new := "a\nB\nc\nD\ne"

	patch := Synthesize(old, new, "sample.txt")
	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}
	applied, _, err := applyHunks(old, patches[0].Hunks)
	if err != nil {
		t.Fatalf("applyHunks: %v", err)
	}
	if applied != new {
		t.Errorf("got %q, want %q", applied, new)
	}
}
