package diffengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

func TestApply_SingleFileInsertion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basic", "hello.txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("line 1\nline 2\nline 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	patch := `--- a/basic/hello.txt
+++ b/basic/hello.txt
@@ -1,3 +1,4 @@
 line 1
+inserted
 line 2
 line 3
`
	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}

	res, err := Apply(dir, patches)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.FilesPatched != 1 || res.HunksApplied != 1 {
		t.Errorf("got %+v, want 1 file / 1 hunk", res)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "line 1\ninserted\nline 2\nline 3\n"
	if string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestApply_CreatesFileAndParents(t *testing.T) {
	dir := t.TempDir()

	patch := `--- /dev/null
+++ b/newdir/brand-new.txt
@@ -0,0 +1,2 @@
+first
+second
`
	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}
	if !patches[0].NewFile {
		t.Error("expected NewFile true for /dev/null old path")
	}

	if _, err := Apply(dir, patches); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "newdir", "brand-new.txt"))
	if err != nil {
		t.Fatalf("created file missing: %v", err)
	}
	if string(got) != "first\nsecond\n" {
		t.Errorf("content = %q", got)
	}
}

func TestParsePatch_RejectsZeroHunks(t *testing.T) {
	patch := "--- a/foo.txt\n+++ b/foo.txt\n"
	_, err := ParsePatch(patch)
	if err == nil {
		t.Fatal("expected error for header with no hunks")
	}
	if apperr.KindOf(err) != apperr.Validation {
		t.Errorf("kind = %v, want Validation", apperr.KindOf(err))
	}
}

func TestApply_AbsolutePathBypassesBaseDir(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "abs.txt")
	if err := os.WriteFile(abs, []byte("a\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	patch := "--- " + abs + "\n+++ " + abs + "\n@@ -1,2 +1,2 @@\n a\n-b\n+B\n"
	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}

	if _, err := Apply("/nonexistent/base", patches); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, _ := os.ReadFile(abs)
	if string(got) != "a\nB\n" {
		t.Errorf("content = %q", got)
	}
}

func TestApply_MultipleHunksTracksOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "multi.txt")
	original := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	patch := `--- a/multi.txt
+++ b/multi.txt
@@ -1,2 +1,3 @@
 1
+1.5
 2
@@ -8,2 +9,1 @@
 8
-9
`
	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}
	res, err := Apply(dir, patches)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.HunksApplied != 2 {
		t.Errorf("hunksApplied = %d, want 2", res.HunksApplied)
	}

	got, _ := os.ReadFile(path)
	want := "1\n1.5\n2\n3\n4\n5\n6\n7\n8\n10\n"
	if string(got) != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}
