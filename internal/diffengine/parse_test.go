package diffengine

import "testing"

func TestParsePatch_StripsABPrefix(t *testing.T) {
	patch := "--- a/foo/bar.go\n+++ b/foo/bar.go\n@@ -1,1 +1,1 @@\n-old\n+new\n"
	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}
	if patches[0].OldPath != "foo/bar.go" || patches[0].NewPath != "foo/bar.go" {
		t.Errorf("paths not normalized: %+v", patches[0])
	}
}

func TestParsePatch_MultiFile(t *testing.T) {
	patch := `--- a/one.txt
+++ b/one.txt
@@ -1,1 +1,1 @@
-one
+ONE
--- a/two.txt
+++ b/two.txt
@@ -1,1 +1,1 @@
-two
+TWO
`
	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}
	if len(patches) != 2 {
		t.Fatalf("expected 2 file patches, got %d", len(patches))
	}
	if patches[0].NewPath != "one.txt" || patches[1].NewPath != "two.txt" {
		t.Errorf("unexpected paths: %+v %+v", patches[0], patches[1])
	}
}

func TestParsePatch_NoHeaders(t *testing.T) {
	_, err := ParsePatch("just some text\nwith no headers\n")
	if err == nil {
		t.Fatal("expected error for patch with no file headers")
	}
}

func TestParsePatch_ContextOnlyHunk(t *testing.T) {
	patch := "--- a/f.txt\n+++ b/f.txt\n@@ -1,3 +1,3 @@\n a\n b\n c\n"
	patches, err := ParsePatch(patch)
	if err != nil {
		t.Fatalf("ParsePatch: %v", err)
	}
	h := patches[0].Hunks[0]
	if len(h.Lines) != 3 {
		t.Fatalf("expected 3 context lines, got %d", len(h.Lines))
	}
	for _, l := range h.Lines {
		if l.Kind != LineContext {
			t.Errorf("expected context line, got kind %v", l.Kind)
		}
	}
}
