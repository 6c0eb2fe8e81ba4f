package index

import "testing"

func TestCompiledMatcher(t *testing.T) {
	m := newCompiledMatcher()

	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "sub/main.go", false},
		{"**/*.go", "sub/main.go", true},
		{"vendor/**", "vendor/pkg/a.go", true},
		{"vendor/**", "internal/a.go", false},
		{"file?.txt", "file1.txt", true},
		{"file?.txt", "file12.txt", false},
	}
	for _, c := range cases {
		if got := m.Match(c.pattern, c.name); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestCompiledMatcher_CachesCompiledForm(t *testing.T) {
	m := newCompiledMatcher()
	m.Match("*.go", "a.go")
	if len(m.cache) != 1 {
		t.Fatalf("expected 1 cached pattern, got %d", len(m.cache))
	}
	m.Match("*.go", "b.go")
	if len(m.cache) != 1 {
		t.Fatalf("expected cache reuse, got %d entries", len(m.cache))
	}
}
