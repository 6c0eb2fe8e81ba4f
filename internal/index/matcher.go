package index

import (
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// compiledMatcher caches whether a pattern is a plain literal (no glob
// metacharacters at all), since the ignore set is re-applied for every
// file the walker visits and most entries (lockfile names, directory
// names) never need a glob engine.
type compiledMatcher struct {
	mu    sync.Mutex
	cache map[string]bool // pattern -> isLiteral
}

func newCompiledMatcher() *compiledMatcher {
	return &compiledMatcher{cache: make(map[string]bool)}
}

func (m *compiledMatcher) isLiteral(pattern string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.cache[pattern]; ok {
		return v
	}
	v := !strings.ContainsAny(pattern, "*?[{")
	m.cache[pattern] = v
	return v
}

// Match reports whether name matches pattern, using doublestar's glob
// semantics: `**` spans arbitrary-depth path segments, a single `*`
// does not cross a `/`.
func (m *compiledMatcher) Match(pattern, name string) bool {
	if m.isLiteral(pattern) {
		return pattern == name
	}
	matched, _ := doublestar.Match(pattern, name)
	return matched
}
