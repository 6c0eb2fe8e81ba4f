package lsp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Descriptor is one entry in the server registry: which extensions it
// claims, how to find its project root, and how to spawn it.
type Descriptor struct {
	ServerID string
	// Extensions are file extensions this server claims, without the
	// leading dot ("go", "ts", "tsx").
	Extensions []string
	// RootMarkers are walked for upward from the edited file; the
	// first directory containing one of them is the project root.
	RootMarkers []string
	// RequiresMarker means the server is skipped entirely (not spawned
	// against a fallback root) when no marker is found.
	RequiresMarker bool
	// Command builds the argv used to spawn the server, rooted at root.
	Command func(root string) []string
	// Install, when non-nil, builds a command that fetches the server
	// binary into dir. It is consulted only when the binary is neither
	// on PATH nor already in dir, and never when auto-install is
	// disabled.
	Install func(ctx context.Context, dir string) *exec.Cmd
}

// Registry holds an ordered list of server descriptors per extension.
// Order matters: when more than one server claims the same extension
// (TypeScript's Deno and Node toolchains both claim ".ts"), the first
// whose root predicate matches wins.
type Registry struct {
	byExtension map[string][]Descriptor
	all         []Descriptor
}

// NewRegistry builds a registry from the built-in descriptor set.
func NewRegistry() *Registry {
	r := &Registry{byExtension: make(map[string][]Descriptor)}
	for _, d := range builtinDescriptors() {
		r.Register(d)
	}
	return r
}

// Register adds d to the registry, appended after any existing
// descriptors for the same extensions.
func (r *Registry) Register(d Descriptor) {
	r.all = append(r.all, d)
	for _, ext := range d.Extensions {
		r.byExtension[ext] = append(r.byExtension[ext], d)
	}
}

// Candidates returns the ordered list of descriptors claiming the
// extension of path (without a leading dot, lowercased).
func (r *Registry) Candidates(path string) []Descriptor {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return nil
	}
	return r.byExtension[ext]
}

// ResolveRoot walks upward from the directory containing path looking
// for one of d's RootMarkers. The walk is bounded by projectDir: it
// checks every directory from the file's up to and including
// projectDir, never its ancestors; an empty projectDir unbounds the
// walk to the filesystem root. When no marker is found, ok is false
// if d.RequiresMarker, otherwise projectDir (or the file's own
// directory when projectDir is empty) is returned as the fallback
// root.
func ResolveRoot(path, projectDir string, d Descriptor) (root string, ok bool) {
	dir := filepath.Dir(path)
	if len(d.RootMarkers) == 0 {
		return dir, true
	}

	cur := dir
	for {
		for _, marker := range d.RootMarkers {
			if _, err := os.Stat(filepath.Join(cur, marker)); err == nil {
				return cur, true
			}
		}
		if projectDir != "" && cur == projectDir {
			break
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}

	if d.RequiresMarker {
		return "", false
	}
	if projectDir != "" {
		return projectDir, true
	}
	return dir, true
}

// builtinDescriptors returns the default server set. TypeScript's Deno
// server is registered ahead of its Node counterpart so that Deno
// projects (marked by deno.json) are preferred where both could claim
// the same extension.
func builtinDescriptors() []Descriptor {
	return []Descriptor{
		{
			ServerID:       "deno",
			Extensions:     []string{"ts", "tsx", "js", "jsx"},
			RootMarkers:    []string{"deno.json", "deno.jsonc"},
			RequiresMarker: true,
			Command:        func(root string) []string { return []string{"deno", "lsp"} },
		},
		{
			ServerID:    "typescript-language-server",
			Extensions:  []string{"ts", "tsx", "js", "jsx"},
			RootMarkers: []string{"package.json", "tsconfig.json"},
			Command: func(root string) []string {
				return []string{"typescript-language-server", "--stdio"}
			},
		},
		{
			ServerID:    "gopls",
			Extensions:  []string{"go"},
			RootMarkers: []string{"go.mod", "go.work"},
			Command:     func(root string) []string { return []string{"gopls"} },
			Install: func(ctx context.Context, dir string) *exec.Cmd {
				cmd := exec.CommandContext(ctx, "go", "install", "golang.org/x/tools/gopls@latest")
				cmd.Env = append(os.Environ(), "GOBIN="+dir)
				return cmd
			},
		},
		{
			ServerID:    "rust-analyzer",
			Extensions:  []string{"rs"},
			RootMarkers: []string{"Cargo.toml"},
			Command:     func(root string) []string { return []string{"rust-analyzer"} },
		},
		{
			ServerID:    "pyright",
			Extensions:  []string{"py"},
			RootMarkers: []string{"pyproject.toml", "setup.py", "requirements.txt"},
			Command: func(root string) []string {
				return []string{"pyright-langserver", "--stdio"}
			},
		},
	}
}
