package lsp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
	"github.com/opencode-ai/opencode-engine/internal/config"
)

// managedServer is one pooled Client plus its bookkeeping.
type managedServer struct {
	client   *Client
	lastUsed time.Time
}

// key identifies a pooled server by its id and project root: the same
// server binary can run once per root, never once per file.
type key struct {
	serverID string
	root     string
}

// Manager multiplexes many edited files over a small pool of running
// language-server processes, spawning one per (server, root) pair on
// first use and reusing it for every subsequent request in that root.
//
// Quarantine entries are permanent for the process lifetime: once a
// (server, root) pair fails to spawn or initialize, GetClient will
// keep skipping it until ResetBroken is called explicitly.
type Manager struct {
	registry *Registry
	opts     ManagerOptions

	mu          sync.Mutex
	servers     map[key]*managedServer
	spawning    map[key]chan struct{}
	quarantined map[key]struct{}
}

// ManagerOptions tunes a Manager beyond its registry.
type ManagerOptions struct {
	// ProjectDir bounds every root-marker walk: markers are searched
	// from the edited file up to and including ProjectDir, never its
	// ancestors. Empty leaves the walk unbounded.
	ProjectDir string
	// CommandOverrides replaces the spawn argv per server id.
	CommandOverrides map[string][]string
	// DisableDownload skips auto-installing a missing server binary;
	// the candidate is quarantined instead.
	DisableDownload bool
	// InstallDir is where auto-installed binaries land. Empty uses
	// the user cache directory.
	InstallDir string
}

// NewManager builds a manager around the given registry.
func NewManager(registry *Registry, opts ManagerOptions) *Manager {
	return &Manager{
		registry:    registry,
		opts:        opts,
		servers:     make(map[key]*managedServer),
		spawning:    make(map[key]chan struct{}),
		quarantined: make(map[key]struct{}),
	}
}

// GetClient returns a Ready client able to serve path, spawning one if
// necessary. It walks the registry's ordered candidates for path's
// extension and returns the first that yields a usable client: a
// candidate is skipped (never fails the whole call) when its root
// marker isn't found, when its key is quarantined, or when spawning it
// fails: in the last case the key is quarantined before moving on to
// the next candidate. GetClient returns (nil, nil), never an error,
// when every candidate is exhausted; the only error it returns is
// cancellation of ctx while waiting. Concurrent callers resolving the
// same (server, root) pair block on the same in-flight spawn rather
// than racing to start two processes.
func (m *Manager) GetClient(ctx context.Context, path string) (*Client, error) {
	for _, d := range m.registry.Candidates(path) {
		root, ok := ResolveRoot(path, m.opts.ProjectDir, d)
		if !ok {
			continue
		}

		client, err := m.getOrSpawn(ctx, d, root)
		if err != nil {
			if apperr.IsKind(err, apperr.Cancelled) {
				return nil, err
			}
			continue
		}
		if client != nil {
			return client, nil
		}
	}
	return nil, nil
}

// getOrSpawn resolves a single (server, root) candidate: returns a
// pooled or freshly spawned client, (nil, nil) if the candidate is
// quarantined or spawning failed, or an error only on cancellation.
func (m *Manager) getOrSpawn(ctx context.Context, d Descriptor, root string) (*Client, error) {
	k := key{serverID: d.ServerID, root: root}

	m.mu.Lock()
	if _, ok := m.quarantined[k]; ok {
		m.mu.Unlock()
		return nil, nil
	}

	if ms, ok := m.servers[k]; ok {
		if ms.client.State() == Stopped {
			delete(m.servers, k)
		} else {
			ms.lastUsed = time.Now()
			m.mu.Unlock()
			return ms.client, nil
		}
	}

	if wait, ok := m.spawning[k]; ok {
		m.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.Cancelled, ctx.Err(), "lsp: waiting for %s spawn", d.ServerID)
		}
		m.mu.Lock()
		ms, ok := m.servers[k]
		m.mu.Unlock()
		if !ok {
			return nil, nil
		}
		return ms.client, nil
	}

	done := make(chan struct{})
	m.spawning[k] = done
	m.mu.Unlock()

	client, err := m.spawn(ctx, d, root)

	m.mu.Lock()
	delete(m.spawning, k)
	if err != nil {
		m.quarantined[k] = struct{}{}
		m.mu.Unlock()
		close(done)
		return nil, nil
	}
	m.servers[k] = &managedServer{client: client, lastUsed: time.Now()}
	m.mu.Unlock()
	close(done)

	go m.evictOnDeath(k, client)

	return client, nil
}

// evictOnDeath removes k's pooled entry as soon as client stops,
// whether from an explicit Stop or the child process exiting on its
// own, so a crashed server is never handed back out of the pool.
func (m *Manager) evictOnDeath(k key, client *Client) {
	<-client.Done()
	m.mu.Lock()
	if ms, ok := m.servers[k]; ok && ms.client == client {
		delete(m.servers, k)
	}
	m.mu.Unlock()
}

func (m *Manager) spawn(ctx context.Context, d Descriptor, root string) (*Client, error) {
	argv := d.Command(root)
	if override, ok := m.opts.CommandOverrides[d.ServerID]; ok && len(override) > 0 {
		argv = override
	}
	if len(argv) == 0 {
		return nil, apperr.New(apperr.Validation, "lsp: %s has no spawn command", d.ServerID)
	}

	bin, err := m.resolveBinary(ctx, d, argv[0])
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(bin, argv[1:]...)
	cmd.Dir = root

	client := NewClient(d.ServerID, root)
	if err := client.Connect(ctx, cmd); err != nil {
		log.Warn().Err(err).Str("server", d.ServerID).Str("root", root).Msg("spawn failed, quarantining")
		return nil, err
	}
	return client, nil
}

// resolveBinary locates the server binary: PATH first, then the
// install cache, then an auto-install if the descriptor knows how and
// downloads aren't disabled.
func (m *Manager) resolveBinary(ctx context.Context, d Descriptor, name string) (string, error) {
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}

	dir := m.opts.InstallDir
	if dir == "" {
		dir = config.GetPaths().LSPBinPath()
	}
	cached := filepath.Join(dir, name)
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	if m.opts.DisableDownload || d.Install == nil {
		return "", apperr.New(apperr.NotFound, "lsp: %s binary not found", name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.Persistence, err, "lsp: create install dir %s", dir)
	}
	log.Info().Str("server", d.ServerID).Str("dir", dir).Msg("installing server binary")
	if err := d.Install(ctx, dir).Run(); err != nil {
		return "", apperr.Wrap(apperr.Transport, err, "lsp: install %s", name)
	}
	if _, err := os.Stat(cached); err != nil {
		return "", apperr.New(apperr.NotFound, "lsp: %s still missing after install", name)
	}
	return cached, nil
}

// CleanupIdle stops and evicts every pooled client whose last use
// exceeds idleTimeout.
func (m *Manager) CleanupIdle() {
	now := time.Now()

	m.mu.Lock()
	var stale []key
	for k, ms := range m.servers {
		if now.Sub(ms.lastUsed) > idleTimeout {
			stale = append(stale, k)
		}
	}
	toStop := make([]*Client, 0, len(stale))
	for _, k := range stale {
		toStop = append(toStop, m.servers[k].client)
		delete(m.servers, k)
	}
	m.mu.Unlock()

	for _, c := range toStop {
		_ = c.Stop()
	}
}

// ResetBroken clears the quarantine for serverID, or for every server
// if serverID is empty, allowing the next GetClient call to retry.
func (m *Manager) ResetBroken(serverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.quarantined {
		if serverID == "" || k.serverID == serverID {
			delete(m.quarantined, k)
		}
	}
}

// StopAll stops every pooled client, used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.servers))
	for k, ms := range m.servers {
		clients = append(clients, ms.client)
		delete(m.servers, k)
	}
	m.mu.Unlock()

	for _, c := range clients {
		_ = c.Stop()
	}
}

// Statuses returns a snapshot of every pooled server for diagnostics.
func (m *Manager) Statuses() []ServerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ServerStatus, 0, len(m.servers))
	for k, ms := range m.servers {
		out = append(out, ServerStatus{
			ServerID: k.serverID,
			Root:     k.root,
			State:    ms.client.State().String(),
			LastUsed: ms.lastUsed.Unix(),
		})
	}
	return out
}
