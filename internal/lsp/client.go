package lsp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
	"github.com/opencode-ai/opencode-engine/internal/logging"
)

// log tags every line this package emits with the lsp component.
var log = logging.For("lsp")

// pendingRequest is one in-flight request awaiting a response.
type pendingRequest struct {
	resolve func(json.RawMessage, *JSONRPCError)
	timer   *time.Timer
}

// Client is one connected language-server session: initialize
// handshake, document lifecycle, typed requests and a diagnostic
// cache over a single child process. A Client is never
// re-initialized; callers that need a fresh session create a new one.
type Client struct {
	serverID string
	root     string

	mu    sync.Mutex
	state State

	cmd   *exec.Cmd
	codec *Codec

	nextID  int64
	pending map[int64]*pendingRequest

	open map[string]*openDocument

	diagMu sync.RWMutex
	diag   map[string][]Diagnostic

	stoppedCh chan struct{}
}

// NewClient constructs a Client bound to a not-yet-started server
// session for serverID rooted at root. Call Connect to start it.
func NewClient(serverID, root string) *Client {
	return &Client{
		serverID:  serverID,
		root:      root,
		state:     Disconnected,
		pending:   make(map[int64]*pendingRequest),
		open:      make(map[string]*openDocument),
		diag:      make(map[string][]Diagnostic),
		stoppedCh: make(chan struct{}),
	}
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ServerID returns the server identifier this client is connected to.
func (c *Client) ServerID() string { return c.serverID }

// Root returns the project root this client was spawned for.
func (c *Client) Root() string { return c.root }

// Connect spawns cmd, performs the initialize/initialized handshake
// with a 45s ceiling, and transitions Disconnected -> Initializing ->
// Ready. cmd must not have been started yet.
func (c *Client) Connect(ctx context.Context, cmd *exec.Cmd) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return apperr.New(apperr.Validation, "lsp: client for %s already connected", c.serverID)
	}
	c.state = Initializing
	c.mu.Unlock()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return apperr.Wrap(apperr.Transport, err, "lsp: stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return apperr.Wrap(apperr.Transport, err, "lsp: stdout pipe")
	}
	cmd.Stderr = io.Discard // stderr drained, never surfaced

	if err := cmd.Start(); err != nil {
		return apperr.Wrap(apperr.Transport, err, "lsp: spawn %s", c.serverID)
	}

	c.mu.Lock()
	c.cmd = cmd
	c.codec = NewCodec(stdin, stdout)
	c.mu.Unlock()

	go c.readLoop()

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	params := InitializeParams{
		ProcessID: os.Getpid(),
		RootURI:   "file://" + c.root,
		Capabilities: ClientCapabilities{
			TextDocument: TextDocumentClientCapabilities{
				Synchronization:    &SyncCapability{DidSave: true},
				Completion:         &CompletionCapability{},
				Hover:              &HoverCapability{ContentFormat: []string{"plaintext", "markdown"}},
				Definition:         &GenericCapability{},
				References:         &GenericCapability{},
				DocumentSymbol:     &DocumentSymbolCapability{SymbolKind: &SymbolKindCapability{ValueSet: AllSymbolKinds()}},
				Rename:             &GenericCapability{},
				Implementation:     &GenericCapability{},
				CallHierarchy:      &GenericCapability{},
				PublishDiagnostics: &GenericCapability{},
			},
			Workspace: WorkspaceClientCapabilities{
				Symbol: &WorkspaceSymbolCapability{SymbolKind: &SymbolKindCapability{ValueSet: AllSymbolKinds()}},
			},
		},
	}

	if _, err := c.call(connectCtx, "initialize", params); err != nil {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
		_ = cmd.Process.Kill()
		return err
	}

	if err := c.notify(ctx, "initialized", struct{}{}); err != nil {
		log.Warn().Err(err).Str("server", c.serverID).Msg("initialized notify failed")
	}

	c.mu.Lock()
	c.state = Ready
	c.mu.Unlock()
	return nil
}

// nextRequestID returns a strictly monotonically increasing id.
func (c *Client) nextRequestID() int64 {
	return atomic.AddInt64(&c.nextID, 1)
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.state == Stopped {
		c.mu.Unlock()
		return nil, apperr.New(apperr.Transport, "lsp: %s is stopped", c.serverID)
	}
	codec := c.codec
	id := c.nextRequestID()

	resultCh := make(chan struct {
		result json.RawMessage
		rpcErr *JSONRPCError
	}, 1)

	timeout := requestTimeout
	if method == "initialize" {
		timeout = connectTimeout
	}
	timer := time.AfterFunc(timeout, func() {
		c.settle(id, nil, &JSONRPCError{Code: -32001, Message: "request timed out"})
	})

	c.pending[id] = &pendingRequest{
		resolve: func(result json.RawMessage, rpcErr *JSONRPCError) {
			resultCh <- struct {
				result json.RawMessage
				rpcErr *JSONRPCError
			}{result, rpcErr}
		},
		timer: timer,
	}
	c.mu.Unlock()

	req := JSONRPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := codec.Write(req); err != nil {
		c.settle(id, nil, nil)
		return nil, apperr.Wrap(apperr.Transport, err, "lsp: write %s", method)
	}

	select {
	case res := <-resultCh:
		if res.rpcErr != nil {
			if res.rpcErr.Code == -32001 {
				return nil, apperr.New(apperr.Protocol, "lsp: %s timed out after %s", method, timeout)
			}
			return nil, apperr.New(apperr.Protocol, "lsp error %d: %s", res.rpcErr.Code, res.rpcErr.Message)
		}
		return res.result, nil
	case <-ctx.Done():
		c.settle(id, nil, nil)
		return nil, apperr.Wrap(apperr.Cancelled, ctx.Err(), "lsp: %s cancelled", method)
	}
}

// settle resolves and clears a pending request exactly once.
func (c *Client) settle(id int64, result json.RawMessage, rpcErr *JSONRPCError) {
	c.mu.Lock()
	pr, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	pr.timer.Stop()
	pr.resolve(result, rpcErr)
}

func (c *Client) notify(_ context.Context, method string, params any) error {
	c.mu.Lock()
	codec := c.codec
	state := c.state
	c.mu.Unlock()
	if state == Stopped || codec == nil {
		return nil
	}
	return codec.Write(JSONRPCRequest{JSONRPC: "2.0", Method: method, Params: params})
}

// readLoop drains the server's stdout, dispatching responses to
// pending requests and answering server-originated requests with a
// null result (this client never participates in reverse RPC).
// Informational notifications are discarded. On stream error (the
// child exited or the pipe broke) every pending request is rejected
// with a "stopped" error.
func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		codec := c.codec
		c.mu.Unlock()

		msg, err := codec.ReadMessage()
		if err != nil {
			c.markStopped()
			return
		}

		switch {
		case msg.Method != "" && len(msg.ID) > 0:
			// Server-originated request: answer with a null result.
			var id int64
			_ = json.Unmarshal(msg.ID, &id)
			_ = codec.Write(struct {
				JSONRPC string `json:"jsonrpc"`
				ID      int64  `json:"id"`
				Result  any    `json:"result"`
			}{"2.0", id, nil})
		case msg.Method == "textDocument/publishDiagnostics":
			var params PublishDiagnosticsParams
			if json.Unmarshal(msg.Params, &params) == nil {
				c.diagMu.Lock()
				c.diag[params.URI] = params.Diagnostics
				c.diagMu.Unlock()
			}
		case msg.Method != "":
			// window/logMessage, window/showMessage, $/progress, etc:
			// accepted and discarded.
		case len(msg.ID) > 0:
			var id int64
			_ = json.Unmarshal(msg.ID, &id)
			c.settle(id, msg.Result, msg.Error)
		}
	}
}

func (c *Client) rejectAllStopped() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]*pendingRequest)
	c.mu.Unlock()

	for _, pr := range pending {
		pr.timer.Stop()
		pr.resolve(nil, &JSONRPCError{Code: -32000, Message: "stopped"})
	}
}

// DidOpen sends didOpen the first time uri is opened, and didChange
// with an incremented version on every subsequent call. It never
// fails; it drops silently if the process is gone.
func (c *Client) DidOpen(path, languageID, text string) {
	uri := "file://" + path

	c.mu.Lock()
	doc, exists := c.open[uri]
	if !exists {
		doc = &openDocument{languageID: languageID, version: 1, lastText: text}
		c.open[uri] = doc
	} else {
		doc.version++
		doc.lastText = text
	}
	version := doc.version
	c.mu.Unlock()

	if !exists {
		_ = c.notify(context.Background(), "textDocument/didOpen", DidOpenTextDocumentParams{
			TextDocument: TextDocumentItem{URI: uri, LanguageID: languageID, Version: version, Text: text},
		})
		return
	}

	_ = c.notify(context.Background(), "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{URI: uri, Version: version},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: text}},
	})
}

// DidClose notifies the server the document is closed and forgets its
// version-tracking state.
func (c *Client) DidClose(path string) {
	uri := "file://" + path
	c.mu.Lock()
	delete(c.open, uri)
	c.mu.Unlock()
	_ = c.notify(context.Background(), "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}

// GetDiagnostics is a synchronous lookup into the diagnostic cache,
// populated only by the server's publishDiagnostics notifications.
func (c *Client) GetDiagnostics(path string) []Diagnostic {
	uri := "file://" + path
	c.diagMu.RLock()
	defer c.diagMu.RUnlock()
	return append([]Diagnostic(nil), c.diag[uri]...)
}

// markStopped transitions the client to Stopped, rejects every pending
// request, and closes stoppedCh. Idempotent; shared by Stop and by the
// read loop's detection of the child exiting on its own, so a crashed
// server is recognized as stopped even without an explicit Stop call.
func (c *Client) markStopped() {
	c.mu.Lock()
	if c.state == Stopped {
		c.mu.Unlock()
		return
	}
	c.state = Stopped
	c.open = make(map[string]*openDocument)
	c.mu.Unlock()

	c.rejectAllStopped()

	c.diagMu.Lock()
	c.diag = make(map[string][]Diagnostic)
	c.diagMu.Unlock()

	select {
	case <-c.stoppedCh:
	default:
		close(c.stoppedCh)
	}
}

// Stop marks the client stopped and sends SIGTERM to the child.
// Idempotent.
func (c *Client) Stop() error {
	c.mu.Lock()
	cmd := c.cmd
	c.mu.Unlock()

	c.markStopped()

	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = cmd.Process.Kill()
		}
	}
	return nil
}

// Done returns a channel closed once the client has stopped.
func (c *Client) Done() <-chan struct{} { return c.stoppedCh }
