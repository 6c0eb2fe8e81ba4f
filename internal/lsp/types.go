// Package lsp provides a Language Server Protocol client, server
// registry and per-project manager: the multiplexer that lets the
// agent's leaf tools query language servers for diagnostics,
// completions, definitions and references.
package lsp

import (
	"encoding/json"
	"time"
)

// State is a Client's position in its one-way lifecycle.
type State int

const (
	Disconnected State = iota
	Initializing
	Ready
	Stopped
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// connectTimeout bounds the initialize handshake.
const connectTimeout = 45 * time.Second

// requestTimeout bounds an ordinary typed request.
const requestTimeout = 15 * time.Second

// idleTimeout is how long a ManagedServer may sit unused before the
// manager reaps it.
const idleTimeout = 5 * time.Minute

// openDocument tracks one open text document's synchronization state.
type openDocument struct {
	languageID string
	version    int
	lastText   string
}

// ServerConfig describes one language server: the extensions it
// claims, the marker files used to find its project root, and the
// command used to spawn it.
type ServerConfig struct {
	ID         string   `json:"id"`
	Extensions []string `json:"extensions"`
	Command    []string `json:"command"`
	// RootMarkers lists files/directories whose presence (walking
	// upward from the edited file toward the project root) marks the
	// server's project root. Empty means "tolerate projectDir".
	RootMarkers []string `json:"rootMarkers,omitempty"`
	// RequiresMarker means spawn should be skipped (not fall back to
	// projectDir) when no marker is found.
	RequiresMarker bool `json:"requiresMarker,omitempty"`
}

// ServerStatus summarizes one running ManagedServer for diagnostics.
type ServerStatus struct {
	ServerID string `json:"serverId"`
	Root     string `json:"root"`
	State    string `json:"state"`
	LastUsed int64  `json:"lastUsed"`
}

// Symbol represents a code symbol returned from a workspace/document
// symbol query, normalized away from the wire's nested shapes.
type Symbol struct {
	Name     string         `json:"name"`
	Kind     SymbolKind     `json:"kind"`
	Location SymbolLocation `json:"location"`
}

// SymbolLocation represents a location in a document.
type SymbolLocation struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// Range represents a range in a text document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Position is zero-indexed (line, character).
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Location is (uri, range).
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// SymbolKind mirrors the LSP SymbolKind enum.
type SymbolKind int

const (
	SymbolKindFile        SymbolKind = 1
	SymbolKindModule      SymbolKind = 2
	SymbolKindNamespace   SymbolKind = 3
	SymbolKindPackage     SymbolKind = 4
	SymbolKindClass       SymbolKind = 5
	SymbolKindMethod      SymbolKind = 6
	SymbolKindProperty    SymbolKind = 7
	SymbolKindField       SymbolKind = 8
	SymbolKindConstructor SymbolKind = 9
	SymbolKindEnum        SymbolKind = 10
	SymbolKindInterface   SymbolKind = 11
	SymbolKindFunction    SymbolKind = 12
	SymbolKindVariable    SymbolKind = 13
	SymbolKindConstant    SymbolKind = 14
	SymbolKindString      SymbolKind = 15
	SymbolKindNumber      SymbolKind = 16
	SymbolKindBoolean     SymbolKind = 17
	SymbolKindArray       SymbolKind = 18
	SymbolKindObject      SymbolKind = 19
	SymbolKindKey         SymbolKind = 20
	SymbolKindNull        SymbolKind = 21
	SymbolKindEnumMember  SymbolKind = 22
	SymbolKindStruct      SymbolKind = 23
	SymbolKindEvent       SymbolKind = 24
	SymbolKindOperator    SymbolKind = 25
	SymbolKindTypeParam   SymbolKind = 26
)

// String returns the string representation of a SymbolKind.
func (sk SymbolKind) String() string {
	switch sk {
	case SymbolKindFile:
		return "File"
	case SymbolKindModule:
		return "Module"
	case SymbolKindNamespace:
		return "Namespace"
	case SymbolKindPackage:
		return "Package"
	case SymbolKindClass:
		return "Class"
	case SymbolKindMethod:
		return "Method"
	case SymbolKindProperty:
		return "Property"
	case SymbolKindField:
		return "Field"
	case SymbolKindConstructor:
		return "Constructor"
	case SymbolKindEnum:
		return "Enum"
	case SymbolKindInterface:
		return "Interface"
	case SymbolKindFunction:
		return "Function"
	case SymbolKindVariable:
		return "Variable"
	case SymbolKindConstant:
		return "Constant"
	case SymbolKindString:
		return "String"
	case SymbolKindNumber:
		return "Number"
	case SymbolKindBoolean:
		return "Boolean"
	case SymbolKindArray:
		return "Array"
	case SymbolKindObject:
		return "Object"
	case SymbolKindStruct:
		return "Struct"
	default:
		return "Unknown"
	}
}

// AllSymbolKinds returns all symbol kinds, used to populate the
// initialize capability envelope's valueSet.
func AllSymbolKinds() []SymbolKind {
	return []SymbolKind{
		SymbolKindFile, SymbolKindModule, SymbolKindNamespace, SymbolKindPackage,
		SymbolKindClass, SymbolKindMethod, SymbolKindProperty, SymbolKindField,
		SymbolKindConstructor, SymbolKindEnum, SymbolKindInterface, SymbolKindFunction,
		SymbolKindVariable, SymbolKindConstant, SymbolKindString, SymbolKindNumber,
		SymbolKindBoolean, SymbolKindArray, SymbolKindObject, SymbolKindKey,
		SymbolKindNull, SymbolKindEnumMember, SymbolKindStruct, SymbolKindEvent,
		SymbolKindOperator, SymbolKindTypeParam,
	}
}

// Diagnostic represents one code diagnostic published by a server.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Code     string `json:"code,omitempty"`
	Source   string `json:"source,omitempty"`
	Message  string `json:"message"`
}

const (
	DiagnosticSeverityError       = 1
	DiagnosticSeverityWarning     = 2
	DiagnosticSeverityInformation = 3
	DiagnosticSeverityHint        = 4
)

// HoverResult is the normalized result of a hover request.
type HoverResult struct {
	Contents string `json:"contents"`
	Range    *Range `json:"range,omitempty"`
}

// CompletionItem is one normalized completion candidate.
type CompletionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// CallHierarchyItem represents one node in a call hierarchy.
type CallHierarchyItem struct {
	Name  string `json:"name"`
	Kind  int    `json:"kind"`
	URI   string `json:"uri"`
	Range Range  `json:"range"`
	Data  any    `json:"data,omitempty"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request or notification
// (notifications omit ID).
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// InitializeParams represents the parameters for the initialize request.
type InitializeParams struct {
	ProcessID    int                `json:"processId"`
	RootURI      string             `json:"rootUri"`
	Capabilities ClientCapabilities `json:"capabilities"`
}

// ClientCapabilities declares the operations this client supports.
type ClientCapabilities struct {
	TextDocument TextDocumentClientCapabilities `json:"textDocument,omitempty"`
	Workspace    WorkspaceClientCapabilities    `json:"workspace,omitempty"`
}

type TextDocumentClientCapabilities struct {
	Synchronization    *SyncCapability           `json:"synchronization,omitempty"`
	Completion         *CompletionCapability     `json:"completion,omitempty"`
	Hover              *HoverCapability          `json:"hover,omitempty"`
	Definition         *GenericCapability        `json:"definition,omitempty"`
	References         *GenericCapability        `json:"references,omitempty"`
	DocumentSymbol     *DocumentSymbolCapability `json:"documentSymbol,omitempty"`
	Rename             *GenericCapability        `json:"rename,omitempty"`
	Implementation     *GenericCapability        `json:"implementation,omitempty"`
	CallHierarchy      *GenericCapability        `json:"callHierarchy,omitempty"`
	PublishDiagnostics *GenericCapability        `json:"publishDiagnostics,omitempty"`
}

type SyncCapability struct {
	DidSave bool `json:"didSave,omitempty"`
}

type CompletionCapability struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type GenericCapability struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type HoverCapability struct {
	ContentFormat []string `json:"contentFormat,omitempty"`
}

type DocumentSymbolCapability struct {
	SymbolKind *SymbolKindCapability `json:"symbolKind,omitempty"`
}

type SymbolKindCapability struct {
	ValueSet []SymbolKind `json:"valueSet,omitempty"`
}

type WorkspaceClientCapabilities struct {
	Symbol *WorkspaceSymbolCapability `json:"symbol,omitempty"`
}

type WorkspaceSymbolCapability struct {
	SymbolKind *SymbolKindCapability `json:"symbolKind,omitempty"`
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

type DocumentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type WorkspaceSymbolParams struct {
	Query string `json:"query"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type RenameParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
	NewName      string                 `json:"newName"`
}

type SymbolInformation struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	ContainerName string     `json:"containerName,omitempty"`
}

// WorkspaceEdit is the normalized result of a rename request: file URI
// to replacement text edits.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit `json:"changes,omitempty"`
}

type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// rawCompletionResult accepts either a bare array or the
// {items: [...]} envelope servers are free to return.
type rawCompletionResult struct {
	Items []rawCompletionItem
}

func (r *rawCompletionResult) UnmarshalJSON(data []byte) error {
	var items []rawCompletionItem
	if err := json.Unmarshal(data, &items); err == nil {
		r.Items = items
		return nil
	}
	var wrapped struct {
		Items []rawCompletionItem `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	r.Items = wrapped.Items
	return nil
}

type rawCompletionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}
