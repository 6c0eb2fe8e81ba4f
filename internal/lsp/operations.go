package lsp

import (
	"context"
	"encoding/json"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

// Hover requests hover information at the given position.
func (c *Client) Hover(ctx context.Context, path string, pos Position) (*HoverResult, error) {
	raw, err := c.call(ctx, "textDocument/hover", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + path},
		Position:     pos,
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var wire struct {
		Contents json.RawMessage `json:"contents"`
		Range    *Range          `json:"range,omitempty"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, apperr.Wrap(apperr.Protocol, err, "lsp: decode hover result")
	}

	return &HoverResult{Contents: decodeHoverContents(wire.Contents), Range: wire.Range}, nil
}

// decodeHoverContents normalizes the hover result's "contents" field,
// which per the LSP spec may be a bare string, a MarkupContent object,
// or an array of either.
func decodeHoverContents(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var markup struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &markup); err == nil && markup.Value != "" {
		return markup.Value
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		out := ""
		for i, item := range list {
			if i > 0 {
				out += "\n"
			}
			out += decodeHoverContents(item)
		}
		return out
	}
	return ""
}

// Definition requests the definition locations for a symbol.
func (c *Client) Definition(ctx context.Context, path string, pos Position) ([]Location, error) {
	raw, err := c.call(ctx, "textDocument/definition", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + path},
		Position:     pos,
	})
	if err != nil {
		return nil, err
	}
	return decodeLocations(raw)
}

// References requests all reference locations for a symbol.
func (c *Client) References(ctx context.Context, path string, pos Position, includeDeclaration bool) ([]Location, error) {
	raw, err := c.call(ctx, "textDocument/references", struct {
		TextDocumentPositionParams
		Context struct {
			IncludeDeclaration bool `json:"includeDeclaration"`
		} `json:"context"`
	}{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: "file://" + path},
			Position:     pos,
		},
		Context: struct {
			IncludeDeclaration bool `json:"includeDeclaration"`
		}{IncludeDeclaration: includeDeclaration},
	})
	if err != nil {
		return nil, err
	}
	return decodeLocations(raw)
}

func decodeLocations(raw json.RawMessage) ([]Location, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var one Location
	if err := json.Unmarshal(raw, &one); err == nil && one.URI != "" {
		return []Location{one}, nil
	}

	var many []Location
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, apperr.Wrap(apperr.Protocol, err, "lsp: decode locations")
	}
	return many, nil
}

// DocumentSymbols requests the symbols declared in one document.
func (c *Client) DocumentSymbols(ctx context.Context, path string) ([]Symbol, error) {
	raw, err := c.call(ctx, "textDocument/documentSymbol", DocumentSymbolParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + path},
	})
	if err != nil {
		return nil, err
	}
	return decodeSymbols(raw)
}

// WorkspaceSymbols searches for symbols matching query across the
// whole project.
func (c *Client) WorkspaceSymbols(ctx context.Context, query string) ([]Symbol, error) {
	raw, err := c.call(ctx, "workspace/symbol", WorkspaceSymbolParams{Query: query})
	if err != nil {
		return nil, err
	}
	return decodeSymbols(raw)
}

// decodeSymbols normalizes both the flat SymbolInformation[] shape and
// the nested DocumentSymbol[] shape into Symbol, flattening children.
func decodeSymbols(raw json.RawMessage) ([]Symbol, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var flat []SymbolInformation
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 && flat[0].Location.URI != "" {
		out := make([]Symbol, 0, len(flat))
		for _, s := range flat {
			out = append(out, Symbol{Name: s.Name, Kind: s.Kind, Location: SymbolLocation{URI: s.Location.URI, Range: s.Location.Range}})
		}
		return out, nil
	}

	type documentSymbol struct {
		Name           string           `json:"name"`
		Kind           SymbolKind       `json:"kind"`
		Range          Range            `json:"range"`
		SelectionRange Range            `json:"selectionRange"`
		Children       []documentSymbol `json:"children,omitempty"`
	}
	var nested []documentSymbol
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, apperr.Wrap(apperr.Protocol, err, "lsp: decode symbols")
	}

	var flatten func(uri string, items []documentSymbol, out *[]Symbol)
	flatten = func(uri string, items []documentSymbol, out *[]Symbol) {
		for _, it := range items {
			*out = append(*out, Symbol{Name: it.Name, Kind: it.Kind, Location: SymbolLocation{URI: uri, Range: it.Range}})
			if len(it.Children) > 0 {
				flatten(uri, it.Children, out)
			}
		}
	}
	var out []Symbol
	flatten("", nested, &out)
	return out, nil
}

// Completion requests completion candidates at a position, accepting
// either the bare-array or {items:[...]} wire shape.
func (c *Client) Completion(ctx context.Context, path string, pos Position) ([]CompletionItem, error) {
	raw, err := c.call(ctx, "textDocument/completion", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + path},
		Position:     pos,
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var result rawCompletionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperr.Wrap(apperr.Protocol, err, "lsp: decode completion")
	}
	out := make([]CompletionItem, 0, len(result.Items))
	for _, it := range result.Items {
		out = append(out, CompletionItem{Label: it.Label, Kind: it.Kind, Detail: it.Detail})
	}
	return out, nil
}

// PrepareRename checks whether the symbol at pos can be renamed.
func (c *Client) PrepareRename(ctx context.Context, path string, pos Position) (bool, error) {
	raw, err := c.call(ctx, "textDocument/prepareRename", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + path},
		Position:     pos,
	})
	if err != nil {
		return false, err
	}
	return len(raw) > 0 && string(raw) != "null", nil
}

// Rename requests a workspace edit renaming the symbol at pos.
func (c *Client) Rename(ctx context.Context, path string, pos Position, newName string) (*WorkspaceEdit, error) {
	raw, err := c.call(ctx, "textDocument/rename", RenameParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + path},
		Position:     pos,
		NewName:      newName,
	})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var edit WorkspaceEdit
	if err := json.Unmarshal(raw, &edit); err != nil {
		return nil, apperr.Wrap(apperr.Protocol, err, "lsp: decode workspace edit")
	}
	return &edit, nil
}

// GoToImplementation requests the implementation locations of a symbol.
func (c *Client) GoToImplementation(ctx context.Context, path string, pos Position) ([]Location, error) {
	raw, err := c.call(ctx, "textDocument/implementation", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + path},
		Position:     pos,
	})
	if err != nil {
		return nil, err
	}
	return decodeLocations(raw)
}

// PrepareCallHierarchy resolves the call hierarchy item(s) rooted at pos.
func (c *Client) PrepareCallHierarchy(ctx context.Context, path string, pos Position) ([]CallHierarchyItem, error) {
	raw, err := c.call(ctx, "textDocument/prepareCallHierarchy", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + path},
		Position:     pos,
	})
	if err != nil {
		return nil, err
	}
	return decodeCallHierarchyItems(raw)
}

// IncomingCalls requests callers of item.
func (c *Client) IncomingCalls(ctx context.Context, item CallHierarchyItem) ([]CallHierarchyItem, error) {
	raw, err := c.call(ctx, "callHierarchy/incomingCalls", struct {
		Item CallHierarchyItem `json:"item"`
	}{Item: item})
	if err != nil {
		return nil, err
	}
	return decodeCallHierarchyEdges(raw, "from")
}

// OutgoingCalls requests callees of item.
func (c *Client) OutgoingCalls(ctx context.Context, item CallHierarchyItem) ([]CallHierarchyItem, error) {
	raw, err := c.call(ctx, "callHierarchy/outgoingCalls", struct {
		Item CallHierarchyItem `json:"item"`
	}{Item: item})
	if err != nil {
		return nil, err
	}
	return decodeCallHierarchyEdges(raw, "to")
}

func decodeCallHierarchyItems(raw json.RawMessage) ([]CallHierarchyItem, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []CallHierarchyItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apperr.Wrap(apperr.Protocol, err, "lsp: decode call hierarchy items")
	}
	return items, nil
}

// decodeCallHierarchyEdges unwraps the incoming/outgoing call result,
// which wraps each CallHierarchyItem under a "from"/"to" key.
func decodeCallHierarchyEdges(raw json.RawMessage, key string) ([]CallHierarchyItem, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var edges []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &edges); err != nil {
		return nil, apperr.Wrap(apperr.Protocol, err, "lsp: decode call hierarchy edges")
	}
	out := make([]CallHierarchyItem, 0, len(edges))
	for _, edge := range edges {
		field, ok := edge[key]
		if !ok {
			continue
		}
		var item CallHierarchyItem
		if err := json.Unmarshal(field, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
