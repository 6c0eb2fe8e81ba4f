package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// rawMessage is an untyped JSON-RPC envelope used to distinguish
// requests, responses and notifications arriving on the wire before
// they're routed to a more specific handler.
type rawMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// Codec frames and unframes JSON-RPC messages over a byte stream per
// the LSP wire format: a header block terminated by a blank line,
// with a case-insensitive Content-Length field, followed by exactly
// that many bytes of UTF-8 JSON body.
type Codec struct {
	w      io.Writer
	wMu    sync.Mutex
	r      *bufio.Reader
	closed bool
}

// NewCodec wraps a writer (typically a child process's stdin) and a
// reader (typically its stdout) in a framed JSON-RPC codec.
func NewCodec(w io.Writer, r io.Reader) *Codec {
	return &Codec{w: w, r: bufio.NewReaderSize(r, 64*1024)}
}

// Write frames msg as `Content-Length: N\r\n\r\n<body>` and writes it
// atomically with respect to other Write calls on the same codec.
func (c *Codec) Write(msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("lsp: marshal message: %w", err)
	}

	c.wMu.Lock()
	defer c.wMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := io.WriteString(c.w, header); err != nil {
		return fmt.Errorf("lsp: write header: %w", err)
	}
	if _, err := c.w.Write(body); err != nil {
		return fmt.Errorf("lsp: write body: %w", err)
	}
	return nil
}

// ReadMessage blocks until a complete, well-formed JSON message has
// been extracted from the stream. A header block with no
// Content-Length is skipped and parsing resumes at the next header; a
// body that fails to parse as JSON is silently dropped and parsing
// resumes at the next header. Both cases loop rather than returning an
// error, per the codec's edge-case policy. ReadMessage returns an
// error only when the underlying reader itself fails (EOF, broken
// pipe), which the caller should treat as the child having exited.
func (c *Codec) ReadMessage() (*rawMessage, error) {
	for {
		contentLength, ok, err := c.readHeaders()
		if err != nil {
			return nil, err
		}
		if !ok {
			// Header block present but carried no Content-Length.
			// Skip it and keep reading.
			continue
		}

		body := make([]byte, contentLength)
		if _, err := io.ReadFull(c.r, body); err != nil {
			return nil, fmt.Errorf("lsp: read body: %w", err)
		}

		var msg rawMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			// Drop malformed bodies silently and keep reading.
			continue
		}
		return &msg, nil
	}
}

// readHeaders reads one `\r\n\r\n`-terminated header block and
// returns the parsed Content-Length. ok is false when the block
// contained no Content-Length header.
func (c *Codec) readHeaders() (contentLength int, ok bool, err error) {
	var buf bytes.Buffer
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return 0, false, err
		}
		buf.WriteString(line)
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		if idx := strings.IndexByte(trimmed, ':'); idx >= 0 {
			name := strings.ToLower(strings.TrimSpace(trimmed[:idx]))
			if name == "content-length" {
				n, perr := strconv.Atoi(strings.TrimSpace(trimmed[idx+1:]))
				if perr == nil {
					contentLength = n
					ok = true
				}
			}
		}
	}
	return contentLength, ok, nil
}
