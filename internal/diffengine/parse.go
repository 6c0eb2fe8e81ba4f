package diffengine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

// LineKind classifies a single body line within a hunk.
type LineKind int

const (
	// LineContext is an unchanged line, shared by old and new.
	LineContext LineKind = iota
	// LineAdd is a line present only in the new file.
	LineAdd
	// LineRemove is a line present only in the old file.
	LineRemove
)

// Line is one body line of a hunk.
type Line struct {
	Kind LineKind
	Text string
}

// Hunk is a single `@@ ... @@` block: a splice instruction against the
// old file's line array starting at OldStart (1-based).
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// FilePatch is the set of hunks to apply to a single file.
type FilePatch struct {
	OldPath string
	NewPath string
	// NewFile is true when the old path was /dev/null, indicating the
	// patch creates this file from nothing.
	NewFile bool
	Hunks   []Hunk
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// normalizePath strips a leading "a/" or "b/" segment, as git-style
// unified diffs prefix paths with these by convention.
func normalizePath(p string) string {
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

// ParsePatch parses a multi-file unified diff into one FilePatch per
// `--- `/`+++ ` header pair. A file section whose header is followed
// by zero hunks rejects the entire patch: deliberate conservatism
// against malformed or truncated diffs.
func ParsePatch(text string) ([]*FilePatch, error) {
	lines := strings.Split(text, "\n")

	var patches []*FilePatch
	i := 0
	for i < len(lines) {
		line := lines[i]
		if !strings.HasPrefix(line, "--- ") {
			i++
			continue
		}
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "+++ ") {
			i++
			continue
		}

		oldRaw := strings.TrimSpace(strings.TrimPrefix(line, "--- "))
		newRaw := strings.TrimSpace(strings.TrimPrefix(lines[i+1], "+++ "))
		oldRaw = firstField(oldRaw)
		newRaw = firstField(newRaw)

		fp := &FilePatch{
			OldPath: normalizePath(oldRaw),
			NewPath: normalizePath(newRaw),
			NewFile: oldRaw == "/dev/null",
		}
		i += 2

		for i < len(lines) {
			m := hunkHeaderRe.FindStringSubmatch(lines[i])
			if m == nil {
				break
			}
			h, consumed, err := parseHunk(m, lines[i+1:])
			if err != nil {
				return nil, apperr.Wrap(apperr.Validation, err, "diffengine: parse hunk in %s", fp.NewPath)
			}
			fp.Hunks = append(fp.Hunks, h)
			i += 1 + consumed
		}

		if len(fp.Hunks) == 0 {
			return nil, apperr.New(apperr.Validation, "diffengine: patch header for %s has no hunks", fp.NewPath).
				WithHint("a file header must be followed by at least one @@ hunk")
		}
		patches = append(patches, fp)
	}

	if len(patches) == 0 {
		return nil, apperr.New(apperr.Validation, "diffengine: no file headers found in patch")
	}
	return patches, nil
}

// firstField strips a trailing tab-separated timestamp some diff
// generators append after the path (e.g. "a/foo.go\t2024-01-01...").
func firstField(s string) string {
	if idx := strings.IndexByte(s, '\t'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// parseHunk reads the header match plus body lines until the next
// header, hunk boundary, or EOF. body is the remainder of the file
// after the header line; it returns the hunk and how many of those
// lines were consumed as its body.
func parseHunk(m []string, body []string) (Hunk, int, error) {
	h := Hunk{}
	var err error
	if h.OldStart, err = strconv.Atoi(m[1]); err != nil {
		return h, 0, fmt.Errorf("bad old start: %w", err)
	}
	h.OldCount = 1
	if m[2] != "" {
		if h.OldCount, err = strconv.Atoi(m[2]); err != nil {
			return h, 0, fmt.Errorf("bad old count: %w", err)
		}
	}
	if h.NewStart, err = strconv.Atoi(m[3]); err != nil {
		return h, 0, fmt.Errorf("bad new start: %w", err)
	}
	h.NewCount = 1
	if m[4] != "" {
		if h.NewCount, err = strconv.Atoi(m[4]); err != nil {
			return h, 0, fmt.Errorf("bad new count: %w", err)
		}
	}

	oldSeen, newSeen := 0, 0
	consumed := 0
	for _, line := range body {
		if oldSeen >= h.OldCount && newSeen >= h.NewCount {
			break
		}
		if strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "--- ") {
			break
		}
		if line == "" {
			// Trailing blank line from the final split; only treat as
			// context if counts aren't already satisfied.
			if oldSeen >= h.OldCount && newSeen >= h.NewCount {
				break
			}
			h.Lines = append(h.Lines, Line{Kind: LineContext, Text: ""})
			oldSeen++
			newSeen++
			consumed++
			continue
		}
		switch line[0] {
		case '+':
			h.Lines = append(h.Lines, Line{Kind: LineAdd, Text: line[1:]})
			newSeen++
		case '-':
			h.Lines = append(h.Lines, Line{Kind: LineRemove, Text: line[1:]})
			oldSeen++
		case ' ':
			h.Lines = append(h.Lines, Line{Kind: LineContext, Text: line[1:]})
			oldSeen++
			newSeen++
		case '\\':
			// "\ No newline at end of file" marker: not a content line.
			consumed++
			continue
		default:
			h.Lines = append(h.Lines, Line{Kind: LineContext, Text: line})
			oldSeen++
			newSeen++
		}
		consumed++
	}
	return h, consumed, nil
}
