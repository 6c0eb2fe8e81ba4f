package diffengine

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

// Result summarizes a successful Apply call.
type Result struct {
	FilesPatched int
	HunksApplied int
}

// Apply splices every hunk of every patch into its target file under
// baseDir (absolute patch paths bypass baseDir). A file that doesn't
// exist is treated as empty, which combined with a /dev/null old-path
// header lets a patch create new files and their parent directories.
//
// Apply trusts the patch: it does not three-way merge, and a write
// failure partway through a multi-file patch leaves earlier files
// already patched on disk; the caller pairs Apply with the snapshot
// package for atomicity across a patch.
func Apply(baseDir string, patches []*FilePatch) (*Result, error) {
	res := &Result{}
	for _, fp := range patches {
		path := fp.NewPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}

		original, err := readOrEmpty(path)
		if err != nil {
			return res, apperr.Wrap(apperr.Persistence, err, "diffengine: read %s", path)
		}

		updated, hunksApplied, err := applyHunks(original, fp.Hunks)
		if err != nil {
			return res, apperr.Wrap(apperr.Validation, err, "diffengine: apply hunks to %s", path)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return res, apperr.Wrap(apperr.Persistence, err, "diffengine: mkdir for %s", path)
		}
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return res, apperr.Wrap(apperr.Persistence, err, "diffengine: write %s", path)
		}

		res.FilesPatched++
		res.HunksApplied += hunksApplied
	}
	return res, nil
}

func readOrEmpty(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// applyHunks folds each hunk into the file's line array in order,
// maintaining a running offset so later hunks' OldStart (computed
// against the ORIGINAL file) lands at the right place in the array as
// it grows or shrinks from earlier hunks.
func applyHunks(original string, hunks []Hunk) (string, int, error) {
	// strings.Split(original, "\n") is what we want here: a trailing
	// "\n" produces a final empty
	// element, and joining with "\n" restores it, preserving the
	// presence or absence of a trailing newline unmodified.
	lines := strings.Split(original, "\n")

	offset := 0
	applied := 0
	for _, h := range hunks {
		startIndex := h.OldStart - 1 + offset
		if startIndex < 0 {
			// OldStart 0 (an empty-old-file hunk, as in "@@ -0,0 +1,N @@")
			// is the only legitimate source of a negative index.
			startIndex = 0
		}

		var newLines []string
		for _, l := range h.Lines {
			switch l.Kind {
			case LineContext, LineAdd:
				newLines = append(newLines, l.Text)
			case LineRemove:
				// omitted from the result
			}
		}

		endIndex := startIndex + h.OldCount
		if endIndex > len(lines) {
			endIndex = len(lines)
		}
		if startIndex > len(lines) {
			startIndex = len(lines)
		}

		lines = spliceLines(lines, startIndex, endIndex, newLines)
		offset += h.NewCount - h.OldCount
		applied++
	}

	return strings.Join(lines, "\n"), applied, nil
}

// spliceLines replaces lines[start:end] with replacement.
func spliceLines(lines []string, start, end int, replacement []string) []string {
	out := make([]string, 0, len(lines)-(end-start)+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	out = append(out, lines[end:]...)
	return out
}
