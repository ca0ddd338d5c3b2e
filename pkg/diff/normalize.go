// Package diff turns rendered unified diff text into line-addressable files
// and filters out files that should not be reviewed.
package diff

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// DevNull is the path a unified diff uses for a missing side of a file.
const DevNull = "/dev/null"

var errNoFiles = errors.New("no file headers found")

// MalformedDiffError is returned when the input cannot be read as a unified diff.
type MalformedDiffError struct {
	Err error
}

func (e *MalformedDiffError) Error() string {
	return fmt.Sprintf("malformed diff: %v", e.Err)
}

func (e *MalformedDiffError) Unwrap() error {
	return e.Err
}

// Normalize parses raw and returns the files eligible for review, in source order.
//
// Files deleted entirely are always dropped. Remaining files are dropped when
// their target path matches one of excludePatterns.
func Normalize(raw string, excludePatterns []string) ([]File, error) {
	matcher, err := NewMatcher(excludePatterns)
	if err != nil {
		return nil, err
	}

	files, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	return Filter(files, matcher), nil
}

// Filter drops files without a target path and files matched by m.
// A nil matcher only applies the first rule.
func Filter(files []File, m *Matcher) []File {
	kept := make([]File, 0, len(files))
	for _, f := range files {
		if f.Path == "" {
			continue
		}
		if m != nil && m.Match(f.Path) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// Parse converts raw unified diff text into files without applying any exclusion.
// Deleted files are returned with an empty Path.
func Parse(raw string) ([]File, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parsed, err := godiff.ParseMultiFileDiff([]byte(raw))
	if err != nil {
		return nil, &MalformedDiffError{Err: err}
	}
	if len(parsed) == 0 {
		return nil, &MalformedDiffError{Err: errNoFiles}
	}

	files := make([]File, 0, len(parsed))
	for _, fd := range parsed {
		f := File{Path: targetPath(fd)}
		for _, h := range fd.Hunks {
			chunk, err := convertHunk(h)
			if err != nil {
				return nil, &MalformedDiffError{Err: fmt.Errorf("%s: %w", displayName(fd), err)}
			}
			f.Chunks = append(f.Chunks, chunk)
		}
		files = append(files, f)
	}

	return files, nil
}

// targetPath returns the post-change path, or "" when the file was deleted.
func targetPath(fd *godiff.FileDiff) string {
	for _, h := range fd.Extended {
		if strings.HasPrefix(h, "deleted file mode") {
			return ""
		}
	}

	name := strings.TrimSpace(fd.NewName)
	if name == "" || name == DevNull {
		return ""
	}
	return strings.TrimPrefix(name, "b/")
}

func displayName(fd *godiff.FileDiff) string {
	if p := targetPath(fd); p != "" {
		return p
	}
	return strings.TrimPrefix(fd.OrigName, "a/")
}

func convertHunk(h *godiff.Hunk) (Chunk, error) {
	chunk := Chunk{
		OldStart: int(h.OrigStartLine),
		OldLines: int(h.OrigLines),
		NewStart: int(h.NewStartLine),
		NewLines: int(h.NewLines),
		Section:  h.Section,
	}

	oldNum := chunk.OldStart
	newNum := chunk.NewStart

	body := bytes.TrimSuffix(h.Body, []byte("\n"))
	if len(body) == 0 {
		return chunk, nil
	}

	for i, line := range strings.Split(string(body), "\n") {
		if line == "" {
			// Some tools strip the leading space of empty context lines.
			chunk.Changes = append(chunk.Changes, Change{Kind: ChangeContext, Line: newNum})
			oldNum++
			newNum++
			continue
		}

		content := line[1:]
		switch line[0] {
		case ' ':
			chunk.Changes = append(chunk.Changes, Change{Kind: ChangeContext, Content: content, Line: newNum})
			oldNum++
			newNum++
		case '+':
			chunk.Changes = append(chunk.Changes, Change{Kind: ChangeAddition, Content: content, Line: newNum})
			newNum++
		case '-':
			chunk.Changes = append(chunk.Changes, Change{Kind: ChangeDeletion, Content: content, Line: oldNum})
			oldNum++
		case '\\':
			// "\ No newline at end of file"
		default:
			return Chunk{}, fmt.Errorf("hunk %q line %d: unexpected prefix %q", h.Section, i+1, line[0])
		}
	}

	return chunk, nil
}
