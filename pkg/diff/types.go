package diff

import "github.com/holon-run/conventional-review/pkg/review"

// ChangeKind classifies a single diff line.
type ChangeKind string

const (
	ChangeContext  ChangeKind = "context"
	ChangeAddition ChangeKind = "addition"
	ChangeDeletion ChangeKind = "deletion"
)

// File is one changed file of a normalized diff, addressed by its target path.
type File struct {
	Path   string  `json:"path"`
	Chunks []Chunk `json:"chunks"`
}

// Chunk is one hunk of a file diff.
type Chunk struct {
	OldStart int      `json:"oldStart"`
	OldLines int      `json:"oldLines"`
	NewStart int      `json:"newStart"`
	NewLines int      `json:"newLines"`
	Section  string   `json:"section,omitempty"`
	Changes  []Change `json:"changes"`
}

// Change is a single line of a chunk.
//
// Line uses the new-file numbering for context and addition lines and the
// old-file numbering for deletions.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	Content string     `json:"content"`
	Line    int        `json:"line"`
}

// Side returns the review side a comment on this change anchors to.
func (c Change) Side() review.Side {
	if c.Kind == ChangeDeletion {
		return review.SideLeft
	}
	return review.SideRight
}

// Changes returns every change of the file in source order.
func (f File) Changes() []Change {
	var out []Change
	for _, chunk := range f.Chunks {
		out = append(out, chunk.Changes...)
	}
	return out
}

// HasLine reports whether a comment at (line, side) addresses a line of this file.
func (f File) HasLine(line int, side review.Side) bool {
	for _, chunk := range f.Chunks {
		for _, c := range chunk.Changes {
			if c.Line == line && c.Side() == side {
				return true
			}
		}
	}
	return false
}
