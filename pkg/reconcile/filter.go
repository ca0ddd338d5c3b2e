package reconcile

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/holon-run/conventional-review/pkg/diff"
	"github.com/holon-run/conventional-review/pkg/llm"
	"github.com/holon-run/conventional-review/pkg/log"
	"github.com/holon-run/conventional-review/pkg/review"
)

// DropReason explains why an extraction was not turned into a comment.
type DropReason string

const (
	// ReasonUnknownTool means the model called something other than the review tool
	ReasonUnknownTool DropReason = "unknown_tool"
	// ReasonPartial means at least one field could not be recovered
	ReasonPartial DropReason = "partial"
	// ReasonInvalid means the recovered comment failed validation
	ReasonInvalid DropReason = "invalid"
	// ReasonOutsideDiff means the comment targets a line the file's diff does not contain
	ReasonOutsideDiff DropReason = "outside_diff"
)

// Dropped records an extraction rejected by Filter.
type Dropped struct {
	Extraction Extraction
	Reason     DropReason
	Detail     string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Filter turns the extractions for file into publishable comments.
//
// Partial, invalid and out-of-diff extractions are dropped and logged.
// Kept comments preserve the order of extractions.
func Filter(file diff.File, extractions []Extraction) ([]review.Comment, []Dropped) {
	kept := make([]review.Comment, 0, len(extractions))
	var dropped []Dropped

	drop := func(e Extraction, reason DropReason, detail string) {
		dropped = append(dropped, Dropped{Extraction: e, Reason: reason, Detail: detail})
		log.Warn("dropping model comment",
			"path", file.Path,
			"call_id", e.CallID,
			"reason", string(reason),
			"detail", detail,
		)
	}

	for _, e := range extractions {
		if e.Tool != "" && e.Tool != llm.ToolName {
			drop(e, ReasonUnknownTool, fmt.Sprintf("tool %q", e.Tool))
			continue
		}

		c, ok := e.ToComment(file.Path)
		if !ok {
			drop(e, ReasonPartial, "missing "+strings.Join(e.Missing(), ", "))
			continue
		}

		if err := validate.Struct(c); err != nil {
			drop(e, ReasonInvalid, err.Error())
			continue
		}

		if !file.HasLine(c.Line, c.Side) {
			drop(e, ReasonOutsideDiff, c.String())
			continue
		}

		kept = append(kept, c)
	}

	return kept, dropped
}
