// Package reconcile recovers review comments from raw model tool calls.
//
// Tool-call arguments are model output: usually JSON, sometimes not quite.
// Each field is recovered on its own so that one broken field does not
// discard the others.
package reconcile

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/holon-run/conventional-review/pkg/llm"
	"github.com/holon-run/conventional-review/pkg/review"
)

var (
	lineRe = regexp.MustCompile(`"line"\s*:\s*"?(\d+)"?`)
	sideRe = regexp.MustCompile(`(?i)"side"\s*:\s*"\s*(left|right)\s*"`)
	// The comment value ends at the quote that precedes the next known key
	// or the closing brace, so unescaped quotes inside it survive.
	commentRe = regexp.MustCompile(`(?s)"comment"\s*:\s*"(.*?)"\s*(?:,\s*"(?:line|side)"\s*:|}\s*$)`)
)

// Extraction holds the fields recovered from one tool call.
// A nil field could not be recovered.
type Extraction struct {
	CallID  string
	Tool    string
	Line    *int
	Comment *string
	Side    *review.Side
}

// Complete reports whether every field was recovered.
func (e Extraction) Complete() bool {
	return e.Line != nil && e.Comment != nil && e.Side != nil
}

// Missing lists the names of the fields that could not be recovered.
func (e Extraction) Missing() []string {
	var missing []string
	if e.Line == nil {
		missing = append(missing, "line")
	}
	if e.Comment == nil {
		missing = append(missing, "comment")
	}
	if e.Side == nil {
		missing = append(missing, "side")
	}
	return missing
}

// ToComment builds a comment on path. It returns false for partial extractions.
func (e Extraction) ToComment(path string) (review.Comment, bool) {
	if !e.Complete() {
		return review.Comment{}, false
	}
	return review.Comment{
		Body: *e.Comment,
		Path: path,
		Line: *e.Line,
		Side: *e.Side,
	}, true
}

// Reconcile extracts line, comment and side from call. It never fails:
// fields that cannot be recovered are left nil.
func Reconcile(call llm.ToolCall) Extraction {
	args := strings.TrimSpace(call.Arguments)
	e := Extraction{CallID: call.ID, Tool: call.Name}

	// A well-formed payload is trusted as is: a present but ill-typed field
	// stays nil rather than being rescued by the text patterns.
	if gjson.Valid(args) {
		parsed := gjson.Parse(args)
		e.Line = lineFromJSON(parsed.Get("line"))
		e.Comment = commentFromJSON(parsed.Get("comment"))
		e.Side = sideFromJSON(parsed.Get("side"))
		return e
	}

	// Line and side are matched outside the comment value, which may quote
	// either key.
	comment, rest := commentFromText(args)
	e.Comment = comment
	e.Line = lineFromText(rest)
	e.Side = sideFromText(rest)
	return e
}

// ReconcileAll reconciles calls in order.
func ReconcileAll(calls []llm.ToolCall) []Extraction {
	out := make([]Extraction, 0, len(calls))
	for _, c := range calls {
		out = append(out, Reconcile(c))
	}
	return out
}

func lineFromJSON(r gjson.Result) *int {
	switch r.Type {
	case gjson.Number:
		if r.Num != math.Trunc(r.Num) || r.Num <= 0 || r.Num > math.MaxInt32 {
			return nil
		}
		n := int(r.Num)
		return &n
	case gjson.String:
		return parseLine(strings.TrimSpace(r.Str))
	}
	return nil
}

func lineFromText(args string) *int {
	m := lineRe.FindStringSubmatch(args)
	if m == nil {
		return nil
	}
	return parseLine(m[1])
}

func parseLine(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > math.MaxInt32 {
		return nil
	}
	return &n
}

func commentFromJSON(r gjson.Result) *string {
	if r.Type != gjson.String {
		return nil
	}
	s := r.Str
	return &s
}

// commentFromText returns the recovered comment and args with the comment
// value cut out.
func commentFromText(args string) (*string, string) {
	loc := commentRe.FindStringSubmatchIndex(args)
	if loc == nil {
		return nil, args
	}
	s := unescape(args[loc[2]:loc[3]])
	return &s, args[:loc[2]] + args[loc[3]:]
}

// unescape decodes JSON-style escapes when the value is well formed, and
// otherwise only turns \" into ".
func unescape(s string) string {
	if decoded, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return decoded
	}
	return strings.ReplaceAll(s, `\"`, `"`)
}

func sideFromJSON(r gjson.Result) *review.Side {
	if r.Type != gjson.String {
		return nil
	}
	side, err := review.ParseSide(r.Str)
	if err != nil {
		return nil
	}
	return &side
}

func sideFromText(args string) *review.Side {
	m := sideRe.FindStringSubmatch(args)
	if m == nil {
		return nil
	}
	side, err := review.ParseSide(m[1])
	if err != nil {
		return nil
	}
	return &side
}
