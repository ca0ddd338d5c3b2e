// Package prompt renders the per-file review request sent to the model.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/holon-run/conventional-review/pkg/diff"
)

// DefaultTemplateName is the embedded template used when no override is configured.
const DefaultTemplateName = "review.md"

//go:embed all:assets/*
var promptAssets embed.FS

// Data is what a template can reference: {{.Diff}} and {{.Conventions}}.
type Data struct {
	Diff        string
	Conventions string
}

// Template is a parsed prompt template. It is immutable once constructed and
// safe to share for the lifetime of a run.
type Template struct {
	name string
	tmpl *template.Template
}

// Default returns the template embedded in the binary.
func Default() (*Template, error) {
	sub, err := fs.Sub(promptAssets, "assets")
	if err != nil {
		return nil, fmt.Errorf("failed to subtree assets: %w", err)
	}
	return FromFS(sub, DefaultTemplateName)
}

// FromFS reads and parses the template stored at name in fsys.
func FromFS(fsys fs.FS, name string) (*Template, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template %s: %w", name, err)
	}
	return Parse(name, string(data))
}

// Load reads and parses a template file from disk.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}
	return Parse(path, string(data))
}

// Parse builds a template from text. References other than .Diff and
// .Conventions are rejected here rather than at render time.
func Parse(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}
	if err := tmpl.Execute(io.Discard, Data{}); err != nil {
		return nil, fmt.Errorf("invalid prompt template %s: %w", name, err)
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// Name returns the template's source name.
func (t *Template) Name() string {
	return t.name
}

// Build renders the prompt for one file.
func (t *Template) Build(file diff.File, conventions string) (string, error) {
	var buf bytes.Buffer
	data := Data{
		Diff:        RenderDiff(file),
		Conventions: conventions,
	}
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt for %s: %w", file.Path, err)
	}
	return buf.String(), nil
}

// RenderDiff flattens every chunk of file into "<line> <content>" rows joined
// by newlines. Chunk boundaries get no separator.
func RenderDiff(file diff.File) string {
	changes := file.Changes()
	rows := make([]string, len(changes))
	for i, c := range changes {
		rows[i] = strconv.Itoa(c.Line) + " " + c.Content
	}
	return strings.Join(rows, "\n")
}

// LoadConventions reads the conventions file. An empty path yields "".
func LoadConventions(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read conventions file: %w", err)
	}
	return string(data), nil
}
