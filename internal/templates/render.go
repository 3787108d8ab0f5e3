package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/template"
)

// RenderError describes a failure while producing output.
type RenderError struct {
	Type    string
	Message string
	Detail  string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
}

// NewRenderError builds a RenderError.
func NewRenderError(typ, msg, detail string) *RenderError {
	return &RenderError{Type: typ, Message: msg, Detail: detail}
}

// Output is the value output templates are executed with.
type Output struct {
	Resource  string
	Operation string
	Kind      string // none, value, list or cursor
	Data      any    // the value, the items, or the items of every drained page
	Page      any    // page metadata for cursors, nil otherwise
}

// Parse compiles an output template with all helper functions.
func Parse(text string) (*template.Template, error) {
	tmpl, err := template.New("output").Funcs(TemplateFuncMap()).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, NewRenderError("template", "parse failed", err.Error())
	}
	return tmpl, nil
}

// Render executes tmpl with out and writes the result to w.
// Nothing is written if execution fails.
func Render(w io.Writer, tmpl *template.Template, out Output) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, out); err != nil {
		return NewRenderError("template", "execution failed", err.Error())
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// RenderJSON writes out.Data as indented JSON followed by a newline.
func RenderJSON(w io.Writer, out Output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out.Data); err != nil {
		return NewRenderError("json", "encoding failed", err.Error())
	}
	return nil
}
