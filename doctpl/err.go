package doctpl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDepthExceeded is returned when the nesting of elements and loops goes beyond the
// engine's MaxDepth. Rendering stops; partial output is never returned.
var ErrDepthExceeded = errors.New("maximum nesting depth exceeded")

// Issue is a single problem found while parsing a template.
type Issue struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (i Issue) Error() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// ParseError aggregates every issue found in a malformed template.
type ParseError struct {
	Issues []Issue `json:"issues"`
}

func (e *ParseError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "parse template: unknown error"
	case 1:
		return "parse template: " + e.Issues[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "parse template: %d issues", len(e.Issues))
	for _, i := range e.Issues {
		sb.WriteString("\n\t")
		sb.WriteString(i.Error())
	}
	return sb.String()
}

// Unwrap exposes the issues to errors.Is and errors.As.
func (e *ParseError) Unwrap() []error {
	errs := make([]error, len(e.Issues))
	for i, iss := range e.Issues {
		errs[i] = iss
	}
	return errs
}

// RenderError is a fatal error raised while walking the node tree.
type RenderError struct {
	Line int
	Kind NodeKind
	Err  error
}

func newRenderError(n *Node, err error) *RenderError {
	return &RenderError{Line: n.Line, Kind: n.Kind, Err: err}
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s at line %d: %v", e.Kind, e.Line, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// SourceLine is a numbered line of template source.
type SourceLine struct {
	Number int
	Text   string
}

// SourceContext holds the lines around an issue for error reporting.
type SourceContext struct {
	Lines     []SourceLine
	ErrorLine int
}

// SourceCodeContext returns up to radius lines before and after the given line of markup.
// It returns nil if line is outside the markup.
func SourceCodeContext(markup string, line, radius int) *SourceContext {
	lines := strings.Split(markup, "\n")
	if line < 1 || line > len(lines) {
		return nil
	}
	from := max(1, line-radius)
	to := min(len(lines), line+radius)

	ctx := &SourceContext{ErrorLine: line}
	for n := from; n <= to; n++ {
		ctx.Lines = append(ctx.Lines, SourceLine{
			Number: n,
			Text:   strings.TrimRight(lines[n-1], "\r"),
		})
	}
	return ctx
}
