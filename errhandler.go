package docpages

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dpotapov/go-docpages/doctpl"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// sourceRadius is the number of source lines shown before and after an issue.
const sourceRadius = 3

const errorPageCSS = `body { font-family: sans-serif; margin: 2em; }
h1 { color: #b00020; }
.issue { margin-bottom: 1.5em; }
.source { background: #f6f6f6; padding: 0.5em; }
.source .error { background: #ffd7d7; display: block; }`

// writeErrorPage answers a preview request for a malformed template with a page listing every
// issue next to the template source around it.
func writeErrorPage(w http.ResponseWriter, name, markup string, pe *doctpl.ParseError) error {
	doc, body := newDocument(name+": template issues", errorPageCSS)

	h1 := elem(atom.H1)
	h1.AppendChild(text(fmt.Sprintf("%s has %d issue(s)", name, len(pe.Issues))))
	body.AppendChild(h1)

	for _, iss := range pe.Issues {
		div := elem(atom.Div)
		div.Attr = []html.Attribute{{Key: "class", Val: "issue"}}

		p := elem(atom.P)
		if iss.Line > 0 {
			strong := elem(atom.Strong)
			strong.AppendChild(text("line " + strconv.Itoa(iss.Line) + ": "))
			p.AppendChild(strong)
		}
		p.AppendChild(text(iss.Message))
		div.AppendChild(p)

		if src := sourceBlock(markup, iss.Line); src != nil {
			div.AppendChild(src)
		}
		body.AppendChild(div)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnprocessableEntity)
	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render error page: %w", err)
	}
	return nil
}

// depthIssue reports an exceeded nesting limit as an issue at the line where rendering stopped.
func depthIssue(err error) *doctpl.ParseError {
	iss := doctpl.Issue{Message: doctpl.ErrDepthExceeded.Error()}
	var re *doctpl.RenderError
	if errors.As(err, &re) {
		iss.Line = re.Line
	}
	return &doctpl.ParseError{Issues: []doctpl.Issue{iss}}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
