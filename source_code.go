package docpages

import (
	"fmt"

	"github.com/dpotapov/go-docpages/doctpl"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// sourceBlock renders the template source around line as a <pre> block with the line itself
// highlighted. It returns nil if line is outside the markup.
func sourceBlock(markup string, line int) *html.Node {
	ctx := doctpl.SourceCodeContext(markup, line, sourceRadius)
	if ctx == nil {
		return nil
	}

	width := len(fmt.Sprint(ctx.Lines[len(ctx.Lines)-1].Number))

	pre := elem(atom.Pre)
	pre.Attr = []html.Attribute{{Key: "class", Val: "source"}}
	for _, l := range ctx.Lines {
		span := elem(atom.Span)
		if l.Number == ctx.ErrorLine {
			span.Attr = []html.Attribute{{Key: "class", Val: "error"}}
		}
		span.AppendChild(text(fmt.Sprintf("%*d | %s\n", width, l.Number, l.Text)))
		pre.AppendChild(span)
	}
	return pre
}
