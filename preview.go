package docpages

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dpotapov/go-docpages/doctpl"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WritePreview writes a standalone HTML document showing a render result the way the PDF
// backend lays it out.
func WritePreview(w io.Writer, title string, res *doctpl.Result) error {
	css := pageRule(res)
	if res.CSS != "" {
		css += "\n" + res.CSS
	}

	doc, body := newDocument(title, css)
	body.AppendChild(&html.Node{Type: html.RawNode, Data: res.HTML})

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	return nil
}

// newDocument builds the skeleton of an HTML document and returns its root and body.
func newDocument(title, css string) (doc, body *html.Node) {
	doc = &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := elem(atom.Html)
	head := elem(atom.Head)
	body = elem(atom.Body)
	doc.AppendChild(root)
	root.AppendChild(head)
	root.AppendChild(body)

	meta := elem(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)

	t := elem(atom.Title)
	t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(t)

	if css != "" {
		style := elem(atom.Style)
		style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
		head.AppendChild(style)
	}
	return doc, body
}

func elem(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

// pageRule returns the CSS @page rule for the page geometry of res.
func pageRule(res *doctpl.Result) string {
	var size string
	if f := res.PageFormat; f.Name != "" {
		size = f.Name + " " + string(res.Orientation)
	} else {
		w, h := f.Width, f.Height
		if res.Orientation == doctpl.Landscape && w < h {
			w, h = h, w
		}
		size = mm(w) + " " + mm(h)
	}
	m := res.Margins
	return fmt.Sprintf("@page { size: %s; margin: %s; }", size,
		strings.Join([]string{mm(m.Top), mm(m.Right), mm(m.Bottom), mm(m.Left)}, " "))
}

func mm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "mm"
}
