package doctpl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const whitespace = " \t\r\n\f"

// Template is a parsed template. It may be rendered concurrently. A Template returned through
// a TreeCache is shared with every later caller of the same markup, so neither it nor its tree
// may be modified.
type Template struct {
	Markup  string
	Dialect Dialect

	// Root is the document node of the parsed tree.
	Root *Node

	// Body is the node whose children make up the document content: the <body> element of a
	// modern <template> or of a legacy <pdf>, or Root.
	Body *Node

	// Pages lists the legacy <page> elements in document order.
	Pages []*Node

	Page PageSetup
	CSS  string
}

// Includes returns the distinct include paths referenced by the template, in document order.
func (t *Template) Includes() []string {
	var paths []string
	seen := map[string]bool{}
	t.Root.walk(func(n *Node) {
		if n.Kind == IncludeNode && !seen[n.Raw] {
			seen[n.Raw] = true
			paths = append(paths, n.Raw)
		}
	})
	return paths
}

// Parse parses markup in the given dialect. Auto detects the dialect first. All problems
// found in the markup are returned together in a *ParseError; no partial template is
// returned.
func Parse(markup string, d Dialect) (*Template, error) {
	if d == Auto {
		d = Detect(markup)
	}

	p := &parser{
		tokenizer: html.NewTokenizer(strings.NewReader(markup)),
		dialect:   d,
		doc:       &Node{Kind: DocumentNode, Line: 1},
		line:      1,
	}
	p.leftDelim, p.rightDelim = delims(d)
	p.tokenizer.AllowCDATA(true)
	p.parse()

	t := &Template{
		Markup:  markup,
		Dialect: d,
		Root:    p.doc,
		Body:    p.doc,
		Page:    defaultPageSetup,
	}
	if d == Legacy {
		p.legacySetup(t)
	} else {
		p.modernSetup(t)
	}

	if len(p.issues) > 0 {
		return nil, &ParseError{Issues: p.issues}
	}
	return t, nil
}

// voidElements never have content; their end tags are optional.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true, "track": true,
	"wbr": true,
}

// A parser builds the Node tree from the tokens of the golang.org/x/net/html tokenizer. It
// keeps the tree as close to the source as possible: there are no implied elements and no
// foster parenting, only a stack of open elements that must be closed explicitly.
type parser struct {
	tokenizer *html.Tokenizer
	// tok is the most recently read token.
	tok html.Token
	// raw is the source text of tok.
	raw string
	// line is the line where the next token starts.
	line    int
	dialect Dialect
	doc     *Node
	// The stack of open elements.
	oe nodeStack

	leftDelim, rightDelim string

	issues []Issue
}

func (p *parser) top() *Node {
	if n := p.oe.top(); n != nil {
		return n
	}
	return p.doc
}

func (p *parser) errorf(line int, format string, args ...any) {
	p.issues = append(p.issues, Issue{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) parse() {
	for {
		tt := p.tokenizer.Next()
		// Token() unescapes text in place, so the raw text must be copied first.
		p.raw = string(p.tokenizer.Raw())
		p.tok = p.tokenizer.Token()
		line := p.line
		p.line += strings.Count(p.raw, "\n")

		if tt == html.ErrorToken {
			if err := p.tokenizer.Err(); err != io.EOF {
				p.errorf(line, "read markup: %v", err)
			}
			break
		}
		p.parseCurrentToken(line)
	}

	for i := len(p.oe) - 1; i >= 0; i-- {
		n := p.oe[i]
		p.errorf(n.Line, "element <%s> is not closed", n.Tag)
	}
	p.oe = nil
}

func (p *parser) parseCurrentToken(line int) {
	switch p.tok.Type {
	case html.TextToken:
		p.addText(line)
	case html.StartTagToken:
		p.addElement(line, voidElements[p.tok.Data])
	case html.SelfClosingTagToken:
		p.addElement(line, true)
	case html.EndTagToken:
		p.closeElement(line)
	case html.CommentToken:
		p.addComment(line)
	case html.DoctypeToken:
		// ignored
	}
}

// addText adds the current text token to the preceding text run, or starts a new one.
// Whitespace-only runs are dropped.
func (p *parser) addText(line int) {
	text := p.raw
	if strings.HasPrefix(text, "<![CDATA[") {
		// CDATA content is character data, never markup
		text = html.EscapeString(p.tok.Data)
	}
	if strings.TrimLeft(text, whitespace) == "" {
		return
	}

	t := p.top()
	if n := t.LastChild; n != nil && n.Kind == CharDataNode {
		n.Raw += text
		n.Segments = lexPlaceholders(n.Raw, p.leftDelim, p.rightDelim)
		return
	}
	t.appendChild(&Node{
		Kind:     CharDataNode,
		Line:     line,
		Raw:      text,
		Segments: lexPlaceholders(text, p.leftDelim, p.rightDelim),
	})
}

// addElement adds an element for the current start tag and, unless it is self-closing, pushes
// it onto the stack of open elements.
func (p *parser) addElement(line int, selfClosing bool) {
	n := &Node{
		Tag:  p.tok.Data,
		Line: line,
		Attr: make([]Attribute, 0, len(p.tok.Attr)),
	}
	for _, a := range p.tok.Attr {
		n.Attr = append(n.Attr, Attribute{Key: a.Key, Val: a.Val})
	}
	if p.dialect == Legacy {
		n.Kind = legacyKind(n.Tag)
		p.checkLegacy(n)
	} else {
		n.Kind = modernKind(n.Tag)
		p.checkModern(n)
	}

	p.top().appendChild(n)
	if !selfClosing {
		p.oe = append(p.oe, n)
	}
}

// closeElement pops the stack of open elements up to the element matching the current end
// tag. Elements left open in between are reported.
func (p *parser) closeElement(line int) {
	tag := p.tok.Data
	i := p.oe.index(tag)
	if i < 0 {
		if voidElements[tag] {
			return
		}
		p.errorf(line, "unexpected end tag </%s>", tag)
		return
	}
	for j := len(p.oe) - 1; j > i; j-- {
		p.errorf(p.oe[j].Line, "element <%s> is not closed before </%s>", p.oe[j].Tag, tag)
	}
	p.oe = p.oe[:i]
}

// addComment recognises the structural comments of the legacy dialect. Other comments,
// including XML declarations, are dropped.
func (p *parser) addComment(line int) {
	if p.dialect != Legacy {
		return
	}
	directive, arg, _ := strings.Cut(strings.TrimSpace(p.tok.Data), " ")
	arg = strings.TrimSpace(arg)

	switch directive {
	case "$Include":
		path, _, _ := strings.Cut(arg, " ")
		if path == "" {
			p.errorf(line, "$Include without a path")
			return
		}
		p.top().appendChild(&Node{Kind: IncludeNode, Line: line, Raw: path})
	case "$BeginBlock", "$EndBlock":
		// Markers only. An $EndBlock without its $BeginBlock is accepted.
		p.top().appendChild(&Node{
			Kind: BlockNode,
			Line: line,
			Tag:  strings.ToLower(directive[1:]),
			Raw:  arg,
		})
	}
}

func modernKind(tag string) NodeKind {
	switch tag {
	case "variable":
		return VariableNode
	case "loop":
		return LoopNode
	case "condition":
		return ConditionNode
	case "section":
		return SectionNode
	case "table":
		return TableNode
	case "thead", "tbody", "tfoot", "tr", "td", "th":
		return TableChildNode
	case "text":
		return TextNode
	case "image", "img":
		return ImageNode
	case "page", "margins", "styles":
		return MetaNode
	}
	return StandardTagNode
}

func legacyKind(tag string) NodeKind {
	switch tag {
	case "page":
		return LegacyPageNode
	case "paragraph":
		return LegacyParagraphNode
	case "image":
		return LegacyImageNode
	}
	return StandardTagNode
}

func (p *parser) checkModern(n *Node) {
	switch n.Kind {
	case VariableNode:
		if strings.TrimSpace(n.AttrVal("name")) == "" {
			p.errorf(n.Line, "<variable> without name")
		}
		if f := n.AttrVal("format"); f != "" && !knownFormat(f) {
			p.errorf(n.Line, "<variable> has unknown format %q", f)
		}
	case LoopNode:
		if strings.TrimSpace(n.AttrVal("source")) == "" {
			p.errorf(n.Line, "<loop> without source")
		}
	case ConditionNode:
		test, ok := n.LookupAttr("test")
		if !ok {
			p.errorf(n.Line, "<condition> without test")
			return
		}
		c, err := parseCondition(test)
		if err != nil {
			p.errorf(n.Line, "<condition>: %v", err)
			return
		}
		n.Cond = c
	case MetaNode:
		if n.Tag == "margins" {
			for _, key := range []string{"top", "bottom", "left", "right"} {
				p.checkNumber(n, key)
			}
		}
	}
}

func (p *parser) checkLegacy(n *Node) {
	if n.Tag == "body" {
		p.checkNumber(n, "marginleft")
		p.checkNumber(n, "marginbottom")
	}
}

func (p *parser) checkNumber(n *Node, key string) {
	v, ok := n.LookupAttr(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
		p.errorf(n.Line, "<%s> attribute %s is not a number: %q", n.Tag, key, v)
	}
}

// modernSetup reads the page geometry and the stylesheet of a modern <template>.
func (p *parser) modernSetup(t *Template) {
	if body := p.doc.find(isTag(StandardTagNode, "body")); body != nil {
		t.Body = body
	}
	if page := p.doc.find(isTag(MetaNode, "page")); page != nil {
		t.Page.Format = parsePageFormat(page.AttrVal("format"))
		t.Page.Orientation = parseOrientation(page.AttrVal("orientation"))
		if m := page.find(isTag(MetaNode, "margins")); m != nil {
			t.Page.Margins = Margins{
				Top:    attrFloat(m, "top", defaultMargins.Top),
				Bottom: attrFloat(m, "bottom", defaultMargins.Bottom),
				Left:   attrFloat(m, "left", defaultMargins.Left),
				Right:  attrFloat(m, "right", defaultMargins.Right),
			}
		}
	}
	if styles := p.doc.find(isTag(MetaNode, "styles")); styles != nil {
		var css strings.Builder
		for c := styles.FirstChild; c != nil; c = c.NextSibling {
			if c.Kind == CharDataNode {
				css.WriteString(html.UnescapeString(c.Raw))
			}
		}
		t.CSS = strings.TrimSpace(css.String())
	}
}

// legacySetup reads the page geometry of a legacy <pdf> document. Any landscape page turns the
// whole document to landscape.
func (p *parser) legacySetup(t *Template) {
	t.CSS = legacyCSS
	if body := p.doc.find(isTag(StandardTagNode, "body")); body != nil {
		t.Body = body
		if f := body.AttrVal("format"); f != "" {
			t.Page.Format = parsePageFormat(strings.ToUpper(f))
		}
		t.Page.Margins.Left = attrFloat(body, "marginleft", defaultMargins.Left)
		t.Page.Margins.Bottom = attrFloat(body, "marginbottom", defaultMargins.Bottom)
	}
	p.doc.walk(func(n *Node) {
		if n.Kind != LegacyPageNode {
			return
		}
		t.Pages = append(t.Pages, n)
		if parseOrientation(n.AttrVal("orientation")) == Landscape {
			t.Page.Orientation = Landscape
		}
	})
}

func isTag(kind NodeKind, tag string) func(*Node) bool {
	return func(n *Node) bool {
		return n.Kind == kind && n.Tag == tag
	}
}

// attrFloat returns the numeric value of the attribute key, or def when it is absent, empty or
// zero. Malformed values have already been reported by the parser.
func attrFloat(n *Node, key string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(n.AttrVal(key)), 64)
	if err != nil || f == 0 {
		return def
	}
	return f
}
