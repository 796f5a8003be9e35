package doctpl

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags is the fixed list of passthrough elements. Elements outside the list, and outside
// the template vocabulary, are dropped while their children still render.
var allowedTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "div": true, "span": true, "strong": true, "em": true, "u": true,
	"br": true, "hr": true, "ul": true, "ol": true, "li": true,
}

// renderer walks a template tree and builds the output as a golang.org/x/net/html tree.
// Literal template text becomes RawNode and passes through verbatim; resolved values become
// TextNode or attribute values and are escaped by html.Render.
type renderer struct {
	t        *Template
	st       strategy
	includes map[string]string
	logger   *slog.Logger
	maxDepth int
}

// renderBody renders the document content of the template against the scope.
func (r *renderer) renderBody(s *Scope) (string, error) {
	out := &html.Node{Type: html.DocumentNode}

	if len(r.t.Pages) > 0 {
		for _, page := range r.t.Pages {
			if err := r.renderNode(out, page, s, 0); err != nil {
				return "", err
			}
		}
	} else if err := r.renderChildren(out, r.t.Body, s, 0); err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := html.Render(&sb, out); err != nil {
		return "", fmt.Errorf("serialize output: %w", err)
	}
	return r.st.residual().ReplaceAllString(sb.String(), ""), nil
}

func (r *renderer) renderChildren(dst *html.Node, n *Node, s *Scope, depth int) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := r.renderNode(dst, c, s, depth); err != nil {
			return err
		}
	}
	return nil
}

// renderNode appends the output of n to dst. depth is the number of elements and loops
// enclosing n.
func (r *renderer) renderNode(dst *html.Node, n *Node, s *Scope, depth int) error {
	if n.Kind != CharDataNode && n.Kind != IncludeNode && n.Kind != BlockNode {
		if depth >= r.maxDepth {
			return newRenderError(n, ErrDepthExceeded)
		}
		depth++
	}

	switch n.Kind {
	case DocumentNode:
		return r.renderChildren(dst, n, s, depth)
	case CharDataNode:
		r.appendSegments(dst, n.Segments, s)
	case VariableNode:
		r.renderVariable(dst, n, s)
	case LoopNode:
		return r.renderLoop(dst, n, s, depth)
	case ConditionNode:
		ok, err := n.Cond.Eval(func(path string) any {
			v, _ := r.st.lookup(s, path)
			return v
		})
		if err != nil {
			return newRenderError(n, err)
		}
		if ok {
			return r.renderChildren(dst, n, s, depth)
		}
	case SectionNode:
		return r.renderElement(dst, n, "div", n.Attr, s, depth)
	case TableNode, TableChildNode:
		return r.renderElement(dst, n, n.Tag, n.Attr, s, depth)
	case TextNode:
		return r.renderElement(dst, n, "span", n.Attr, s, depth)
	case ImageNode:
		return r.renderElement(dst, n, "img", r.imageAttr(n, s), s, depth)
	case StandardTagNode:
		if allowedTags[n.Tag] {
			return r.renderElement(dst, n, n.Tag, n.Attr, s, depth)
		}
		r.logger.Debug("Drop element outside the allow-list", "tag", n.Tag, "line", n.Line)
		return r.renderChildren(dst, n, s, depth)
	case LegacyPageNode:
		return r.renderElement(dst, n, "div", []Attribute{{Key: "class", Val: "page"}}, s, depth)
	case LegacyParagraphNode:
		r.renderParagraph(dst, n, s)
	case LegacyImageNode:
		dst.AppendChild(element("img", r.legacyImageAttr(n, s)))
	case IncludeNode:
		r.appendSegments(dst, r.include(n), s)
	case MetaNode, BlockNode:
		// document settings and block markers produce no output
	default:
		return newRenderError(n, fmt.Errorf("unexpected node kind %v", n.Kind))
	}
	return nil
}

func element(tag string, attr []Attribute) *html.Node {
	e := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for _, a := range attr {
		e.Attr = append(e.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	return e
}

func (r *renderer) renderElement(dst *html.Node, n *Node, tag string, attr []Attribute, s *Scope, depth int) error {
	e := element(tag, attr)
	dst.AppendChild(e)
	if voidElements[tag] {
		return nil
	}
	return r.renderChildren(e, n, s, depth)
}

// appendSegments appends literal segments verbatim and the values of placeholder segments as
// escaped text.
func (r *renderer) appendSegments(dst *html.Node, segs []Segment, s *Scope) {
	for _, seg := range segs {
		if !seg.Placeholder {
			dst.AppendChild(&html.Node{Type: html.RawNode, Data: seg.Text})
			continue
		}
		if text := r.value(seg.Text, s); text != "" {
			dst.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		}
	}
}

// value returns the display text of a placeholder. Unresolved placeholders are empty.
func (r *renderer) value(name string, s *Scope) string {
	v, ok := r.st.lookup(s, name)
	if !ok {
		r.logger.Debug("Unresolved placeholder", "name", name)
		return ""
	}
	return r.st.text(name, v)
}

// substitute replaces the placeholders of an attribute value. The result is escaped when the
// attribute is serialized.
func (r *renderer) substitute(text string, s *Scope) string {
	left, right := r.st.delims()
	segs := lexPlaceholders(text, left, right)
	if !hasPlaceholder(segs) {
		return text
	}
	var sb strings.Builder
	for _, seg := range segs {
		if seg.Placeholder {
			sb.WriteString(r.value(seg.Text, s))
		} else {
			sb.WriteString(seg.Text)
		}
	}
	return sb.String()
}

func (r *renderer) renderVariable(dst *html.Node, n *Node, s *Scope) {
	name := strings.TrimSpace(n.AttrVal("name"))
	format := n.AttrVal("format")

	var text string
	if v, ok := r.st.lookup(s, name); ok {
		if format != "" {
			text = applyFormat(v, format)
		} else {
			text = r.st.text(name, v)
		}
	} else if def, ok := n.LookupAttr("default"); ok {
		text = applyFormat(def, format)
	}
	if text != "" {
		dst.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// renderLoop renders the children once per element of the source sequence, each time in a
// new scope frame holding loop_item, loop_index (from 1) and loop_index0 (from 0).
func (r *renderer) renderLoop(dst *html.Node, n *Node, s *Scope, depth int) error {
	source := strings.TrimSpace(n.AttrVal("source"))
	v, ok := r.st.lookup(s, source)
	if !ok {
		r.logger.Debug("Loop source not found", "source", source, "line", n.Line)
		return nil
	}
	items, ok := asSeq(v)
	if !ok {
		r.logger.Debug("Loop source is not a sequence", "source", source, "line", n.Line)
		return nil
	}
	for i, item := range items {
		frame := s.Spawn(map[string]any{
			"loop_item":   item,
			"loop_index":  i + 1,
			"loop_index0": i,
		})
		if err := r.renderChildren(dst, n, frame, depth); err != nil {
			return err
		}
	}
	return nil
}

// imageAttr copies the attributes of a modern <image>, substituting placeholders in src.
func (r *renderer) imageAttr(n *Node, s *Scope) []Attribute {
	attr := make([]Attribute, len(n.Attr))
	copy(attr, n.Attr)
	for i, a := range attr {
		if a.Key == "src" {
			attr[i].Val = r.substitute(a.Val, s)
		}
	}
	return attr
}

// include returns the segments of an included fragment, or a visible marker when the path is
// not among the includes.
func (r *renderer) include(n *Node) []Segment {
	text, ok := r.includes[n.Raw]
	if !ok {
		r.logger.Debug("Include not found", "path", n.Raw, "line", n.Line)
		return []Segment{{Text: html.EscapeString("[Include: " + n.Raw + "]")}}
	}
	left, right := r.st.delims()
	return lexPlaceholders(text, left, right)
}

// offset evaluates a positional attribute and logs rejected expressions.
func (r *renderer) offset(n *Node, key string) float64 {
	v, ok := r.st.offset(n.AttrVal(key))
	if !ok {
		r.logger.Debug("Invalid offset expression", "attr", key, "value", n.AttrVal(key), "line", n.Line)
		return 0
	}
	return v
}

func (r *renderer) renderParagraph(dst *html.Node, n *Node, s *Scope) {
	div := element("div", []Attribute{{Key: "style", Val: r.paragraphStyle(n)}})
	dst.AppendChild(div)

	var segs []Segment
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Kind {
		case CharDataNode:
			segs = append(segs, c.Segments...)
		case IncludeNode:
			segs = append(segs, r.include(c)...)
		}
	}
	if len(segs) == 0 {
		return
	}
	// the layout of the source markup around the content is not part of it
	segs = append([]Segment(nil), segs...)
	if !segs[0].Placeholder {
		segs[0].Text = strings.TrimLeft(segs[0].Text, whitespace)
	}
	if last := len(segs) - 1; !segs[last].Placeholder {
		segs[last].Text = strings.TrimRight(segs[last].Text, whitespace)
	}

	for _, seg := range segs {
		if !seg.Placeholder {
			appendLines(div, seg.Text, html.RawNode)
			continue
		}
		appendLines(div, r.value(seg.Text, s), html.TextNode)
	}
}

// appendLines appends text as nodes of type typ with a <br/> at every line break.
func appendLines(dst *html.Node, text string, typ html.NodeType) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			dst.AppendChild(element("br", nil))
		}
		if line != "" {
			dst.AppendChild(&html.Node{Type: typ, Data: line})
		}
	}
}

// paragraphStyle builds the inline style of a legacy <paragraph>.
func (r *renderer) paragraphStyle(n *Node) string {
	var styles []string

	switch n.AttrVal("position") {
	case "absolute":
		styles = append(styles, "position: absolute")
		if n.AttrVal("left") != "" {
			styles = append(styles, "left: "+formatMM(r.offset(n, "left")))
		}
		if n.AttrVal("top") != "" {
			styles = append(styles, "top: "+formatMM(r.offset(n, "top")))
		}
	case "relative":
		styles = append(styles, "display: inline-block")
		// zero margins are left out entirely
		if n.AttrVal("left") != "" {
			if v := r.offset(n, "left"); v != 0 {
				styles = append(styles, "margin-left: "+formatMM(v))
			}
		}
		if n.AttrVal("top") != "" {
			if v := r.offset(n, "top"); v != 0 {
				styles = append(styles, "margin-top: "+formatMM(v))
			}
		}
	}

	if n.AttrVal("width") != "" {
		styles = append(styles, "width: "+formatMM(r.offset(n, "width")))
	}
	if n.AttrVal("height") != "" {
		styles = append(styles, "height: "+formatMM(r.offset(n, "height")))
	}
	if v := n.AttrVal("fontsize"); v != "" {
		styles = append(styles, "font-size: "+v+"pt")
	}
	if v := n.AttrVal("lineheight"); v != "" {
		styles = append(styles, "line-height: "+v+"mm")
	}
	if v := n.AttrVal("fontcolor"); v != "" {
		styles = append(styles, "color: "+v)
	}
	if v := n.AttrVal("textalign"); v != "" {
		styles = append(styles, "text-align: "+textAlign(v))
	}
	if v := n.AttrVal("border"); v != "" && v != "0" {
		styles = append(styles, "border: 1px solid #000")
	}
	if fs := n.AttrVal("fontstyle"); fs != "" {
		if strings.Contains(fs, "B") {
			styles = append(styles, "font-weight: bold")
		}
		if strings.Contains(fs, "I") {
			styles = append(styles, "font-style: italic")
		}
		if strings.Contains(fs, "U") {
			styles = append(styles, "text-decoration: underline")
		}
	}
	styles = append(styles, "padding: 1mm")

	return strings.Join(styles, "; ")
}

func textAlign(v string) string {
	switch v = strings.ToLower(v); v {
	case "l":
		return "left"
	case "c":
		return "center"
	case "r":
		return "right"
	case "j":
		return "justify"
	}
	return v
}

// legacyImageAttr builds the src and style of a legacy <image>. The file attribute may be an
// include directive and may hold placeholders.
func (r *renderer) legacyImageAttr(n *Node, s *Scope) []Attribute {
	file := n.AttrVal("file")
	if path, ok := includeDirective(file); ok {
		if text, found := r.includes[path]; found {
			file = text
		} else {
			r.logger.Debug("Include not found", "path", path, "line", n.Line)
			file = "[Include: " + path + "]"
		}
	}
	file = r.substitute(file, s)

	var styles []string
	if n.AttrVal("position") == "absolute" {
		styles = append(styles, "position: absolute")
		if n.AttrVal("left") != "" {
			styles = append(styles, "left: "+formatMM(r.offset(n, "left")))
		}
		if n.AttrVal("top") != "" {
			styles = append(styles, "top: "+formatMM(r.offset(n, "top")))
		}
	}
	if n.AttrVal("width") != "" {
		styles = append(styles, "width: "+formatMM(r.offset(n, "width")))
	}
	if n.AttrVal("height") != "" {
		styles = append(styles, "height: "+formatMM(r.offset(n, "height")))
	}

	return []Attribute{
		{Key: "src", Val: file},
		{Key: "style", Val: strings.Join(styles, "; ")},
	}
}

// includeDirective extracts the path of a "<!-- $Include path -->" written inside an
// attribute value.
func includeDirective(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<!--") || !strings.HasSuffix(s, "-->") {
		return "", false
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "<!--"), "-->"))
	directive, arg, _ := strings.Cut(s, " ")
	if directive != "$Include" {
		return "", false
	}
	path, _, _ := strings.Cut(strings.TrimSpace(arg), " ")
	return path, path != ""
}
