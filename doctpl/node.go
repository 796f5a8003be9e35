package doctpl

import "strings"

// NodeKind identifies the template construct a Node represents.
type NodeKind int

const (
	DocumentNode NodeKind = iota
	// CharDataNode is a run of text with pre-lexed placeholders.
	CharDataNode
	VariableNode
	LoopNode
	ConditionNode
	SectionNode
	TableNode
	TableChildNode
	// TextNode is the <text> element of the modern dialect, rendered as a span.
	TextNode
	ImageNode
	StandardTagNode
	LegacyPageNode
	LegacyParagraphNode
	LegacyImageNode
	// IncludeNode is a `$Include path` structural comment.
	IncludeNode
	// BlockNode is a `$BeginBlock`/`$EndBlock` marker. It renders nothing.
	BlockNode
	// MetaNode holds document settings (page, margins, styles) read by the assembler.
	MetaNode
)

var kindNames = [...]string{
	DocumentNode:        "document",
	CharDataNode:        "chardata",
	VariableNode:        "variable",
	LoopNode:            "loop",
	ConditionNode:       "condition",
	SectionNode:         "section",
	TableNode:           "table",
	TableChildNode:      "table-child",
	TextNode:            "text",
	ImageNode:           "image",
	StandardTagNode:     "tag",
	LegacyPageNode:      "legacy-page",
	LegacyParagraphNode: "legacy-paragraph",
	LegacyImageNode:     "legacy-image",
	IncludeNode:         "include",
	BlockNode:           "block",
	MetaNode:            "meta",
}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node is one parsed template construct. The tree is built once by the parser and is never
// modified afterwards, so a Node may be shared between concurrent renders. Trees handed out by
// a TreeCache are shared by every caller: their fields must be treated as read-only.
type Node struct {
	Parent, FirstChild, LastChild, PrevSibling, NextSibling *Node

	Kind NodeKind

	// Tag is the lower-cased element name. It is empty for text runs and comments.
	Tag string

	// Attr is the list of attributes in source order.
	Attr []Attribute

	// Line is the 1-based source line where the construct starts.
	Line int

	// Raw is the verbatim source text of a CharDataNode, or the argument of an IncludeNode
	// and BlockNode.
	Raw string

	// Segments is the lexed form of Raw for CharDataNode.
	Segments []Segment

	// Cond is the compiled test of a ConditionNode.
	Cond *Condition
}

type Attribute struct {
	Key string
	Val string
}

// AttrVal returns the value of the attribute key, or "" if it is absent.
func (n *Node) AttrVal(key string) string {
	v, _ := n.LookupAttr(key)
	return v
}

// LookupAttr returns the value of the attribute key and whether it is present.
func (n *Node) LookupAttr(key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) IsWhitespace() bool {
	return n.Kind == CharDataNode && strings.TrimLeft(n.Raw, whitespace) == ""
}

// Children returns the child nodes of n in order.
func (n *Node) Children() []*Node {
	var cc []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		cc = append(cc, c)
	}
	return cc
}

// appendChild adds a node c as a child of n.
//
// It will panic if c already has a parent or siblings.
func (n *Node) appendChild(c *Node) {
	if c.Parent != nil || c.PrevSibling != nil || c.NextSibling != nil {
		panic("doctpl: appendChild called for an attached child Node")
	}
	last := n.LastChild
	if last != nil {
		last.NextSibling = c
	} else {
		n.FirstChild = c
	}
	n.LastChild = c
	c.Parent = n
	c.PrevSibling = last
}

// find returns the first node in document order, n included, for which match returns true.
func (n *Node) find(match func(*Node) bool) *Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := c.find(match); found != nil {
			return found
		}
	}
	return nil
}

// walk calls fn for n and every descendant in document order.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		c.walk(fn)
	}
}

// nodeStack is a stack of nodes.
type nodeStack []*Node

// pop pops the stack. It will panic if the stack is empty.
func (s *nodeStack) pop() *Node {
	i := len(*s)
	n := (*s)[i-1]
	*s = (*s)[:i-1]
	return n
}

// top returns the most recently pushed node, or nil if the stack is empty.
func (s *nodeStack) top() *Node {
	if i := len(*s); i > 0 {
		return (*s)[i-1]
	}
	return nil
}

// index returns the index of the highest element with the given tag, or -1.
func (s nodeStack) index(tag string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Tag == tag {
			return i
		}
	}
	return -1
}
