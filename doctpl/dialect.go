package doctpl

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Dialect is one of the supported template grammars.
type Dialect int

const (
	// Auto asks the parser to detect the dialect from the markup.
	Auto Dialect = iota
	// Modern is the tag based grammar: <variable>, <loop>, <condition> and {{field}} text.
	Modern
	// Legacy is the placeholder and attribute based grammar of the older generation tool:
	// <pdf>, <page>, <paragraph> and ${field} text.
	Legacy
)

func (d Dialect) String() string {
	switch d {
	case Auto:
		return "auto"
	case Modern:
		return "modern"
	case Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect converts a dialect name as accepted on the command line and in JSON requests.
// The empty string means Auto.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "modern", "xml":
		return Modern, nil
	case "legacy":
		return Legacy, nil
	default:
		return Auto, fmt.Errorf("unknown dialect %q", s)
	}
}

func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dialect) UnmarshalText(b []byte) error {
	v, err := ParseDialect(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Detect classifies markup as Legacy when its root element is a <pdf> page description
// carrying a creator attribute, or when it mixes <paragraph> elements with ${...}
// placeholders. Everything else is Modern. Detect never fails: malformed markup falls back to
// plain text heuristics.
func Detect(markup string) (d Dialect) {
	defer func() {
		if recover() != nil {
			d = Modern
		}
	}()

	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromString(markup); err == nil {
		if root := doc.Root(); root != nil {
			if strings.EqualFold(root.Tag, "pdf") && root.SelectAttr("creator") != nil {
				return Legacy
			}
			if hasLegacyParagraph(root) && strings.Contains(markup, "${") {
				return Legacy
			}
			return Modern
		}
	}

	lower := strings.ToLower(markup)
	if strings.Contains(lower, "<pdf") && strings.Contains(lower, "creator=") {
		return Legacy
	}
	if strings.Contains(lower, "<paragraph") && strings.Contains(markup, "${") {
		return Legacy
	}
	return Modern
}

func hasLegacyParagraph(root *etree.Element) bool {
	if strings.EqualFold(root.Tag, "paragraph") {
		return true
	}
	return root.FindElement(".//paragraph") != nil
}
