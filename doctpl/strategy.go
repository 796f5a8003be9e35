package doctpl

import (
	"regexp"
	"strconv"
	"strings"
)

// strategy is the dialect specific behaviour plugged into the shared renderer.
type strategy interface {
	// delims returns the placeholder delimiters.
	delims() (left, right string)

	// lookup resolves a placeholder or attribute field name against the scope chain.
	lookup(s *Scope, name string) (any, bool)

	// text converts a value resolved for name to the text inserted into the document when no
	// explicit format is requested.
	text(name string, v any) string

	// offset evaluates a positional attribute in millimetres.
	offset(expr string) (float64, bool)

	// residual matches placeholder syntax left in the output after substitution.
	residual() *regexp.Regexp
}

var (
	modernResidual = regexp.MustCompile(`\{\{[^}]+\}\}`)
	legacyResidual = regexp.MustCompile(`\$\{[^}]+\}`)
)

func newStrategy(d Dialect, labels labelTable) strategy {
	if d == Legacy {
		return legacyStrategy{labels: labels}
	}
	return modernStrategy{}
}

// delims returns the placeholder delimiters of the dialect.
func delims(d Dialect) (string, string) {
	if d == Legacy {
		return "${", "}"
	}
	return "{{", "}}"
}

type modernStrategy struct{}

func (modernStrategy) delims() (string, string) { return delims(Modern) }

func (modernStrategy) lookup(s *Scope, name string) (any, bool) {
	return s.Resolve(name)
}

func (modernStrategy) text(name string, v any) string {
	return autoFormat(name, v)
}

func (modernStrategy) offset(expr string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(expr), 64)
	return f, err == nil
}

func (modernStrategy) residual() *regexp.Regexp { return modernResidual }

type legacyStrategy struct {
	labels labelTable
}

func (legacyStrategy) delims() (string, string) { return delims(Legacy) }

func (st legacyStrategy) lookup(s *Scope, name string) (any, bool) {
	return resolveLegacy(s, st.labels, name)
}

func (legacyStrategy) text(_ string, v any) string {
	return display(v)
}

func (legacyStrategy) offset(expr string) (float64, bool) {
	return evalOffset(expr)
}

func (legacyStrategy) residual() *regexp.Regexp { return legacyResidual }
