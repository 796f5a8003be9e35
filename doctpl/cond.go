package doctpl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Condition is the compiled test of a <condition> element. A test is a bare field path
// (true when the value is truthy), "path == literal" or "path != literal".
type Condition struct {
	Test string
	Path string
	// Op is "", "==" or "!=".
	Op string
	// Literal is the text after the operator with surrounding quotes trimmed.
	Literal string

	prog *vm.Program
}

// condLookup resolves a field path for a condition. It returns nil when the field is missing.
type condLookup func(path string) any

// condEnv is the environment conditions run in. Only lookup is bound per evaluation; the
// program never sees the data otherwise.
func condEnv(lookup condLookup) map[string]any {
	return map[string]any{"lookup": (func(string) any)(lookup)}
}

// condOptions returns the options for compiling condition programs.
func condOptions() []expr.Option {
	return []expr.Option{
		expr.Env(condEnv(func(string) any { return nil })),
		expr.AsBool(),
		expr.Function("truthy", func(params ...any) (any, error) {
			return truthy(params[0]), nil
		}, new(func(any) bool)),
		expr.Function("str", func(params ...any) (any, error) {
			return compareString(params[0]), nil
		}, new(func(any) string)),
	}
}

func parseCondition(test string) (*Condition, error) {
	test = strings.TrimSpace(test)
	if test == "" {
		return nil, errors.New("empty condition test")
	}

	c := &Condition{Test: test, Path: test}
	for _, op := range []string{"==", "!="} {
		if path, lit, ok := strings.Cut(test, op); ok {
			c.Op = op
			c.Path = strings.TrimSpace(path)
			c.Literal = strings.Trim(strings.TrimSpace(lit), `"'`)
			break
		}
	}
	if c.Path == "" {
		return nil, fmt.Errorf("condition %q has no field", test)
	}

	// Field path and literal enter the program only as quoted string constants.
	var src string
	switch c.Op {
	case "":
		src = fmt.Sprintf("truthy(lookup(%s))", strconv.Quote(c.Path))
	default:
		src = fmt.Sprintf("str(lookup(%s)) %s %s", strconv.Quote(c.Path), c.Op, strconv.Quote(c.Literal))
	}
	prog, err := expr.Compile(src, condOptions()...)
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", test, err)
	}
	c.prog = prog
	return c, nil
}

// Eval runs the test against the values returned by lookup.
func (c *Condition) Eval(lookup condLookup) (bool, error) {
	out, err := expr.Run(c.prog, condEnv(lookup))
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", c.Test, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %T", c.Test, out)
	}
	return b, nil
}

func (c *Condition) String() string {
	return c.Test
}

// compareString is the form of a value compared against condition literals. A missing value
// compares as the empty string.
func compareString(v any) string {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return display(v)
}
