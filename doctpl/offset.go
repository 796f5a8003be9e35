package doctpl

import (
	"math"
	"strconv"
	"strings"
)

// EvalOffset evaluates a legacy layout offset such as "5+7+27".
//
// The grammar is deliberately narrow: numbers joined by '+' and '-', folded left to right with
// '+' as the implied leading operator. There is no precedence, no multiplication or division,
// and no parentheses. Input containing any other character, an empty input, or a malformed
// number evaluates to 0.
func EvalOffset(expr string) float64 {
	v, ok := evalOffset(expr)
	if !ok {
		return 0
	}
	return v
}

// evalOffset is EvalOffset that also reports whether the input was accepted.
func evalOffset(expr string) (float64, bool) {
	expr = strings.ReplaceAll(strings.TrimSpace(expr), " ", "")
	if expr == "" {
		return 0, false
	}
	toks, ok := scanOffset(expr)
	if !ok {
		return 0, false
	}

	var res float64
	op := byte('+')
	for _, t := range toks {
		if t.op != 0 {
			// consecutive operators: the last one wins
			op = t.op
			continue
		}
		if op == '+' {
			res += t.num
		} else {
			res -= t.num
		}
	}
	// drop binary noise such as 0.1+0.2 = 0.30000000000000004
	return math.Round(res*1e6) / 1e6, true
}

type offsetToken struct {
	op  byte // '+' or '-'; 0 for a number
	num float64
}

// scanOffset splits expr into numbers and operators. It fails on any character other than
// digits, '.', '+' and '-'.
func scanOffset(expr string) ([]offsetToken, bool) {
	var toks []offsetToken
	start := -1
	flush := func(end int) bool {
		if start < 0 {
			return true
		}
		n, err := strconv.ParseFloat(expr[start:end], 64)
		if err != nil {
			return false
		}
		toks = append(toks, offsetToken{num: n})
		start = -1
		return true
	}

	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; {
		case c >= '0' && c <= '9', c == '.':
			if start < 0 {
				start = i
			}
		case c == '+', c == '-':
			if !flush(i) {
				return nil, false
			}
			toks = append(toks, offsetToken{op: c})
		default:
			return nil, false
		}
	}
	if !flush(len(expr)) {
		return nil, false
	}
	return toks, true
}

// formatMM renders a millimetre value without trailing zeros.
func formatMM(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "mm"
}
