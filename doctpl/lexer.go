package doctpl

import "strings"

// Segment is a piece of a text run: either literal markup or a placeholder reference.
type Segment struct {
	// Text is the literal markup, or the trimmed placeholder name when Placeholder is true.
	Text        string
	Placeholder bool
}

// lexPlaceholders splits s into literal and placeholder segments using the given delimiters.
// A left delimiter without a matching right delimiter, or with nothing but spaces between the
// delimiters, stays literal text.
func lexPlaceholders(s, leftDelim, rightDelim string) []Segment {
	l := &lexer{
		input:      s,
		leftDelim:  leftDelim,
		rightDelim: rightDelim,
	}
	for state := lexText; state != nil; {
		state = state(l)
	}
	return l.items
}

// Implementation of the lexer based on https://go.dev/talks/2011/lex.slide

// lexer holds the state of the scanner.
type lexer struct {
	input      string // the string being scanned
	start      int    // start position of this item
	pos        int    // current position in the input
	leftDelim  string
	rightDelim string
	items      []Segment
}

// stateFn represents the state of the scanner as a function that returns the next state.
type stateFn func(*lexer) stateFn

// emitText appends the pending input as literal text, merging it with a preceding literal.
func (l *lexer) emitText() {
	if l.pos > l.start {
		text := l.input[l.start:l.pos]
		if n := len(l.items); n > 0 && !l.items[n-1].Placeholder {
			l.items[n-1].Text += text
		} else {
			l.items = append(l.items, Segment{Text: text})
		}
	}
	l.start = l.pos
}

func lexText(l *lexer) stateFn {
	if x := strings.Index(l.input[l.pos:], l.leftDelim); x >= 0 {
		l.pos += x
		return lexLeftDelim
	}
	l.pos = len(l.input)
	l.emitText()
	return nil
}

// lexLeftDelim is entered with l.pos at a left delimiter. Text before it is still pending.
func lexLeftDelim(l *lexer) stateFn {
	open := l.pos
	inner := open + len(l.leftDelim)
	end := strings.Index(l.input[inner:], l.rightDelim)
	if end < 0 {
		// unclosed placeholder: the rest of the input is literal
		l.pos = len(l.input)
		l.emitText()
		return nil
	}
	name := strings.TrimSpace(l.input[inner : inner+end])
	if name == "" || strings.Contains(name, l.leftDelim) {
		// not a placeholder, keep the delimiter as text and continue after it
		l.pos = inner
		return lexText
	}
	l.emitText()
	l.items = append(l.items, Segment{Text: name, Placeholder: true})
	l.pos = inner + end + len(l.rightDelim)
	l.start = l.pos
	return lexText
}

// hasPlaceholder reports whether any segment references a field.
func hasPlaceholder(segs []Segment) bool {
	for _, s := range segs {
		if s.Placeholder {
			return true
		}
	}
	return false
}
