package doctpl

import (
	"slices"
	"strconv"
	"strings"
)

// maxFlattenDepth bounds the recursion into nested mappings.
const maxFlattenDepth = 32

// maxFlattenKeys bounds the size of a flattened view. Mappings shared many times over (not
// cyclic, but fanning out at every level) stop being flattened past it; their fields are
// still reached by the nested walk.
const maxFlattenKeys = 1 << 16

// flatten returns a single-level view of vars: nested mapping keys are joined with "_",
// sequences are kept whole so they stay iterable. When two paths flatten to the same key the
// one with fewer joins wins, so a literal "a_b" field hides the nested a → b. With as many
// joins on both sides, the path whose first differing key is longer wins: {a: {b_c: 1}} and
// {a_b: {c: 2}} both give a_b_c, which is 2. A mapping that contains itself is kept as a
// value below the first occurrence and not flattened again.
func flatten(vars map[string]any) map[string]any {
	f := flattener{
		out:    make(map[string]any, len(vars)),
		depth:  make(map[string]int, len(vars)),
		onPath: map[uintptr]bool{},
	}
	if id, ok := refID(vars); ok {
		f.onPath[id] = true
	}
	f.add("", vars, 0)
	return f.out
}

type flattener struct {
	out    map[string]any
	depth  map[string]int
	onPath map[uintptr]bool
}

func (f *flattener) add(prefix string, m map[string]any, depth int) {
	// Descending order visits "a_b" before "a", so on equal depth the longer literal key is
	// seen first and kept.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	slices.Reverse(keys)

	for _, k := range keys {
		v := m[k]
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		if depth < maxFlattenDepth && len(f.out) < maxFlattenKeys {
			if nested, ok := asMap(v); ok && f.enter(v) {
				f.add(key, nested, depth+1)
				f.leave(v)
				continue
			}
		}
		if d, ok := f.depth[key]; ok && d <= depth {
			continue
		}
		f.out[key] = v
		f.depth[key] = depth
	}
}

// enter marks v as being flattened. It reports false if v is already on the current path.
func (f *flattener) enter(v any) bool {
	id, ok := refID(v)
	if !ok {
		return true
	}
	if f.onPath[id] {
		return false
	}
	f.onPath[id] = true
	return true
}

func (f *flattener) leave(v any) {
	if id, ok := refID(v); ok {
		delete(f.onPath, id)
	}
}

// resolvePath looks up path in one scope frame. The exact key of the flattened view wins;
// only then is the nested data walked. A field literally named "a_b" therefore shadows the
// nested path a → b. Paths with dots ("association.name") are walked by dot segments.
func resolvePath(flat, vars map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	if v, ok := flat[path]; ok {
		if isNil(v) {
			return nil, false
		}
		return v, true
	}
	if strings.Contains(path, ".") {
		return walk(vars, strings.Split(path, "."), ".", 0)
	}
	return walk(vars, strings.Split(path, "_"), "_", 0)
}

// walk descends into v following segs. At every level successive joins of the leading
// segments are tried as keys, so "birth_date" is found as one key under "member" in
// "member_birth_date". Numeric segments index into sequences. Every step consumes at least
// one segment, so cyclic data cannot make the walk run longer than the path.
func walk(v any, segs []string, sep string, depth int) (any, bool) {
	if len(segs) == 0 {
		if isNil(v) {
			return nil, false
		}
		return v, true
	}
	if depth > maxFlattenDepth {
		return nil, false
	}

	if m, ok := asMap(v); ok {
		for i := 1; i <= len(segs); i++ {
			key := strings.Join(segs[:i], sep)
			next, ok := m[key]
			if !ok {
				continue
			}
			if found, ok := walk(next, segs[i:], sep, depth+1); ok {
				return found, true
			}
		}
		return nil, false
	}

	if seq, ok := asSeq(v); ok {
		idx, err := strconv.Atoi(segs[0])
		if err != nil || idx < 0 || idx >= len(seq) {
			return nil, false
		}
		return walk(seq[idx], segs[1:], sep, depth+1)
	}
	return nil, false
}

// legacyLabels maps the field labels of the older template editor to canonical field names.
var legacyLabels = map[string]string{
	"matricola":                 "badge_number",
	"nome":                      "first_name",
	"cognome":                   "last_name",
	"data di nascita":           "birth_date",
	"luogo di nascita":          "birth_place",
	"provincia di nascita":      "birth_province",
	"codice fiscale":            "tax_code",
	"indirizzo di residenza":    "address_street",
	"cap di residenza":          "address_cap",
	"comune di residenza":       "address_city",
	"provincia di residenza":    "address_province",
	"data iscrizione":           "member_since",
	"data approvazione":         "approval_date",
	"data dimissioni/decadenza": "resignation_date",
}

// normalizeLabel lower-cases a legacy placeholder name and replaces spaces with underscores.
func normalizeLabel(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// labelTable is a label mapping with keys normalised the way placeholder names are.
type labelTable map[string]string

func newLabelTable(labels map[string]string) labelTable {
	t := make(labelTable, len(labels))
	for k, v := range labels {
		t[normalizeLabel(k)] = v
	}
	return t
}

// resolveLegacy looks up a legacy placeholder name: the name as written, then its normalised
// form, then the field the label table maps it to.
func resolveLegacy(s *Scope, labels labelTable, name string) (any, bool) {
	if v, ok := s.Resolve(name); ok {
		return v, true
	}
	norm := normalizeLabel(name)
	if norm != name {
		if v, ok := s.Resolve(norm); ok {
			return v, true
		}
	}
	if field, ok := labels[norm]; ok {
		return s.Resolve(field)
	}
	return nil, false
}
