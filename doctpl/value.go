package doctpl

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/camelcase"
)

var timeType = reflect.TypeOf(time.Time{})

// asMap returns v as a string-keyed mapping. Besides map[string]any it accepts any map with
// string keys and structs, whose exported fields are keyed by their json tag name or, without
// a tag, by the snake_case form of the field name (BirthDate becomes birth_date).
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}

	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		if rv.Type() == timeType {
			return nil, false
		}
		return structFields(rv), true
	}
	return nil, false
}

func structFields(rv reflect.Value) map[string]any {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := toSnakeCase(f.Name)
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = rv.Field(i).Interface()
	}
	return out
}

// asSeq returns v as a sequence. Strings and byte slices are scalars, not sequences.
func asSeq(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil, string, []byte:
		return nil, false
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out, true
	}

	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

// isNil reports whether v carries no value. Nil values in the context count as missing.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// display converts a resolved value to the text inserted into the document.
func display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "Sì"
		}
		return "No"
	case json.Number:
		return x.String()
	case time.Time:
		return formatTime(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return formatTime(*x)
	case fmt.Stringer:
		return x.String()
	}

	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return ""
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return display(rv.Bool())
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		// a mapping that contains itself has no finite text
		if cyclic(rv) {
			return ""
		}
		b, err := json.Marshal(rv.Interface())
		if err != nil {
			return fmt.Sprint(rv.Interface())
		}
		return string(b)
	}
	return fmt.Sprint(rv.Interface())
}

// refID returns the identity of a map or pointer value.
func refID(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

// cyclic reports whether rv reaches itself through maps, slices, pointers or interfaces.
// Unexported struct fields are not followed.
func cyclic(rv reflect.Value) bool {
	c := cycleCheck{onPath: map[refKey]bool{}, done: map[refKey]bool{}}
	return c.visit(rv)
}

type refKey struct {
	ptr uintptr
	typ reflect.Type
}

type cycleCheck struct {
	onPath map[refKey]bool
	done   map[refKey]bool
}

func (c *cycleCheck) visit(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Interface:
		return !rv.IsNil() && c.visit(rv.Elem())
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if c.visit(rv.Index(i)) {
				return true
			}
		}
		return false
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() && c.visit(rv.Field(i)) {
				return true
			}
		}
		return false
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return false
		}
	default:
		return false
	}

	k := refKey{ptr: rv.Pointer(), typ: rv.Type()}
	if c.onPath[k] {
		return true
	}
	if c.done[k] {
		return false
	}
	c.onPath[k] = true
	found := false
	switch rv.Kind() {
	case reflect.Pointer:
		found = c.visit(rv.Elem())
	case reflect.Map:
		for iter := rv.MapRange(); iter.Next() && !found; {
			found = c.visit(iter.Value())
		}
	case reflect.Slice:
		for i := 0; i < rv.Len() && !found; i++ {
			found = c.visit(rv.Index(i))
		}
	}
	delete(c.onPath, k)
	c.done[k] = true
	return found
}

// truthy reports whether v passes a bare condition test: present and not empty, false or zero.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != "" && x != "0"
	case bool:
		return x
	case time.Time:
		return !x.IsZero()
	}

	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String:
		return truthy(rv.String())
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

// toSnakeCase converts a Go identifier or a kebab-case name to snake_case.
func toSnakeCase(s string) string {
	s = strings.ReplaceAll(s, "-", "_")

	blocks := strings.Split(s, "_")
	for i, block := range blocks {
		if block == "" {
			continue
		}
		var elems []string
		for _, w := range camelcase.Split(block) {
			if w == "" {
				continue
			}
			// digits stick to the preceding word: Address2 is address2
			if isDigits(w) && len(elems) > 0 {
				elems[len(elems)-1] += w
				continue
			}
			elems = append(elems, strings.ToLower(w))
		}
		blocks[i] = strings.Join(elems, "_")
	}
	return strings.Join(blocks, "_")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
