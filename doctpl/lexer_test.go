package doctpl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLexPlaceholders(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		legacy bool
		want   []Segment
	}{
		{"empty", "", false, nil},
		{"no_placeholder", "foo", false, []Segment{{Text: "foo"}}},
		{"placeholder", "{{foo}}", false, []Segment{{Text: "foo", Placeholder: true}}},
		{"surrounded", "a{{ foo }}b", false, []Segment{
			{Text: "a"},
			{Text: "foo", Placeholder: true},
			{Text: "b"},
		}},
		{"adjacent", "{{a}}{{b}}", false, []Segment{
			{Text: "a", Placeholder: true},
			{Text: "b", Placeholder: true},
		}},
		{"unclosed", "x{{foo", false, []Segment{{Text: "x{{foo"}}},
		{"blank_name", "{{ }}x", false, []Segment{{Text: "{{ }}x"}}},
		{"nested_open", "{{a{{b}}", false, []Segment{
			{Text: "{{a"},
			{Text: "b", Placeholder: true},
		}},
		{"legacy", "Nome: ${nome} ${codice fiscale}", true, []Segment{
			{Text: "Nome: "},
			{Text: "nome", Placeholder: true},
			{Text: " "},
			{Text: "codice fiscale", Placeholder: true},
		}},
		{"legacy_ignores_modern", "{{nome}}", true, []Segment{{Text: "{{nome}}"}}},
		{"modern_ignores_legacy", "${nome}", false, []Segment{{Text: "${nome}"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Modern
			if tt.legacy {
				d = Legacy
			}
			left, right := delims(d)
			got := lexPlaceholders(tt.s, left, right)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("lexPlaceholders(%q) mismatch (-want +got):\n%s", tt.s, diff)
			}
		})
	}
}
