package doctpl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		test    string
		path    string
		op      string
		literal string
	}{
		{"active", "active", "", ""},
		{"  member_active  ", "member_active", "", ""},
		{"status == attivo", "status", "==", "attivo"},
		{`status=="attivo"`, "status", "==", "attivo"},
		{"status != 'sospeso'", "status", "!=", "sospeso"},
		{"role == ", "role", "==", ""},
		{"note == a == b", "note", "==", "a == b"},
	}
	for _, tt := range tests {
		t.Run(tt.test, func(t *testing.T) {
			c, err := parseCondition(tt.test)
			require.NoError(t, err)
			require.Equal(t, tt.path, c.Path)
			require.Equal(t, tt.op, c.Op)
			require.Equal(t, tt.literal, c.Literal)
		})
	}
}

func TestParseConditionErrors(t *testing.T) {
	for _, test := range []string{"", "   ", "== x", " != y"} {
		_, err := parseCondition(test)
		require.Error(t, err, "test %q", test)
	}
}

func TestConditionEval(t *testing.T) {
	data := map[string]any{
		"status":  "attivo",
		"active":  true,
		"blocked": false,
		"count":   0,
		"total":   12,
		"empty":   "",
		"zero":    "0",
		"items":   []any{1},
		"none":    []any{},
		"quote":   `); lookup("x`,
	}
	lookup := func(path string) any {
		v, _ := NewScope(data).Resolve(path)
		return v
	}

	tests := []struct {
		test string
		want bool
	}{
		{"status", true},
		{"active", true},
		{"blocked", false},
		{"count", false},
		{"total", true},
		{"empty", false},
		{"zero", false},
		{"items", true},
		{"none", false},
		{"missing", false},
		{"status == attivo", true},
		{"status == sospeso", false},
		{"status != sospeso", true},
		{"status != attivo", false},
		{"active == true", true},
		{"blocked == false", true},
		{"total == 12", true},
		{"missing == ", true},
		{"missing != x", true},
		{`quote == "); lookup("x`, true},
		{`status == ") || true || ("`, false},
	}
	for _, tt := range tests {
		t.Run(tt.test, func(t *testing.T) {
			c, err := parseCondition(tt.test)
			require.NoError(t, err)
			got, err := c.Eval(lookup)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestConditionReuse(t *testing.T) {
	c, err := parseCondition("status == attivo")
	require.NoError(t, err)

	for _, tc := range []struct {
		status string
		want   bool
	}{{"attivo", true}, {"sospeso", false}, {"attivo", true}} {
		got, err := c.Eval(func(string) any { return tc.status })
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
	require.Equal(t, "status == attivo", c.String())
}
