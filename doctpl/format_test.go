package doctpl

import (
	"encoding/json"
	"testing"
	"time"
)

func TestApplyFormat(t *testing.T) {
	tests := []struct {
		name   string
		v      any
		format string
		want   string
	}{
		{"date_iso", "2001-05-03", "date", "03/05/2001"},
		{"date_timestamp", "2001-05-03 10:20:30", "date", "03/05/2001"},
		{"date_time_value", time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC), "date", "01/03/2024"},
		{"date_unparseable", "domani", "date", "domani"},
		{"date_sentinel", "0000-00-00", "date", "0000-00-00"},
		{"datetime", "2024-03-01 14:30:00", "datetime", "01/03/2024 14:30"},
		{"datetime_rfc3339", "2024-03-01T09:05:00Z", "datetime", "01/03/2024 09:05"},
		{"currency", 1234.5, "currency", "1.234,50 €"},
		{"currency_string", "12", "currency", "12,00 €"},
		{"currency_rounding", 0.125, "currency", "0,13 €"},
		{"currency_text", "gratis", "currency", "gratis"},
		{"number", 1234.5, "number", "1.235"},
		{"number_int", 1234567, "number", "1.234.567"},
		{"number_bool", true, "number", "Sì"},
		{"uppercase", "città", "uppercase", "CITTÀ"},
		{"lowercase", "ROMA", "lowercase", "roma"},
		{"capitalize", "mario ROSSI", "capitalize", "Mario Rossi"},
		{"unknown", "x", "roman", "x"},
		{"none", 42, "", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyFormat(tt.v, tt.format); got != tt.want {
				t.Errorf("applyFormat(%v, %q) = %q, want %q", tt.v, tt.format, got, tt.want)
			}
		})
	}
}

func TestAutoFormat(t *testing.T) {
	tests := []struct {
		key  string
		v    any
		want string
	}{
		{"birth_date", "2001-05-03", "03/05/2001"},
		{"member_birth_date", "2001-05-03", "03/05/2001"},
		{"created_datetime", "2024-03-01 14:30:00", "01/03/2024 14:30"},
		{"approval_date", "", ""},
		{"approval_date", "0000-00-00", "0000-00-00"},
		{"last_login_datetime", "0000-00-00 00:00:00", "0000-00-00 00:00:00"},
		{"birth_date", "sconosciuta", "sconosciuta"},
		{"birthdate", "2001-05-03", "2001-05-03"},
		{"name", "2001-05-03", "2001-05-03"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := autoFormat(tt.key, tt.v); got != tt.want {
				t.Errorf("autoFormat(%q, %v) = %q, want %q", tt.key, tt.v, got, tt.want)
			}
		})
	}
}

type testStatus int

func (s testStatus) String() string { return "stato-" + string(rune('0'+int(s))) }

func TestDisplay(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"bytes", []byte("abc"), "abc"},
		{"true", true, "Sì"},
		{"false", false, "No"},
		{"int", 42, "42"},
		{"negative", int64(-7), "-7"},
		{"uint", uint8(7), "7"},
		{"float", 2.5, "2.5"},
		{"float_integral", 3.0, "3"},
		{"json_number", json.Number("12.50"), "12.50"},
		{"midnight", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "01/03/2024"},
		{"time", time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC), "01/03/2024 08:15"},
		{"zero_time", time.Time{}, ""},
		{"stringer", testStatus(2), "stato-2"},
		{"slice", []string{"a", "b"}, `["a","b"]`},
		{"map", map[string]int{"a": 1}, `{"a":1}`},
		{"pointer", func() *int { i := 5; return &i }(), "5"},
		{"nil_pointer", (*int)(nil), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := display(tt.v); got != tt.want {
				t.Errorf("display(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}
}

type testNode struct {
	Name string
	Next *testNode
}

func TestDisplayCyclic(t *testing.T) {
	m := map[string]any{"a": 1}
	m["self"] = m

	n := &testNode{Name: "n"}
	n.Next = n

	shared := []int{1}
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"map", m, ""},
		{"struct", n, ""},
		{"shared_not_cyclic", map[string]any{"a": shared, "b": shared}, `{"a":[1],"b":[1]}`},
		{"chain", &testNode{Name: "a", Next: &testNode{Name: "b"}}, `{"Name":"a","Next":{"Name":"b","Next":null}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := display(tt.v); got != tt.want {
				t.Errorf("display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{"", false},
		{"0", false},
		{"no", true},
		{"x", true},
		{false, false},
		{true, true},
		{0, false},
		{0.0, false},
		{3, true},
		{[]any{}, false},
		{[]any{1}, true},
		{map[string]any{}, false},
		{map[string]any{"a": 1}, true},
		{time.Time{}, false},
		{time.Now(), true},
		{struct{}{}, true},
	}
	for _, tt := range tests {
		if got := truthy(tt.v); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Name", "name"},
		{"FirstName", "first_name"},
		{"BirthDate", "birth_date"},
		{"Address2", "address2"},
		{"already_snake", "already_snake"},
		{"kebab-case", "kebab_case"},
		{"ID", "id"},
		{"UserID", "user_id"},
		{"HTMLBody", "html_body"},
	}
	for _, tt := range tests {
		if got := toSnakeCase(tt.in); got != tt.want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
