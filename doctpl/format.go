package doctpl

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

// Zero-date sentinels stored by the data layer for unset dates. They are never reformatted.
const (
	zeroDate     = "0000-00-00"
	zeroDateTime = "0000-00-00 00:00:00"
)

// formatFuncs maps the values accepted by the format attribute of <variable>.
var formatFuncs = map[string]func(v any) string{
	"date":       func(v any) string { return formatDate(v, dateLayout) },
	"datetime":   func(v any) string { return formatDate(v, dateTimeLayout) },
	"currency":   formatCurrency,
	"number":     formatNumber,
	"uppercase":  func(v any) string { return cases.Upper(language.Italian).String(display(v)) },
	"lowercase":  func(v any) string { return cases.Lower(language.Italian).String(display(v)) },
	"capitalize": func(v any) string { return cases.Title(language.Italian).String(display(v)) },
}

func knownFormat(name string) bool {
	_, ok := formatFuncs[name]
	return ok
}

// applyFormat formats v according to the named format. An empty or unknown name leaves the
// display form of v unchanged.
func applyFormat(v any, name string) string {
	if f, ok := formatFuncs[name]; ok {
		return f(v)
	}
	return display(v)
}

// autoFormat formats values of date-like fields: keys containing "_datetime" get the datetime
// layout, other keys containing "_date" the date layout. Empty values and zero-date sentinels
// are left alone, as is anything that does not parse as a date.
func autoFormat(key string, v any) string {
	s := display(v)
	if s == "" || s == zeroDate || s == zeroDateTime {
		return s
	}
	switch {
	case strings.Contains(key, "_datetime"):
		return formatDate(v, dateTimeLayout)
	case strings.Contains(key, "_date"):
		return formatDate(v, dateLayout)
	}
	return s
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02.01.2006",
	"2006/01/02",
}

// parseDate reads a date from a time value or from one of the common textual layouts.
func parseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	}
	s := strings.TrimSpace(display(v))
	if s == "" || s == zeroDate || s == zeroDateTime {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatDate(v any, layout string) string {
	t, ok := parseDate(v)
	if !ok {
		return display(v)
	}
	return t.Format(layout)
}

// formatTime is the display form of a time value: the date alone at midnight, date and time
// otherwise.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(dateLayout)
	}
	return t.Format(dateTimeLayout)
}

// parseNumber accepts numeric values and numeric strings.
func parseNumber(v any) (float64, bool) {
	if _, ok := v.(bool); ok {
		return 0, false
	}
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return 0, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(display(v)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// formatCurrency renders 1234.5 as "1.234,50 €".
func formatCurrency(v any) string {
	f, ok := parseNumber(v)
	if !ok {
		return display(v)
	}
	p := message.NewPrinter(language.Italian)
	return p.Sprintf("%.2f", math.Round(f*100)/100) + " €"
}

// formatNumber renders 1234.5 as "1.235".
func formatNumber(v any) string {
	f, ok := parseNumber(v)
	if !ok {
		return display(v)
	}
	p := message.NewPrinter(language.Italian)
	return p.Sprintf("%.0f", math.Round(f))
}
