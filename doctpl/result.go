package doctpl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Orientation of the printed page.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

func parseOrientation(s string) Orientation {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "landscape":
		return Landscape
	}
	return Portrait
}

// PageFormat is either a named paper size such as "A4" or explicit dimensions in millimetres.
type PageFormat struct {
	Name          string
	Width, Height float64
}

// A4 is the default page format.
var A4 = PageFormat{Name: "A4"}

// parsePageFormat reads "A4", "210x297" or "210,297". An empty string is A4.
func parsePageFormat(s string) PageFormat {
	s = strings.TrimSpace(s)
	if s == "" {
		return A4
	}
	for _, sep := range []string{"x", "X", ","} {
		ws, hs, ok := strings.Cut(s, sep)
		if !ok {
			continue
		}
		w, err1 := strconv.ParseFloat(strings.TrimSpace(ws), 64)
		h, err2 := strconv.ParseFloat(strings.TrimSpace(hs), 64)
		if err1 == nil && err2 == nil {
			return PageFormat{Width: w, Height: h}
		}
	}
	return PageFormat{Name: s}
}

func (f PageFormat) String() string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("%gx%g", f.Width, f.Height)
}

// MarshalJSON encodes a named format as a string and dimensions as a [width, height] pair.
func (f PageFormat) MarshalJSON() ([]byte, error) {
	if f.Name != "" {
		return json.Marshal(f.Name)
	}
	return json.Marshal([2]float64{f.Width, f.Height})
}

func (f *PageFormat) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*f = PageFormat{Name: name}
		return nil
	}
	var dims [2]float64
	if err := json.Unmarshal(b, &dims); err != nil {
		return fmt.Errorf("page format must be a name or a [width, height] pair: %w", err)
	}
	*f = PageFormat{Width: dims[0], Height: dims[1]}
	return nil
}

// Margins of the printed page in millimetres.
type Margins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

var defaultMargins = Margins{Top: 20, Bottom: 20, Left: 15, Right: 15}

// PageSetup is the page geometry declared by a template.
type PageSetup struct {
	Format      PageFormat
	Orientation Orientation
	Margins     Margins
}

var defaultPageSetup = PageSetup{Format: A4, Orientation: Portrait, Margins: defaultMargins}

// Result is the output of a render: the document body, its stylesheet and the page geometry
// the PDF backend needs.
type Result struct {
	HTML        string      `json:"html"`
	CSS         string      `json:"css"`
	PageFormat  PageFormat  `json:"pageFormat"`
	Orientation Orientation `json:"orientation"`
	Margins     Margins     `json:"margins"`
}

// pageBreak separates the renderings of consecutive records in a multi-page document.
const pageBreak = `<div style="page-break-after: always;"></div>`

func newResult(t *Template, body string) *Result {
	return &Result{
		HTML:        body,
		CSS:         t.CSS,
		PageFormat:  t.Page.Format,
		Orientation: t.Page.Orientation,
		Margins:     t.Page.Margins,
	}
}

// legacyCSS is the stylesheet of every legacy document.
const legacyCSS = `body {
    font-family: Helvetica, Arial, sans-serif;
    font-size: 10pt;
}

.page {
    position: relative;
    background: white;
    padding: 10mm;
    min-height: 277mm;
}

.page > div {
    box-sizing: border-box;
}
`
