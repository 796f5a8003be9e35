package docpages

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/dpotapov/go-docpages/doctpl"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	file := func(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }
	return fstest.MapFS{
		"index.xml":  file(`<p>Indice {{title}}</p>`),
		"index.yaml": file("title: Soci\n"),
		"tessera.xml": file(`<template>
  <page format="A5" orientation="landscape"><margins top="10" bottom="10" left="5" right="5"/></page>
  <styles>h1 { color: red }</styles>
  <body><h1>{{member_first_name}}</h1><p>{{member_birth_date}}</p></body>
</template>`),
		"tessera.json":  file(`{"member": {"first_name": "Anna", "birth_date": "2001-05-03"}}`),
		"soci/index.xml": file(`<p>[{{n}}]</p>`),
		"legacy/scheda.xml": file(`<pdf creator="x"><body><page>` +
			`<paragraph>${nome}<!-- $Include blocks/firma --></paragraph></page></body></pdf>`),
		"legacy/scheda.yml":       file("first_name: Mario\nlast_name: Rossi\n"),
		"legacy/blocks/firma.xml": file(" Firma: ${cognome}"),
		"broken.xml":              file("<p>\n<div>"),
		"img/logo.png":            file("PNG"),
		".secret/key.txt":         file("secret"),
	}
}

func TestPages_Handler(t *testing.T) {
	tests := []struct {
		url        string
		wantStatus int
		wantBody   string
	}{
		{"GET /", 200, `<p>Indice Soci</p>`},
		{"GET /index.xml", 200, `<p>Indice Soci</p>`},
		{"GET /tessera", 200, `<h1>Anna</h1><p>03/05/2001</p>`},
		{"GET /tessera.xml", 200, `<style>@page { size: A5 landscape; margin: 10mm 5mm 10mm 5mm; }` + "\nh1 { color: red }</style>"},
		{"GET /tessera.json", 404, "404 page not found\n"},
		{"GET /soci/", 200, `<p>[]</p>`},
		{"GET /soci", 404, "404 page not found\n"},
		{"GET /legacy/scheda", 200, `<div class="page"><div style="padding: 1mm">Mario Firma: Rossi</div></div>`},
		{"GET /broken", 422, `element &lt;div&gt; is not closed`},
		{"GET /img/logo.png", 200, "PNG"},
		{"GET /img", 404, "404 page not found\n"},
		{"GET /.secret/key.txt", 404, "404 page not found\n"},
		{"GET /missing", 404, "404 page not found\n"},
		{"DELETE /index.xml", 405, "Method Not Allowed\n"},
		{"GET /render", 405, "Method Not Allowed\n"},
		{"GET /live", 400, "WebSocket upgrade required\n"},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", i, tt.url), func(t *testing.T) {
			urlParts := strings.SplitN(tt.url, " ", 2)
			method, url := urlParts[0], urlParts[1]
			req, err := http.NewRequest(method, url, nil)
			if err != nil {
				t.Fatal(err)
			}

			rr := httptest.NewRecorder()

			h := &Handler{
				FileSystem: testFS(),
				OnError:    func(r *http.Request, pagesErr error) { err = pagesErr },
			}

			h.ServeHTTP(rr, req)

			if err != nil {
				t.Errorf("Handler() err = %v", err)
			}

			if rr.Code != tt.wantStatus {
				t.Errorf("status code: got %v, want %v", rr.Code, tt.wantStatus)
				return
			}

			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body: got %q, want it to contain %q", rr.Body.String(), tt.wantBody)
				return
			}
		})
	}
}

func TestPages_Preview(t *testing.T) {
	h := &Handler{FileSystem: testFS()}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	want := `<!DOCTYPE html><html><head><meta charset="utf-8"/><title>index.xml</title>` +
		`<style>@page { size: A4 portrait; margin: 20mm 15mm 20mm 15mm; }</style></head>` +
		`<body><p>Indice Soci</p></body></html>`
	require.Equal(t, want, rr.Body.String())
}

func TestPages_ErrorPage(t *testing.T) {
	h := &Handler{FileSystem: testFS()}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/broken.xml", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, `<h1>broken.xml has 2 issue(s)</h1>`)
	require.Contains(t, body, `<p><strong>line 2: </strong>element &lt;div&gt; is not closed</p>`)
	require.Contains(t, body, `<span class="error">2 | &lt;div&gt;`+"\n</span>")
	require.Contains(t, body, `<span>1 | &lt;p&gt;`+"\n</span>")
}

func TestPages_Render(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantHTML   string
		wantError  string
		wantIssues []doctpl.Issue
	}{
		{
			name:       "ok",
			body:       `{"template": "<p>{{name}} {{total}}</p>", "data": {"name": "<b>", "total": 12.5}}`,
			wantStatus: http.StatusOK,
			wantHTML:   "<p>&lt;b&gt; 12.5</p>",
		},
		{
			name:       "legacy",
			body:       `{"template": "<paragraph>${nome}</paragraph>", "dialect": "legacy", "data": {"first_name": "Mario"}}`,
			wantStatus: http.StatusOK,
			wantHTML:   `<div style="padding: 1mm">Mario</div>`,
		},
		{
			name:       "issues",
			body:       `{"template": "<loop>\n<p>"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "template has issues",
			wantIssues: []doctpl.Issue{
				{Line: 1, Message: "<loop> without source"},
				{Line: 2, Message: "element <p> is not closed"},
				{Line: 1, Message: "element <loop> is not closed"},
			},
		},
		{
			name:       "bad json",
			body:       `{"template": `,
			wantStatus: http.StatusBadRequest,
			wantError:  "decode render request: ",
		},
		{
			name:       "empty template",
			body:       `{"data": {}}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "decode render request: template is empty",
		},
		{
			name:       "unknown dialect",
			body:       `{"template": "x", "dialect": "jinja"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  `unknown dialect "jinja"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code)
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			if tt.wantStatus == http.StatusOK {
				var got doctpl.Result
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
				require.Equal(t, tt.wantHTML, got.HTML)
				require.Equal(t, doctpl.A4, got.PageFormat)
				require.Equal(t, doctpl.Portrait, got.Orientation)
				return
			}
			var got errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			require.Contains(t, got.Error, tt.wantError)
			if diff := cmp.Diff(tt.wantIssues, got.Issues); diff != "" {
				t.Errorf("issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPages_RenderDepth(t *testing.T) {
	h := &Handler{Engine: &doctpl.Engine{MaxDepth: 1}}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(`{"template": "<div><div>x</div></div>"}`)))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var got errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Contains(t, got.Error, doctpl.ErrDepthExceeded.Error())
}

func TestPages_PreviewDepth(t *testing.T) {
	var onErr error
	h := &Handler{
		FileSystem: fstest.MapFS{"deep.xml": {Data: []byte("<div>\n<div>\n<p>x</p>\n</div>\n</div>")}},
		Engine:     &doctpl.Engine{MaxDepth: 1},
		OnError:    func(r *http.Request, err error) { onErr = err },
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/deep", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "deep.xml has 1 issue(s)")
	require.Contains(t, rr.Body.String(), doctpl.ErrDepthExceeded.Error())
	require.NoError(t, onErr)
}

// errFS fails every operation.
type errFS struct{}

func (errFS) Open(string) (fs.File, error) { return nil, errors.New("disk on fire") }

func TestPages_OnError(t *testing.T) {
	var got error
	h := &Handler{
		FileSystem: errFS{},
		OnError:    func(r *http.Request, err error) { got = err },
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tessera", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "Internal Server Error\n", rr.Body.String())
	require.ErrorContains(t, got, "disk on fire")
}

func TestPages_NoFileSystem(t *testing.T) {
	h := &Handler{}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/index.xml", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"":            "/",
		"a":           "/a",
		"/a/../b":     "/b",
		"/a/b/":       "/a/b/",
		"/a//b/./c/":  "/a/b/c/",
		"/../etc/pwd": "/etc/pwd",
	}
	for in, want := range tests {
		if got := cleanPath(in); got != want {
			t.Errorf("cleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPages_Example(t *testing.T) {
	h := &Handler{FileSystem: os.DirFS("example")}

	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{"ODV Amici del Parco", "<td>domanda.xml</td>"}},
		{"/tessera", []string{
			"@page { size: A5 landscape; margin: 10mm 12mm 10mm 12mm; }",
			"<strong>Anna Bianchi</strong>",
			"Nato il 14/03/1990 a Torino",
			"Iscritto al registro dei volontari.",
			"1. Pulizia sentieri",
			"2. Festa del parco",
		}},
		{"/domanda", []string{"Mario Rossi", "RSSMRA80A01L219X", "Torino, 01/03/2026"}},
		{"/img/logo.svg", []string{"<svg"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			for _, s := range tt.want {
				require.Contains(t, w.Body.String(), s)
			}
			require.NotContains(t, w.Body.String(), "[Include:")
		})
	}
}
