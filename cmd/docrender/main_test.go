package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderFragment(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"tessera.xml":  `<p>{{member.first_name}}</p>`,
		"tessera.yaml": "member:\n  first_name: Anna\n",
	})

	out, err := execute(t, "render", "-o", "fragment", filepath.Join(dir, "tessera.xml"))
	require.NoError(t, err)
	require.Equal(t, "<p>Anna</p>\n", out)
}

func TestRenderDataFlag(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"moduli/socio.xml": `<pdf creator="x"><body><page>` +
			`<paragraph>${nome}<!-- $Include blocchi/firma --></paragraph>` +
			`</page></body></pdf>`,
		"data/socio.json":          `{"first_name": "Mario"}`,
		"shared/blocchi/firma.txt": "Il presidente",
	})

	out, err := execute(t, "render", "-o", "fragment",
		"--data", filepath.Join(dir, "data/socio.json"),
		"--includes", filepath.Join(dir, "shared"),
		filepath.Join(dir, "moduli/socio.xml"))
	require.NoError(t, err)
	require.Contains(t, out, "Mario")
	require.Contains(t, out, "Il presidente")
	require.NotContains(t, out, "[Include:")
}

func TestRenderJSON(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.xml": `<p>{{x}}</p>`,
		"a.yml": "x: 1\n",
	})

	out, err := execute(t, "render", "-o", "json", "--dialect", "modern", filepath.Join(dir, "a.xml"))
	require.NoError(t, err)

	var res struct {
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "<p>1</p>", res.HTML)
}

func TestRenderHTML(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.xml": `<p>ciao</p>`})

	out, err := execute(t, "render", filepath.Join(dir, "a.xml"))
	require.NoError(t, err)
	require.Contains(t, out, "<!DOCTYPE html>")
	require.Contains(t, out, "<title>a.xml</title>")
	require.Contains(t, out, "<body><p>ciao</p></body>")
}

func TestRenderOutFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.xml": `<p>ciao</p>`})
	outFile := filepath.Join(dir, "a.html")

	out, err := execute(t, "render", "-o", "fragment", "--out", outFile, filepath.Join(dir, "a.xml"))
	require.NoError(t, err)
	require.Empty(t, out)

	b, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, "<p>ciao</p>\n", string(b))
}

func TestRenderErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bad.xml":  `<p>`,
		"ok.xml":   `<p/>`,
		"list.xml": `<p/>`,
		"list.yml": "- a\n",
	})

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"parse", []string{"render", filepath.Join(dir, "bad.xml")}, "element <p> is not closed"},
		{"missing", []string{"render", filepath.Join(dir, "nope.xml")}, "read template"},
		{"dialect", []string{"render", "--dialect", "docx", filepath.Join(dir, "ok.xml")}, `unknown dialect "docx"`},
		{"output", []string{"render", "-o", "pdf", filepath.Join(dir, "ok.xml")}, `unknown output format "pdf"`},
		{"data", []string{"render", filepath.Join(dir, "list.xml")}, "list.yml"},
		{"watch without out", []string{"render", "--watch", filepath.Join(dir, "ok.xml")}, "--watch requires --out"},
		{"args", []string{"render"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCheck(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"ok.xml":  `<p>{{a}}</p>`,
		"bad.xml": "<div>\n<loop>\n</loop></div>",
	})

	out, err := execute(t, "check", filepath.Join(dir, "ok.xml"))
	require.NoError(t, err)
	require.Empty(t, out)

	bad := filepath.Join(dir, "bad.xml")
	out, err = execute(t, "check", filepath.Join(dir, "ok.xml"), bad)
	require.ErrorContains(t, err, "1 of 2 templates have issues")
	require.Contains(t, out, bad+":2: ")
}

func TestDetect(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"modern.xml": `<p>{{a}}</p>`,
		"legacy.xml": `<pdf><paragraph>${a}</paragraph></pdf>`,
	})

	out, err := execute(t, "detect", filepath.Join(dir, "legacy.xml"))
	require.NoError(t, err)
	require.Equal(t, "legacy\n", out)

	out, err = execute(t, "detect", filepath.Join(dir, "modern.xml"), filepath.Join(dir, "legacy.xml"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "modern.xml")+": modern\n"+filepath.Join(dir, "legacy.xml")+": legacy\n", out)
}
