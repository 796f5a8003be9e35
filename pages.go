package docpages

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/dpotapov/go-docpages/doctpl"
)

// templateExt is the extension of template files. It is used when matching files in the file
// system.
const templateExt = ".xml"

// maxRequestBody limits the size of JSON render requests.
const maxRequestBody = 8 << 20

type Handler struct {
	// FileSystem to serve templates, their data files, include fragments and other assets
	// (images referenced by templates) from. It may be nil for a handler that only serves the
	// render API.
	FileSystem fs.FS

	// Engine renders the templates. If not set, an engine with a template cache is used.
	Engine *doctpl.Engine

	// OnError is a callback that is called when an error occurs while serving a request.
	OnError func(*http.Request, error)

	// Logger configures logging for internal events.
	Logger *slog.Logger

	// init is used to initialize the handler only once.
	init sync.Once

	// logger is a private logger instance that is used to log internal events.
	logger *slog.Logger
}

// ServeHTTP implements the http.Handler interface.
//
// Routes:
//   - POST /render renders the JSON request in the body;
//   - GET /live upgrades to a WebSocket that renders every JSON request it receives;
//   - GET /<name> or /<name>.xml renders the template file as an HTML preview;
//   - any other GET serves a file from FileSystem.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.init.Do(func() {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		if h.Logger != nil {
			h.logger = h.Logger
		}
		if h.Engine == nil {
			h.Engine = &doctpl.Engine{Logger: h.logger, Cache: &doctpl.TreeCache{}}
		}
	})

	if err := h.handleRequest(w, r); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		h.logger.Error("Serve HTTP request", "url", r.URL.Redacted(), "error", err)

		if h.OnError != nil {
			h.OnError(r, err)
		}
	}
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) error {
	urlPath := cleanPath(r.URL.Path)

	switch urlPath {
	case "/render":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return nil
		}
		return h.serveRender(w, r)
	case "/live":
		return h.serveLive(w, r)
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return nil
	}

	if h.FileSystem == nil {
		http.NotFound(w, r)
		return nil
	}

	fsPath, err := h.matchFS(urlPath)
	if err != nil {
		return err
	}
	if fsPath == "" {
		http.NotFound(w, r)
		return nil
	}

	if strings.HasSuffix(fsPath, templateExt) {
		return h.servePreview(w, r, fsPath)
	}
	return h.serveFile(w, r, fsPath)
}

// serveRender renders the JSON request in the body. Malformed templates are answered with
// 422 and the list of issues.
func (h *Handler) serveRender(w http.ResponseWriter, r *http.Request) error {
	req, err := decodeRequest(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil
	}

	res, err := h.Engine.Render(req)
	if resp, status, ok := failedRender(err); ok {
		writeJSON(w, status, resp)
		return nil
	}
	if err != nil {
		return fmt.Errorf("render request: %w", err)
	}

	writeJSON(w, http.StatusOK, res)
	return nil
}

// servePreview renders a template file of FileSystem as an HTML document, with the data
// found next to the template and includes read from the template directory.
func (h *Handler) servePreview(w http.ResponseWriter, r *http.Request, fsPath string) error {
	markup, err := fs.ReadFile(h.FileSystem, fsPath)
	if err != nil {
		return fmt.Errorf("read template %s: %w", fsPath, err)
	}

	data, err := LoadData(h.FileSystem, strings.TrimSuffix(fsPath, templateExt))
	if err != nil {
		return err
	}

	t, err := h.Engine.Parse(string(markup), doctpl.Auto)
	var pe *doctpl.ParseError
	if errors.As(err, &pe) {
		h.logger.Debug("Template has issues", "path", fsPath, "issues", len(pe.Issues))
		return writeErrorPage(w, fsPath, string(markup), pe)
	}
	if err != nil {
		return fmt.Errorf("parse template %s: %w", fsPath, err)
	}

	includes, err := FSIncludes(h.FileSystem, path.Dir(fsPath), t.Includes())
	if err != nil {
		return err
	}

	res, err := h.Engine.Execute(t, data, includes)
	if errors.Is(err, doctpl.ErrDepthExceeded) {
		h.logger.Debug("Template nests too deep", "path", fsPath, "error", err)
		return writeErrorPage(w, fsPath, string(markup), depthIssue(err))
	}
	if err != nil {
		return fmt.Errorf("render template %s: %w", fsPath, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return nil
	}
	return WritePreview(w, path.Base(fsPath), res)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, fsPath string) error {
	r.URL.Path = fsPath
	r.URL.RawPath = fsPath
	http.FileServerFS(h.FileSystem).ServeHTTP(w, r)
	return nil
}

// matchFS maps a URL path to a file of FileSystem.
//
// match examples:
//   - / -> index.xml
//   - /tessera -> tessera.xml
//   - /tessera.xml -> tessera.xml
//   - /soci/ -> soci/index.xml
//   - /img/logo.png -> img/logo.png
//
// Hidden files and directories, and the data files of templates, are never matched.
func (h *Handler) matchFS(urlPath string) (string, error) {
	p := strings.TrimPrefix(urlPath, "/")
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", nil
		}
	}

	var candidates []string
	switch {
	case p == "" || strings.HasSuffix(p, "/"):
		candidates = []string{p + "index" + templateExt}
	case path.Ext(p) == "":
		candidates = []string{p + templateExt, p}
	default:
		if isDataFile(p) {
			return "", nil
		}
		candidates = []string{p}
	}

	for _, c := range candidates {
		fi, err := fs.Stat(h.FileSystem, c)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", c, err)
		}
		if !fi.IsDir() {
			return c, nil
		}
	}
	return "", nil // no match
}

// cleanPath returns the canonical path for p, eliminating . and .. elements.
//
// Copied from net/http/server.go
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	// path.Clean removes trailing slash except for root;
	// put the trailing slash back if necessary.
	if p[len(p)-1] == '/' && np != "/" {
		// Fast path for common case of p being the string we want:
		if len(p) == len(np)+1 && strings.HasPrefix(p, np) {
			np = p
		} else {
			np += "/"
		}
	}
	return np
}
