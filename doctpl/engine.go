package doctpl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultMaxDepth is the nesting limit used when Engine.MaxDepth is not set.
const DefaultMaxDepth = 64

// Request is the input of a render call.
type Request struct {
	// Markup is the template source.
	Markup string `json:"template"`

	// Dialect of the markup. Auto detects it.
	Dialect Dialect `json:"dialect"`

	// Data is the render context: scalars, sequences and string-keyed mappings. Structs are
	// accepted as mappings.
	Data map[string]any `json:"data"`

	// Includes maps the paths of $Include directives to the fragments they stand for.
	Includes map[string]string `json:"includes"`
}

// Engine renders templates. The zero value is ready to use. An Engine is safe for concurrent
// use once configured; its fields must not change after the first call.
type Engine struct {
	// Logger receives debug records about degraded renders: unresolved includes, invalid
	// offset expressions, dropped elements and loop sources that are not sequences.
	Logger *slog.Logger

	// MaxDepth limits the nesting of elements and loops. Deeper templates fail with
	// ErrDepthExceeded. DefaultMaxDepth is used if it is zero.
	MaxDepth int

	// Cache memoizes parsed templates. Nil parses on every call.
	Cache *TreeCache

	// Labels replaces the built-in table mapping legacy field labels ("codice fiscale") to
	// field names ("tax_code").
	Labels map[string]string

	// Now returns the current time for the current_date and current_year fields. Defaults to
	// time.Now.
	Now func() time.Time

	// init is used to initialize the engine only once.
	init sync.Once

	logger *slog.Logger
	labels labelTable
}

func (e *Engine) initOnce() {
	e.init.Do(func() {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		if e.Logger != nil {
			e.logger = e.Logger
		}
		labels := e.Labels
		if labels == nil {
			labels = legacyLabels
		}
		e.labels = newLabelTable(labels)
		if e.MaxDepth <= 0 {
			e.MaxDepth = DefaultMaxDepth
		}
		if e.Now == nil {
			e.Now = time.Now
		}
	})
}

// Parse parses markup, using the cache when one is configured.
func (e *Engine) Parse(markup string, d Dialect) (*Template, error) {
	e.initOnce()
	return e.Cache.Parse(markup, d)
}

// Render parses and renders the request. A malformed template yields a *ParseError and no
// result; an error while rendering yields a *RenderError.
func (e *Engine) Render(req Request) (*Result, error) {
	t, err := e.Parse(req.Markup, req.Dialect)
	if err != nil {
		return nil, err
	}
	return e.Execute(t, req.Data, req.Includes)
}

// Execute renders a parsed template.
func (e *Engine) Execute(t *Template, data map[string]any, includes map[string]string) (*Result, error) {
	e.initOnce()
	body, err := e.renderer(t, includes).renderBody(e.rootScope(data))
	if err != nil {
		return nil, err
	}
	return newResult(t, body), nil
}

// RenderPages renders the template once per record and joins the renderings with page breaks.
// Each record is laid over req.Data, so shared values only need to be given once.
func (e *Engine) RenderPages(req Request, records []map[string]any) (*Result, error) {
	t, err := e.Parse(req.Markup, req.Dialect)
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, len(records))
	var errs []error
	for i, rec := range records {
		data := make(map[string]any, len(req.Data)+len(rec))
		for k, v := range req.Data {
			data[k] = v
		}
		for k, v := range rec {
			data[k] = v
		}
		body, err := e.renderer(t, req.Includes).renderBody(e.rootScope(data))
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		pages = append(pages, body)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return newResult(t, strings.Join(pages, pageBreak)), nil
}

// Check parses markup and returns the issues found, or nil for a valid template.
func (e *Engine) Check(markup string, d Dialect) []Issue {
	_, err := e.Parse(markup, d)
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Issues
	}
	if err != nil {
		return []Issue{{Message: err.Error()}}
	}
	return nil
}

func (e *Engine) renderer(t *Template, includes map[string]string) *renderer {
	return &renderer{
		t:        t,
		st:       newStrategy(t.Dialect, e.labels),
		includes: includes,
		logger:   e.logger.With("dialect", t.Dialect.String()),
		maxDepth: e.MaxDepth,
	}
}

// rootScope layers the caller's data over the fields every document can use.
func (e *Engine) rootScope(data map[string]any) *Scope {
	now := e.Now()
	return NewScope(map[string]any{
		"current_date": now.Format(dateLayout),
		"current_year": strconv.Itoa(now.Year()),
	}).Spawn(data)
}

var defaultEngine = &Engine{Cache: &TreeCache{}}

// Render renders markup with the default engine, detecting the dialect.
func Render(markup string, data map[string]any, includes map[string]string) (*Result, error) {
	return defaultEngine.Render(Request{Markup: markup, Data: data, Includes: includes})
}
