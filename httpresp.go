package docpages

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dpotapov/go-docpages/doctpl"
)

// errorResponse is the JSON body of a failed render.
type errorResponse struct {
	Error  string         `json:"error,omitempty"`
	Issues []doctpl.Issue `json:"issues,omitempty"`
}

// decodeRequest reads a JSON render request.
func decodeRequest(r io.Reader) (doctpl.Request, error) {
	var req doctpl.Request
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return doctpl.Request{}, fmt.Errorf("decode render request: %w", err)
	}
	if req.Markup == "" {
		return doctpl.Request{}, errors.New("decode render request: template is empty")
	}
	return req, nil
}

// failedRender maps the errors a caller can fix in the template to a response body and
// status code: parse issues and excessive nesting. ok is false for any other error.
func failedRender(err error) (resp errorResponse, status int, ok bool) {
	var pe *doctpl.ParseError
	switch {
	case err == nil:
		return errorResponse{}, 0, false
	case errors.As(err, &pe):
		return errorResponse{Error: "template has issues", Issues: pe.Issues}, http.StatusUnprocessableEntity, true
	case errors.Is(err, doctpl.ErrDepthExceeded):
		return errorResponse{Error: err.Error()}, http.StatusUnprocessableEntity, true
	}
	return errorResponse{}, 0, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
