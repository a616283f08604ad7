package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rendis/reqbot/pkg/schema"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err's code onto an HTTP status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), Code: schema.ErrorCode(err)}
	var re *schema.ReqbotError
	if errors.As(err, &re) {
		body.Details = re.Details
	}
	if status >= http.StatusInternalServerError {
		s.deps.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch schema.ErrorCode(err) {
	case schema.ErrCodeValidation, schema.ErrCodeTemplate:
		return http.StatusBadRequest
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	case schema.ErrCodeEmptyDiagram, schema.ErrCodeMalformedDiagram:
		return http.StatusUnprocessableEntity
	case schema.ErrCodeGeneration:
		return http.StatusBadGateway
	case schema.ErrCodeStorage:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a bounded JSON body into v. An empty body is allowed
// when allowEmpty is set.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return schema.NewErrorf(schema.ErrCodeValidation, "invalid request body: %v", err).WithCause(err)
	}
	return nil
}
