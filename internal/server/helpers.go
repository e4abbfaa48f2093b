package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// StatusForError maps a ledger error kind to an HTTP status.
func StatusForError(err error) int {
	switch models.ErrorKindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict, models.KindWarning:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err as a typed error response. Integrity and
// foreign errors are logged and their text is not exposed.
func writeServiceError(w http.ResponseWriter, logger *common.Logger, err error) {
	status := StatusForError(err)

	var le *models.Error
	if !errors.As(err, &le) || le.Kind == models.KindIntegrity {
		logger.Error().Err(err).Msg("Request failed")
		resp := ErrorResponse{Error: "Internal server error"}
		if le != nil {
			resp.Code = le.Code
			resp.Kind = string(le.Kind)
		}
		WriteJSON(w, status, resp)
		return
	}

	WriteJSON(w, status, ErrorResponse{
		Error: le.Message,
		Code:  le.Code,
		Field: le.Field,
		Kind:  string(le.Kind),
	})
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// parseDate parses an optional YYYY-MM-DD value named field.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := models.ParseDate(strings.TrimSpace(*raw))
	if err != nil {
		return nil, models.ErrInvalidField.WithField(field).
			WithMessage("invalid date %q; expected YYYY-MM-DD", *raw)
	}
	return &d, nil
}

// queryDate reads a YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	return parseDate(name, &raw)
}

// queryBool reads an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, models.ErrInvalidField.WithField(name).
			WithMessage("invalid boolean %q", raw)
	}
	return &b, nil
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.ErrInvalidField.WithField(name).
			WithMessage("invalid number %q", raw)
	}
	return n, nil
}

// splitList splits a comma separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
