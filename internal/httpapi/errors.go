package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"inferd/pkg/types"
)

// APIError lets services attach an HTTP status code and an error-type tag
// to an error. Anything else maps to 500 api_error.
type APIError interface {
	error
	StatusCode() int
	Kind() string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAPIError writes the consistent {"error":{...}} payload.
func writeAPIError(w http.ResponseWriter, status int, kind, msg string) {
	if status == http.StatusServiceUnavailable && kind == "server_busy" {
		IncrementAdmissionRejected("busy")
	}
	writeJSON(w, status, types.ErrorResponse{Error: types.ErrorBody{
		Message: msg,
		Type:    kind,
		Code:    status,
	}})
}

// writeError maps err through the APIError interface, defaulting to a
// generic api_error.
func writeError(w http.ResponseWriter, err error) {
	var ae APIError
	if errors.As(err, &ae) {
		writeAPIError(w, ae.StatusCode(), ae.Kind(), ae.Error())
		return
	}
	writeAPIError(w, http.StatusInternalServerError, "api_error", err.Error())
}

func errorStatus(err error) int {
	var ae APIError
	if errors.As(err, &ae) {
		return ae.StatusCode()
	}
	return http.StatusInternalServerError
}
