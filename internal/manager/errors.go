package manager

import "net/http"

// busyError signals admission denial for 503 server_busy mapping.
type busyError struct{}

func (busyError) Error() string   { return "server is busy with another request" }
func (busyError) StatusCode() int { return http.StatusServiceUnavailable }
func (busyError) Kind() string    { return "server_busy" }

// IsBusy reports whether err indicates admission denial.
func IsBusy(err error) bool {
	_, ok := err.(busyError)
	return ok
}

// notInitializedError signals that no inference runtime is attached yet.
type notInitializedError struct{}

func (notInitializedError) Error() string   { return "model runtime is not initialized" }
func (notInitializedError) StatusCode() int { return http.StatusServiceUnavailable }
func (notInitializedError) Kind() string    { return "model_not_initialized" }

// IsNotInitialized reports whether err indicates a missing runtime.
func IsNotInitialized(err error) bool {
	_, ok := err.(notInitializedError)
	return ok
}

// modelMismatchError is raised when the request names a model other than
// the configured one. Mapped to 404 with type invalid_request.
type modelMismatchError struct{ requested string }

func (e modelMismatchError) Error() string   { return "model not found: " + e.requested }
func (e modelMismatchError) StatusCode() int { return http.StatusNotFound }
func (e modelMismatchError) Kind() string    { return "invalid_request" }

// IsModelMismatch reports whether err indicates an unknown model name.
func IsModelMismatch(err error) bool {
	_, ok := err.(modelMismatchError)
	return ok
}

// invalidRequestError covers request-shape validation faults raised before
// decoding starts.
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string   { return e.msg }
func (e invalidRequestError) StatusCode() int { return http.StatusBadRequest }
func (e invalidRequestError) Kind() string    { return "invalid_request" }

// IsInvalidRequest reports whether err is a request-shape caller error.
func IsInvalidRequest(err error) bool {
	_, ok := err.(invalidRequestError)
	return ok
}
