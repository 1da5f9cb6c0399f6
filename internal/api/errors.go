package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/lockwise-core/internal/control"
	"github.com/nerrad567/lockwise-core/internal/device"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeDeviceTimeout  = "device_timeout"
	ErrCodePublishFailed  = "publish_failed"
	ErrCodeLockedDown     = "locked_down"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError maps a device, access or control error to a response.
// Unknown errors become 500 and are logged by the caller.
func writeServiceError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, control.ErrForbidden):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "insufficient standing for this device")
	case errors.Is(err, control.ErrTimeout):
		writeError(w, http.StatusRequestTimeout, ErrCodeDeviceTimeout, "device did not acknowledge in time")
	case errors.Is(err, control.ErrPublishFailed):
		writeError(w, http.StatusBadGateway, ErrCodePublishFailed, "could not send command to device")
	case errors.Is(err, control.ErrLockedDown):
		writeError(w, http.StatusConflict, ErrCodeLockedDown, "device is locked down")
	case errors.Is(err, control.ErrInvalidConfig), errors.Is(err, control.ErrInvalidCommand):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		return false
	}
	return true
}
