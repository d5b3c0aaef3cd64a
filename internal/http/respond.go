package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Luis-avalos1/TaskFlow/internal/domain"
)

// envelope is the shape of every API response body.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

const msgInternal = "Internal server error"

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeData sends a successful envelope.
func writeData(w http.ResponseWriter, status int, data any, msg string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: msg})
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Message: msg})
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindAuthorization, domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail renders err. Typed errors keep their message; anything else is a 500
// whose cause is hidden in production.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Kind != domain.KindServer {
		writeJSON(w, statusFor(derr.Kind), envelope{Message: derr.Message, Errors: derr.Fields})
		return
	}
	r.logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
	msg := msgInternal
	if !r.production {
		msg = err.Error()
	}
	writeError(w, http.StatusInternalServerError, msg)
}

// decode reads a JSON body into dst and reports a 400 on failure.
func (r *Router) decode(w http.ResponseWriter, req *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
