// Package response holds the small JSON envelope helpers every handler in
// internal/http/handlers uses. The teacher's handlers already called into
// an internal/utils/response package with this exact call surface
// (WriteJson, GeneralError, GeneralErrorString, ValidationError); that
// package was missing from the retrieved copy, so it is authored fresh here
// from those call sites rather than invented from scratch.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJson writes v as a JSON body with the given status code.
func WriteJson(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// GeneralError wraps a Go error in the standard error envelope.
func GeneralError(err error) Response {
	return Response{Status: StatusError, Error: err.Error()}
}

// GeneralErrorString wraps a plain message in the standard error envelope.
func GeneralErrorString(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

// ValidationError formats go-playground/validator field errors into one
// readable message per offending field.
func ValidationError(errs validator.ValidationErrors) Response {
	var out string
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		switch e.ActualTag() {
		case "required":
			out += fmt.Sprintf("%s is required", e.Field())
		default:
			out += fmt.Sprintf("%s failed on %q", e.Field(), e.ActualTag())
		}
	}
	return Response{Status: StatusError, Error: out}
}
