// Package error defines the structured error envelope returned by the API.
package error

import (
	"encoding/json"
	"net/http"
)

// Error is the JSON error body returned on any failed request. Fields
// carries a field->message map for validation failures.
type Error struct {
	Code    ErrorCode         `json:"code"`
	Status  int               `json:"status"`
	Message string            `json:"message"`
	ErrorID string            `json:"error_id"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// EncodeError writes the error envelope for the given code.
func EncodeError(w http.ResponseWriter, code ErrorCode, message, requestID string) error {
	return encode(w, &Error{
		Code:    code,
		Status:  code.StatusCode(),
		Message: message,
		ErrorID: requestID,
	})
}

// EncodeValidationError writes a validation_failed envelope carrying the
// field->message map.
func EncodeValidationError(w http.ResponseWriter, fields map[string]string, requestID string) error {
	return encode(w, &Error{
		Code:    ValidationFailed,
		Status:  ValidationFailed.StatusCode(),
		Message: "validation failed",
		ErrorID: requestID,
		Fields:  fields,
	})
}

func EncodeInternalError(w http.ResponseWriter, requestID string) error {
	return EncodeError(w, InternalServerError, "Internal Server Error", requestID)
}

func encode(w http.ResponseWriter, e *Error) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	return json.NewEncoder(w).Encode(e)
}
