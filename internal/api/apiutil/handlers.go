// Package apiutil holds helpers shared by the JSON API handlers.
package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// FieldError names the request field that failed validation.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// HandlerError pairs an HTTP status and machine code with the failure it
// reports. Request-shaping helpers return it so handlers can hand any error
// straight to WriteHandlerError.
type HandlerError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
	// Conflict carries the existing booking's range on 409 responses.
	Conflict *ConflictDetail `json:"conflict,omitempty"`
}

// ConflictDetail identifies the booking a rejected request overlapped.
type ConflictDetail struct {
	BookingID int64  `json:"booking_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return HandlerError{Status: http.StatusBadRequest, Code: "invalid_body", Message: "Missing request body"}
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return HandlerError{Status: http.StatusBadRequest, Code: "invalid_body", Message: "Invalid request body", Err: err}
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return HandlerError{Status: http.StatusBadRequest, Code: "invalid_body", Message: "Invalid request body"}
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError writes a minimal error body with an optional machine code.
func WriteError(w http.ResponseWriter, status int, message, code string) {
	_ = WriteJSON(w, status, ErrorBody{Error: message, Code: code})
}

// WriteHandlerError writes the status, code, and field a HandlerError
// carries. Anything else becomes an opaque 500.
func WriteHandlerError(w http.ResponseWriter, err error) {
	var handlerErr HandlerError
	if !errors.As(err, &handlerErr) {
		handlerErr = HandlerError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "Internal Server Error"}
	}

	body := ErrorBody{Error: handlerErr.Error(), Code: handlerErr.Code}
	var fieldErr FieldError
	if errors.As(handlerErr.Err, &fieldErr) {
		body.Field = fieldErr.Field
	}
	_ = WriteJSON(w, handlerErr.Status, body)
}
