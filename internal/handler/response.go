package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes caps request bodies. The largest legitimate body is a
// whitelist batch of account ids.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = fmt.Errorf("Request body must not exceed %d bytes", maxBodyBytes)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // the status line is already out
}

// errorResponse is the standard error response format. Error is a stable
// machine-readable code; Message is for humans.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes a single JSON object from the request body into v.
// Unknown fields, trailing data and bodies over maxBodyBytes are rejected.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	body := io.LimitReader(r.Body, maxBodyBytes+1)
	var counted countingReader
	counted.r = body

	dec := json.NewDecoder(&counted)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if counted.n > maxBodyBytes {
			return errBodyTooLarge
		}
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if counted.n > maxBodyBytes {
			return errBodyTooLarge
		}
		return fmt.Errorf("Request body must contain a single JSON object")
	}

	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
