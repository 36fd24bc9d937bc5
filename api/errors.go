package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/confidential-counter/log"
)

// Error is an API error: the wrapped error, its stable numeric code and the
// HTTP status it is answered with.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// errorBody is the JSON document written for an Error, e.g.
// {"error":"contract not found: 0x..","code":40007}
type errorBody struct {
	Err  string `json:"error"`
	Code int    `json:"code"`
}

// MarshalJSON encodes the error message and code. HTTPstatus travels as the
// response status instead.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorBody{Err: e.Err.Error(), Code: e.Code})
}

func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap allows errors.Is against the base error of the table.
func (e Error) Unwrap() error {
	return e.Err
}

// Write sends the error as the JSON response.
func (e Error) Write(w http.ResponseWriter) {
	body, err := json.Marshal(e)
	if err != nil {
		log.Warnw("cannot encode api error", "error", err.Error())
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	log.Debugw("api error response", "error", e.Error(), "code", e.Code, "status", e.HTTPstatus)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Warnw("failed to write api error", "error", err.Error())
	}
}

// wrap returns a copy of e whose message is extended with detail.
func (e Error) wrap(detail string) Error {
	e.Err = fmt.Errorf("%w: %s", e.Err, detail)
	return e
}

// With appends s to the error message.
func (e Error) With(s string) Error {
	return e.wrap(s)
}

// Withf appends a formatted detail to the error message.
func (e Error) Withf(format string, args ...any) Error {
	return e.wrap(fmt.Sprintf(format, args...))
}

// WithErr appends the message of err.
func (e Error) WithErr(err error) Error {
	return e.wrap(err.Error())
}
