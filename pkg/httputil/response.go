// Package httputil provides HTTP handler utilities for consistent response
// encoding and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteText writes a plain-text response with the given status code. Error
// bodies stay plain text so callers can surface them to the user verbatim.
func WriteText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}

// WriteTextError writes an error as a plain-text response
func WriteTextError(w http.ResponseWriter, status int, err error) {
	WriteText(w, status, err.Error())
}

// WriteOK writes a bare 200 with a short confirmation body
func WriteOK(w http.ResponseWriter, message string) {
	WriteText(w, http.StatusOK, message)
}
