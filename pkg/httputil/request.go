package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes a plain-text error response on
// failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteText(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// ParseQueryString extracts a string query parameter
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// FormValueRequired extracts a form field and writes a plain-text error when
// it is missing
func FormValueRequired(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val := r.FormValue(key)
	if val == "" {
		WriteText(w, http.StatusBadRequest, fmt.Sprintf("%s is required", key))
		return "", false
	}
	return val, true
}
