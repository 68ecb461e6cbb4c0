package utils

import (
	"encoding/json"
	"net/http"
)

type Payload struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// JSONResponse sends a JSON response with given status, success flag, and payload
func JSONResponse(w http.ResponseWriter, status int, payload Payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// JSONError sends the error envelope: {"error": <message>, "details": [...]}.
// Details carry field-level validation messages and may be empty.
func JSONError(w http.ResponseWriter, status int, message string, details ...string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorPayload{Success: false, Error: message, Details: details})
}
