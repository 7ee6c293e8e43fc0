package middleware

import (
	"encoding/json"
	"net/http"
)

// ProblemContentType is the media type of middleware error bodies.
const ProblemContentType = "application/problem+json"

type problem struct {
	Title    string `json:"title"`
	Status   int    `json:"status"`
	ErrorKey string `json:"errorKey"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
}

// writeProblem writes an error body shaped like the API's handler errors.
func writeProblem(w http.ResponseWriter, status int, errorKey, detail string) {
	w.Header().Set("Content-Type", ProblemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{
		Title:    http.StatusText(status),
		Status:   status,
		ErrorKey: errorKey,
		Message:  "error." + errorKey,
		Detail:   detail,
	})
}
