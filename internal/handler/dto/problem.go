// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "github.com/cheroliv/blogger/internal/model"

// Problem types.
const (
	ProblemWithMessage  = "/problem/problem-with-message"
	ConstraintViolation = "/problem/constraint-violation"
)

// Problem is the error body of every failed API call.
type Problem struct {
	Type        string             `json:"type"`
	Title       string             `json:"title"`
	Status      int                `json:"status"`
	EntityName  string             `json:"entityName,omitempty"`
	ErrorKey    string             `json:"errorKey"`
	Message     string             `json:"message"`
	Params      string             `json:"params,omitempty"`
	FieldErrors []model.FieldError `json:"fieldErrors,omitempty"`
}

// InfoResponse describes the running application.
type InfoResponse struct {
	App         string   `json:"app"`
	Version     string   `json:"version"`
	Collections []string `json:"collections"`
}
