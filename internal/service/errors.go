// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
)

// Service errors.
var (
	ErrIdentityConflict  = errors.New("a new entity cannot already have an id")
	ErrMissingIdentity   = errors.New("invalid id")
	ErrIdentityMismatch  = errors.New("path id does not match body id")
	ErrNotFound          = errors.New("entity not found")
	ErrReferenceNotFound = errors.New("referenced entity not found")
	ErrInUse             = errors.New("entity is still referenced")
	ErrInvalidSort       = errors.New("invalid sort property")
)

// Machine-readable reason codes carried by EntityError.
const (
	ReasonIDExists       = "idexists"
	ReasonIDNull         = "idnull"
	ReasonIDInvalid      = "idinvalid"
	ReasonIDNotFound     = "idnotfound"
	ReasonPersonNotFound = "personnotfound"
	ReasonInUse          = "inuse"
	ReasonSortNotAllowed = "sort"
)

// EntityError is a client-input failure tied to one entity type.
type EntityError struct {
	Entity string
	Reason string
	Err    error
}

func newEntityError(entity, reason string, err error) *EntityError {
	return &EntityError{Entity: entity, Reason: reason, Err: err}
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Entity, e.Err.Error(), e.Reason)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}
