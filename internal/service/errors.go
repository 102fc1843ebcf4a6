package service

import "fmt"

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ConflictError represents a conflict error (e.g., duplicate)
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict with %s: %s", e.Resource, e.Message)
}

// UnavailableError is returned when an optional collaborator is not configured
// or cannot be reached
type UnavailableError struct {
	Service string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s is unavailable", e.Service)
	}
	return fmt.Sprintf("%s is unavailable: %v", e.Service, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
