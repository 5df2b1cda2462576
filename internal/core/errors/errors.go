// Package errors provides centralized error definitions for the lead engine.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Entity lookup errors.
var (
	// ErrProjectNotFound indicates the project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrLeadNotFound indicates the lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")
)

// Validation errors. Rejected synchronously, no state change.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoKeywords indicates a project has no campaign keywords to search with.
	ErrNoKeywords = errors.New("project has no campaign keywords")

	// ErrInvalidStatus indicates an unknown lead status value.
	ErrInvalidStatus = errors.New("invalid lead status")
)

// Discovery lifecycle errors.
var (
	// ErrAlreadyRunning indicates a discovery run is already in progress for the project.
	ErrAlreadyRunning = errors.New("discovery already running")

	// ErrNotRunning indicates a run-scoped operation was attempted outside a run.
	ErrNotRunning = errors.New("discovery not running")

	// ErrIngestionFailed wraps failures of the ingestion collaborator.
	ErrIngestionFailed = errors.New("ingestion failed")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
