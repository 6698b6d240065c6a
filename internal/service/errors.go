package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service either wraps one of these
// or is an unexpected infrastructure failure.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("authentication failed")
	ErrForbidden  = errors.New("forbidden")
)

var (
	ErrClientNotFound        = fmt.Errorf("%w: client not found", ErrNotFound)
	ErrIdentityNotFound      = fmt.Errorf("%w: identity not found", ErrNotFound)
	ErrExerciseNotFound      = fmt.Errorf("%w: exercise not found", ErrNotFound)
	ErrWorkoutNotFound       = fmt.Errorf("%w: workout not found", ErrNotFound)
	ErrRoutineNotFound       = fmt.Errorf("%w: routine not found", ErrNotFound)
	ErrAssignmentNotFound    = fmt.Errorf("%w: routine assignment not found", ErrNotFound)
	ErrGoalNotFound          = fmt.Errorf("%w: goal not found", ErrNotFound)
	ErrSnapshotNotFound      = fmt.Errorf("%w: progress snapshot not found", ErrNotFound)
	ErrCompletionNotFound    = fmt.Errorf("%w: workout completion not found", ErrNotFound)
	ErrNoLinkedIdentity      = fmt.Errorf("%w: no identity is linked to this client", ErrNotFound)
	ErrMediaNotFound         = fmt.Errorf("%w: exercise has no such media", ErrNotFound)
	ErrClientExists          = fmt.Errorf("%w: client with this email or phone already exists", ErrConflict)
	ErrIdentityExists        = fmt.Errorf("%w: identity with this username or email already exists", ErrConflict)
	ErrIdentityAlreadyLinked = fmt.Errorf("%w: identity is already linked to another client", ErrConflict)
	ErrRoutineInUse          = fmt.Errorf("%w: routine has assignments", ErrConflict)
	ErrInvalidCredentials    = fmt.Errorf("%w: invalid username or password", ErrAuth)
	ErrNoClientProfile       = fmt.Errorf("%w: identity has no client profile", ErrAuth)
	ErrCurrentValueRequired  = fmt.Errorf("%w: currentValue is required", ErrValidation)
	ErrInvalidRating         = fmt.Errorf("%w: rating must be a positive integer", ErrValidation)

	errUsernameTaken = fmt.Errorf("%w: username taken concurrently", ErrConflict)
)

// validationError wraps a message as ErrValidation.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
