package session

import "errors"

// Common errors for session operations. Every error surfaced to a client
// maps to a stable code via ErrorCode.
var (
	ErrValidation         = errors.New("invalid input")
	ErrStageMismatch      = errors.New("stage does not match current stage")
	ErrNoOutput           = errors.New("no output exists for stage")
	ErrNotFound           = errors.New("session not found")
	ErrVersionConflict    = errors.New("session version conflict")
	ErrStorageUnavailable = errors.New("session storage unavailable")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrFeedbackFailed     = errors.New("feedback processing failed")
)

// ErrorCode maps err to its stable wire code and whether the condition is
// recoverable by the client. Unknown errors are reported as internal and
// unrecoverable.
func ErrorCode(err error) (code string, recoverable bool) {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error", true
	case errors.Is(err, ErrStageMismatch):
		return "stage_mismatch", true
	case errors.Is(err, ErrNoOutput):
		return "no_output", true
	case errors.Is(err, ErrNotFound):
		return "not_found", false
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict", true
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable", false
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed", true
	case errors.Is(err, ErrFeedbackFailed):
		return "feedback_failed", true
	}
	return "internal_error", false
}
