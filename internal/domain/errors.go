package domain

import "errors"

var (
	// ErrNotActive is returned when a transition requires an active quiz.
	ErrNotActive = errors.New("quiz session not active")
	// ErrInvalidTransition is returned when start or resume is invoked outside the idle phase.
	ErrInvalidTransition = errors.New("invalid quiz session transition")
	// ErrUnanswered blocks a manual submit while any question has no selection.
	ErrUnanswered = errors.New("all questions must be answered before submitting")
	// ErrQuestionOutOfRange indicates a question index outside the question set.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrOptionNotFound indicates a selected option is not one of the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrSnapshotNotFound indicates no resumable snapshot exists for an identifier.
	ErrSnapshotNotFound = errors.New("quiz snapshot not found")
	// ErrInvalidSnapshot indicates a loaded snapshot cannot be resumed.
	ErrInvalidSnapshot = errors.New("quiz snapshot malformed")
	// ErrInvalidQuestion indicates a question violates the data model.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidRequest indicates a malformed generation or persistence request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthenticated indicates no usable bearer credential is available.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSuperseded is returned to a start or resume overtaken by a later request.
	ErrSuperseded = errors.New("request superseded by a newer request")
	// ErrAttemptNotFound indicates a persisted attempt does not exist for the user.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
)

// GenerationError reports a failure creating a quiz; the session stays idle.
type GenerationError struct{ Err error }

func (e *GenerationError) Error() string { return "generate quiz: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// ResumeError reports a missing or corrupt snapshot; the session stays idle.
type ResumeError struct{ Err error }

func (e *ResumeError) Error() string { return "resume quiz: " + e.Err.Error() }
func (e *ResumeError) Unwrap() error { return e.Err }

// CheckpointError reports a failed snapshot save; retried on the next interval.
type CheckpointError struct{ Err error }

func (e *CheckpointError) Error() string { return "checkpoint quiz: " + e.Err.Error() }
func (e *CheckpointError) Unwrap() error { return e.Err }

// FinalizeError reports a failed result save after grading.
type FinalizeError struct{ Err error }

func (e *FinalizeError) Error() string { return "finalize quiz: " + e.Err.Error() }
func (e *FinalizeError) Unwrap() error { return e.Err }
