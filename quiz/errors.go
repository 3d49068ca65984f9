package quiz

import "errors"

// Interaction-level errors. All of them are recovered at the handler
// boundary and surfaced to the user as a short message inviting a restart.
var (
	// ErrNoMatchingQuestions means the active filter yields an empty
	// eligible set; the user can recover by changing the filter.
	ErrNoMatchingQuestions = errors.New("no questions match the filter")

	// ErrNoTaskFound means the corpus itself is degenerate (nothing to ask).
	ErrNoTaskFound = errors.New("no task found")

	// ErrBadCallbackData means a sibling button carried a payload that does
	// not decode; the whole interaction fails rather than guessing.
	ErrBadCallbackData = errors.New("bad callback data in button")

	// ErrMissingReplyContext means the original message or its buttons are
	// unavailable; treated like a stale callback.
	ErrMissingReplyContext = errors.New("original message is not available")
)
