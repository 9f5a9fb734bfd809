package chat

import "errors"

// Failure taxonomy for the delivery path. Validation and authorization
// failures are resolved here and never reach the room registry: a
// rejected send is never broadcast.
var (
	// ErrNotAuthorized means the principal is not a member of the context.
	ErrNotAuthorized = errors.New("not a member of this context")

	// ErrContextNotFound means the context does not exist.
	ErrContextNotFound = errors.New("context not found")

	// ErrInvalidContent means the content is empty after trimming or
	// exceeds the maximum length.
	ErrInvalidContent = errors.New("message content must be non-empty and at most 5000 characters")
)
