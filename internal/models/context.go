package models

import "time"

// Principal is the authenticated identity attached to a session or a
// request. It is derived once from a verified credential and never
// persisted by this service; the account store owns the full record.
type Principal struct {
	// ID is the user's unique identifier
	ID string `json:"id"`

	// Username is the user's display name
	Username string `json:"username"`

	// Email is the user's account email
	Email string `json:"email"`
}

// Context is a named group whose members may exchange messages.
// The realtime subsystem only uses the ID as a routing key; the rest of
// the fields belong to the context store.
type Context struct {
	// ID is the unique identifier for the context
	ID string `json:"id"`

	// Name is the display name of the context
	Name string `json:"name"`

	// Description is an optional free-form description
	Description string `json:"description"`

	// CreatedBy is the user ID of the context creator
	CreatedBy string `json:"createdBy"`

	// Members holds the user IDs allowed to read and send messages
	Members []string `json:"members"`

	// IsPrivate hides the context from discovery when set
	IsPrivate bool `json:"isPrivate"`

	// CreatedAt is when the context was created
	CreatedAt time.Time `json:"createdAt"`
}
