package models

import "time"

// Message is a chat message exchanged inside a context.
// The timestamp is assigned server-side when the message is accepted,
// never taken from the client, so concurrent senders are ordered by
// arrival at the server rather than by client clocks.
type Message struct {
	// ID is the unique identifier for this message
	ID string `json:"id"`

	// ContextID is the context this message belongs to
	ContextID string `json:"contextId"`

	// SenderID is the authenticated sender's user ID
	SenderID string `json:"senderId"`

	// Content is the message body (at most 5000 characters)
	Content string `json:"content"`

	// Timestamp is when the server accepted the message
	Timestamp time.Time `json:"timestamp"`

	// IsRead tracks whether the message has been read
	IsRead bool `json:"isRead"`

	// EditedAt is set once the message has been edited
	EditedAt *time.Time `json:"editedAt,omitempty"`
}

// SendMessageRequest is the request body for sending a message.
// The same shape is used by the HTTP endpoint and the live-channel
// send_message event, so both paths share identical validation rules.
type SendMessageRequest struct {
	ContextID string `json:"contextId" validate:"required"`
	Content   string `json:"content" validate:"required,max=5000"`
}
