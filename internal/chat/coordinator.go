package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/contextchat/backend/internal/models"
	"github.com/contextchat/backend/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Server-to-client wire events emitted through the broadcast port.
const (
	EventReceiveMessage = "receive_message"
	EventUserJoined     = "user_joined"
	EventTyping         = "typing"
	EventError          = "error_message"
)

const (
	// HistoryDefaultLimit is used when the client requests no limit.
	HistoryDefaultLimit = 50

	// HistoryMaxLimit caps history reads regardless of the requested value.
	HistoryMaxLimit = 200
)

// RoomKey returns the canonical room key for a context. Context IDs may
// arrive in different representations, so rooms are always addressed by
// this normalized string form.
func RoomKey(contextID string) string {
	return "context_" + contextID
}

// BroadcastPort is the coordinator's handle back into the live channel.
// The room registry implements it; injecting it here keeps the reach-back
// an explicit message-passing boundary instead of a global lookup.
type BroadcastPort interface {
	Broadcast(roomKey, event string, payload interface{})
}

// Coordinator is the single write path for messages. Both the live
// channel and the HTTP endpoint go through Accept, so both transports
// observe identical validation, authorization and ordering rules.
type Coordinator struct {
	oracle   *MembershipOracle
	messages *store.MessageStore
	port     BroadcastPort
	validate *validator.Validate

	// mu serializes timestamp assignment, append and broadcast so that
	// messages fan out in acceptance order and never before they are
	// durably stored.
	mu           sync.Mutex
	lastAccepted time.Time
}

// NewCoordinator creates a new Coordinator instance.
func NewCoordinator(oracle *MembershipOracle, messages *store.MessageStore, port BroadcastPort) *Coordinator {
	return &Coordinator{
		oracle:   oracle,
		messages: messages,
		port:     port,
		validate: validator.New(),
	}
}

// Accept validates and authorizes a send, durably appends the message
// with a server-assigned timestamp, then broadcasts receive_message to
// the context's room. Storage failures are surfaced to the sender and
// never retried here; the client must resend.
func (c *Coordinator) Accept(contextID, senderID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	req := models.SendMessageRequest{ContextID: contextID, Content: content}
	if err := c.validate.Struct(req); err != nil {
		return nil, ErrInvalidContent
	}

	ok, err := c.oracle.IsMember(contextID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if now.Before(c.lastAccepted) {
		now = c.lastAccepted
	}
	c.lastAccepted = now

	msg := models.Message{
		ID:        uuid.New().String(),
		ContextID: contextID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: now,
	}

	if err := c.messages.Insert(msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	c.port.Broadcast(RoomKey(contextID), EventReceiveMessage, msg)
	return &msg, nil
}

// History returns up to limit messages for a context in chronological
// order, oldest first. The read is gated by the same membership check as
// sends; internally messages are fetched most-recent-first and reversed.
func (c *Coordinator) History(contextID, principalID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = HistoryDefaultLimit
	}
	if limit > HistoryMaxLimit {
		limit = HistoryMaxLimit
	}

	ok, err := c.oracle.IsMember(contextID, principalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	messages, err := c.messages.FindByContextNewestFirst(contextID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return lo.Reverse(messages), nil
}
