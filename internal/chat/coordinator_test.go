package chat

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/contextchat/backend/internal/models"
	"github.com/contextchat/backend/internal/store"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	roomKey string
	event   string
	payload interface{}
}

// fakePort records broadcasts instead of fanning them out.
type fakePort struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePort) Broadcast(roomKey, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{roomKey: roomKey, event: event, payload: payload})
}

func (p *fakePort) recorded() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent{}, p.events...)
}

type coordinatorFixture struct {
	coordinator *Coordinator
	contexts    *store.ContextStore
	messages    *store.MessageStore
	port        *fakePort
}

func newCoordinatorFixture(t *testing.T) coordinatorFixture {
	t.Helper()
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	contexts := store.NewContextStore(db)
	messages := store.NewMessageStore(db)
	port := &fakePort{}
	coordinator := NewCoordinator(NewMembershipOracle(contexts), messages, port)

	return coordinatorFixture{coordinator: coordinator, contexts: contexts, messages: messages, port: port}
}

func TestAccept_NonMember(t *testing.T) {
	req := require.New(t)
	fix := newCoordinatorFixture(t)

	context, err := fix.contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	_, err = fix.coordinator.Accept(context.ID, "mallory", "hi")
	req.ErrorIs(err, ErrNotAuthorized)

	stored, err := fix.messages.FindByContextNewestFirst(context.ID, 10)
	req.NoError(err)
	req.Empty(stored)
	req.Empty(fix.port.recorded())
}

func TestAccept_UnknownContext(t *testing.T) {
	req := require.New(t)
	fix := newCoordinatorFixture(t)

	_, err := fix.coordinator.Accept("nope", "alice", "hi")
	req.ErrorIs(err, ErrContextNotFound)
	req.Empty(fix.port.recorded())
}

func TestAccept_InvalidContent(t *testing.T) {
	req := require.New(t)
	fix := newCoordinatorFixture(t)

	context, err := fix.contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	cases := map[string]string{
		"empty":           "",
		"whitespace only": "   \n\t ",
		"over length":     strings.Repeat("a", 5001),
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fix.coordinator.Accept(context.ID, "alice", content)
			require.ErrorIs(t, err, ErrInvalidContent)
		})
	}

	stored, err := fix.messages.FindByContextNewestFirst(context.ID, 10)
	req.NoError(err)
	req.Empty(stored)
	req.Empty(fix.port.recorded())
}

func TestAccept_StoresThenBroadcasts(t *testing.T) {
	req := require.New(t)
	fix := newCoordinatorFixture(t)

	context, err := fix.contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	msg, err := fix.coordinator.Accept(context.ID, "alice", "  hello  ")
	req.NoError(err)
	req.NotEmpty(msg.ID)
	req.Equal("hello", msg.Content)
	req.Equal("alice", msg.SenderID)
	req.False(msg.Timestamp.IsZero())

	stored, err := fix.messages.FindByContextNewestFirst(context.ID, 10)
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal(msg.ID, stored[0].ID)

	events := fix.port.recorded()
	req.Len(events, 1)
	req.Equal(RoomKey(context.ID), events[0].roomKey)
	req.Equal(EventReceiveMessage, events[0].event)
	req.Equal(*msg, events[0].payload)
}

func TestAccept_TimestampsMonotonic(t *testing.T) {
	req := require.New(t)
	fix := newCoordinatorFixture(t)

	context, err := fix.contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	var last *models.Message
	for i := 0; i < 10; i++ {
		msg, err := fix.coordinator.Accept(context.ID, "alice", "tick")
		req.NoError(err)
		if last != nil {
			req.False(msg.Timestamp.Before(last.Timestamp))
		}
		last = msg
	}
}

func TestHistory_MostRecentAscending(t *testing.T) {
	req := require.New(t)
	fix := newCoordinatorFixture(t)

	context, err := fix.contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	sent := []string{"one", "two", "three", "four", "five", "six"}
	for _, content := range sent {
		_, err := fix.coordinator.Accept(context.ID, "alice", content)
		req.NoError(err)
	}

	history, err := fix.coordinator.History(context.ID, "alice", 4)
	req.NoError(err)
	req.Len(history, 4)
	// The 4 most recent, oldest first
	req.Equal("three", history[0].Content)
	req.Equal("six", history[3].Content)

	all, err := fix.coordinator.History(context.ID, "alice", 0)
	req.NoError(err)
	req.Len(all, len(sent))
	req.Equal("one", all[0].Content)
	req.Equal("six", all[5].Content)
}

func TestHistory_NonMember(t *testing.T) {
	req := require.New(t)
	fix := newCoordinatorFixture(t)

	context, err := fix.contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	_, err = fix.coordinator.History(context.ID, "mallory", 10)
	req.ErrorIs(err, ErrNotAuthorized)
}

func TestHistory_LimitClamped(t *testing.T) {
	req := require.New(t)
	fix := newCoordinatorFixture(t)

	context, err := fix.contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	total := HistoryMaxLimit + 5
	for i := 0; i < total; i++ {
		_, err := fix.coordinator.Accept(context.ID, "alice", fmt.Sprintf("m%03d", i))
		req.NoError(err)
	}

	// An absurd requested limit is clamped to the cap, not rejected, and
	// the cap keeps the most recent messages
	history, err := fix.coordinator.History(context.ID, "alice", 100000)
	req.NoError(err)
	req.Len(history, HistoryMaxLimit)
	req.Equal(fmt.Sprintf("m%03d", total-HistoryMaxLimit), history[0].Content)
	req.Equal(fmt.Sprintf("m%03d", total-1), history[len(history)-1].Content)
}

func TestRoomKey(t *testing.T) {
	require.Equal(t, "context_abc", RoomKey("abc"))
}
