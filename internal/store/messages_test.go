package store

import (
	"testing"
	"time"

	"github.com/contextchat/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func storedMessage(contextID, sender, content string, at time.Time) models.Message {
	return models.Message{
		ID:        uuid.New().String(),
		ContextID: contextID,
		SenderID:  sender,
		Content:   content,
		Timestamp: at,
	}
}

func TestMessages_NewestFirstOrder(t *testing.T) {
	req := require.New(t)
	messages := NewMessageStore(openTestDB(t))

	at := time.Now().UTC()
	first := storedMessage("ctx-1", "alice", "first", at)
	second := storedMessage("ctx-1", "bob", "second", at.Add(time.Minute))
	third := storedMessage("ctx-1", "alice", "third", at.Add(2*time.Minute))
	for _, msg := range []models.Message{first, second, third} {
		req.NoError(messages.Insert(msg))
	}

	fetched, err := messages.FindByContextNewestFirst("ctx-1", 10)
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal("third", fetched[0].Content)
	req.Equal("second", fetched[1].Content)
	req.Equal("first", fetched[2].Content)
}

func TestMessages_Limit(t *testing.T) {
	req := require.New(t)
	messages := NewMessageStore(openTestDB(t))

	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		msg := storedMessage("ctx-1", "alice", "msg", at.Add(time.Duration(i)*time.Second))
		req.NoError(messages.Insert(msg))
	}

	fetched, err := messages.FindByContextNewestFirst("ctx-1", 2)
	req.NoError(err)
	req.Len(fetched, 2)
}

func TestMessages_ContextIsolation(t *testing.T) {
	req := require.New(t)
	messages := NewMessageStore(openTestDB(t))

	at := time.Now().UTC()
	req.NoError(messages.Insert(storedMessage("ctx-1", "alice", "here", at)))
	req.NoError(messages.Insert(storedMessage("ctx-2", "bob", "elsewhere", at)))

	fetched, err := messages.FindByContextNewestFirst("ctx-1", 10)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("here", fetched[0].Content)

	empty, err := messages.FindByContextNewestFirst("ctx-3", 10)
	req.NoError(err)
	req.Empty(empty)
}
