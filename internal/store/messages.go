package store

import (
	"encoding/json"
	"fmt"

	"github.com/contextchat/backend/internal/models"
	"github.com/dgraph-io/badger/v4"
)

// MessageStore persists the append-only message log in BadgerDB.
type MessageStore struct {
	db *badger.DB
}

// NewMessageStore creates a new MessageStore instance.
func NewMessageStore(db *badger.DB) *MessageStore {
	return &MessageStore{db: db}
}

// messageKey builds "msg:{contextId}:{timestamp_padded}:{id}".
// The 19-digit zero-padded nanosecond timestamp makes lexicographic key
// order match chronological order; the message ID disambiguates two
// messages accepted on the same nanosecond.
func messageKey(msg models.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", msg.ContextID, msg.Timestamp.UnixNano(), msg.ID))
}

// Insert appends a message to the context's log.
func (s *MessageStore) Insert(msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg), data)
	})
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// FindByContextNewestFirst returns up to limit messages for a context,
// most recent first, via a reverse prefix scan over the time-ordered keys.
func (s *MessageStore) FindByContextNewestFirst(contextID string, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", contextID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible timestamp so the reverse
		// iterator lands on the most recent message for the prefix.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var msg models.Message
				if err := json.Unmarshal(val, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for context %s: %w", contextID, err)
	}
	return messages, nil
}
