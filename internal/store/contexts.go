package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/contextchat/backend/internal/models"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const contextKeyPrefix = "context:"

// ContextStore persists context records in BadgerDB.
// It is the account/context collaborator the membership checks read from.
type ContextStore struct {
	db *badger.DB
}

// NewContextStore creates a new ContextStore instance.
func NewContextStore(db *badger.DB) *ContextStore {
	return &ContextStore{db: db}
}

// CreateContext inserts a new context. The creator is always the first member.
func (s *ContextStore) CreateContext(name, description, createdBy string, isPrivate bool) (*models.Context, error) {
	context := &models.Context{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		Members:     []string{createdBy},
		IsPrivate:   isPrivate,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.put(context); err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	return context, nil
}

// FindContextByID retrieves a context by its ID.
// Returns ErrNotFound when no such context exists.
func (s *ContextStore) FindContextByID(id string) (*models.Context, error) {
	var context models.Context
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(contextKeyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &context)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load context %s: %w", id, err)
	}
	return &context, nil
}

// FindContextsByMember returns every context the given user is a member of.
func (s *ContextStore) FindContextsByMember(memberID string) ([]models.Context, error) {
	var contexts []models.Context
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		prefix := []byte(contextKeyPrefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var context models.Context
				if err := json.Unmarshal(val, &context); err != nil {
					return err
				}
				if lo.Contains(context.Members, memberID) {
					contexts = append(contexts, context)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan contexts: %w", err)
	}
	return contexts, nil
}

// AddMember adds a user to a context's member list. Adding an existing
// member is a no-op.
func (s *ContextStore) AddMember(contextID, memberID string) error {
	return s.updateContext(contextID, func(context *models.Context) {
		if !lo.Contains(context.Members, memberID) {
			context.Members = append(context.Members, memberID)
		}
	})
}

// RemoveMember removes a user from a context's member list.
func (s *ContextStore) RemoveMember(contextID, memberID string) error {
	return s.updateContext(contextID, func(context *models.Context) {
		context.Members = lo.Filter(context.Members, func(id string, _ int) bool {
			return id != memberID
		})
	})
}

// updateContext applies mutate inside a single read-modify-write
// transaction, retrying on write conflicts so concurrent membership
// changes never lose an update.
func (s *ContextStore) updateContext(id string, mutate func(*models.Context)) error {
	key := []byte(contextKeyPrefix + id)
	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if err != nil {
				return err
			}
			var context models.Context
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &context)
			})
			if err != nil {
				return err
			}
			mutate(&context)
			data, err := json.Marshal(context)
			if err != nil {
				return err
			}
			return txn.Set(key, data)
		})
		switch {
		case errors.Is(err, badger.ErrConflict):
			continue
		case errors.Is(err, badger.ErrKeyNotFound):
			return ErrNotFound
		case err != nil:
			return fmt.Errorf("failed to update context %s: %w", id, err)
		default:
			return nil
		}
	}
}

func (s *ContextStore) put(context *models.Context) error {
	data, err := json.Marshal(context)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(contextKeyPrefix+context.ID), data)
	})
}
