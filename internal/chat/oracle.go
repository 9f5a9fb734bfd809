package chat

import (
	"errors"

	"github.com/contextchat/backend/internal/store"
	"github.com/samber/lo"
)

// MembershipOracle answers membership and ownership questions for a
// context. Every privileged action re-checks against the store, since
// membership can change between a session's connect time and a later
// send; answers are never cached.
type MembershipOracle struct {
	contexts *store.ContextStore
}

// NewMembershipOracle creates a new MembershipOracle instance.
func NewMembershipOracle(contexts *store.ContextStore) *MembershipOracle {
	return &MembershipOracle{contexts: contexts}
}

// IsMember reports whether the principal is a member of the context.
// Returns ErrContextNotFound for unknown contexts.
func (o *MembershipOracle) IsMember(contextID, principalID string) (bool, error) {
	context, err := o.contexts.FindContextByID(contextID)
	if errors.Is(err, store.ErrNotFound) {
		return false, ErrContextNotFound
	}
	if err != nil {
		return false, err
	}
	return lo.Contains(context.Members, principalID), nil
}

// IsOwner reports whether the principal created the context.
func (o *MembershipOracle) IsOwner(contextID, principalID string) (bool, error) {
	context, err := o.contexts.FindContextByID(contextID)
	if errors.Is(err, store.ErrNotFound) {
		return false, ErrContextNotFound
	}
	if err != nil {
		return false, err
	}
	return context.CreatedBy == principalID, nil
}
