package chat

import "github.com/contextchat/backend/internal/store"

// Roster applies the authorization rules for changing a context's
// member list: only members may add others, and a member may be removed
// only by themselves or by the context's creator.
type Roster struct {
	oracle   *MembershipOracle
	contexts *store.ContextStore
}

// NewRoster creates a new Roster instance.
func NewRoster(oracle *MembershipOracle, contexts *store.ContextStore) *Roster {
	return &Roster{oracle: oracle, contexts: contexts}
}

// AddMember adds memberID to the context on behalf of actorID.
func (r *Roster) AddMember(contextID, actorID, memberID string) error {
	ok, err := r.oracle.IsMember(contextID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return r.contexts.AddMember(contextID, memberID)
}

// RemoveMember removes memberID from the context on behalf of actorID.
// Self-leave is always allowed.
func (r *Roster) RemoveMember(contextID, actorID, memberID string) error {
	if actorID != memberID {
		owner, err := r.oracle.IsOwner(contextID, actorID)
		if err != nil {
			return err
		}
		if !owner {
			return ErrNotAuthorized
		}
	}
	return r.contexts.RemoveMember(contextID, memberID)
}
