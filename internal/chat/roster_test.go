package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoster_AddMember(t *testing.T) {
	req := require.New(t)
	oracle, contexts := newTestOracle(t)
	roster := NewRoster(oracle, contexts)

	context, err := contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	// Non-members may not add anyone
	req.ErrorIs(roster.AddMember(context.ID, "mallory", "bob"), ErrNotAuthorized)

	// Any member may add
	req.NoError(roster.AddMember(context.ID, "alice", "bob"))
	req.NoError(roster.AddMember(context.ID, "bob", "carol"))

	found, err := contexts.FindContextByID(context.ID)
	req.NoError(err)
	req.Equal([]string{"alice", "bob", "carol"}, found.Members)
}

func TestRoster_RemoveMember(t *testing.T) {
	req := require.New(t)
	oracle, contexts := newTestOracle(t)
	roster := NewRoster(oracle, contexts)

	context, err := contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)
	req.NoError(contexts.AddMember(context.ID, "bob"))
	req.NoError(contexts.AddMember(context.ID, "carol"))

	// A plain member may not remove someone else
	req.ErrorIs(roster.RemoveMember(context.ID, "bob", "carol"), ErrNotAuthorized)

	// Self-leave is always allowed
	req.NoError(roster.RemoveMember(context.ID, "carol", "carol"))

	// The creator may remove anyone
	req.NoError(roster.RemoveMember(context.ID, "alice", "bob"))

	found, err := contexts.FindContextByID(context.ID)
	req.NoError(err)
	req.Equal([]string{"alice"}, found.Members)
}
