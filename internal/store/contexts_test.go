package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAndFindContext(t *testing.T) {
	req := require.New(t)
	contexts := NewContextStore(openTestDB(t))

	created, err := contexts.CreateContext("team", "the team room", "alice", false)
	req.NoError(err)
	req.NotEmpty(created.ID)
	req.Equal([]string{"alice"}, created.Members)

	found, err := contexts.FindContextByID(created.ID)
	req.NoError(err)
	req.Equal(created.Name, found.Name)
	req.Equal("alice", found.CreatedBy)
}

func TestFindContextByID_Unknown(t *testing.T) {
	contexts := NewContextStore(openTestDB(t))

	_, err := contexts.FindContextByID("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddMember(t *testing.T) {
	req := require.New(t)
	contexts := NewContextStore(openTestDB(t))

	created, err := contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	req.NoError(contexts.AddMember(created.ID, "bob"))
	// Adding the same member twice is a no-op
	req.NoError(contexts.AddMember(created.ID, "bob"))

	found, err := contexts.FindContextByID(created.ID)
	req.NoError(err)
	req.Equal([]string{"alice", "bob"}, found.Members)
}

func TestAddMember_Concurrent(t *testing.T) {
	req := require.New(t)
	contexts := NewContextStore(openTestDB(t))

	created, err := contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)

	const members = 16
	errs := make(chan error, members)
	var wg sync.WaitGroup
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- contexts.AddMember(created.ID, fmt.Sprintf("user-%02d", i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// Every add survives; none is lost to a concurrent writer
	found, err := contexts.FindContextByID(created.ID)
	req.NoError(err)
	req.Len(found.Members, members+1)
}

func TestRemoveMember(t *testing.T) {
	req := require.New(t)
	contexts := NewContextStore(openTestDB(t))

	created, err := contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)
	req.NoError(contexts.AddMember(created.ID, "bob"))

	req.NoError(contexts.RemoveMember(created.ID, "bob"))

	found, err := contexts.FindContextByID(created.ID)
	req.NoError(err)
	req.Equal([]string{"alice"}, found.Members)
}

func TestFindContextsByMember(t *testing.T) {
	req := require.New(t)
	contexts := NewContextStore(openTestDB(t))

	team, err := contexts.CreateContext("team", "", "alice", false)
	req.NoError(err)
	_, err = contexts.CreateContext("private", "", "carol", true)
	req.NoError(err)
	req.NoError(contexts.AddMember(team.ID, "bob"))

	mine, err := contexts.FindContextsByMember("bob")
	req.NoError(err)
	req.Len(mine, 1)
	req.Equal(team.ID, mine[0].ID)

	none, err := contexts.FindContextsByMember("mallory")
	req.NoError(err)
	req.Empty(none)
}
