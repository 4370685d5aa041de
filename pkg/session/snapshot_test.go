package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	clock := newTestClock()
	store := newTestStore(clock)

	_, acct, err := store.IssueToken("alice")
	require.NoError(t, err)

	res, err := store.Mutate(acct.ID, ProfileAthena, 0, markSeen("AthenaPickaxe:DefaultPickaxe"))
	require.NoError(t, err)
	require.True(t, res.Accepted)

	ticket := store.Enqueue(acct.ID, "playlist_defaultsolo", "EU")

	require.NoError(t, store.Save(path))

	restored := newTestStore(clock)
	require.NoError(t, restored.Load(path))

	// Accounts survive, including the name index.
	found, err := restored.Account(acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.DisplayName)
	assert.Equal(t, acct.ID, restored.FindOrCreateAccount("alice").ID)

	// Profiles keep their revision.
	p, err := restored.Profile(acct.ID, ProfileAthena)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Revision)

	// Queued tickets stay live.
	live, err := restored.Ticket(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, TicketQueued, live.State)

}

func TestSnapshotExcludesTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	clock := newTestClock()
	store := newTestStore(clock)

	pair, _, err := store.IssueToken("alice")
	require.NoError(t, err)
	require.NoError(t, store.Save(path))

	restored := newTestStore(clock)
	require.NoError(t, restored.Load(path))

	_, err = restored.VerifyToken(pair.AccessToken)
	assert.Error(t, err, "tokens are not persisted; clients re-authenticate")
}

func TestLoadMissingSnapshot(t *testing.T) {
	store := newTestStore(newTestClock())
	err := store.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
