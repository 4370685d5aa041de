package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueAndQueryBeforeDeadline(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(clock)

	ticket := store.Enqueue("acct-1", "playlist_defaultsolo", "EU")
	assert.Equal(t, TicketQueued, ticket.State)
	assert.Nil(t, ticket.Session)

	queried, err := store.Ticket(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, TicketQueued, queried.State)
}

func TestTicketAssignedAfterDeadline(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(clock)

	ticket := store.Enqueue("acct-1", "", "")
	clock.Advance(time.Minute)

	assigned, err := store.Ticket(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, TicketAssigned, assigned.State)
	require.NotNil(t, assigned.Session)
	assert.NotEmpty(t, assigned.Session.SessionID)
	assert.NotEmpty(t, assigned.Session.SessionKey)
	assert.Equal(t, "127.0.0.1", assigned.Session.ServerAddress)

	// Repeated queries return the same descriptor.
	again, err := store.Ticket(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, assigned.Session.SessionID, again.Session.SessionID)
	assert.Equal(t, assigned.Session.SessionKey, again.Session.SessionKey)
}

func TestTicketNotFound(t *testing.T) {
	store := newTestStore(newTestClock())

	_, err := store.Ticket("missing")
	var nfErr *NotFoundError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "ticket", nfErr.Kind)
}

func TestFindPlayerLazilyEnqueues(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(clock)

	first := store.FindPlayer("acct-1")
	assert.Equal(t, TicketQueued, first.State)
	assert.Equal(t, DefaultPlaylist, first.PlaylistID)

	// Polling again returns the same live ticket, not a new one.
	second := store.FindPlayer("acct-1")
	assert.Equal(t, first.ID, second.ID)

	// Past the deadline the same poll observes the assignment.
	clock.Advance(time.Minute)
	third := store.FindPlayer("acct-1")
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, TicketAssigned, third.State)
	require.NotNil(t, third.Session)
}

func TestCancelTicket(t *testing.T) {
	store := newTestStore(newTestClock())

	ticket := store.Enqueue("acct-1", "", "")
	cancelled, err := store.CancelTicket(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, TicketExpired, cancelled.State)

	// Terminal: cancelling again leaves it Expired.
	again, err := store.CancelTicket(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, TicketExpired, again.State)

	_, err = store.CancelTicket("missing")
	var nfErr *NotFoundError
	require.True(t, errors.As(err, &nfErr))
}

func TestCancelAssignedTicketStaysAssigned(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(clock)

	ticket := store.Enqueue("acct-1", "", "")
	clock.Advance(time.Minute)

	result, err := store.CancelTicket(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, TicketAssigned, result.State)
}

func TestTicketGarbageCollection(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(clock)

	ticket := store.Enqueue("acct-1", "", "")
	clock.Advance(time.Minute)

	_, err := store.Ticket(ticket.ID)
	require.NoError(t, err)

	// Past the retention window the resolved ticket is collected.
	clock.Advance(11 * time.Minute)
	store.Enqueue("acct-2", "", "") // any store access sweeps

	_, err = store.Ticket(ticket.ID)
	var nfErr *NotFoundError
	require.True(t, errors.As(err, &nfErr))
}

func TestEnqueueSupersedesLiveTicket(t *testing.T) {
	store := newTestStore(newTestClock())

	first := store.Enqueue("acct-1", "", "")
	second := store.Enqueue("acct-1", "playlist_defaultduo", "EU")
	assert.NotEqual(t, first.ID, second.ID)

	live := store.FindPlayer("acct-1")
	assert.Equal(t, second.ID, live.ID)
}
