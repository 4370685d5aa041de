package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock is a manually advanced clock for deterministic expiry.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(clock *testClock) *Store {
	return New(Options{
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		QueueWait:  30 * time.Second,
		Retention:  10 * time.Minute,
		Clock:      clock.Now,
	})
}

func TestIssueAndVerifyToken(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(clock)

	pair, acct, err := store.IssueToken("alice")
	require.NoError(t, err)
	require.NotNil(t, pair)

	assert.Equal(t, "alice", acct.DisplayName)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	verified, err := store.VerifyToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, verified.ID)
}

func TestIssueTokenReusesAccount(t *testing.T) {
	store := newTestStore(newTestClock())

	_, first, err := store.IssueToken("alice")
	require.NoError(t, err)
	_, second, err := store.IssueToken("Alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "username lookup is case-insensitive")
}

func TestVerifyTokenUnknown(t *testing.T) {
	store := newTestStore(newTestClock())

	_, err := store.VerifyToken("never-issued")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthUnknown, authErr.Reason)
}

func TestVerifyTokenExpired(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(clock)

	pair, _, err := store.IssueToken("alice")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, err = store.VerifyToken(pair.AccessToken)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthExpired, authErr.Reason)
}

func TestRevokeToken(t *testing.T) {
	store := newTestStore(newTestClock())

	pair, _, err := store.IssueToken("alice")
	require.NoError(t, err)

	store.RevokeToken(pair.AccessToken)
	// Idempotent
	store.RevokeToken(pair.AccessToken)
	store.RevokeToken("never-issued")

	_, err = store.VerifyToken(pair.AccessToken)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthUnknown, authErr.Reason)
}

func TestRefreshTokenRotation(t *testing.T) {
	store := newTestStore(newTestClock())

	pair, acct, err := store.IssueToken("alice")
	require.NoError(t, err)

	next, refreshedAcct, err := store.RefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, refreshedAcct.ID)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)

	// Old refresh token is retired after rotation.
	_, _, err = store.RefreshToken(pair.RefreshToken)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthUnknown, authErr.Reason)

	// New access token verifies.
	verified, err := store.VerifyToken(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, verified.ID)
}

func TestRefreshTokenExpired(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(clock)

	pair, _, err := store.IssueToken("alice")
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)

	_, _, err = store.RefreshToken(pair.RefreshToken)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthExpired, authErr.Reason)
}

func TestRefreshTokenIsNotAccessToken(t *testing.T) {
	store := newTestStore(newTestClock())

	pair, _, err := store.IssueToken("alice")
	require.NoError(t, err)

	// A refresh token must not pass access verification.
	_, err = store.VerifyToken(pair.RefreshToken)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthUnknown, authErr.Reason)
}

func TestAccountLookup(t *testing.T) {
	store := newTestStore(newTestClock())

	_, acct, err := store.IssueToken("alice")
	require.NoError(t, err)

	found, err := store.Account(acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", found.DisplayName)

	_, err = store.Account("missing")
	var nfErr *NotFoundError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "account", nfErr.Kind)

	bulk := store.Accounts([]string{acct.ID, "missing"})
	require.Len(t, bulk, 1)
	assert.Equal(t, acct.ID, bulk[0].ID)
}
