package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// markSeen is a representative mutating command used across tests.
func markSeen(itemID string) MutateFunc {
	return func(p *Profile) ([]Change, error) {
		item, ok := p.Items[itemID]
		if !ok {
			return nil, errors.New("item not found")
		}
		item.Attributes["item_seen"] = true
		return []Change{{
			ChangeType:     "itemAttrChanged",
			ItemID:         itemID,
			AttributeName:  "item_seen",
			AttributeValue: true,
		}}, nil
	}
}

func TestProfileLazyCreation(t *testing.T) {
	store := newTestStore(newTestClock())

	p, err := store.Profile("acct-1", ProfileAthena)
	require.NoError(t, err)

	assert.EqualValues(t, 0, p.Revision)
	assert.Contains(t, p.Items, "AthenaPickaxe:DefaultPickaxe")

	core, err := store.Profile("acct-1", ProfileCommonCore)
	require.NoError(t, err)
	assert.Contains(t, core.Items, "Currency:MtxPurchased")
}

func TestProfileUnknownType(t *testing.T) {
	store := newTestStore(newTestClock())

	_, err := store.Profile("acct-1", "creative")
	var nfErr *NotFoundError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "profile", nfErr.Kind)
}

func TestMutateIncrementsRevision(t *testing.T) {
	store := newTestStore(newTestClock())

	res, err := store.Mutate("acct-1", ProfileAthena, 0, markSeen("AthenaPickaxe:DefaultPickaxe"))
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.EqualValues(t, 0, res.BaseRevision)
	assert.EqualValues(t, 1, res.Revision)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "itemAttrChanged", res.Changes[0].ChangeType)
}

func TestMutateStaleRevisionRejected(t *testing.T) {
	store := newTestStore(newTestClock())

	res, err := store.Mutate("acct-1", ProfileAthena, 0, markSeen("AthenaPickaxe:DefaultPickaxe"))
	require.NoError(t, err)
	require.True(t, res.Accepted)

	// Replay at the stale revision: rejected with authoritative state.
	replay, err := store.Mutate("acct-1", ProfileAthena, 0, markSeen("AthenaGlider:DefaultGlider"))
	require.NoError(t, err)

	assert.False(t, replay.Accepted)
	assert.EqualValues(t, 1, replay.Revision)
	require.NotNil(t, replay.Profile)
	assert.EqualValues(t, 1, replay.Profile.Revision)

	// The rejected command's effect is not visible.
	p, err := store.Profile("acct-1", ProfileAthena)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Revision)
}

func TestMutateWildcardRevision(t *testing.T) {
	store := newTestStore(newTestClock())

	// rvn -1 skips the check, as sent on first command after login.
	res, err := store.Mutate("acct-1", ProfileAthena, -1, markSeen("AthenaPickaxe:DefaultPickaxe"))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.EqualValues(t, 1, res.Revision)
}

func TestMutateFailedCommandLeavesNoTrace(t *testing.T) {
	store := newTestStore(newTestClock())

	_, err := store.Mutate("acct-1", ProfileAthena, 0, func(p *Profile) ([]Change, error) {
		// Mutate, then fail: nothing may become visible.
		p.Items["AthenaPickaxe:DefaultPickaxe"].Attributes["favorite"] = true
		return nil, errors.New("command failed")
	})
	require.Error(t, err)

	p, err := store.Profile("acct-1", ProfileAthena)
	require.NoError(t, err)
	assert.EqualValues(t, 0, p.Revision)
	assert.Equal(t, false, p.Items["AthenaPickaxe:DefaultPickaxe"].Attributes["favorite"])
}

func TestRevisionEqualsAcceptedCount(t *testing.T) {
	store := newTestStore(newTestClock())

	accepted := 0
	for i := 0; i < 20; i++ {
		// Half the commands carry a deliberately stale revision.
		rvn := int64(accepted)
		if i%2 == 1 {
			rvn = 0
		}
		res, err := store.Mutate("acct-1", ProfileAthena, rvn, markSeen("AthenaPickaxe:DefaultPickaxe"))
		require.NoError(t, err)
		if res.Accepted {
			accepted++
		}
	}

	p, err := store.Profile("acct-1", ProfileAthena)
	require.NoError(t, err)
	assert.EqualValues(t, accepted, p.Revision)
}

func TestDoubleDeliveryExactlyOneAcceptance(t *testing.T) {
	store := newTestStore(newTestClock())

	// The same command delivered twice at the same client revision,
	// concurrently: exactly one acceptance, one rejection.
	results := make([]*MutationResult, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			res, err := store.Mutate("acct-1", ProfileAthena, 0, markSeen("AthenaPickaxe:DefaultPickaxe"))
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	acceptedCount := 0
	for _, res := range results {
		require.NotNil(t, res)
		if res.Accepted {
			acceptedCount++
		}
	}
	assert.Equal(t, 1, acceptedCount)

	p, err := store.Profile("acct-1", ProfileAthena)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Revision)
}

func TestMutateIndependentKeys(t *testing.T) {
	store := newTestStore(newTestClock())

	// Commands against different (account, profile type) pairs do not
	// interfere with each other's revisions.
	res1, err := store.Mutate("acct-1", ProfileAthena, 0, markSeen("AthenaPickaxe:DefaultPickaxe"))
	require.NoError(t, err)
	res2, err := store.Mutate("acct-2", ProfileAthena, 0, markSeen("AthenaPickaxe:DefaultPickaxe"))
	require.NoError(t, err)
	res3, err := store.Mutate("acct-1", ProfileCommonCore, 0, func(p *Profile) ([]Change, error) {
		return []Change{{ChangeType: "statModified", Name: "mtx_affiliate", Value: "creator"}}, nil
	})
	require.NoError(t, err)

	assert.True(t, res1.Accepted)
	assert.True(t, res2.Accepted)
	assert.True(t, res3.Accepted)
}

func TestProfileCopyIsolation(t *testing.T) {
	store := newTestStore(newTestClock())

	p, err := store.Profile("acct-1", ProfileAthena)
	require.NoError(t, err)

	// Mutating a returned copy must not leak into the store.
	p.Items["AthenaPickaxe:DefaultPickaxe"].Attributes["favorite"] = true
	p.Revision = 99

	fresh, err := store.Profile("acct-1", ProfileAthena)
	require.NoError(t, err)
	assert.EqualValues(t, 0, fresh.Revision)
	assert.Equal(t, false, fresh.Items["AthenaPickaxe:DefaultPickaxe"].Attributes["favorite"])
}
