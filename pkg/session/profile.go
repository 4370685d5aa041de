package session

import (
	"fmt"
	"sync"
	"time"
)

// Known profile types. Other types are rejected as NotFound rather
// than lazily created, matching the vendor's profile_not_found error.
const (
	ProfileAthena       = "athena"
	ProfileCommonCore   = "common_core"
	ProfileCommonPublic = "common_public"
)

// Item is a single inventory entry within a profile.
type Item struct {
	TemplateID string         `json:"templateId"`
	Attributes map[string]any `json:"attributes"`
	Quantity   int            `json:"quantity"`
}

// Profile holds one (account, profile type) item namespace with a
// monotonically increasing revision. The revision strictly increases
// on every accepted mutating command.
type Profile struct {
	AccountID string           `json:"accountId"`
	Type      string           `json:"profileId"`
	Revision  int64            `json:"revision"`
	Items     map[string]*Item `json:"items"`
	Stats     map[string]any   `json:"stats"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Change describes one incremental profile modification, in the shape
// the client's profile sync expects.
type Change struct {
	ChangeType     string   `json:"changeType"`
	ItemID         string   `json:"itemId,omitempty"`
	Item           *Item    `json:"item,omitempty"`
	Name           string   `json:"name,omitempty"`
	Value          any      `json:"value,omitempty"`
	AttributeName  string   `json:"attributeName,omitempty"`
	AttributeValue any      `json:"attributeValue,omitempty"`
	Profile        *Profile `json:"profile,omitempty"`
}

// MutateFunc applies a command's effect to a profile and returns the
// delta of changed items. It runs under the profile's key lock and
// must not retain p after returning.
type MutateFunc func(p *Profile) ([]Change, error)

// MutationResult is the outcome of a profile command.
type MutationResult struct {
	// Accepted is false when the client's expected revision was stale.
	Accepted bool
	// BaseRevision is the revision the command was applied against.
	BaseRevision int64
	// Revision is the authoritative revision after the command.
	Revision int64
	// Changes is the delta of changed items for an accepted command.
	Changes []Change
	// Profile carries the full authoritative state on rejection, so
	// the client can resynchronize instead of retrying blindly.
	Profile *Profile
}

type profileKey struct {
	accountID string
	ptype     string
}

// profileEntry serializes commands against one (account, profile type)
// pair. Commands against different pairs proceed independently.
type profileEntry struct {
	mu sync.Mutex
	p  *Profile
}

// Profile returns a copy of the profile for (accountID, ptype),
// lazily creating it at revision 0 with the default item set.
func (s *Store) Profile(accountID, ptype string) (*Profile, error) {
	entry, err := s.profileEntry(accountID, ptype)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.p.clone(), nil
}

// Mutate runs one profile command atomically against the (accountID,
// ptype) key. The revision check and increment happen under the key
// lock: a command whose expectedRvn does not equal the stored revision
// is rejected with the authoritative state, and an accepted command
// increments the revision by exactly 1.
//
// An expectedRvn of -1 skips the check, matching clients that send
// rvn=-1 on their first command after login.
func (s *Store) Mutate(accountID, ptype string, expectedRvn int64, fn MutateFunc) (*MutationResult, error) {
	entry, err := s.profileEntry(accountID, ptype)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	p := entry.p
	if expectedRvn != -1 && expectedRvn != p.Revision {
		return &MutationResult{
			Accepted:     false,
			BaseRevision: p.Revision,
			Revision:     p.Revision,
			Profile:      p.clone(),
		}, nil
	}

	// Apply against a scratch copy so a failing command leaves no
	// partial item mutation visible.
	scratch := p.clone()
	scratch.UpdatedAt = s.clock()
	changes, err := fn(scratch)
	if err != nil {
		return nil, fmt.Errorf("profile command on %s/%s: %w", accountID, ptype, err)
	}

	base := p.Revision
	scratch.Revision = base + 1
	entry.p = scratch

	return &MutationResult{
		Accepted:     true,
		BaseRevision: base,
		Revision:     scratch.Revision,
		Changes:      changes,
	}, nil
}

func (s *Store) profileEntry(accountID, ptype string) (*profileEntry, error) {
	key := profileKey{accountID: accountID, ptype: ptype}

	s.profilesMu.RLock()
	entry, ok := s.profiles[key]
	s.profilesMu.RUnlock()
	if ok {
		return entry, nil
	}

	defaults := defaultProfile(accountID, ptype, s.clock())
	if defaults == nil {
		return nil, &NotFoundError{Kind: "profile", ID: ptype}
	}

	s.profilesMu.Lock()
	defer s.profilesMu.Unlock()
	if entry, ok := s.profiles[key]; ok {
		return entry, nil
	}
	entry = &profileEntry{p: defaults}
	s.profiles[key] = entry
	return entry, nil
}

func (p *Profile) clone() *Profile {
	c := *p
	c.Items = make(map[string]*Item, len(p.Items))
	for itemID, item := range p.Items {
		c.Items[itemID] = item.clone()
	}
	c.Stats = copyAnyMap(p.Stats)
	return &c
}

func (i *Item) clone() *Item {
	c := *i
	c.Attributes = copyAnyMap(i.Attributes)
	return &c
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyAnyValue(v)
	}
	return out
}

func copyAnyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyAnyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyAnyValue(e)
		}
		return out
	default:
		return v
	}
}
