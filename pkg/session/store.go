// Package session is the single source of truth for accounts, bearer
// tokens, revisioned profiles, and matchmaking tickets. Handlers hold
// identifiers only; all cross-request state lives here.
//
// Each table is guarded independently, and profile mutations are
// serialized per (account, profile type) key so unrelated keys never
// contend.
package session

import (
	"crypto/rand"
	"sync"
	"time"
)

// Options configures a Store. Zero fields fall back to defaults.
type Options struct {
	// AccessTTL is the access token lifetime.
	AccessTTL time.Duration
	// RefreshTTL is the refresh token lifetime.
	RefreshTTL time.Duration
	// QueueWait is how long a matchmaking ticket stays Queued before
	// it is assigned a synthetic session.
	QueueWait time.Duration
	// Retention is how long resolved tickets are kept before garbage
	// collection.
	Retention time.Duration
	// ServerAddress and ServerPort populate synthetic session
	// descriptors.
	ServerAddress string
	ServerPort    int
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

func (o *Options) applyDefaults() {
	if o.AccessTTL <= 0 {
		o.AccessTTL = 8 * time.Hour
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = 30 * 24 * time.Hour
	}
	if o.QueueWait <= 0 {
		o.QueueWait = 30 * time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 10 * time.Minute
	}
	if o.ServerAddress == "" {
		o.ServerAddress = "127.0.0.1"
	}
	if o.ServerPort == 0 {
		o.ServerPort = 7777
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// Store owns all emulator state. Safe for concurrent use.
type Store struct {
	opts       Options
	clock      func() time.Time
	signingKey []byte

	accountsMu      sync.RWMutex
	accountsByID    map[string]*Account
	accountIDByName map[string]string

	tokensMu sync.RWMutex
	tokens   map[string]*tokenRecord

	profilesMu sync.RWMutex
	profiles   map[profileKey]*profileEntry

	ticketsMu     sync.RWMutex
	tickets       map[string]*Ticket
	liveByAccount map[string]string
}

// New creates an empty Store.
func New(opts Options) *Store {
	opts.applyDefaults()

	key := make([]byte, 32)
	_, _ = rand.Read(key)

	return &Store{
		opts:            opts,
		clock:           opts.Clock,
		signingKey:      key,
		accountsByID:    make(map[string]*Account),
		accountIDByName: make(map[string]string),
		tokens:          make(map[string]*tokenRecord),
		profiles:        make(map[profileKey]*profileEntry),
		tickets:         make(map[string]*Ticket),
		liveByAccount:   make(map[string]string),
	}
}

// Now reports the store's current time. HTTP handlers use it so
// response timestamps agree with stored state under a test clock.
func (s *Store) Now() time.Time {
	return s.clock()
}
