package session

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// snapshot is the on-disk shape of persisted store state. Tokens are
// deliberately excluded: they are short-lived and clients
// re-authenticate on startup.
type snapshot struct {
	Version  int        `json:"version"`
	Accounts []*Account `json:"accounts"`
	Profiles []*Profile `json:"profiles"`
	Tickets  []*Ticket  `json:"tickets"`
}

const snapshotVersion = 1

// Save writes the store's accounts, profiles, and tickets to a JSON
// file. Persistence is a convenience: a failed save loses no in-process
// correctness.
func (s *Store) Save(path string) error {
	snap := snapshot{Version: snapshotVersion}

	s.accountsMu.RLock()
	for _, acct := range s.accountsByID {
		snap.Accounts = append(snap.Accounts, acct.clone())
	}
	s.accountsMu.RUnlock()

	s.profilesMu.RLock()
	entries := make([]*profileEntry, 0, len(s.profiles))
	for _, entry := range s.profiles {
		entries = append(entries, entry)
	}
	s.profilesMu.RUnlock()
	for _, entry := range entries {
		entry.mu.Lock()
		snap.Profiles = append(snap.Profiles, entry.p.clone())
		entry.mu.Unlock()
	}

	s.ticketsMu.RLock()
	for _, t := range s.tickets {
		snap.Tickets = append(snap.Tickets, t.clone())
	}
	s.ticketsMu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load replaces the store's accounts, profiles, and tickets with a
// previously saved snapshot.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	s.accountsMu.Lock()
	s.accountsByID = make(map[string]*Account, len(snap.Accounts))
	s.accountIDByName = make(map[string]string, len(snap.Accounts))
	for _, acct := range snap.Accounts {
		s.accountsByID[acct.ID] = acct
		s.accountIDByName[strings.ToLower(acct.DisplayName)] = acct.ID
	}
	s.accountsMu.Unlock()

	s.profilesMu.Lock()
	s.profiles = make(map[profileKey]*profileEntry, len(snap.Profiles))
	for _, p := range snap.Profiles {
		key := profileKey{accountID: p.AccountID, ptype: p.Type}
		s.profiles[key] = &profileEntry{p: p}
	}
	s.profilesMu.Unlock()

	s.ticketsMu.Lock()
	s.tickets = make(map[string]*Ticket, len(snap.Tickets))
	s.liveByAccount = make(map[string]string)
	for _, t := range snap.Tickets {
		s.tickets[t.ID] = t
		if t.State == TicketQueued {
			s.liveByAccount[t.AccountID] = t.ID
		}
	}
	s.ticketsMu.Unlock()

	return nil
}
