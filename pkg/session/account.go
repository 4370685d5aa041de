package session

import (
	"strings"
	"time"

	"github.com/lanlobby/lanlobby/internal/id"
)

// Account is a client-visible player identity. Accounts are created on
// first token request for a username and never deleted within a
// process lifetime.
type Account struct {
	// ID is the stable, client-visible account identifier.
	ID string `json:"id"`
	// DisplayName is the name shown in the client.
	DisplayName string `json:"displayName"`
	// Email is a placeholder; emulation accepts any credential.
	Email     string    `json:"email"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"createdAt"`
}

// FindOrCreateAccount returns the account for username, creating it on
// first use. Lookup is case-insensitive on the display name.
func (s *Store) FindOrCreateAccount(username string) *Account {
	if username == "" {
		username = "Player"
	}
	key := strings.ToLower(username)

	s.accountsMu.RLock()
	if accountID, ok := s.accountIDByName[key]; ok {
		acct := s.accountsByID[accountID]
		s.accountsMu.RUnlock()
		return acct.clone()
	}
	s.accountsMu.RUnlock()

	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	// Lost the race to another creator.
	if accountID, ok := s.accountIDByName[key]; ok {
		return s.accountsByID[accountID].clone()
	}

	acct := &Account{
		ID:          id.Hex(16),
		DisplayName: username,
		Email:       key + "@lanlobby.local",
		Country:     "US",
		CreatedAt:   s.clock(),
	}
	s.accountsByID[acct.ID] = acct
	s.accountIDByName[key] = acct.ID
	return acct.clone()
}

// Account returns the account with the given identifier.
func (s *Store) Account(accountID string) (*Account, error) {
	s.accountsMu.RLock()
	defer s.accountsMu.RUnlock()

	acct, ok := s.accountsByID[accountID]
	if !ok {
		return nil, &NotFoundError{Kind: "account", ID: accountID}
	}
	return acct.clone(), nil
}

// Accounts returns the accounts for the given identifiers, skipping
// unknown ones.
func (s *Store) Accounts(accountIDs []string) []*Account {
	s.accountsMu.RLock()
	defer s.accountsMu.RUnlock()

	out := make([]*Account, 0, len(accountIDs))
	for _, accountID := range accountIDs {
		if acct, ok := s.accountsByID[accountID]; ok {
			out = append(out, acct.clone())
		}
	}
	return out
}

func (a *Account) clone() *Account {
	c := *a
	return &c
}
