package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lanlobby/lanlobby/internal/id"
)

// tokenIssuer mirrors the vendor's account service issuer so token
// payloads look like the ones the client was built against.
const tokenIssuer = "https://account-public-service-prod03.ol.epicgames.com"

type tokenKind string

const (
	kindAccess  tokenKind = "access"
	kindRefresh tokenKind = "refresh"
)

type tokenRecord struct {
	AccountID string
	Kind      tokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// TokenPair is the result of issuing tokens for an account.
type TokenPair struct {
	AccountID        string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// IssueToken finds-or-creates the account for username and mints a
// fresh access+refresh token pair. Emulation has no credential
// rejection: issuance always succeeds.
func (s *Store) IssueToken(username string) (*TokenPair, *Account, error) {
	acct := s.FindOrCreateAccount(username)
	pair, err := s.issuePair(acct.ID)
	if err != nil {
		return nil, nil, err
	}
	return pair, acct, nil
}

// RefreshToken exchanges a refresh token for a new pair, retiring the
// old refresh token. Fails with AuthError when the refresh token is
// unknown, revoked, or expired.
func (s *Store) RefreshToken(refreshToken string) (*TokenPair, *Account, error) {
	now := s.clock()

	s.tokensMu.Lock()
	rec, ok := s.tokens[refreshToken]
	switch {
	case !ok, rec.Kind != kindRefresh, rec.Revoked:
		s.tokensMu.Unlock()
		return nil, nil, &AuthError{Reason: AuthUnknown}
	case now.After(rec.ExpiresAt):
		s.tokensMu.Unlock()
		return nil, nil, &AuthError{Reason: AuthExpired}
	}
	rec.Revoked = true
	accountID := rec.AccountID
	s.tokensMu.Unlock()

	pair, err := s.issuePair(accountID)
	if err != nil {
		return nil, nil, err
	}
	acct, err := s.Account(accountID)
	if err != nil {
		return nil, nil, err
	}
	return pair, acct, nil
}

// VerifyToken maps a bearer token back to its account. Fails with
// AuthError{AuthExpired} past expiry and AuthError{AuthUnknown} for
// tokens never issued or already revoked.
func (s *Store) VerifyToken(token string) (*Account, error) {
	now := s.clock()

	s.tokensMu.RLock()
	rec, ok := s.tokens[token]
	s.tokensMu.RUnlock()

	if !ok || rec.Revoked || rec.Kind != kindAccess {
		return nil, &AuthError{Reason: AuthUnknown}
	}
	if now.After(rec.ExpiresAt) {
		return nil, &AuthError{Reason: AuthExpired}
	}
	return s.Account(rec.AccountID)
}

// TokenExpiry reports the expiry of an issued token. Used by the
// verify endpoint to echo remaining lifetime.
func (s *Store) TokenExpiry(token string) (time.Time, bool) {
	s.tokensMu.RLock()
	defer s.tokensMu.RUnlock()
	rec, ok := s.tokens[token]
	if !ok {
		return time.Time{}, false
	}
	return rec.ExpiresAt, true
}

// RevokeToken marks a token unusable. Idempotent; revoking an unknown
// token is a no-op.
func (s *Store) RevokeToken(token string) {
	s.tokensMu.Lock()
	defer s.tokensMu.Unlock()
	if rec, ok := s.tokens[token]; ok {
		rec.Revoked = true
	}
}

func (s *Store) issuePair(accountID string) (*TokenPair, error) {
	now := s.clock()
	accessExp := now.Add(s.opts.AccessTTL)
	refreshExp := now.Add(s.opts.RefreshTTL)

	access, err := s.mintAccessToken(accountID, now, accessExp)
	if err != nil {
		return nil, err
	}
	refresh := id.Hex(32)

	s.tokensMu.Lock()
	s.tokens[access] = &tokenRecord{
		AccountID: accountID,
		Kind:      kindAccess,
		IssuedAt:  now,
		ExpiresAt: accessExp,
	}
	s.tokens[refresh] = &tokenRecord{
		AccountID: accountID,
		Kind:      kindRefresh,
		IssuedAt:  now,
		ExpiresAt: refreshExp,
	}
	s.tokensMu.Unlock()

	return &TokenPair{
		AccountID:        accountID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// mintAccessToken produces a JWT-shaped access token. The token table
// remains the source of truth for expiry and revocation; the signed
// payload only exists so the client sees the shape it expects.
func (s *Store) mintAccessToken(accountID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": accountID,
		"iss": tokenIssuer,
		"aud": "fortnite",
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
		"jti": id.Hex(16),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}
