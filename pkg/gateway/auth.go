package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/lanlobby/lanlobby/internal/id"
	"github.com/lanlobby/lanlobby/pkg/session"
)

// vendorTime is the timestamp layout the client parses.
const vendorTime = "2006-01-02T15:04:05.000Z"

func formatVendorTime(t time.Time) string {
	return t.UTC().Format(vendorTime)
}

// handleOAuthToken implements the token grant endpoint. The client
// posts form-encoded grants; password and refresh_token grants bind an
// account, client_credentials mints a short-lived service token that
// carries no account and is only echoed back by the client.
func (g *Gateway) handleOAuthToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeVendorError(w, http.StatusBadRequest, codeInvalidOAuthReq, numInvalidOAuthReq,
			"account", "Malformed token grant request body")
		return
	}

	clientID := r.PostFormValue("client_id")
	if clientID == "" {
		clientID = "lanlobbyclient"
	}

	switch grant := r.PostFormValue("grant_type"); grant {
	case "client_credentials":
		now := g.store.Now()
		expires := now.Add(4 * time.Hour)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  id.Hex(32),
			"token_type":    "bearer",
			"client_id":     clientID,
			"client_service": "fortnite",
			"expires_in":    int(expires.Sub(now).Seconds()),
			"expires_at":    formatVendorTime(expires),
			"internal_client": true,
		})

	case "password":
		username := strings.TrimSpace(r.PostFormValue("username"))
		if username == "" {
			writeVendorError(w, http.StatusBadRequest, codeInvalidOAuthReq, numInvalidOAuthReq,
				"account", "username is required for the password grant", "username")
			return
		}
		pair, account, err := g.store.IssueToken(username)
		if err != nil {
			writeVendorError(w, http.StatusInternalServerError, codeServerError, numServerError,
				"account", "Token issuance failed")
			return
		}
		writeJSON(w, http.StatusOK, tokenGrantBody(pair, account, clientID, g.store.Now()))

	case "refresh_token":
		refresh := r.PostFormValue("refresh_token")
		if refresh == "" {
			writeVendorError(w, http.StatusBadRequest, codeInvalidOAuthReq, numInvalidOAuthReq,
				"account", "refresh_token is required for the refresh grant", "refresh_token")
			return
		}
		pair, account, err := g.store.RefreshToken(refresh)
		if err != nil {
			writeVendorError(w, http.StatusUnauthorized, codeInvalidToken, numInvalidToken,
				"account", "Sorry the refresh token you provided is invalid or has expired")
			return
		}
		writeJSON(w, http.StatusOK, tokenGrantBody(pair, account, clientID, g.store.Now()))

	default:
		writeVendorError(w, http.StatusBadRequest, codeUnauthorizedClient, numUnauthorizedClient,
			"account", "Unsupported grant type: "+grant, grant)
	}
}

func tokenGrantBody(pair *session.TokenPair, account *session.Account, clientID string, now time.Time) map[string]any {
	return map[string]any{
		"access_token":       pair.AccessToken,
		"token_type":         "bearer",
		"expires_in":         int(pair.AccessExpiresAt.Sub(now).Seconds()),
		"expires_at":         formatVendorTime(pair.AccessExpiresAt),
		"refresh_token":      pair.RefreshToken,
		"refresh_expires":    int(pair.RefreshExpiresAt.Sub(now).Seconds()),
		"refresh_expires_at": formatVendorTime(pair.RefreshExpiresAt),
		"account_id":         account.ID,
		"client_id":          clientID,
		"internal_client":    true,
		"client_service":     "fortnite",
		"displayName":        account.DisplayName,
		"app":                "fortnite",
		"in_app_id":          account.ID,
	}
}

// handleOAuthVerify validates the bearer token presented in the
// Authorization header and describes the session it belongs to.
func (g *Gateway) handleOAuthVerify(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeVendorError(w, http.StatusUnauthorized, codeAuthFailed, numAuthFailed,
			"account", "Authorization failed for request", r.URL.Path)
		return
	}
	account, err := g.store.VerifyToken(token)
	if err != nil {
		writeVendorError(w, http.StatusUnauthorized, codeInvalidToken, numInvalidToken,
			"account", "Sorry the token you provided is invalid or has expired")
		return
	}

	now := g.store.Now()
	expires, _ := g.store.TokenExpiry(token)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":           token,
		"session_id":      token,
		"token_type":      "bearer",
		"client_id":       "lanlobbyclient",
		"internal_client": true,
		"client_service":  "fortnite",
		"account_id":      account.ID,
		"expires_in":      int(expires.Sub(now).Seconds()),
		"expires_at":      formatVendorTime(expires),
		"auth_method":     "password",
		"display_name":    account.DisplayName,
		"app":             "fortnite",
		"in_app_id":       account.ID,
	})
}

// handleKillSessions revokes the caller's own token. Revocation is
// idempotent: killing an unknown token still answers 204.
func (g *Gateway) handleKillSessions(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		g.store.RevokeToken(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleKillSession revokes the token named in the path, which is how
// the client logs out a session other than the one making the call.
func (g *Gateway) handleKillSession(w http.ResponseWriter, r *http.Request) {
	g.store.RevokeToken(mux.Vars(r)["token"])
	w.WriteHeader(http.StatusNoContent)
}

func accountSummary(account *session.Account) map[string]any {
	return map[string]any{
		"id":                         account.ID,
		"displayName":                account.DisplayName,
		"name":                       account.DisplayName,
		"email":                      account.Email,
		"failedLoginAttempts":        0,
		"numberOfDisplayNameChanges": 0,
		"ageGroup":                   "UNKNOWN",
		"headless":                   false,
		"country":                    account.Country,
		"preferredLanguage":          "en",
		"canUpdateDisplayName":       false,
		"tfaEnabled":                 false,
		"emailVerified":              true,
		"minorVerified":              false,
		"minorStatus":                "UNKNOWN",
		"cabinedMode":                false,
		"hasHashedEmail":             false,
	}
}

func (g *Gateway) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, err := g.store.Account(mux.Vars(r)["accountId"])
	if err != nil {
		writeVendorError(w, http.StatusNotFound, codeAccountNotFound, numAccountNotFound,
			"account", "Sorry, we couldn't find an account for the id you supplied", mux.Vars(r)["accountId"])
		return
	}
	writeJSON(w, http.StatusOK, accountSummary(account))
}

// handleAccountBulk resolves ?accountId=...&accountId=... lookups.
// Unknown ids are skipped rather than failing the whole request.
func (g *Gateway) handleAccountBulk(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["accountId"]
	out := make([]map[string]any, 0, len(ids))
	for _, account := range g.store.Accounts(ids) {
		out = append(out, map[string]any{
			"id":          account.ID,
			"displayName": account.DisplayName,
			"externalAuths": map[string]any{},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) handleExternalAuths(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []any{})
}

func (g *Gateway) handleSSODomains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []string{"unrealengine.com", "unrealtournament.com", "fortnite.com", "epicgames.com"})
}
