package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lanlobby/lanlobby/pkg/session"
)

type contextKey string

const accountContextKey contextKey = "account"

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (g *Gateway) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		g.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"host", r.Host,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func (g *Gateway) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header. The
// client sends "bearer" lowercase; match case-insensitively.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireAuth verifies the bearer token and stores the owning account
// in the request context. A missing header is an authorization
// failure; a bad or expired token is an invalid-token error, which
// tells the client to re-run the token grant.
func (g *Gateway) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeVendorError(w, http.StatusUnauthorized, codeAuthFailed, numAuthFailed,
				"fortnite", "Authorization failed for request", r.URL.Path)
			return
		}
		account, err := g.store.VerifyToken(token)
		if err != nil {
			writeVendorError(w, http.StatusUnauthorized, codeInvalidToken, numInvalidToken,
				"account", "Sorry the token you provided is invalid or has expired")
			return
		}
		ctx := context.WithValue(r.Context(), accountContextKey, account)
		next(w, r.WithContext(ctx))
	}
}

// requestAccount returns the account requireAuth stored in the context.
func requestAccount(r *http.Request) *session.Account {
	account, _ := r.Context().Value(accountContextKey).(*session.Account)
	return account
}
