// Package gateway terminates redirected game-client TLS traffic and
// serves the emulated backend API surface: OAuth token issuance,
// account lookups, profile commands, matchmaking tickets, and the
// static content catalog.
package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/lanlobby/lanlobby/pkg/certs"
	"github.com/lanlobby/lanlobby/pkg/config"
	"github.com/lanlobby/lanlobby/pkg/logging"
	"github.com/lanlobby/lanlobby/pkg/session"
)

// defaultBuildVersion is reported to clients that ask which build the
// backend targets. It matches the last Season 7 client build.
const defaultBuildVersion = "7.40"

// Gateway is the HTTPS front end. It owns the listeners; all state
// lives in the session store, all certificates in the cache.
type Gateway struct {
	cfg   *config.Config
	store *session.Store
	certs *certs.Cache
	log   *slog.Logger
	build string

	mu          sync.Mutex
	running     bool
	httpsServer *http.Server
	httpServer  *http.Server
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for request and lifecycle logging.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gateway) { g.log = log }
}

// WithBuildVersion overrides the client build version the content
// endpoints report.
func WithBuildVersion(v string) Option {
	return func(g *Gateway) { g.build = v }
}

// New creates a Gateway. It does not open any listeners; call Start.
func New(cfg *config.Config, store *session.Store, cache *certs.Cache, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:   cfg,
		store: store,
		certs: cache,
		log:   logging.Nop(),
		build: defaultBuildVersion,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler builds the full route table. Exposed so tests can drive the
// gateway without opening sockets.
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(g.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(g.handleNotFound)

	// Account service.
	r.HandleFunc("/account/api/oauth/token", g.handleOAuthToken).Methods(http.MethodPost)
	r.HandleFunc("/account/api/oauth/verify", g.handleOAuthVerify).Methods(http.MethodGet)
	r.HandleFunc("/account/api/oauth/sessions/kill", g.handleKillSessions).Methods(http.MethodDelete)
	r.HandleFunc("/account/api/oauth/sessions/kill/{token}", g.handleKillSession).Methods(http.MethodDelete)
	r.HandleFunc("/account/api/public/account", g.handleAccountBulk).Methods(http.MethodGet)
	r.HandleFunc("/account/api/public/account/{accountId}", g.requireAuth(g.handleAccount)).Methods(http.MethodGet)
	r.HandleFunc("/account/api/public/account/{accountId}/externalAuths", g.handleExternalAuths).Methods(http.MethodGet)
	r.HandleFunc("/account/api/epicdomains/ssodomains", g.handleSSODomains).Methods(http.MethodGet)

	// Game service: profiles and matchmaking.
	r.HandleFunc("/fortnite/api/game/v2/profile/{accountId}/client/{command}", g.requireAuth(g.handleProfileCommand)).Methods(http.MethodPost)
	r.HandleFunc("/fortnite/api/game/v2/matchmakingservice/ticket/player/{accountId}", g.requireAuth(g.handleTicketCreate)).Methods(http.MethodPost)
	r.HandleFunc("/fortnite/api/game/v2/matchmakingservice/ticket/player/{accountId}/{ticketId}", g.requireAuth(g.handleTicketQuery)).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/game/v2/matchmakingservice/ticket/player/{accountId}/{ticketId}", g.requireAuth(g.handleTicketCancel)).Methods(http.MethodDelete)
	r.HandleFunc("/fortnite/api/matchmaking/session/findPlayer/{accountId}", g.requireAuth(g.handleFindPlayer)).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/game/v2/enabled_features", g.handleEnabledFeatures).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/game/v2/tryPlayOnPlatform/account/{accountId}", g.handleTryPlayOnPlatform).Methods(http.MethodPost)

	// Content, version and service status.
	r.HandleFunc("/fortnite/api/calendar/v1/timeline", g.handleTimeline).Methods(http.MethodGet)
	r.HandleFunc("/content/api/pages/fortnite-game", g.handleContentPages).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/storefront/v2/catalog", g.handleCatalog).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/storefront/v2/keychain", g.handleKeychain).Methods(http.MethodGet)
	r.HandleFunc("/lightswitch/api/service/bulk/status", g.handleLightswitchBulk).Methods(http.MethodGet)
	r.HandleFunc("/lightswitch/api/service/Fortnite/status", g.handleLightswitch).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/lightswitch", g.handleLightswitch).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/version", g.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/v2/versioncheck/{platform}", g.handleVersionCheck).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/versioncheck", g.handleVersionCheck).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/cloudstorage/system", g.handleCloudStorageSystem).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/cloudstorage/system/{file}", g.handleCloudStorageFile).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/cloudstorage/user/{accountId}", g.handleCloudStorageUser).Methods(http.MethodGet)
	r.HandleFunc("/fortnite/api/cloudstorage/user/{accountId}/{file}", g.handleCloudStorageUserFile).Methods(http.MethodPut, http.MethodGet)
	r.HandleFunc("/waitingroom/api/waitingroom", g.handleWaitingRoom).Methods(http.MethodGet)
	r.HandleFunc("/datarouter/api/v1/public/data", g.handleDataRouter).Methods(http.MethodPost)
	r.HandleFunc("/eulatracking/api/public/agreements/fn/account/{accountId}", g.handleEULA).Methods(http.MethodGet)
	r.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)

	return g.withLogging(g.withCORS(r))
}

// Start opens the HTTPS listener (and the plain HTTP listener when a
// port is configured) and begins serving. It returns once both
// listeners are accepting.
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return errors.New("gateway already running")
	}

	handler := g.Handler()
	errLog := slog.NewLogLogger(g.log.Handler(), slog.LevelWarn)

	httpsAddr := net.JoinHostPort(g.cfg.Listen.Address, fmt.Sprintf("%d", g.cfg.Listen.HTTPSPort))
	ln, err := net.Listen("tcp", httpsAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", httpsAddr, err)
	}
	tlsLn := tls.NewListener(ln, &tls.Config{
		GetCertificate: g.certs.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	})
	g.httpsServer = &http.Server{
		Handler:           handler,
		ErrorLog:          errLog,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := g.httpsServer.Serve(tlsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("https server stopped", "error", err)
		}
	}()
	g.log.Info("https listener started", "addr", httpsAddr, "hostnames", g.cfg.Hostnames)

	if g.cfg.Listen.HTTPPort > 0 {
		httpAddr := net.JoinHostPort(g.cfg.Listen.Address, fmt.Sprintf("%d", g.cfg.Listen.HTTPPort))
		plainLn, err := net.Listen("tcp", httpAddr)
		if err != nil {
			_ = g.httpsServer.Close()
			return fmt.Errorf("listen %s: %w", httpAddr, err)
		}
		g.httpServer = &http.Server{
			Handler:           handler,
			ErrorLog:          errLog,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := g.httpServer.Serve(plainLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				g.log.Error("http server stopped", "error", err)
			}
		}()
		g.log.Info("http listener started", "addr", httpAddr)
	}

	g.running = true
	return nil
}

// Stop drains in-flight requests and closes the listeners.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return nil
	}
	var firstErr error
	if g.httpsServer != nil {
		if err := g.httpsServer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if g.httpServer != nil {
		if err := g.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.running = false
	g.log.Info("gateway stopped")
	return firstErr
}

// handleNotFound answers unmatched routes with the vendor envelope so
// probing clients see a well-formed error instead of a plain 404 page.
func (g *Gateway) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeVendorError(w, http.StatusNotFound, codeCommonNotFound, numCommonNotFound,
		"fortnite", fmt.Sprintf("Sorry the resource you were trying to find could not be found: %s", r.URL.Path))
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
