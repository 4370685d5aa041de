package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lanlobby/lanlobby/pkg/certs"
	"github.com/lanlobby/lanlobby/pkg/config"
	"github.com/lanlobby/lanlobby/pkg/gateway"
	"github.com/lanlobby/lanlobby/pkg/logging"
	"github.com/lanlobby/lanlobby/pkg/session"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 15 * time.Second

// caOrganization names the local authority in issued certificates.
const caOrganization = "lanlobby"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backend server (foreground)",
	Long: `Run the backend in the foreground. The server terminates TLS for the
redirected game hostnames using the local certificate authority,
generating it on first run. State is loaded from the snapshot file at
startup and written back on shutdown.

Binding port 443 usually needs elevated privileges.`,
	Example: `  # Run with defaults
  lanlobby serve

  # Run with a configuration file
  lanlobby serve --config lanlobby.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.ParseFormat(cfg.Logging.Format),
		Output: os.Stderr,
	})

	authority, err := certs.EnsureAuthority(cfg.CADir, caOrganization)
	if err != nil {
		return fmt.Errorf("certificate authority: %w", err)
	}
	cache := certs.NewCache(authority, caOrganization,
		certs.WithDefaultHostname(firstHostname(cfg)))

	store := session.New(session.Options{
		AccessTTL:     cfg.Auth.AccessTTL.Std(),
		RefreshTTL:    cfg.Auth.RefreshTTL.Std(),
		QueueWait:     cfg.Matchmaking.QueueWait.Std(),
		Retention:     cfg.Matchmaking.Retention.Std(),
		ServerAddress: cfg.Matchmaking.ServerAddress,
		ServerPort:    cfg.Matchmaking.ServerPort,
	})
	if cfg.SnapshotPath != "" {
		if err := store.Load(cfg.SnapshotPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Info("no snapshot found, starting empty", "path", cfg.SnapshotPath)
			} else {
				// A corrupt snapshot should not keep the lobby down.
				log.Warn("snapshot unreadable, starting empty", "path", cfg.SnapshotPath, "error", err)
			}
		} else {
			log.Info("snapshot loaded", "path", cfg.SnapshotPath)
		}
	}

	gw := gateway.New(cfg, store, cache,
		gateway.WithLogger(log),
	)
	if err := gw.Start(); err != nil {
		return err
	}
	log.Info("lanlobby started",
		"version", Version,
		"caCert", certs.CertPath(cfg.CADir))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := gw.Stop(ctx); err != nil {
		log.Warn("shutdown did not finish cleanly", "error", err)
	}

	if cfg.SnapshotPath != "" {
		if err := store.Save(cfg.SnapshotPath); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		log.Info("snapshot saved", "path", cfg.SnapshotPath)
	}
	return nil
}

func firstHostname(cfg *config.Config) string {
	if len(cfg.Hostnames) > 0 {
		return cfg.Hostnames[0]
	}
	return "localhost"
}
