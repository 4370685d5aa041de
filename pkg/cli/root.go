// Package cli wires the lanlobby commands: the server itself plus the
// host-machine setup helpers (hosts file, certificate authority).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the persistent --config flag value.
	configPath string

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lanlobby",
	Short: "lanlobby is a self-hosted Fortnite Season 7 backend",
	Long: `lanlobby runs a local stand-in for the game's online services so a
Season 7 client can log in, sync its profile, and queue for matches
without reaching the real backend.

Point the client at this machine with 'lanlobby hosts apply', trust the
local certificate authority from 'lanlobby ca', then run 'lanlobby serve'.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: lanlobby.yaml if present)")
}

// defaultConfigFile is consulted when --config is not given.
const defaultConfigFile = "lanlobby.yaml"
