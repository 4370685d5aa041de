package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lanlobby/lanlobby/pkg/hosts"
)

var hostsIP string

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage the redirected backend hostnames in the hosts file",
	Long: `Manage the block of backend hostnames lanlobby adds to the system
hosts file. The block is marked so apply and revert only ever touch
lines lanlobby wrote; everything else in the file is preserved.

Editing the hosts file requires administrator or root privileges.`,
}

var hostsApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Redirect the backend hostnames to this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m := hosts.NewManager()
		m.IP = hostsIP
		if err := m.Apply(cfg.Hostnames); err != nil {
			return hostsErr(err)
		}
		fmt.Printf("Redirected %d hostnames to %s in %s\n", len(cfg.Hostnames), m.IP, m.Path)
		return nil
	},
}

var hostsRevertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Remove the redirect block from the hosts file",
	RunE: func(cmd *cobra.Command, args []string) error {
		m := hosts.NewManager()
		if err := m.Revert(); err != nil {
			return hostsErr(err)
		}
		fmt.Printf("Removed the lanlobby block from %s\n", m.Path)
		return nil
	},
}

var hostsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which hostnames are currently redirected",
	RunE: func(cmd *cobra.Command, args []string) error {
		m := hosts.NewManager()
		applied, err := m.Applied()
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("No lanlobby redirect block present")
			return nil
		}
		fmt.Printf("Redirected hostnames in %s:\n", m.Path)
		for _, h := range applied {
			fmt.Printf("  %s\n", h)
		}
		return nil
	},
}

// hostsErr rewords the privilege sentinel into actionable advice.
func hostsErr(err error) error {
	if errors.Is(err, hosts.ErrPrivilege) {
		return errors.New("cannot modify the hosts file: run as administrator or root")
	}
	return err
}

func init() {
	hostsApplyCmd.Flags().StringVar(&hostsIP, "ip", "127.0.0.1", "IP address the hostnames resolve to")
	hostsCmd.AddCommand(hostsApplyCmd)
	hostsCmd.AddCommand(hostsRevertCmd)
	hostsCmd.AddCommand(hostsStatusCmd)
	rootCmd.AddCommand(hostsCmd)
}
