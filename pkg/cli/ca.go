package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lanlobby/lanlobby/pkg/certs"
)

var caCmd = &cobra.Command{
	Use:   "ca",
	Short: "Create the local certificate authority and print its location",
	Long: `Create the local certificate authority if it does not exist yet and
print the path of the CA certificate. Import that certificate into the
system trust store so the client accepts the leaf certificates lanlobby
presents for the redirected hostnames.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := certs.EnsureAuthority(cfg.CADir, caOrganization); err != nil {
			return err
		}
		fmt.Printf("CA certificate: %s\n", certs.CertPath(cfg.CADir))
		fmt.Println("Import it into the trust store of the machine running the game client.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(caCmd)
}
