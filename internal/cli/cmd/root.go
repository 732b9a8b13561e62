package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"omlethub/internal/cli/ui"
	"omlethub/pkg/sdk"
)

var (
	Client  *sdk.Client
	BaseURL string
	AdminID string
)

var RootCmd = &cobra.Command{
	Use:   "omlet-cli",
	Short: "CLI for the Omlethub fleet daemon",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Client = sdk.NewClient(BaseURL)
	},
	Run: func(cmd *cobra.Command, args []string) {
		ui.RunServerList(Client, AdminID)
	},
}

func Execute(defaultPort int) {
	RootCmd.PersistentFlags().StringVar(&BaseURL, "url", fmt.Sprintf("http://localhost:%d", defaultPort), "URL of the Omlethub daemon")
	RootCmd.PersistentFlags().StringVar(&AdminID, "admin", "", "Account id used for administrative actions")

	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
