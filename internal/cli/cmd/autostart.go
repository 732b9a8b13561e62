package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"
	"github.com/spf13/cobra"
)

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage daemon autostart on login",
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Start the daemon on login",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := daemonApp()
		if err != nil {
			log.Fatalf("Error locating daemon: %v", err)
		}
		if err := app.Enable(); err != nil {
			log.Fatalf("Error enabling autostart: %v", err)
		}
		fmt.Println("Autostart enabled")
	},
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Do not start the daemon on login",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := daemonApp()
		if err != nil {
			log.Fatalf("Error locating daemon: %v", err)
		}
		if err := app.Disable(); err != nil {
			log.Fatalf("Error disabling autostart: %v", err)
		}
		fmt.Println("Autostart disabled")
	},
}

var autostartStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show autostart state",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := daemonApp()
		if err != nil {
			log.Fatalf("Error locating daemon: %v", err)
		}
		if app.IsEnabled() {
			fmt.Println("Autostart is enabled")
		} else {
			fmt.Println("Autostart is disabled")
		}
	},
}

// daemonApp assumes the fleetd binary sits next to the CLI binary.
func daemonApp() (*autostart.App, error) {
	ex, err := os.Executable()
	if err != nil {
		return nil, err
	}

	return &autostart.App{
		Name:        "omlethub",
		DisplayName: "Omlethub Fleet Daemon",
		Exec:        []string{filepath.Join(filepath.Dir(ex), "fleetd")},
	}, nil
}

func init() {
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartStatusCmd)
	RootCmd.AddCommand(autostartCmd)
}
