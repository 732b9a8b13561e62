package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var matchGame string

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find the best public room for a game",
	Run: func(cmd *cobra.Command, args []string) {
		srv, err := Client.FindMatch(matchGame)
		if err != nil {
			log.Fatalf("No room found: %v", err)
		}
		fmt.Println("Best room:")
		printServer(srv)
	},
}

var accessCmd = &cobra.Command{
	Use:   "access [account-id]",
	Short: "Check private-server access for an account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		approved, err := Client.CheckAccess(args[0])
		if err != nil {
			log.Fatalf("Error checking access: %v", err)
		}
		if approved {
			fmt.Println("Account can create private servers")
		} else {
			fmt.Println("Account has no approved payment for private servers")
		}
	},
}

var paymentStatus string

var paymentCmd = &cobra.Command{
	Use:   "payment [account-id]",
	Short: "Record a payment-approval ledger entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.RecordPayment(args[0], paymentStatus); err != nil {
			log.Fatalf("Error recording payment: %v", err)
		}
		fmt.Printf("Recorded status %q for %s\n", paymentStatus, args[0])
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show daemon host resource usage",
	Run: func(cmd *cobra.Command, args []string) {
		stats, err := Client.GetSystemStats()
		if err != nil {
			log.Fatalf("Error getting stats: %v", err)
		}
		fmt.Println("\n--- HOST STATS ---")
		fmt.Printf("CPU:  %.1f%%\n", stats.CPUPercent)
		fmt.Printf("RAM:  %d / %d MB\n", stats.MemUsed/1024/1024, stats.MemTotal/1024/1024)
		fmt.Printf("Disk: %d / %d GB\n", stats.DiskUsed/1024/1024/1024, stats.DiskTotal/1024/1024/1024)
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchGame, "game", "Minecraft", "Game label to match")

	paymentCmd.Flags().StringVar(&paymentStatus, "status", "approved", "Ledger status to record")

	RootCmd.AddCommand(matchCmd, accessCmd, paymentCmd, statsCmd)
}
