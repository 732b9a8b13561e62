package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"omlethub/pkg/sdk"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage fleet servers",
}

var createGame, createKind, createCreator string
var createMax int
var createApproved bool

var serverCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new server",
	Run: func(cmd *cobra.Command, args []string) {
		srv, err := Client.CreateServer(sdk.CreateServerRequest{
			CreatorID:       createCreator,
			Game:            createGame,
			Kind:            createKind,
			MaxPlayers:      createMax,
			PaymentApproved: createApproved,
		})
		if err != nil {
			log.Fatalf("Error creating server: %v", err)
		}
		fmt.Println("Server created!")
		printServer(srv)
	},
}

var listKind string

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List servers",
	Run: func(cmd *cobra.Command, args []string) {
		var servers []sdk.Server
		var err error
		if listKind != "" {
			servers, err = Client.ListServersByKind(listKind)
		} else {
			servers, err = Client.ListServers()
		}
		if err != nil {
			log.Fatalf("Error listing servers: %v", err)
		}

		fmt.Println("\n--- SERVERS ---")
		for _, s := range servers {
			fmt.Printf("%-36s  %-8s  %-10s  %d/%d players  %dms  code %s\n",
				s.ID, s.Status, s.Game, len(s.Players), s.MaxPlayers, s.Ping, s.JoinCode)
		}
	},
}

var serverGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show server details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		srv, err := Client.GetServer(args[0])
		if err != nil {
			log.Fatalf("Error getting server: %v", err)
		}
		printServer(srv)
	},
}

var joinPlayerID, joinPlayerName, joinAvatar string

var serverJoinCmd = &cobra.Command{
	Use:   "join [id-or-code]",
	Short: "Join a server by id or 6-digit code",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := Client.JoinServer(args[0], sdk.Player{
			ID:     joinPlayerID,
			Name:   joinPlayerName,
			Avatar: joinAvatar,
		})
		if err != nil {
			log.Fatalf("Error joining: %v", err)
		}
		fmt.Println("Joined!")
	},
}

var leavePlayerID string

var serverLeaveCmd = &cobra.Command{
	Use:   "leave [id]",
	Short: "Leave a server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.LeaveServer(args[0], leavePlayerID); err != nil {
			log.Fatalf("Error leaving: %v", err)
		}
		fmt.Println("Left the server")
	},
}

var kickTarget string

var serverKickCmd = &cobra.Command{
	Use:   "kick [id]",
	Short: "Kick a player (creator only)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.KickPlayer(args[0], kickTarget, AdminID); err != nil {
			log.Fatalf("Error kicking: %v", err)
		}
		fmt.Println("Player kicked")
	},
}

var banTarget string

var serverBanCmd = &cobra.Command{
	Use:   "ban [id]",
	Short: "Ban a player (creator only)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.BanPlayer(args[0], banTarget, AdminID); err != nil {
			log.Fatalf("Error banning: %v", err)
		}
		fmt.Println("Player banned")
	},
}

var updateName, updateKind string
var updateMax int

var serverUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Update server settings (creator only)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req := sdk.UpdateServerRequest{AdminID: AdminID}
		if updateName != "" {
			req.Name = &updateName
		}
		if updateKind != "" {
			req.Kind = &updateKind
		}
		if updateMax > 0 {
			req.MaxPlayers = &updateMax
		}

		if err := Client.UpdateServer(args[0], req); err != nil {
			log.Fatalf("Error updating: %v", err)
		}
		fmt.Println("Settings updated")
	},
}

var serverControlCmd = &cobra.Command{
	Use:   "control [id] [pause|start|restart|terminate]",
	Short: "Control server state (creator only)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := Client.ControlServer(args[0], AdminID, args[1]); err != nil {
			log.Fatalf("Error controlling server: %v", err)
		}
		fmt.Printf("Action %q sent\n", args[1])
	},
}

var serverLaunchCmd = &cobra.Command{
	Use:   "launch [id]",
	Short: "Open the game client for a server via deep link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		uri, err := Client.LaunchServer(args[0])
		if err != nil {
			log.Fatalf("Error launching: %v", err)
		}
		fmt.Printf("Launch requested: %s\n", uri)
	},
}

func init() {
	serverCreateCmd.Flags().StringVar(&createCreator, "creator", "", "Creator account id")
	serverCreateCmd.Flags().StringVar(&createGame, "game", "Minecraft", "Game label")
	serverCreateCmd.Flags().StringVar(&createKind, "kind", "public", "Server kind (public or private)")
	serverCreateCmd.Flags().IntVar(&createMax, "max-players", 10, "Player capacity")
	serverCreateCmd.Flags().BoolVar(&createApproved, "payment-approved", false, "Assert payment approval for private servers")
	serverCreateCmd.MarkFlagRequired("creator")

	serverListCmd.Flags().StringVar(&listKind, "kind", "", "Filter by kind (public or private)")

	serverJoinCmd.Flags().StringVar(&joinPlayerID, "player", "", "Player id")
	serverJoinCmd.Flags().StringVar(&joinPlayerName, "name", "", "Player display name")
	serverJoinCmd.Flags().StringVar(&joinAvatar, "avatar", "", "Player avatar")
	serverJoinCmd.MarkFlagRequired("player")
	serverJoinCmd.MarkFlagRequired("name")

	serverLeaveCmd.Flags().StringVar(&leavePlayerID, "player", "", "Player id")
	serverLeaveCmd.MarkFlagRequired("player")

	serverKickCmd.Flags().StringVar(&kickTarget, "target", "", "Player id to kick")
	serverKickCmd.MarkFlagRequired("target")

	serverBanCmd.Flags().StringVar(&banTarget, "target", "", "Player id to ban")
	serverBanCmd.MarkFlagRequired("target")

	serverUpdateCmd.Flags().StringVar(&updateName, "name", "", "New name")
	serverUpdateCmd.Flags().StringVar(&updateKind, "kind", "", "New kind (public or private)")
	serverUpdateCmd.Flags().IntVar(&updateMax, "max-players", 0, "New player capacity")

	serverCmd.AddCommand(serverCreateCmd, serverListCmd, serverGetCmd, serverJoinCmd,
		serverLeaveCmd, serverKickCmd, serverBanCmd, serverUpdateCmd, serverControlCmd,
		serverLaunchCmd, serverLogsCmd)
	RootCmd.AddCommand(serverCmd)
}

func printServer(s *sdk.Server) {
	fmt.Printf("Name:      %s\n", s.Name)
	fmt.Printf("ID:        %s\n", s.ID)
	fmt.Printf("Game:      %s\n", s.Game)
	fmt.Printf("Kind:      %s\n", s.Kind)
	fmt.Printf("Status:    %s\n", s.Status)
	fmt.Printf("Players:   %d/%d\n", len(s.Players), s.MaxPlayers)
	fmt.Printf("Address:   %s:%d\n", s.Address, s.Port)
	fmt.Printf("Join link: %s\n", s.JoinLink)
	fmt.Printf("Join code: %s\n", s.JoinCode)
	fmt.Printf("Ping:      %dms\n", s.Ping)
}
