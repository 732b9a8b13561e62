package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"omlethub/pkg/sdk"
)

var serverLogsCmd = &cobra.Command{
	Use:   "logs [id]",
	Short: "Stream a server's audit log",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		streamLogs(args[0])
	},
}

func streamLogs(serverID string) {
	wsURL, err := Client.GetWebSocketURL(fmt.Sprintf("/ws/servers/%s/logs", serverID))
	if err != nil {
		log.Fatal("Error parsing base URL:", err)
	}

	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Error connecting to log stream: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				return
			}

			var entry sdk.LogEntry
			if err := json.Unmarshal(message, &entry); err != nil {
				continue
			}
			fmt.Printf("%s  [%-6s] %s\n", entry.Timestamp.Format("15:04:05"), entry.Kind, entry.Message)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-interrupt:
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
