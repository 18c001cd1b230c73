package command

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	endpoint    string
	heartbeat   time.Duration
	maxAttempts int
	noReconnect bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "relay - envelope channel client",
	Long: `relay opens a reconnecting message channel to a relayd endpoint.
Inbound envelopes are printed as they arrive; lines typed on stdin are
sent as "<type> <json-payload>" envelopes. The channel survives network
drops with exponential backoff up to the configured attempt limit.`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "ws://localhost:8090/ws", "WebSocket endpoint URL")
	rootCmd.PersistentFlags().DurationVar(&heartbeat, "heartbeat", 30*time.Second, "liveness probe interval, 0 disables")
	rootCmd.PersistentFlags().IntVar(&maxAttempts, "max-attempts", 5, "automatic reconnect attempts before giving up")
	rootCmd.PersistentFlags().BoolVar(&noReconnect, "no-reconnect", false, "disable automatic reconnection")

	rootCmd.AddCommand(connectCmd)
}
