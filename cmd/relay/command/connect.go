package command

import (
	"bufio"
	"encoding/json"
	"os"
	"os/signal"
	"strings"

	"github.com/agentsolvr/relay/config"
	"github.com/agentsolvr/relay/src/channel"
	"github.com/agentsolvr/relay/src/types"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open a channel to the endpoint and exchange envelopes",
	RunE:  runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	cfg := config.DefaultChannelConfig(endpoint)
	cfg.HeartbeatInterval = heartbeat
	cfg.MaxReconnectAttempts = maxAttempts
	cfg.AutoReconnect = !noReconnect

	ch := channel.New(cfg, logger)
	ch.OnConnect(func() { color.Green("connected to %s", endpoint) })
	ch.OnClose(func() { color.Yellow("connection closed") })
	ch.OnError(func(msg string) { color.Red("error: %s", msg) })
	ch.OnMessage(printEnvelope)

	if err := ch.Connect(); err != nil {
		return err
	}
	defer ch.Disconnect()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
			case line == "/quit":
				interrupt <- os.Interrupt
				return
			case line == "/reconnect":
				ch.Reconnect()
			case line == "/status":
				color.White("state=%s attempts=%d history=%d",
					ch.State(), ch.ReconnectAttempts(), len(ch.History()))
			default:
				sendLine(ch, line)
			}
		}
	}()

	<-interrupt
	color.Yellow("closing connection...")
	return nil
}

// sendLine parses "<type> <json>" into an envelope send. A payload that
// is not valid JSON is sent as a plain string.
func sendLine(ch *channel.Channel, line string) {
	eventType, rest, _ := strings.Cut(line, " ")
	var payload any
	if rest != "" {
		if err := json.Unmarshal([]byte(rest), &payload); err != nil {
			payload = rest
		}
	}
	if !ch.Send(eventType, payload) {
		color.Red("not connected, message dropped")
	}
}

func printEnvelope(env types.Envelope) {
	switch env.Type {
	case types.TypeRaw:
		color.HiBlack("[raw] %v", env.Data)
	default:
		body, _ := json.Marshal(env.Data)
		color.Cyan("[%s] %s", env.Type, string(body))
	}
}
