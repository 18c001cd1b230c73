package main

import (
	"fmt"
	"os"
	"time"

	"github.com/agentsolvr/relay/config"
	"github.com/agentsolvr/relay/src/bridge"
	"github.com/agentsolvr/relay/src/hub"
	"github.com/agentsolvr/relay/src/server"
	"github.com/agentsolvr/relay/src/service"
	"github.com/agentsolvr/relay/src/types"
	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := config.ServerConfigFromEnv()

	h := hub.New(logger)
	go h.Run()
	defer h.Stop()

	svc := service.New(h, logger)
	registerHandlers(svc)

	// Attempt Redis bridge connection (non-fatal if unavailable).
	bcfg := bridge.RedisConfigFromEnv()
	rb := bridge.NewRedisBridge(bcfg, h, logger)
	if err := rb.Start(); err != nil {
		logger.Warn().Err(err).Msg("redis bridge unavailable, running standalone")
	} else {
		h.SetBridge(rb)
		defer rb.Stop()
		logger.Info().Str("redis_addr", bcfg.Addr).Msg("redis bridge connected")
	}

	srv := server.New(cfg, h, logger)

	app := fiber.New()
	srv.RegisterRoutes(app)

	wsHandler := srv.Handler()
	httpHandler := app.Handler()

	handler := func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/ws" {
			wsHandler(ctx)
			return
		}
		httpHandler(ctx)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("relayd listening")
	if err := fasthttp.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

// registerHandlers wires the built-in envelope handlers: "publish" lets
// a client fan an event out to every subscriber of a topic.
func registerHandlers(svc *service.Service) {
	svc.RegisterHandler("publish", func(clientID string, env types.Envelope) error {
		data, ok := env.Data.(map[string]any)
		if !ok {
			return fmt.Errorf("publish from %s: malformed data", clientID)
		}
		topic, _ := data["topic"].(string)
		if topic == "" {
			return fmt.Errorf("publish from %s: missing topic", clientID)
		}
		event, _ := data["event"].(string)
		if event == "" {
			event = "message"
		}
		return svc.Publish(topic, event, data["payload"])
	})
}
