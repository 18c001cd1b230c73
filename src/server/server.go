package server

import (
	"strings"

	"github.com/agentsolvr/relay/config"
	"github.com/agentsolvr/relay/src/hub"
	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Server exposes the hub over HTTP: a Fiber info route plus a raw
// fasthttp handler for WebSocket upgrades.
type Server struct {
	cfg      *config.ServerConfig
	hub      *hub.Hub
	logger   zerolog.Logger
	upgrader websocket.FastHTTPUpgrader
}

// New creates a server for the given hub.
func New(cfg *config.ServerConfig, h *hub.Hub, logger zerolog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		hub:    h,
		logger: logger.With().Str("component", "server").Logger(),
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
		},
	}
}

// RegisterRoutes registers the WebSocket info route via Fiber.
// The actual WebSocket upgrade uses Handler, registered at the app
// level since Fiber v3 does not expose *fasthttp.RequestCtx.
func (s *Server) RegisterRoutes(group fiber.Router) {
	group.Get("/ws/info", s.handleInfo)
}

func (s *Server) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"websocket": true,
		"endpoint":  "/ws",
		"clients":   s.hub.ClientCount(),
		"topics":    len(s.hub.Topics()),
	})
}

// Handler returns a raw fasthttp handler for WebSocket upgrades.
// Register this on the fasthttp server at the "/ws" path.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		if s.cfg.MaxConnections > 0 && s.hub.ClientCount() >= s.cfg.MaxConnections {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			ctx.SetBodyString(`{"error":"capacity","message":"connection limit reached"}`)
			return
		}

		clientID := uuid.New().String()
		h := s.hub

		err := s.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			client := hub.NewClient(clientID, &fasthttpConn{conn}, h)
			h.Register(client)
			go client.WritePump()
			client.ReadPump()
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// fasthttpConn wraps fasthttp/websocket.Conn to satisfy types.Conn.
type fasthttpConn struct {
	conn *websocket.Conn
}

func (f *fasthttpConn) ReadMessage() ([]byte, error) {
	_, data, err := f.conn.ReadMessage()
	return data, err
}

func (f *fasthttpConn) WriteMessage(data []byte) error {
	return f.conn.WriteMessage(websocket.TextMessage, data)
}

func (f *fasthttpConn) Close() error { return f.conn.Close() }
