package channel

import (
	"net/http"
	"time"

	"github.com/agentsolvr/relay/src/types"
	"github.com/fasthttp/websocket"
)

// Dialer opens a transport to an endpoint. Injectable for testing
// without a real WebSocket server.
type Dialer func(endpoint string, subprotocols []string) (types.Conn, error)

// wsDial is the default dialer, backed by fasthttp/websocket.
func wsDial(endpoint string, subprotocols []string) (types.Conn, error) {
	d := websocket.Dialer{
		Subprotocols:     subprotocols,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := d.Dial(endpoint, http.Header{})
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

// wsConn adapts *websocket.Conn to types.Conn.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

func (w *wsConn) WriteMessage(data []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
