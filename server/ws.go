package server

import (
	"net/http"
	"time"

	"viztalk/domain"
	"viztalk/runtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames on this socket; message posting
	// goes through the REST endpoint.
	maxInboundSize = 512

	outboundBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// handleSubscribe upgrades the request and bridges a realtime session onto
// the socket. The session outlives slow readers by design; the socket layer
// adds its own buffer and drops frames rather than stalling the pump.
func (s *Server) handleSubscribe(c *gin.Context) {
	conv, ok := s.conversationForCaller(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	outbound := make(chan wsFrame, outboundBuffer)
	push := func(frame wsFrame) {
		select {
		case outbound <- frame:
		default:
			s.log.Warn("WebSocket outbound buffer full, dropping frame",
				"conversation_id", conv.ID)
		}
	}

	session := s.chat.Subscribe(conv.ID, runtime.SessionHandlers{
		OnMessage: func(msg domain.DeliveredMessage) {
			push(wsFrame{Type: "message", Payload: msg})
		},
		OnProfile: func(profile domain.Profile) {
			push(wsFrame{Type: "profile", Payload: profile})
		},
	})

	go s.readLoop(conn, session)
	go s.writePump(conn, session, outbound)
}

// readLoop consumes control frames until the peer goes away, then tears the
// session down so the fanout path forgets this client.
func (s *Server) readLoop(conn *websocket.Conn, session *runtime.Session) {
	defer func() {
		session.Close()
		conn.Close()
	}()

	conn.SetReadLimit(maxInboundSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("WebSocket read ended", "error", err)
			}
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, session *runtime.Session, outbound <-chan wsFrame) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		session.Close()
		conn.Close()
	}()

	for {
		select {
		case frame := <-outbound:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
