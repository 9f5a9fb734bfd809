package realtime

import (
	"log"
	"net/http"
	"time"

	"github.com/contextchat/backend/internal/auth"
	"github.com/contextchat/backend/internal/chat"
	"github.com/gorilla/websocket"
)

// upgrader upgrades HTTP connections to WebSocket
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow connections from any origin (CORS handled by middleware)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections.
type Handler struct {
	hub         *Hub
	verifier    *auth.Verifier
	coordinator *chat.Coordinator
	oracle      *chat.MembershipOracle
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, verifier *auth.Verifier, coordinator *chat.Coordinator, oracle *chat.MembershipOracle) *Handler {
	return &Handler{hub: hub, verifier: verifier, coordinator: coordinator, oracle: oracle}
}

// ServeWS handles WebSocket upgrade requests at /ws.
// The bearer token travels out-of-band: in the Authorization header or,
// for browser clients that cannot set headers on a WebSocket dial, as a
// `token` query parameter. The header wins when both are present since
// URLs tend to end up in logs and referrers. Resolution happens exactly
// once, before the session reaches the hub; a failed handshake is
// closed with a machine-readable reason and no session is ever created
// for it.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade failed: %v", err)
		return
	}

	principal, err := h.verifier.Verify(token)
	if err != nil {
		reason := auth.Reason(err)
		log.Printf("[WebSocket] Handshake rejected: %s", reason)
		deadline := time.Now().Add(writeWait)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
		conn.Close()
		return
	}

	log.Printf("[WebSocket] New connection: user=%s (%s)", principal.ID, principal.Username)

	session := NewSession(h.hub, conn, principal, h.coordinator, h.oracle)
	h.hub.Register(session)

	// Start read/write pumps in separate goroutines
	go session.WritePump()
	go session.ReadPump()
}
