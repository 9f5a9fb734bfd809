package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/contextchat/backend/internal/chat"
	"github.com/contextchat/backend/internal/models"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 32 * 1024

	// Typing indicators auto-clear after this much keystroke silence
	typingIdleTimeout = 5 * time.Second
)

// Client→server wire events.
const (
	eventJoinContext = "join_context"
	eventTyping      = "typing"
	eventSendMessage = "send_message"
)

type joinPayload struct {
	ContextID string `json:"contextId"`
}

type typingPayload struct {
	ContextID string `json:"contextId"`
	IsTyping  bool   `json:"isTyping"`
}

type sendPayload struct {
	ContextID string `json:"contextId"`
	Content   string `json:"content"`
}

type userJoinedNotice struct {
	UserID    string `json:"userId"`
	ContextID string `json:"contextId"`
}

type typingNotice struct {
	UserID    string `json:"userId"`
	ContextID string `json:"contextId"`
	IsTyping  bool   `json:"isTyping"`
}

type errorNotice struct {
	Message string `json:"message"`
}

// Session is one authenticated live connection. It owns its principal,
// its joined-room set and its typing auto-clear timer; the hub owns its
// registration lifecycle.
type Session struct {
	hub *Hub

	// WebSocket connection
	conn *websocket.Conn

	// Buffered channel of outbound frames
	send chan []byte

	// Principal authenticated during the handshake, immutable afterwards
	Principal models.Principal

	coordinator *chat.Coordinator
	oracle      *chat.MembershipOracle

	// done signals the write pump that the hub dropped the session
	done chan struct{}

	mu          sync.Mutex
	closed      bool
	rooms       map[string]bool
	typingTimer *time.Timer
}

// NewSession creates a new Session instance for an already authenticated
// connection.
func NewSession(hub *Hub, conn *websocket.Conn, principal models.Principal, coordinator *chat.Coordinator, oracle *chat.MembershipOracle) *Session {
	return &Session{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		Principal:   principal,
		coordinator: coordinator,
		oracle:      oracle,
		done:        make(chan struct{}),
		rooms:       make(map[string]bool),
	}
}

// ReadPump pumps frames from the WebSocket connection into the event
// handlers. This runs in its own goroutine per session.
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket] Read error from %s: %v", s.Principal.ID, err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[WebSocket] Malformed frame from %s: %v", s.Principal.ID, err)
			continue
		}
		s.HandleEvent(env)
	}
}

// WritePump pumps frames from the hub to the WebSocket connection.
// This runs in its own goroutine per session.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			// Hub dropped the session
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

			// Flush any queued frames as separate messages
			n := len(s.send)
			for i := 0; i < n; i++ {
				if err := s.conn.WriteMessage(websocket.TextMessage, <-s.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleEvent dispatches a single client frame. Unknown event types and
// frames with no context ID are ignored at the transport level.
func (s *Session) HandleEvent(env Envelope) {
	switch env.Type {
	case eventJoinContext:
		var p joinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ContextID == "" {
			return
		}
		s.handleJoin(p.ContextID)

	case eventTyping:
		var p typingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ContextID == "" {
			return
		}
		s.handleTyping(p.ContextID, p.IsTyping)

	case eventSendMessage:
		var p sendPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ContextID == "" {
			return
		}
		s.handleSend(p.ContextID, p.Content)
	}
}

// handleJoin re-checks membership, then registers the session in the
// room and announces the join to the whole room, joiner included.
func (s *Session) handleJoin(contextID string) {
	ok, err := s.oracle.IsMember(contextID, s.Principal.ID)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	if !ok {
		s.sendError(chat.ErrNotAuthorized.Error())
		return
	}

	roomKey := chat.RoomKey(contextID)
	s.hub.Join(s, roomKey)
	s.hub.Broadcast(roomKey, chat.EventUserJoined, userJoinedNotice{
		UserID:    s.Principal.ID,
		ContextID: contextID,
	})
}

// handleTyping relays a typing hint to everyone else in the room.
// Events for rooms this session never joined are dropped. Best-effort:
// no acknowledgement, no ordering guarantee.
func (s *Session) handleTyping(contextID string, isTyping bool) {
	roomKey := chat.RoomKey(contextID)
	if !s.inRoom(roomKey) {
		return
	}

	s.hub.BroadcastExcept(roomKey, chat.EventTyping, typingNotice{
		UserID:    s.Principal.ID,
		ContextID: contextID,
		IsTyping:  isTyping,
	}, s)

	if isTyping {
		s.armTypingTimer(contextID)
	} else {
		s.cancelTypingTimer()
	}
}

// handleSend routes the message through the delivery coordinator, which
// owns validation, authorization, storage and the receive_message
// broadcast. Failures go back to this session only.
func (s *Session) handleSend(contextID, content string) {
	s.cancelTypingTimer()

	if _, err := s.coordinator.Accept(contextID, s.Principal.ID, content); err != nil {
		log.Printf("[WebSocket] send_message from %s rejected: %v", s.Principal.ID, err)
		s.sendError(err.Error())
	}
}

// armTypingTimer (re)arms the one-shot auto-clear so a typing indicator
// doesn't stick around when the client goes silent without sending an
// explicit isTyping=false.
func (s *Session) armTypingTimer(contextID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(typingIdleTimeout, func() {
		roomKey := chat.RoomKey(contextID)
		if !s.inRoom(roomKey) {
			return
		}
		s.hub.BroadcastExcept(roomKey, chat.EventTyping, typingNotice{
			UserID:    s.Principal.ID,
			ContextID: contextID,
			IsTyping:  false,
		}, s)
	})
}

func (s *Session) cancelTypingTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
}

func (s *Session) addRoom(roomKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomKey] = true
}

func (s *Session) inRoom(roomKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[roomKey]
}

func (s *Session) roomKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.rooms))
	for key := range s.rooms {
		keys = append(keys, key)
	}
	return keys
}

// queue enqueues an outbound frame. Returns false without queuing when
// the session has been shut down or its buffer is full; the send
// channel itself is never closed, so a late producer can never panic.
func (s *Session) queue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// shutdown marks the session closed so no further frames are queued and
// signals the write pump to exit. Idempotent; only the hub calls this.
func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// sendEvent queues a frame for this session only. Drops the frame if
// the session is gone or its buffer is full; the hub will evict a slow
// session on its next fan-out.
func (s *Session) sendEvent(event string, payload interface{}) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		log.Printf("[WebSocket] Failed to encode %s event: %v", event, err)
		return
	}
	s.queue(data)
}

func (s *Session) sendError(message string) {
	s.sendEvent(chat.EventError, errorNotice{Message: message})
}
