package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub is the room registry: it maintains the set of connected sessions
// per room key and fans events out to them. Registration, joins and
// disconnect cleanup are synchronous, so no broadcast ever targets a
// dead session; broadcasts themselves flow through a single queue and
// are delivered in the order they were accepted.
type Hub struct {
	// rooms maps a room key to the set of sessions joined to it
	rooms map[string]map[*Session]bool

	// sessions holds every connected session, joined to a room or not
	sessions map[*Session]bool

	// broadcast queues events for fan-out to a room
	broadcast chan *roomEvent

	// mutex for thread-safe room operations
	mu sync.RWMutex
}

// roomEvent is an event queued for fan-out to a single room.
type roomEvent struct {
	roomKey string
	event   string
	payload interface{}
	exclude *Session
}

// Envelope is the wire format for every live-channel frame, in both
// directions: a type tag plus a type-specific payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[string]map[*Session]bool),
		sessions:  make(map[*Session]bool),
		broadcast: make(chan *roomEvent, 64),
	}
}

// Run starts the hub's fan-out loop.
// This should be called in a goroutine: go hub.Run()
func (h *Hub) Run() {
	for ev := range h.broadcast {
		h.broadcastToRoom(ev)
	}
}

// Register adds an authenticated session to the hub. The session starts
// with no room membership and must join rooms explicitly; membership is
// never carried over from a previous connection.
func (h *Hub) Register(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[session] = true
	log.Printf("[Hub] Session connected: user=%s (total: %d)", session.Principal.ID, len(h.sessions))
}

// Unregister removes a session from the hub and from every room it
// joined. Called on transport disconnect; by the time it returns the
// session is no longer a broadcast target.
func (h *Hub) Unregister(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(session)
}

// Join adds a session to a room's broadcast set. The caller must have
// verified membership beforehand; the hub itself does not authorize.
// Re-joining the same room is idempotent, and joining a second room
// does not leave the first.
func (h *Hub) Join(session *Session, roomKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.sessions[session] {
		// Session already disconnected
		return
	}

	if h.rooms[roomKey] == nil {
		h.rooms[roomKey] = make(map[*Session]bool)
	}
	h.rooms[roomKey][session] = true
	session.addRoom(roomKey)

	log.Printf("[Hub] Session %s joined room %s (total: %d)",
		session.Principal.ID, roomKey, len(h.rooms[roomKey]))
}

// Broadcast queues an event for every session in the room.
func (h *Hub) Broadcast(roomKey, event string, payload interface{}) {
	h.broadcast <- &roomEvent{roomKey: roomKey, event: event, payload: payload}
}

// BroadcastExcept queues an event for every session in the room except
// one, used so typing-indicator senders don't receive their own echo.
func (h *Hub) BroadcastExcept(roomKey, event string, payload interface{}, exclude *Session) {
	h.broadcast <- &roomEvent{roomKey: roomKey, event: event, payload: payload, exclude: exclude}
}

// RoomCount returns the number of sessions currently joined to a room.
func (h *Hub) RoomCount(roomKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey])
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// drop removes a session from every room it was part of and shuts it
// down. Caller holds the write lock. Idempotent: a session evicted for a
// full buffer passes through again when its read pump exits. The send
// channel is never closed, so producers that still hold a reference to
// the session (read pump, typing timer, an in-flight fan-out) can race
// the drop safely; their frames are discarded by the session itself.
func (h *Hub) drop(session *Session) {
	if !h.sessions[session] {
		return
	}
	delete(h.sessions, session)

	for _, roomKey := range session.roomKeys() {
		if sessions, ok := h.rooms[roomKey]; ok {
			delete(sessions, session)
			if len(sessions) == 0 {
				delete(h.rooms, roomKey)
				log.Printf("[Hub] Room %s is now empty, removed", roomKey)
			}
		}
	}

	session.cancelTypingTimer()
	session.shutdown()

	log.Printf("[Hub] Session disconnected: user=%s (total: %d)", session.Principal.ID, len(h.sessions))
}

// broadcastToRoom sends an event to all sessions currently in a room.
func (h *Hub) broadcastToRoom(ev *roomEvent) {
	data, err := encodeEvent(ev.event, ev.payload)
	if err != nil {
		log.Printf("[Hub] Failed to encode %s event: %v", ev.event, err)
		return
	}

	h.mu.RLock()
	recipients := make([]*Session, 0, len(h.rooms[ev.roomKey]))
	for session := range h.rooms[ev.roomKey] {
		if ev.exclude != nil && session == ev.exclude {
			continue
		}
		recipients = append(recipients, session)
	}
	h.mu.RUnlock()

	for _, session := range recipients {
		if !session.queue(data) {
			// Session's buffer is full or it is already gone
			h.mu.Lock()
			h.drop(session)
			h.mu.Unlock()
		}
	}
}

// encodeEvent wraps an event payload in the wire envelope.
func encodeEvent(event string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: event, Payload: raw})
}
