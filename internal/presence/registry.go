package presence

import (
	"sort"
	"sync"

	"messaging-backend/internal/utils"
)

// Sink is the write side of one client channel.
type Sink interface {
	WriteJSON(v interface{}) error
}

// Conn serializes writes to one underlying connection. Websocket
// connections are not safe for concurrent writes, and a broadcast can race a
// handler's direct send, so every write to a connection goes through the
// same Conn: handlers wrap the raw connection once and hand the wrapper to
// Join and to their own sends.
type Conn struct {
	mu   sync.Mutex
	sink Sink
}

func NewConn(sink Sink) *Conn {
	return &Conn{sink: sink}
}

func (c *Conn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink.WriteJSON(v)
}

type member struct {
	userID int
	sink   Sink
}

// room holds the connections currently open on one conversation. Each room
// carries its own lock so unrelated rooms never contend.
type room struct {
	mu      sync.RWMutex
	members map[string]member // connID -> member
}

// Registry tracks which users currently hold an open channel per room.
// Safe for concurrent use from any number of channel handlers.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Join adds a connection to the room, creating the room on first join.
// Joining twice with the same connID just refreshes the entry.
func (r *Registry) Join(name, connID string, userID int, sink Sink) {
	r.mu.Lock()
	rm, ok := r.rooms[name]
	if !ok {
		rm = &room{members: make(map[string]member)}
		r.rooms[name] = rm
	}
	r.mu.Unlock()

	rm.mu.Lock()
	rm.members[connID] = member{userID: userID, sink: sink}
	rm.mu.Unlock()
}

// Leave removes a connection from the room. It is a no-op for a connection or
// room that was never joined, so disconnect cleanup can run unconditionally.
// Empty rooms are dropped from the registry.
func (r *Registry) Leave(name, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		return
	}

	rm.mu.Lock()
	delete(rm.members, connID)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		delete(r.rooms, name)
	}
}

// Snapshot returns the distinct user ids currently present in the room as a
// point-in-time copy, never a live view.
func (r *Registry) Snapshot(name string) []int {
	r.mu.RLock()
	rm, ok := r.rooms[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.RLock()
	seen := make(map[int]struct{}, len(rm.members))
	for _, m := range rm.members {
		seen[m.userID] = struct{}{}
	}
	rm.mu.RUnlock()

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Count returns the number of distinct users present in the room.
func (r *Registry) Count(name string) int {
	return len(r.Snapshot(name))
}

// Contains reports whether the user holds at least one open channel on the
// room.
func (r *Registry) Contains(name string, userID int) bool {
	for _, id := range r.Snapshot(name) {
		if id == userID {
			return true
		}
	}
	return false
}

// Broadcast writes the payload to every connection in the room. Each sink
// carries its own write lock, so overlapping broadcasts and direct handler
// sends are serialized per connection. Write failures are logged and
// skipped; the failing connection's own read loop handles the disconnect.
func (r *Registry) Broadcast(name string, payload interface{}) {
	r.mu.RLock()
	rm, ok := r.rooms[name]
	r.mu.RUnlock()
	if !ok {
		return
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()
	for _, m := range rm.members {
		if err := m.sink.WriteJSON(payload); err != nil {
			utils.LogError(err, "Broadcast")
		}
	}
}
