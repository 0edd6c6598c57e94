package live

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry owns every admitted connection, indexed by group room and by
// user identity. A room exists if and only if it has at least one
// connection; the user index keeps the most recently admitted connection
// per user (last-connected wins).
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]bool
	users map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[Conn]bool),
		users: make(map[string]Conn),
	}
}

// Admit inserts a connection into its group room, creating the room if
// absent, and makes it the current connection for its user.
func (r *Registry) Admit(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[c.GroupID()]
	if room == nil {
		room = make(map[Conn]bool)
		r.rooms[c.GroupID()] = room
	}
	room[c] = true
	if c.UserID() != "" {
		r.users[c.UserID()] = c
	}

	log.Debug().
		Str("connection_id", c.ID()).
		Str("group_id", c.GroupID()).
		Str("user_id", c.UserID()).
		Int("room_size", len(room)).
		Msg("connection admitted")
}

// Remove deletes a connection from its room, dropping the room once
// empty, and clears the user index entry if this connection still owns
// it. Removing an already-removed connection is a no-op.
func (r *Registry) Remove(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[c.GroupID()]
	if exists && room[c] {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, c.GroupID())
		}
		log.Debug().
			Str("connection_id", c.ID()).
			Str("group_id", c.GroupID()).
			Int("room_size", len(room)).
			Msg("connection removed")
	}
	if current, ok := r.users[c.UserID()]; ok && current == c {
		delete(r.users, c.UserID())
	}
}

// RoomSize reports how many connections are currently in a group's room.
func (r *Registry) RoomSize(groupID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[groupID])
}

// HasUser reports whether a user currently has an open connection.
func (r *Registry) HasUser(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// Stats reports the number of active rooms and total connections.
func (r *Registry) Stats() (rooms, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms = len(r.rooms)
	for _, room := range r.rooms {
		connections += len(room)
	}
	return rooms, connections
}

// roomConns snapshots a room's membership so callers never hold the
// registry lock while writing to sockets.
func (r *Registry) roomConns(groupID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[groupID]
	conns := make([]Conn, 0, len(room))
	for c := range room {
		conns = append(conns, c)
	}
	return conns
}

// userConn returns the current connection for a user, if any.
func (r *Registry) userConn(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.users[userID]
	return c, ok
}

// allConns snapshots every connection across all rooms.
func (r *Registry) allConns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []Conn
	for _, room := range r.rooms {
		for c := range room {
			conns = append(conns, c)
		}
	}
	return conns
}
