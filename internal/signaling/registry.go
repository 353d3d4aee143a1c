// Package signaling relays WebRTC negotiation between the participants of a
// room. Registry tracks who is in which room; Relay routes frames; Server is
// the websocket transport.
package signaling

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrRoomIDRequired = errors.New("roomId required")
	ErrAlreadyInRoom  = errors.New("already in a room, leave it first")
	ErrUnknownConn    = errors.New("unknown connection")
	ErrDuplicateConn  = errors.New("connection id already registered")
)

// Peer is one live connection as seen by the registry. Send must not block.
type Peer interface {
	ID() string
	Send(f Frame) bool
}

type room struct {
	mu      sync.Mutex
	id      string
	members map[string]Peer

	// closed is set when the last member leaves; a joiner holding a stale
	// pointer must fetch a fresh room.
	closed bool
}

type entry struct {
	peer   Peer
	roomID string
}

// Registry maps room ids to members and connection ids to peers. Membership
// changes are serialised per room; different rooms never contend.
//
// Lock order is room.mu before Registry.mu.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	conns map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		conns: make(map[string]*entry),
	}
}

// Add registers a connection that is not in any room yet.
func (r *Registry) Add(p Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[p.ID()]; exists {
		return ErrDuplicateConn
	}
	r.conns[p.ID()] = &entry{peer: p}
	return nil
}

// Peer looks up a connection by id.
func (r *Registry) Peer(id string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return e.peer, true
}

// RoomOf returns the room the connection is in, or "".
func (r *Registry) RoomOf(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.conns[id]; ok {
		return e.roomID
	}
	return ""
}

func (r *Registry) roomFor(id string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[id]
	if !ok {
		rm = &room{id: id, members: make(map[string]Peer)}
		r.rooms[id] = rm
	}
	return rm
}

// Join adds the connection to roomID and returns the members that were
// there before it, sorted by id. Computing the others and registering the
// joiner happen under the room lock, so two simultaneous joiners always see
// each other. onJoined, when set, runs under the same lock; it must not
// block.
func (r *Registry) Join(connID, roomID string, onJoined func(others []Peer)) ([]Peer, error) {
	if roomID == "" {
		return nil, ErrRoomIDRequired
	}

	r.mu.RLock()
	e, ok := r.conns[connID]
	var current string
	if ok {
		current = e.roomID
	}
	r.mu.RUnlock()

	if !ok {
		return nil, ErrUnknownConn
	}
	if current != "" {
		return nil, ErrAlreadyInRoom
	}

	for {
		rm := r.roomFor(roomID)
		rm.mu.Lock()
		if rm.closed {
			rm.mu.Unlock()
			continue
		}

		r.mu.Lock()
		if e.roomID != "" {
			r.mu.Unlock()
			r.dropIfEmptyLocked(rm)
			rm.mu.Unlock()
			return nil, ErrAlreadyInRoom
		}
		e.roomID = roomID
		r.mu.Unlock()

		others := sortedPeers(rm.members)
		rm.members[connID] = e.peer
		if onJoined != nil {
			onJoined(others)
		}
		rm.mu.Unlock()

		return others, nil
	}
}

// Leave removes the connection from roomID and returns the members that
// remain. It is a no-op when the connection is not in that room.
func (r *Registry) Leave(connID, roomID string) ([]Peer, bool) {
	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, member := rm.members[connID]; !member {
		return nil, false
	}
	delete(rm.members, connID)

	r.mu.Lock()
	if e, ok := r.conns[connID]; ok && e.roomID == roomID {
		e.roomID = ""
	}
	r.mu.Unlock()

	remaining := sortedPeers(rm.members)
	r.dropIfEmptyLocked(rm)

	return remaining, true
}

// Remove unregisters the connection, leaving its room first. It returns the
// room it was in and the members still there.
func (r *Registry) Remove(connID string) (string, []Peer) {
	roomID := r.RoomOf(connID)

	var remaining []Peer
	left := false
	if roomID != "" {
		remaining, left = r.Leave(connID, roomID)
	}

	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()

	if !left {
		return "", nil
	}
	return roomID, remaining
}

// Members returns the peers in roomID sorted by id.
func (r *Registry) Members(roomID string) []Peer {
	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return sortedPeers(rm.members)
}

// InRoom reports whether connID is currently a member of roomID.
func (r *Registry) InRoom(connID, roomID string) bool {
	return roomID != "" && r.RoomOf(connID) == roomID
}

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Rooms: len(r.rooms), Connections: len(r.conns)}
}

// dropIfEmptyLocked deletes an empty room. Caller holds rm.mu.
func (r *Registry) dropIfEmptyLocked(rm *room) {
	if len(rm.members) > 0 {
		return
	}
	rm.closed = true

	r.mu.Lock()
	if r.rooms[rm.id] == rm {
		delete(r.rooms, rm.id)
	}
	r.mu.Unlock()
}

func sortedPeers(members map[string]Peer) []Peer {
	out := make([]Peer, 0, len(members))
	for _, p := range members {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func peerIDs(peers []Peer) []string {
	ids := make([]string, len(peers))
	for i, p := range peers {
		ids[i] = p.ID()
	}
	return ids
}
