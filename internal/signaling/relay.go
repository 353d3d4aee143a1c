package signaling

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Admitter decides whether a room may be joined. It may do I/O and is
// always called before any registry lock is taken.
type Admitter interface {
	AdmitJoin(ctx context.Context, roomID, secret string) error
}

const admitTimeout = 5 * time.Second

// Relay routes frames between connections using the registry. Forwarding is
// best effort: an offline recipient is not an error and the sender is not
// told.
type Relay struct {
	reg   *Registry
	admit Admitter
	log   *zap.Logger
}

// NewRelay builds a relay. admit may be nil to accept every room id.
func NewRelay(reg *Registry, admit Admitter, log *zap.Logger) *Relay {
	return &Relay{
		reg:   reg,
		admit: admit,
		log:   log.With(zap.String("module", "signaling")),
	}
}

func (r *Relay) Registry() *Registry { return r.reg }

func (r *Relay) Connect(p Peer) error {
	if err := r.reg.Add(p); err != nil {
		return err
	}
	r.log.Debug("Connection registered", zap.String("conn_id", p.ID()))
	return nil
}

// Join admits and registers the connection, replies to it with the ids of
// the members already present, then tells those members about the arrival.
// Both happen under the room lock, so the reply is queued before any other
// frame about this room can reach the joiner. Failures are replied as
// {error} and returned.
func (r *Relay) Join(ctx context.Context, connID, roomID, secret string, ack *int64) ([]string, error) {
	peer, ok := r.reg.Peer(connID)
	if !ok {
		return nil, ErrUnknownConn
	}

	ids, err := r.join(ctx, connID, roomID, secret, func(others []Peer) {
		ids := peerIDs(others)
		peer.Send(Frame{Event: EventJoinRoom, Ack: ack, Data: JoinAck{Joined: true, Others: ids}})

		joined := Frame{Event: EventUserJoined, Data: PeerEvent{SocketID: connID}}
		for _, other := range others {
			other.Send(joined)
		}
	})
	if err != nil {
		peer.Send(Frame{Event: EventJoinRoom, Ack: ack, Data: JoinRejected{Error: err.Error()}})
		r.log.Info("Join rejected",
			zap.String("conn_id", connID),
			zap.String("room_id", roomID),
			zap.Error(err),
		)
		return nil, err
	}

	r.log.Info("Joined room",
		zap.String("conn_id", connID),
		zap.String("room_id", roomID),
		zap.Int("others", len(ids)),
	)

	return ids, nil
}

func (r *Relay) join(ctx context.Context, connID, roomID, secret string, onJoined func([]Peer)) ([]string, error) {
	if roomID == "" {
		return nil, ErrRoomIDRequired
	}
	if r.reg.RoomOf(connID) != "" {
		return nil, ErrAlreadyInRoom
	}

	if r.admit != nil {
		admitCtx, cancel := context.WithTimeout(ctx, admitTimeout)
		err := r.admit.AdmitJoin(admitCtx, roomID, secret)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	others, err := r.reg.Join(connID, roomID, onJoined)
	if err != nil {
		return nil, err
	}
	return peerIDs(others), nil
}

// Forward delivers an offer, answer or candidate to exactly one recipient,
// tagged with the sender id. Both ends must share a room. It reports whether
// the frame was queued.
func (r *Relay) Forward(fromID, toID, event string, payload json.RawMessage) bool {
	roomID := r.reg.RoomOf(fromID)
	if toID == "" || roomID == "" || !r.reg.InRoom(toID, roomID) {
		r.log.Debug("Dropping negotiation frame",
			zap.String("event", event),
			zap.String("from", fromID),
			zap.String("to", toID),
		)
		return false
	}

	to, ok := r.reg.Peer(toID)
	if !ok {
		return false
	}

	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return to.Send(Frame{
		Event: event,
		Data: map[string]any{
			"from":            fromID,
			payloadKey(event): payload,
		},
	})
}

// Broadcast relays a chat message to every other member of roomID. The
// sender must be in that room; its own UI already rendered the message.
func (r *Relay) Broadcast(fromID, roomID string, message json.RawMessage) int {
	if !r.reg.InRoom(fromID, roomID) {
		return 0
	}

	frame := Frame{Event: EventReceiveMessage, Data: message}
	sent := 0
	for _, member := range r.reg.Members(roomID) {
		if member.ID() == fromID {
			continue
		}
		if member.Send(frame) {
			sent++
		}
	}
	return sent
}

// Leave takes the connection out of roomID, or out of its current room when
// roomID is empty, and tells the remaining members.
func (r *Relay) Leave(connID, roomID string) bool {
	if roomID == "" {
		roomID = r.reg.RoomOf(connID)
	}
	if roomID == "" {
		return false
	}

	remaining, left := r.reg.Leave(connID, roomID)
	if !left {
		return false
	}
	r.notifyLeft(connID, roomID, remaining)
	return true
}

// Disconnect runs the same cleanup as Leave and forgets the connection.
func (r *Relay) Disconnect(connID string) {
	roomID, remaining := r.reg.Remove(connID)
	if roomID != "" {
		r.notifyLeft(connID, roomID, remaining)
	}
	r.log.Debug("Connection removed", zap.String("conn_id", connID))
}

func (r *Relay) notifyLeft(connID, roomID string, remaining []Peer) {
	left := Frame{Event: EventUserLeft, Data: PeerEvent{SocketID: connID}}
	for _, p := range remaining {
		p.Send(left)
	}

	r.log.Info("Left room",
		zap.String("conn_id", connID),
		zap.String("room_id", roomID),
		zap.Int("remaining", len(remaining)),
	)
}
