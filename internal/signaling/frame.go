package signaling

import (
	"encoding/json"
	"errors"
	"strings"
)

// Event names on the duplex channel.
const (
	EventConnected      = "connected"
	EventJoinRoom       = "join-room"
	EventLeaveRoom      = "leave-room"
	EventOffer          = "offer"
	EventAnswer         = "answer"
	EventICECandidate   = "ice-candidate"
	EventSendMessage    = "send-message"
	EventReceiveMessage = "receive-message"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventPing           = "ping"
	EventPong           = "pong"
	EventError          = "error"
)

// Frame is the envelope for every message in both directions. Ack echoes
// the client's request number on replies.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Ack   *int64 `json:"ack,omitempty"`
}

// inbound is a client frame before its data is decoded.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Ack   *int64          `json:"ack,omitempty"`
}

// JoinAck answers an admitted join. Others is never omitted, the first
// arrival gets an empty list.
type JoinAck struct {
	Joined bool     `json:"joined"`
	Others []string `json:"others"`
}

type JoinRejected struct {
	Error string `json:"error"`
}

type PeerEvent struct {
	SocketID string `json:"socketId"`
}

type ErrorEvent struct {
	Error string `json:"error"`
}

// negotiation is an offer, answer or candidate addressed to one peer.
type negotiation struct {
	To        string          `json:"to"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

func (n negotiation) payload(event string) json.RawMessage {
	switch event {
	case EventOffer:
		return n.Offer
	case EventAnswer:
		return n.Answer
	default:
		return n.Candidate
	}
}

// payloadKey is the field name the payload travels under for event.
func payloadKey(event string) string {
	switch event {
	case EventOffer:
		return "offer"
	case EventAnswer:
		return "answer"
	default:
		return "candidate"
	}
}

var errMalformed = errors.New("malformed payload")

// parseRoomRef accepts a bare room id string or {"roomId": ..., "secret": ...}.
func parseRoomRef(data json.RawMessage) (roomID, secret string, err error) {
	if len(data) == 0 || string(data) == "null" {
		return "", "", nil
	}

	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return strings.TrimSpace(id), "", nil
	}

	var obj struct {
		RoomID string `json:"roomId"`
		Secret string `json:"secret"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", "", errMalformed
	}
	return strings.TrimSpace(obj.RoomID), obj.Secret, nil
}
