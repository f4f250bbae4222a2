package ws

import (
	"encoding/json"

	"metaverse2d/internal/world"
)

// Inbound message types.
const (
	TypeJoin = "join"
	TypeMove = "move"
)

// Outbound message types.
const (
	TypeSpaceJoined      = "space-joined"
	TypeUserJoined       = "user-joined"
	TypeMovement         = "movement"
	TypeMovementRejected = "movement-rejected"
	TypeUserLeft         = "user-left"
)

// Envelope wraps every WS frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ──────────────────────────── Inbound payloads ─────────────────────────────────

// JoinRequest is the payload for "join".
type JoinRequest struct {
	SpaceID string `json:"spaceId" validate:"required"`
	Token   string `json:"token"   validate:"required"`
}

// MoveRequest is the payload for "move". Pointers tell a missing field from 0.
type MoveRequest struct {
	X *int `json:"x" validate:"required"`
	Y *int `json:"y" validate:"required"`
}

// ──────────────────────────── Outbound payloads ────────────────────────────────

type SpaceJoinedBody struct {
	Spawn world.Position `json:"spawn"`
	Users []Occupant     `json:"users"`
}

// Occupant describes another member of the room in a space-joined reply.
type Occupant struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

type UserJoinedBody struct {
	UserID string `json:"userId"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type MovementBody struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	UserID string `json:"userId"`
}

type MovementRejectedBody struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type UserLeftBody struct {
	UserID string `json:"userId"`
}

// encode builds the wire frame for an outbound message.
func encode(msgType string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: body})
}
