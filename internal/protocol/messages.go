// Package protocol defines the wire format between clients and the
// simulation server, plus the validation that gates every inbound
// payload. Malformed messages are dropped at this boundary before any
// world mutation.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message types accepted from clients.
const (
	TypeInput    = "input"
	TypeBuild    = "build"
	TypeUpgrade  = "upgrade"
	TypeDemolish = "demolish"
	TypeInteract = "interact"
	TypeEquip    = "equip"
	TypeLock     = "lock"
	TypeCancel   = "cancel"
)

// Envelope is the outer client message shape.
type Envelope struct {
	Type     string    `json:"type"`
	Input    *Input    `json:"input,omitempty"`
	Build    *Build    `json:"build,omitempty"`
	Upgrade  *Upgrade  `json:"upgrade,omitempty"`
	Demolish *Demolish `json:"demolish,omitempty"`
	Interact *Interact `json:"interact,omitempty"`
	Equip    *Equip    `json:"equip,omitempty"`
	Lock     *Lock     `json:"lock,omitempty"`
	Cancel   *Cancel   `json:"cancel,omitempty"`
}

// Input is the per-tick movement/action sample from a client.
type Input struct {
	Seq             uint64  `json:"seq"`
	Forward         float64 `json:"forward"` // [-1, 1]
	Right           float64 `json:"right"`   // [-1, 1]
	Jump            bool    `json:"jump"`
	Crouch          bool    `json:"crouch"`
	Sprint          bool    `json:"sprint"`
	Rotation        float64 `json:"rotation"` // yaw, radians
	PrimaryAction   bool    `json:"primaryAction"`
	SecondaryAction bool    `json:"secondaryAction"`
	SelectedSlot    int     `json:"selectedSlot"`
}

// Validate checks every field range. The JSON schema already rejects
// shape violations; this catches semantic ones.
func (in *Input) Validate() error {
	if in.Forward < -1 || in.Forward > 1 {
		return fmt.Errorf("forward out of range: %v", in.Forward)
	}
	if in.Right < -1 || in.Right > 1 {
		return fmt.Errorf("right out of range: %v", in.Right)
	}
	if in.Rotation != in.Rotation { // NaN
		return fmt.Errorf("rotation is not a number")
	}
	if in.Rotation < -1000 || in.Rotation > 1000 {
		return fmt.Errorf("rotation out of range: %v", in.Rotation)
	}
	if in.SelectedSlot < 0 || in.SelectedSlot > 63 {
		return fmt.Errorf("selectedSlot out of range: %d", in.SelectedSlot)
	}
	return nil
}

// Build requests placement of a construction piece.
type Build struct {
	PieceType string  `json:"pieceType"`
	Tier      int     `json:"tier"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Rotation  float64 `json:"rotation"`
}

// Validate checks field ranges.
func (b *Build) Validate() error {
	if b.PieceType == "" {
		return fmt.Errorf("empty pieceType")
	}
	if b.Tier < 0 || b.Tier > 8 {
		return fmt.Errorf("tier out of range: %d", b.Tier)
	}
	return nil
}

// Upgrade requests a tier upgrade on an existing building entity.
type Upgrade struct {
	Target int64 `json:"target"`
	Tier   int   `json:"tier"`
}

// Demolish requests destruction (with partial refund) of a building.
type Demolish struct {
	Target int64 `json:"target"`
}

// Interact toggles a door or opens a container.
type Interact struct {
	Target int64  `json:"target"`
	Code   string `json:"code,omitempty"`
}

// Equip wears the armor item held in an inventory slot, swapping with
// whatever currently occupies its body slot.
type Equip struct {
	Slot int `json:"slot"`
}

// Lock starts a lock operation on a door the player owns.
type Lock struct {
	Target int64  `json:"target"`
	Code   string `json:"code"`
}

// Cancel aborts the sender's pending operation. Spent materials are
// not refunded.
type Cancel struct{}

// EntitySnapshot is one entity's networked component values.
// Components maps component type name to its wire value; values are
// the generic JSON forms (map[string]any, float64, string, bool) so a
// decoded snapshot compares equal to the one that was encoded.
type EntitySnapshot struct {
	EntityID   int64          `json:"entityId"`
	Components map[string]any `json:"components"`
}

// Delta is the per-client change set for one broadcast run.
type Delta struct {
	Tick    uint64           `json:"tick"`
	Created []EntitySnapshot `json:"created,omitempty"`
	Updated []EntitySnapshot `json:"updated,omitempty"`
	Removed []int64          `json:"removed,omitempty"`
}

// Empty reports whether the delta carries no changes.
func (d *Delta) Empty() bool {
	return len(d.Created) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Type   string          `json:"type"` // "delta", "event", "reject"
	Delta  *Delta          `json:"delta,omitempty"`
	Event  json.RawMessage `json:"event,omitempty"`
	Reject *Reject         `json:"reject,omitempty"`
}

// Reject reports a locally rejected request back to its sender.
type Reject struct {
	Op    string `json:"op"`
	Error string `json:"error"`
}

// EncodeDelta marshals a delta message.
func EncodeDelta(d *Delta) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: "delta", Delta: d})
}

// DecodeDelta unmarshals a delta message produced by EncodeDelta.
func DecodeDelta(raw []byte) (*Delta, error) {
	var msg ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Type != "delta" || msg.Delta == nil {
		return nil, fmt.Errorf("not a delta message")
	}
	return msg.Delta, nil
}

// ParseEnvelope validates raw bytes against the client message schema
// and decodes them. Returns an error for anything malformed; callers
// drop the message and count it, nothing more.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	if err := ValidateClientMessage(raw); err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeInput:
		if env.Input == nil {
			return nil, fmt.Errorf("input message without input body")
		}
		if err := env.Input.Validate(); err != nil {
			return nil, err
		}
	case TypeBuild:
		if env.Build == nil {
			return nil, fmt.Errorf("build message without build body")
		}
		if err := env.Build.Validate(); err != nil {
			return nil, err
		}
	case TypeUpgrade:
		if env.Upgrade == nil {
			return nil, fmt.Errorf("upgrade message without upgrade body")
		}
	case TypeDemolish:
		if env.Demolish == nil {
			return nil, fmt.Errorf("demolish message without demolish body")
		}
	case TypeInteract:
		if env.Interact == nil {
			return nil, fmt.Errorf("interact message without interact body")
		}
	case TypeEquip:
		if env.Equip == nil {
			return nil, fmt.Errorf("equip message without equip body")
		}
	case TypeLock:
		if env.Lock == nil {
			return nil, fmt.Errorf("lock message without lock body")
		}
	case TypeCancel:
		// no body
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
	return &env, nil
}
