package protocol

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// clientMessageSchema is the shape gate for everything clients send.
// Field-level semantics (ranges that depend on server state) are
// checked afterwards in Go; the schema rejects structural garbage
// cheaply and uniformly.
const clientMessageSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {
      "enum": ["input", "build", "upgrade", "demolish", "interact", "equip", "lock", "cancel"]
    },
    "input": {
      "type": "object",
      "required": ["seq", "forward", "right", "rotation", "selectedSlot"],
      "properties": {
        "seq": {"type": "integer", "minimum": 0},
        "forward": {"type": "number", "minimum": -1, "maximum": 1},
        "right": {"type": "number", "minimum": -1, "maximum": 1},
        "jump": {"type": "boolean"},
        "crouch": {"type": "boolean"},
        "sprint": {"type": "boolean"},
        "rotation": {"type": "number"},
        "primaryAction": {"type": "boolean"},
        "secondaryAction": {"type": "boolean"},
        "selectedSlot": {"type": "integer", "minimum": 0, "maximum": 63}
      },
      "additionalProperties": false
    },
    "build": {
      "type": "object",
      "required": ["pieceType", "tier", "x", "y", "z"],
      "properties": {
        "pieceType": {"type": "string", "minLength": 1, "maxLength": 64},
        "tier": {"type": "integer", "minimum": 0, "maximum": 8},
        "x": {"type": "number"},
        "y": {"type": "number"},
        "z": {"type": "number"},
        "rotation": {"type": "number"}
      },
      "additionalProperties": false
    },
    "upgrade": {
      "type": "object",
      "required": ["target", "tier"],
      "properties": {
        "target": {"type": "integer", "minimum": 1},
        "tier": {"type": "integer", "minimum": 1, "maximum": 8}
      },
      "additionalProperties": false
    },
    "demolish": {
      "type": "object",
      "required": ["target"],
      "properties": {
        "target": {"type": "integer", "minimum": 1}
      },
      "additionalProperties": false
    },
    "interact": {
      "type": "object",
      "required": ["target"],
      "properties": {
        "target": {"type": "integer", "minimum": 1},
        "code": {"type": "string", "maxLength": 16}
      },
      "additionalProperties": false
    },
    "equip": {
      "type": "object",
      "required": ["slot"],
      "properties": {
        "slot": {"type": "integer", "minimum": 0, "maximum": 63}
      },
      "additionalProperties": false
    },
    "lock": {
      "type": "object",
      "required": ["target", "code"],
      "properties": {
        "target": {"type": "integer", "minimum": 1},
        "code": {"type": "string", "minLength": 1, "maxLength": 16}
      },
      "additionalProperties": false
    },
    "cancel": {"type": "object", "additionalProperties": false}
  },
  "additionalProperties": false
}`

var compiledClientSchema = jsonschema.MustCompileString("client_message.json", clientMessageSchema)

// ValidateClientMessage checks raw bytes against the client message
// schema. It returns an error for malformed payloads; the caller drops
// them before any state is touched.
func ValidateClientMessage(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return compiledClientSchema.Validate(v)
}
