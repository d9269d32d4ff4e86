package messages

import (
	"encoding/json"

	"flower-garden/models"
)

// MessageType defines the type of message being sent
type MessageType string

const (
	MessageTypeWelcome  MessageType = "welcome"
	MessageTypeSnapshot MessageType = "snapshot"
	MessageTypeEvent    MessageType = "event"
	MessageTypeMove     MessageType = "move"
	MessageTypePlant    MessageType = "plant"
	MessageTypeCollect  MessageType = "collect"
	MessageTypeHarvests MessageType = "harvests"
	MessageTypeError    MessageType = "error"
)

// Error codes sent in ErrorMessage
const (
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeUnknownType    = "UNKNOWN_MESSAGE_TYPE"
	CodeNotFullyGrown  = "NOT_FULLY_GROWN"
	CodeGardenClosed   = "GARDEN_CLOSED"
	CodeInternal       = "INTERNAL"
)

// BaseMessage is the envelope for all outgoing messages
type BaseMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// InboundMessage is the envelope for incoming messages; the payload is
// decoded once the type is known
type InboundMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WelcomeMessage is sent once after a spectator connects
type WelcomeMessage struct {
	SpectatorID string `json:"spectator_id"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// MoveMessage asks to move the player by a vector
type MoveMessage struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// PlantResultMessage answers a plant request
type PlantResultMessage struct {
	Planted bool `json:"planted"`
}

// CollectResultMessage answers a collect request
type CollectResultMessage struct {
	Outcome  string           `json:"outcome"`
	Position *models.Position `json:"position,omitempty"`
	Symbol   string           `json:"symbol,omitempty"`
}

// HarvestsMessage lists recent harvests
type HarvestsMessage struct {
	Total  int                    `json:"total"`
	Recent []models.HarvestRecord `json:"recent"`
}

// HarvestsRequest asks for up to Limit recent harvests
type HarvestsRequest struct {
	Limit int `json:"limit"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
