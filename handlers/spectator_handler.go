package handlers

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"flower-garden/messages"
	"flower-garden/models"
	"flower-garden/network"
	"flower-garden/services"
)

const defaultHarvestLimit = 10

// Garden is the part of the garden a spectator can drive
type Garden interface {
	MovePlayer(dx, dy int)
	PlantFlower() (bool, error)
	CollectFlower() (services.CollectResult, error)
	Snapshot() models.GardenView
}

// HarvestLedger is the read side of the harvest service
type HarvestLedger interface {
	Total() int
	Recent(limit int) []models.HarvestRecord
}

// SpectatorHandler manages a single spectator connection
type SpectatorHandler struct {
	id       string
	conn     *network.Connection
	garden   Garden
	harvests HarvestLedger
	manager  *SpectatorManager
	logger   zerolog.Logger
}

// HandleSpectatorConnection serves a spectator until the connection closes
func HandleSpectatorConnection(wsConn *websocket.Conn, garden Garden, harvests HarvestLedger, manager *SpectatorManager) {
	id := uuid.NewString()
	logger := manager.logger.With().Str("spectator", id).Logger()
	conn := network.NewConnection(wsConn, logger)
	handler := &SpectatorHandler{
		id:       id,
		conn:     conn,
		garden:   garden,
		harvests: harvests,
		manager:  manager,
		logger:   logger,
	}

	go conn.WritePump()

	view := garden.Snapshot()
	handler.send(messages.MessageTypeWelcome, messages.WelcomeMessage{
		SpectatorID: id,
		Width:       view.Width,
		Height:      view.Height,
	})
	handler.send(messages.MessageTypeSnapshot, view)
	manager.AddSpectator(id, handler)
	logger.Info().Str("remote", conn.RemoteAddr()).Msg("spectator connected")

	conn.ReadPump(handler)

	manager.RemoveSpectator(id)
	logger.Info().Msg("spectator disconnected")
}

// HandleMessage handles incoming messages from the spectator
func (h *SpectatorHandler) HandleMessage(conn *network.Connection, message []byte) {
	var msg messages.InboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		h.sendError(messages.CodeInvalidMessage, "message is not valid JSON")
		return
	}

	switch msg.Type {
	case messages.MessageTypeSnapshot:
		h.send(messages.MessageTypeSnapshot, h.garden.Snapshot())
	case messages.MessageTypeMove:
		h.handleMove(msg.Payload)
	case messages.MessageTypePlant:
		h.handlePlant()
	case messages.MessageTypeCollect:
		h.handleCollect()
	case messages.MessageTypeHarvests:
		h.handleHarvests(msg.Payload)
	default:
		h.logger.Debug().Str("type", string(msg.Type)).Msg("unknown message type")
		h.sendError(messages.CodeUnknownType, "Unknown message type received")
	}
}

func (h *SpectatorHandler) handleMove(payload json.RawMessage) {
	var move messages.MoveMessage
	if err := json.Unmarshal(payload, &move); err != nil {
		h.sendError(messages.CodeInvalidMessage, "move payload must be {dx, dy}")
		return
	}
	h.garden.MovePlayer(move.DX, move.DY)
	h.send(messages.MessageTypeSnapshot, h.garden.Snapshot())
}

func (h *SpectatorHandler) handlePlant() {
	planted, err := h.garden.PlantFlower()
	if err != nil {
		h.sendError(errorCode(err), err.Error())
		return
	}
	h.send(messages.MessageTypePlant, messages.PlantResultMessage{Planted: planted})
}

func (h *SpectatorHandler) handleCollect() {
	result, err := h.garden.CollectFlower()
	if err != nil {
		h.sendError(errorCode(err), err.Error())
		return
	}
	reply := messages.CollectResultMessage{Outcome: result.Outcome.String()}
	if result.Outcome == services.CollectHarvested {
		pos := result.Flower.Position
		reply.Position = &pos
		reply.Symbol = string(result.Flower.Symbol)
	}
	h.send(messages.MessageTypeCollect, reply)
}

func (h *SpectatorHandler) handleHarvests(payload json.RawMessage) {
	req := messages.HarvestsRequest{Limit: defaultHarvestLimit}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			h.sendError(messages.CodeInvalidMessage, "harvests payload must be {limit}")
			return
		}
	}
	h.send(messages.MessageTypeHarvests, messages.HarvestsMessage{
		Total:  h.harvests.Total(),
		Recent: h.harvests.Recent(req.Limit),
	})
}

func (h *SpectatorHandler) send(t messages.MessageType, payload interface{}) {
	if err := h.conn.SendMessage(messages.BaseMessage{Type: t, Payload: payload}); err != nil {
		h.logger.Warn().Err(err).Str("type", string(t)).Msg("failed to send message")
	}
}

func (h *SpectatorHandler) sendError(code, message string) {
	h.send(messages.MessageTypeError, messages.ErrorMessage{
		Code:    code,
		Message: message,
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFullyGrown):
		return messages.CodeNotFullyGrown
	case errors.Is(err, services.ErrGardenClosed):
		return messages.CodeGardenClosed
	default:
		return messages.CodeInternal
	}
}
