package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"flower-garden/messages"
	"flower-garden/models"
	"flower-garden/observability"
)

// SpectatorManager tracks connected spectators and fans garden updates
// out to them
type SpectatorManager struct {
	spectators map[string]*SpectatorHandler
	logger     zerolog.Logger
	metrics    *observability.GardenMetrics
	mutex      sync.RWMutex
}

// NewSpectatorManager creates a new spectator manager
func NewSpectatorManager(logger zerolog.Logger, metrics *observability.GardenMetrics) *SpectatorManager {
	return &SpectatorManager{
		spectators: make(map[string]*SpectatorHandler),
		logger:     logger,
		metrics:    metrics,
	}
}

// AddSpectator registers a spectator
func (sm *SpectatorManager) AddSpectator(id string, handler *SpectatorHandler) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.spectators[id] = handler
	sm.updateGauge()
}

// RemoveSpectator unregisters a spectator
func (sm *SpectatorManager) RemoveSpectator(id string) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	delete(sm.spectators, id)
	sm.updateGauge()
}

func (sm *SpectatorManager) updateGauge() {
	if sm.metrics != nil {
		sm.metrics.Spectators.Set(float64(len(sm.spectators)))
	}
}

// Count returns the number of connected spectators
func (sm *SpectatorManager) Count() int {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return len(sm.spectators)
}

// BroadcastToAll sends a message to every spectator
func (sm *SpectatorManager) BroadcastToAll(msg interface{}) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	for id, spectator := range sm.spectators {
		if err := spectator.conn.SendMessage(msg); err != nil {
			sm.logger.Warn().Err(err).Str("spectator", id).Msg("broadcast failed")
		}
	}
}

// HandleEvent is a garden Listener that forwards events to every spectator
func (sm *SpectatorManager) HandleEvent(ev models.GardenEvent) {
	if sm.Count() == 0 {
		return
	}
	sm.BroadcastToAll(messages.BaseMessage{
		Type:    messages.MessageTypeEvent,
		Payload: ev,
	})
}

// Run broadcasts a snapshot of g every interval while spectators are
// connected, until ctx is done
func (sm *SpectatorManager) Run(ctx context.Context, g Garden, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sm.Count() == 0 {
				continue
			}
			sm.BroadcastToAll(messages.BaseMessage{
				Type:    messages.MessageTypeSnapshot,
				Payload: g.Snapshot(),
			})
		}
	}
}
