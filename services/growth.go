package services

import (
	"time"

	"flower-garden/models"
)

// grow advances p's flower once per tick until it blooms or the garden is
// cancelled. It waits one tick before the first advance and one tick after
// the last.
func (g *Garden) grow(p *plot) {
	defer g.tasks.Done()

	if !g.sleep() {
		return
	}
	for {
		if g.ctx.Err() != nil {
			return
		}

		g.gardenMutex.Lock()
		bloomed := p.flower.Grow()
		symbol := p.flower.Symbol
		pos := p.flower.Position
		g.refreshLocked()
		g.gardenMutex.Unlock()

		if g.metrics != nil {
			g.metrics.GrowthTicks.Inc()
		}
		if bloomed {
			g.logger.Debug().Stringer("position", pos).Msg("flower bloomed")
			g.emit(models.EventBloomed, pos, symbol, p.plantedAt)
		} else {
			g.logger.Trace().Stringer("position", pos).Str("symbol", string(symbol)).Msg("flower grew")
			g.emit(models.EventGrew, pos, symbol, p.plantedAt)
		}

		if !g.sleep() || bloomed {
			return
		}
	}
}

// sleep waits one tick and reports false if the garden was cancelled first
func (g *Garden) sleep() bool {
	timer := time.NewTimer(g.tick)
	defer timer.Stop()

	select {
	case <-g.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
