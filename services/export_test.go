package services

import (
	"time"

	"flower-garden/models"
)

// Field waits one and a half ticks so at least one growth step can land,
// then returns a copy of the refreshed grid.
func (g *Garden) Field() [][]rune {
	time.Sleep(g.tick * 3 / 2)

	g.gardenMutex.Lock()
	defer g.gardenMutex.Unlock()
	g.refreshLocked()
	return g.grid.Cells()
}

// bloomAt puts a fully grown flower at pos without a growth task
func (g *Garden) bloomAt(pos models.Position) {
	g.gardenMutex.Lock()
	defer g.gardenMutex.Unlock()

	g.plots = append(g.plots, &plot{
		flower:    &models.Flower{Position: pos, Symbol: models.FinalStage},
		plantedAt: time.Now(),
	})
	g.refreshLocked()
}

func (g *Garden) symbolAt(pos models.Position) rune {
	g.gardenMutex.Lock()
	defer g.gardenMutex.Unlock()
	g.refreshLocked()
	return g.grid.At(pos)
}
