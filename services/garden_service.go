package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"flower-garden/models"
	"flower-garden/observability"
)

// DefaultTick is how long a flower takes to advance one stage
const DefaultTick = time.Second

// Listener receives garden events. It is called outside the garden lock,
// possibly from several growth goroutines at once.
type Listener func(models.GardenEvent)

// Option configures a Garden
type Option func(*Garden)

// WithTick overrides the growth tick
func WithTick(d time.Duration) Option {
	return func(g *Garden) {
		if d > 0 {
			g.tick = d
		}
	}
}

// WithLogger sets the garden logger
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Garden) {
		g.logger = logger
	}
}

// WithListener subscribes l to garden events
func WithListener(l Listener) Option {
	return func(g *Garden) {
		if l != nil {
			g.listeners = append(g.listeners, l)
		}
	}
}

// WithMetrics records garden activity on m
func WithMetrics(m *observability.GardenMetrics) Option {
	return func(g *Garden) {
		g.metrics = m
	}
}

// plot is a flower in the collection together with its planting time
type plot struct {
	flower    *models.Flower
	plantedAt time.Time
}

// CollectOutcome tells what CollectFlower did
type CollectOutcome int

const (
	CollectEmpty CollectOutcome = iota
	CollectNotReady
	CollectHarvested
)

func (o CollectOutcome) String() string {
	switch o {
	case CollectNotReady:
		return "not_ready"
	case CollectHarvested:
		return "harvested"
	default:
		return "empty"
	}
}

// CollectResult describes the cell the player tried to collect
type CollectResult struct {
	Outcome   CollectOutcome
	Flower    models.Flower
	PlantedAt time.Time
}

// Garden owns the grid, the player and the flower collection. All methods
// are safe for concurrent use.
type Garden struct {
	height    int
	width     int
	grid      *Grid
	player    models.Position
	plots     []*plot
	planted   int
	harvested int
	closed    bool

	tick      time.Duration
	logger    zerolog.Logger
	metrics   *observability.GardenMetrics
	listeners []Listener

	ctx        context.Context
	cancel     context.CancelFunc
	cancelOnce sync.Once
	tasks      sync.WaitGroup

	gardenMutex sync.RWMutex
}

// NewGarden creates an empty garden. Cancelling ctx has the same effect as
// CancelAll.
func NewGarden(ctx context.Context, height, width int, opts ...Option) (*Garden, error) {
	if height <= 0 || width <= 0 {
		return nil, ErrInvalidDimensions
	}
	g := &Garden{
		height: height,
		width:  width,
		grid:   NewGrid(height, width),
		plots:  make([]*plot, 0),
		tick:   DefaultTick,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.ctx, g.cancel = context.WithCancel(ctx)
	return g, nil
}

// PlayerPosition returns the player's current cell
func (g *Garden) PlayerPosition() models.Position {
	g.gardenMutex.RLock()
	defer g.gardenMutex.RUnlock()
	return g.player
}

// Size returns the grid dimensions
func (g *Garden) Size() (height, width int) {
	return g.height, g.width
}

// Tick returns the growth tick
func (g *Garden) Tick() time.Duration {
	return g.tick
}

// Flowers returns a copy of the flower collection
func (g *Garden) Flowers() []models.Flower {
	g.gardenMutex.RLock()
	defer g.gardenMutex.RUnlock()

	flowers := make([]models.Flower, len(g.plots))
	for i, p := range g.plots {
		flowers[i] = *p.flower
	}
	return flowers
}

// Stats summarizes the flower collection
func (g *Garden) Stats() models.GardenStats {
	g.gardenMutex.RLock()
	defer g.gardenMutex.RUnlock()
	return g.statsLocked()
}

func (g *Garden) statsLocked() models.GardenStats {
	stats := models.GardenStats{
		Live:      len(g.plots),
		Planted:   g.planted,
		Harvested: g.harvested,
	}
	for _, p := range g.plots {
		if p.flower.IsBloomed() {
			stats.Bloomed++
		} else {
			stats.Growing++
		}
	}
	return stats
}

// MovePlayer moves the player by (dx, dy), wrapping around the edges. The
// move is skipped entirely when either component is zero.
func (g *Garden) MovePlayer(dx, dy int) {
	if dx == 0 || dy == 0 {
		return
	}
	g.gardenMutex.Lock()
	defer g.gardenMutex.Unlock()

	g.player = models.Position{
		X: wrap(g.player.X, dx, g.width),
		Y: wrap(g.player.Y, dy, g.height),
	}
}

// wrap returns (v+d) mod n in [0,n) for any d, without overflowing
func wrap(v, d, n int) int {
	return ((v+d%n)%n + n) % n
}

// PlantFlower puts a seed under the player if the cell holds no flower and
// starts growing it. It reports whether a seed was planted.
func (g *Garden) PlantFlower() (bool, error) {
	g.gardenMutex.Lock()
	if g.closed || g.ctx.Err() != nil {
		g.gardenMutex.Unlock()
		return false, ErrGardenClosed
	}

	g.refreshLocked()
	pos := g.player
	if models.IsStage(g.grid.At(pos)) {
		g.gardenMutex.Unlock()
		return false, nil
	}

	p := &plot{
		flower:    models.NewFlower(pos),
		plantedAt: time.Now(),
	}
	g.plots = append(g.plots, p)
	g.planted++
	live := len(g.plots)
	g.refreshLocked()
	g.tasks.Add(1)
	g.gardenMutex.Unlock()

	g.logger.Debug().Stringer("position", pos).Msg("seed planted")
	if g.metrics != nil {
		g.metrics.Planted.Inc()
		g.metrics.LiveFlowers.Set(float64(live))
	}
	g.emit(models.EventPlanted, pos, models.SeedStage, p.plantedAt)

	go g.grow(p)
	return true, nil
}

// CollectFlower harvests the flower under the player. An empty cell is a
// no-op. A flower that is not fully grown yields a *NotFullyGrownError and
// stays in the garden. The grid is refreshed whatever the outcome.
func (g *Garden) CollectFlower() (result CollectResult, err error) {
	g.gardenMutex.Lock()
	pos := g.player
	live := len(g.plots)
	defer func() {
		g.refreshLocked()
		g.gardenMutex.Unlock()
		g.afterCollect(pos, live, result, err)
	}()

	symbol := g.grid.At(pos)
	if !models.IsStage(symbol) {
		return CollectResult{Outcome: CollectEmpty}, nil
	}
	if symbol != models.FinalStage {
		return CollectResult{
			Outcome: CollectNotReady,
			Flower:  models.Flower{Position: pos, Symbol: symbol},
		}, &NotFullyGrownError{Position: pos, Symbol: symbol}
	}

	idx, matches := -1, 0
	for i, p := range g.plots {
		if p.flower.Position == pos {
			idx = i
			matches++
		}
	}
	if matches != 1 {
		return CollectResult{Outcome: CollectEmpty}, &ConsistencyError{Position: pos, Matches: matches}
	}

	p := g.plots[idx]
	g.plots = append(g.plots[:idx], g.plots[idx+1:]...)
	g.harvested++
	live = len(g.plots)
	return CollectResult{
		Outcome:   CollectHarvested,
		Flower:    *p.flower,
		PlantedAt: p.plantedAt,
	}, nil
}

func (g *Garden) afterCollect(pos models.Position, live int, result CollectResult, err error) {
	switch result.Outcome {
	case CollectHarvested:
		g.logger.Debug().Stringer("position", pos).Msg("flower collected")
		if g.metrics != nil {
			g.metrics.Harvested.Inc()
			g.metrics.LiveFlowers.Set(float64(live))
		}
		g.emit(models.EventCollected, pos, result.Flower.Symbol, result.PlantedAt)
	case CollectNotReady:
		g.logger.Debug().Stringer("position", pos).Str("symbol", string(result.Flower.Symbol)).Msg("flower not fully grown")
		if g.metrics != nil {
			g.metrics.NotReady.Inc()
		}
	}
	if err != nil && result.Outcome != CollectNotReady {
		g.logger.Error().Err(err).Stringer("position", pos).Msg("collect failed")
	}
}

// CancelAll asks every growth task to stop and returns without waiting
func (g *Garden) CancelAll() {
	g.cancelOnce.Do(func() {
		g.cancel()
		g.logger.Info().Msg("growth cancelled")
		g.emit(models.EventCancelled, g.PlayerPosition(), 0, time.Time{})
	})
}

// Wait cancels the garden and blocks until every growth task has returned
// or ctx is done
func (g *Garden) Wait(ctx context.Context) error {
	g.gardenMutex.Lock()
	g.closed = true
	g.gardenMutex.Unlock()
	g.CancelAll()

	done := make(chan struct{})
	go func() {
		g.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot refreshes the grid and returns it with the player and stats
func (g *Garden) Snapshot() models.GardenView {
	g.gardenMutex.Lock()
	defer g.gardenMutex.Unlock()

	g.refreshLocked()
	return models.GardenView{
		Width:  g.width,
		Height: g.height,
		Rows:   g.grid.Rows(),
		Player: g.player,
		Stats:  g.statsLocked(),
	}
}

// String refreshes the grid and renders it row-major, one line per row
func (g *Garden) String() string {
	g.gardenMutex.Lock()
	defer g.gardenMutex.Unlock()

	g.refreshLocked()
	return g.grid.String()
}

// refreshLocked rebuilds the grid from the flower collection
func (g *Garden) refreshLocked() {
	g.grid.Reset()
	for _, p := range g.plots {
		g.grid.Set(p.flower.Position, p.flower.Symbol)
	}
}

func (g *Garden) emit(t models.EventType, pos models.Position, symbol rune, plantedAt time.Time) {
	if len(g.listeners) == 0 {
		return
	}
	ev := models.GardenEvent{
		Type:      t,
		Position:  pos,
		PlantedAt: plantedAt,
		At:        time.Now(),
	}
	if symbol != 0 {
		ev.Symbol = string(symbol)
	}
	for _, l := range g.listeners {
		l(ev)
	}
}
