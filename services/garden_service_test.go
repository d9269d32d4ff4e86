package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flower-garden/models"
	"flower-garden/observability"
)

const (
	fastTick = 10 * time.Millisecond
	slowTick = time.Hour
	eventual = 2 * time.Second
)

func newTestGarden(t *testing.T, height, width int, tick time.Duration, opts ...Option) *Garden {
	t.Helper()
	opts = append([]Option{WithTick(tick)}, opts...)
	g, err := NewGarden(context.Background(), height, width, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventual)
		defer cancel()
		assert.NoError(t, g.Wait(ctx))
	})
	return g
}

func expectedGrid(height, width int, flowers map[models.Position]rune) string {
	var sb strings.Builder
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if r, ok := flowers[models.Position{X: x, Y: y}]; ok {
				sb.WriteRune(r)
			} else {
				sb.WriteRune(models.Background)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestNewGarden(t *testing.T) {
	for _, dims := range [][2]int{{0, 5}, {5, 0}, {-1, 3}} {
		_, err := NewGarden(context.Background(), dims[0], dims[1])
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	}

	g := newTestGarden(t, 3, 4, slowTick)
	h, w := g.Size()
	assert.Equal(t, 3, h)
	assert.Equal(t, 4, w)
	assert.Equal(t, models.Position{}, g.PlayerPosition())
	assert.Equal(t, expectedGrid(3, 4, nil), g.String())
	assert.Equal(t, slowTick, g.Tick())
}

func TestMovePlayerStaysInBounds(t *testing.T) {
	dims := [][2]int{{1, 1}, {1, 7}, {5, 5}, {17, 3}, {99, 100}}
	vectors := [][2]int{
		{1, 1}, {-1, -1}, {10000, 20000}, {-20000, 7}, {3, -12345},
		{math.MaxInt, math.MaxInt}, {math.MinInt, math.MinInt}, {math.MaxInt, math.MinInt},
	}

	for _, d := range dims {
		g := newTestGarden(t, d[0], d[1], slowTick)
		for _, v := range vectors {
			g.MovePlayer(v[0], v[1])
			p := g.PlayerPosition()
			assert.GreaterOrEqual(t, p.X, 0)
			assert.Less(t, p.X, d[1])
			assert.GreaterOrEqual(t, p.Y, 0)
			assert.Less(t, p.Y, d[0])
		}
	}
}

func TestMovePlayerWraps(t *testing.T) {
	g := newTestGarden(t, 5, 7, slowTick)

	g.MovePlayer(2, 3)
	assert.Equal(t, models.Position{X: 2, Y: 3}, g.PlayerPosition())

	g.MovePlayer(5, 2)
	assert.Equal(t, models.Position{X: 0, Y: 0}, g.PlayerPosition(), "stepping off the edge reappears opposite")

	g.MovePlayer(-1, -1)
	assert.Equal(t, models.Position{X: 6, Y: 4}, g.PlayerPosition())

	g.MovePlayer(-15, -11)
	assert.Equal(t, models.Position{X: 5, Y: 3}, g.PlayerPosition())

	g.MovePlayer(70001, 50002)
	assert.Equal(t, models.Position{X: 6, Y: 0}, g.PlayerPosition())
}

func TestMovePlayerZeroComponentIsNoop(t *testing.T) {
	g := newTestGarden(t, 10, 10, slowTick)
	g.MovePlayer(3, 4)
	start := g.PlayerPosition()

	for _, v := range [][2]int{{0, 0}, {0, 5}, {7, 0}, {0, -3}, {-9, 0}} {
		g.MovePlayer(v[0], v[1])
		assert.Equal(t, start, g.PlayerPosition(), "move %v", v)
	}
}

func TestPlantFlowerShowsSeed(t *testing.T) {
	g := newTestGarden(t, 4, 6, slowTick)
	g.MovePlayer(3, 2)

	planted, err := g.PlantFlower()
	require.NoError(t, err)
	assert.True(t, planted)

	pos := models.Position{X: 3, Y: 2}
	assert.Equal(t, expectedGrid(4, 6, map[models.Position]rune{pos: models.SeedStage}), g.String())
	assert.Equal(t, []models.Flower{{Position: pos, Symbol: models.SeedStage}}, g.Flowers())
	assert.Equal(t, models.GardenStats{Live: 1, Growing: 1, Planted: 1}, g.Stats())
}

func TestPlantFlowerGrowsWithinField(t *testing.T) {
	g := newTestGarden(t, 8, 8, fastTick)
	g.MovePlayer(5, 6)

	_, err := g.PlantFlower()
	require.NoError(t, err)

	field := g.Field()
	p := g.PlayerPosition()
	assert.True(t, models.IsStage(field[p.Y][p.X]))
}

func TestPlantFlowerOnOccupiedCellIsNoop(t *testing.T) {
	g := newTestGarden(t, 3, 3, slowTick)
	g.MovePlayer(1, 1)

	planted, err := g.PlantFlower()
	require.NoError(t, err)
	require.True(t, planted)

	planted, err = g.PlantFlower()
	require.NoError(t, err)
	assert.False(t, planted)
	assert.Len(t, g.Flowers(), 1)
	assert.Equal(t, 1, g.Stats().Planted)
}

func TestPlantFlowerAfterCancel(t *testing.T) {
	g := newTestGarden(t, 3, 3, slowTick)
	g.CancelAll()

	planted, err := g.PlantFlower()
	assert.ErrorIs(t, err, ErrGardenClosed)
	assert.False(t, planted)
	assert.Empty(t, g.Flowers())
}

func TestPlantFlowerAfterParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g, err := NewGarden(ctx, 3, 3, WithTick(slowTick))
	require.NoError(t, err)
	cancel()

	_, err = g.PlantFlower()
	assert.ErrorIs(t, err, ErrGardenClosed)
	assert.NoError(t, g.Wait(context.Background()))
}

func TestCollectEmptyCell(t *testing.T) {
	g := newTestGarden(t, 3, 3, slowTick)
	g.bloomAt(models.Position{X: 2, Y: 2})
	before := g.String()

	result, err := g.CollectFlower()
	require.NoError(t, err)
	assert.Equal(t, CollectEmpty, result.Outcome)
	assert.Equal(t, before, g.String())
	assert.Len(t, g.Flowers(), 1)
}

func TestCollectEmptyCellRefreshesGrid(t *testing.T) {
	g := newTestGarden(t, 3, 3, slowTick)

	g.gardenMutex.Lock()
	g.grid.Set(models.Position{X: 1, Y: 1}, '?')
	g.gardenMutex.Unlock()

	_, err := g.CollectFlower()
	require.NoError(t, err)

	g.gardenMutex.RLock()
	defer g.gardenMutex.RUnlock()
	assert.Equal(t, rune(models.Background), g.grid.At(models.Position{X: 1, Y: 1}))
}

func TestCollectNotFullyGrown(t *testing.T) {
	g := newTestGarden(t, 3, 3, slowTick)
	g.MovePlayer(1, 2)
	_, err := g.PlantFlower()
	require.NoError(t, err)
	before := g.Flowers()

	result, err := g.CollectFlower()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFullyGrown)
	assert.Equal(t, CollectNotReady, result.Outcome)

	var notGrown *NotFullyGrownError
	require.True(t, errors.As(err, &notGrown))
	assert.Equal(t, models.Position{X: 1, Y: 2}, notGrown.Position)
	assert.Equal(t, rune(models.SeedStage), notGrown.Symbol)
	assert.Contains(t, err.Error(), "(1,2)")

	assert.Equal(t, before, g.Flowers())
}

func TestCollectFullyGrownRemovesOnlyThatFlower(t *testing.T) {
	g := newTestGarden(t, 4, 4, slowTick)
	others := []models.Position{{X: 0, Y: 0}, {X: 3, Y: 3}}
	target := models.Position{X: 2, Y: 1}
	for _, p := range others {
		g.bloomAt(p)
	}
	g.bloomAt(target)
	g.MovePlayer(target.X, target.Y)

	result, err := g.CollectFlower()
	require.NoError(t, err)
	assert.Equal(t, CollectHarvested, result.Outcome)
	assert.Equal(t, target, result.Flower.Position)
	assert.Equal(t, rune(models.FinalStage), result.Flower.Symbol)

	remaining := g.Flowers()
	require.Len(t, remaining, 2)
	for i, p := range others {
		assert.Equal(t, p, remaining[i].Position)
		assert.Equal(t, rune(models.FinalStage), remaining[i].Symbol)
	}
	assert.Equal(t, rune(models.Background), g.symbolAt(target))
	assert.Equal(t, 1, g.Stats().Harvested)
}

func TestCollectConsistencyViolation(t *testing.T) {
	t.Run("no flower behind the grid", func(t *testing.T) {
		g := newTestGarden(t, 3, 3, slowTick)
		g.gardenMutex.Lock()
		g.grid.Set(models.Position{}, models.FinalStage)
		g.gardenMutex.Unlock()

		result, err := g.CollectFlower()
		assert.ErrorIs(t, err, ErrConsistency)
		assert.Equal(t, CollectEmpty, result.Outcome)

		var violation *ConsistencyError
		require.True(t, errors.As(err, &violation))
		assert.Equal(t, 0, violation.Matches)
		assert.Equal(t, expectedGrid(3, 3, nil), g.String())
	})

	t.Run("two flowers in one cell", func(t *testing.T) {
		g := newTestGarden(t, 3, 3, slowTick)
		g.bloomAt(models.Position{})
		g.bloomAt(models.Position{})

		_, err := g.CollectFlower()
		var violation *ConsistencyError
		require.True(t, errors.As(err, &violation))
		assert.Equal(t, 2, violation.Matches)
		assert.Len(t, g.Flowers(), 2)
	})
}

func TestFlowerLifecycle(t *testing.T) {
	tick := 50 * time.Millisecond
	g := newTestGarden(t, 5, 5, tick)
	center := models.Position{X: 2, Y: 2}

	g.MovePlayer(2, 2)
	require.Equal(t, center, g.PlayerPosition())

	planted, err := g.PlantFlower()
	require.NoError(t, err)
	require.True(t, planted)
	assert.Equal(t, expectedGrid(5, 5, map[models.Position]rune{center: models.SeedStage}), g.String())

	require.Eventually(t, func() bool {
		return g.symbolAt(center) == models.FinalStage
	}, eventual, tick/5)
	assert.Equal(t, expectedGrid(5, 5, map[models.Position]rune{center: models.FinalStage}), g.String())

	result, err := g.CollectFlower()
	require.NoError(t, err)
	assert.Equal(t, CollectHarvested, result.Outcome)
	assert.Equal(t, expectedGrid(5, 5, nil), g.String())
	assert.Empty(t, g.Flowers())
}

func TestGrowthVisitsStagesInOrder(t *testing.T) {
	var mu sync.Mutex
	var symbols []string
	listener := func(ev models.GardenEvent) {
		if ev.Type != models.EventGrew && ev.Type != models.EventBloomed && ev.Type != models.EventPlanted {
			return
		}
		mu.Lock()
		symbols = append(symbols, ev.Symbol)
		mu.Unlock()
	}

	g := newTestGarden(t, 2, 2, fastTick, WithListener(listener))
	_, err := g.PlantFlower()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(symbols) == len(models.Stages)
	}, eventual, fastTick/2)

	want := make([]string, len(models.Stages))
	for i, s := range models.Stages {
		want[i] = string(s)
	}
	mu.Lock()
	assert.Equal(t, want, symbols)
	mu.Unlock()
}

func TestCancelAllStopsGrowth(t *testing.T) {
	tick := 50 * time.Millisecond
	g := newTestGarden(t, 6, 6, tick)

	g.MovePlayer(1, 1)
	_, err := g.PlantFlower()
	require.NoError(t, err)
	g.MovePlayer(3, 2)
	_, err = g.PlantFlower()
	require.NoError(t, err)
	require.Len(t, g.Flowers(), 2)

	require.Eventually(t, func() bool {
		for _, f := range g.Flowers() {
			if f.Symbol == models.SeedStage {
				return false
			}
		}
		return true
	}, eventual, tick/5)

	assert.NotPanics(t, g.CancelAll)
	assert.NotPanics(t, g.CancelAll)

	ctx, cancel := context.WithTimeout(context.Background(), 2*tick)
	defer cancel()
	require.NoError(t, g.Wait(ctx), "tasks stop within one tick")

	stopped := g.Flowers()
	time.Sleep(3 * tick)
	assert.Equal(t, stopped, g.Flowers())
	for _, f := range stopped {
		assert.False(t, f.IsBloomed())
	}
}

func TestCancelAllDoesNotBlock(t *testing.T) {
	g := newTestGarden(t, 3, 3, slowTick)
	_, err := g.PlantFlower()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		g.CancelAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CancelAll blocked")
	}
}

func TestEventsAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewGardenMetrics(reg)

	var mu sync.Mutex
	counts := map[models.EventType]int{}
	listener := func(ev models.GardenEvent) {
		mu.Lock()
		counts[ev.Type]++
		mu.Unlock()
	}

	tick := 30 * time.Millisecond
	g := newTestGarden(t, 3, 3, tick, WithListener(listener), WithMetrics(metrics))
	_, err := g.PlantFlower()
	require.NoError(t, err)

	_, err = g.CollectFlower()
	require.ErrorIs(t, err, ErrNotFullyGrown)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return counts[models.EventBloomed] == 1
	}, eventual, tick/5)

	_, err = g.CollectFlower()
	require.NoError(t, err)
	g.CancelAll()

	mu.Lock()
	assert.Equal(t, 1, counts[models.EventPlanted])
	assert.Equal(t, len(models.Stages)-2, counts[models.EventGrew])
	assert.Equal(t, 1, counts[models.EventBloomed])
	assert.Equal(t, 1, counts[models.EventCollected])
	assert.Equal(t, 1, counts[models.EventCancelled])
	mu.Unlock()

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Planted))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Harvested))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NotReady))
	assert.Equal(t, float64(len(models.Stages)-1), testutil.ToFloat64(metrics.GrowthTicks))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.LiveFlowers))
}

func TestSnapshot(t *testing.T) {
	g := newTestGarden(t, 2, 3, slowTick)
	g.MovePlayer(1, 1)
	_, err := g.PlantFlower()
	require.NoError(t, err)

	view := g.Snapshot()
	assert.Equal(t, 3, view.Width)
	assert.Equal(t, 2, view.Height)
	assert.Equal(t, []string{"...", ".-."}, view.Rows)
	assert.Equal(t, models.Position{X: 1, Y: 1}, view.Player)
	assert.Equal(t, 1, view.Stats.Live)
}

func TestConcurrentAccess(t *testing.T) {
	g := newTestGarden(t, 7, 9, time.Millisecond)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				g.MovePlayer(w+1, i+1)
				switch i % 4 {
				case 0:
					_, _ = g.PlantFlower()
				case 1:
					_, err := g.CollectFlower()
					if err != nil {
						assert.ErrorIs(t, err, ErrNotFullyGrown)
					}
				case 2:
					_ = g.String()
				default:
					_ = g.Snapshot()
				}
			}
		}(w)
	}
	wg.Wait()

	seen := map[models.Position]bool{}
	for _, f := range g.Flowers() {
		assert.False(t, seen[f.Position], "two flowers at %s", f.Position)
		seen[f.Position] = true
	}
}
