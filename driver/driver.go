// Package driver runs the interactive loop around a garden: the player
// wanders randomly, and every planting interval the driver tries to
// collect whatever is under the player and then plants a new seed.
package driver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"flower-garden/models"
	"flower-garden/render"
	"flower-garden/services"
)

// Garden is the part of the garden the driver uses
type Garden interface {
	MovePlayer(dx, dy int)
	PlantFlower() (bool, error)
	CollectFlower() (services.CollectResult, error)
	Snapshot() models.GardenView
	CancelAll()
	Wait(ctx context.Context) error
}

// Renderer draws a frame
type Renderer interface {
	Render(frame render.Frame) error
}

// HarvestCounter reports all-time harvests
type HarvestCounter interface {
	Total() int
}

// Options configures a Driver
type Options struct {
	FrameEvery  time.Duration
	PlantEvery  time.Duration
	StopTimeout time.Duration
	Rand        *rand.Rand
	Harvests    HarvestCounter
	Logger      zerolog.Logger
}

// Driver paces the simulation and renders it
type Driver struct {
	garden   Garden
	renderer Renderer
	opts     Options
	status   string
	warning  bool
}

// New creates a driver. Zero durations fall back to 100ms frames, a 5s
// planting interval and a 3s shutdown wait.
func New(garden Garden, renderer Renderer, opts Options) *Driver {
	if opts.FrameEvery <= 0 {
		opts.FrameEvery = 100 * time.Millisecond
	}
	if opts.PlantEvery <= 0 {
		opts.PlantEvery = 5 * time.Second
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 3 * time.Second
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Driver{
		garden:   garden,
		renderer: renderer,
		opts:     opts,
	}
}

// Run drives the garden until ctx is done, then cancels growth, waits for
// it to stop and renders a final frame
func (d *Driver) Run(ctx context.Context) error {
	frames := time.NewTicker(d.opts.FrameEvery)
	defer frames.Stop()
	plants := time.NewTicker(d.opts.PlantEvery)
	defer plants.Stop()

	if err := d.render(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return d.stop()
		case <-frames.C:
			d.garden.MovePlayer(d.opts.Rand.Int(), d.opts.Rand.Int())
			if err := d.render(); err != nil {
				return err
			}
		case <-plants.C:
			d.tend()
			if err := d.render(); err != nil {
				return err
			}
		}
	}
}

// tend collects the flower under the player, if ready, and plants a seed
func (d *Driver) tend() {
	d.status, d.warning = "", false

	result, err := d.garden.CollectFlower()
	switch {
	case errors.Is(err, services.ErrNotFullyGrown):
		d.status, d.warning = err.Error(), true
	case err != nil:
		d.opts.Logger.Error().Err(err).Msg("collect failed")
		d.status, d.warning = err.Error(), true
	case result.Outcome == services.CollectHarvested:
		d.status = fmt.Sprintf("harvested a flower at %s", result.Flower.Position)
	}

	if _, err := d.garden.PlantFlower(); err != nil && !errors.Is(err, services.ErrGardenClosed) {
		d.opts.Logger.Error().Err(err).Msg("plant failed")
	}
}

func (d *Driver) stop() error {
	d.garden.CancelAll()

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.StopTimeout)
	defer cancel()
	if err := d.garden.Wait(ctx); err != nil {
		d.opts.Logger.Warn().Err(err).Msg("growth tasks still running at shutdown")
	}

	d.status, d.warning = "stopped", false
	return d.render()
}

func (d *Driver) render() error {
	frame := render.Frame{
		View:    d.garden.Snapshot(),
		Status:  d.status,
		Warning: d.warning,
	}
	if d.opts.Harvests != nil {
		frame.Total = d.opts.Harvests.Total()
	}
	if err := d.renderer.Render(frame); err != nil {
		return fmt.Errorf("failed to render frame: %w", err)
	}
	return nil
}
