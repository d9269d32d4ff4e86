package render

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"flower-garden/models"
)

// StatusLines is the number of rows below the garden used for status text
const StatusLines = 2

// Frame is everything drawn in one refresh
type Frame struct {
	View    models.GardenView
	Status  string
	Warning bool
	Total   int
}

var (
	styleBackground = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleSeed       = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	styleGrowing    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleBloomed    = tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleWarning    = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// TerminalRenderer draws frames on a tcell screen
type TerminalRenderer struct {
	screen tcell.Screen
}

// NewTerminalRenderer wraps an initialized screen
func NewTerminalRenderer(screen tcell.Screen) *TerminalRenderer {
	return &TerminalRenderer{screen: screen}
}

// GardenSize returns the largest garden that fits the screen above the
// status lines
func (r *TerminalRenderer) GardenSize() (height, width int) {
	w, h := r.screen.Size()
	height, width = h-StatusLines, w-1
	if height < 1 {
		height = 1
	}
	if width < 1 {
		width = 1
	}
	return height, width
}

// Render draws the garden, puts the cursor on the player and writes the
// status line
func (r *TerminalRenderer) Render(f Frame) error {
	r.screen.Clear()

	for y, row := range f.View.Rows {
		x := 0
		for _, ch := range row {
			r.screen.SetContent(x, y, ch, nil, cellStyle(ch))
			x++
		}
	}

	drawText(r.screen, 0, f.View.Height, summary(f.View.Stats, f.Total), styleStatus)
	if f.Status != "" {
		style := styleStatus
		if f.Warning {
			style = styleWarning
		}
		drawText(r.screen, 0, f.View.Height+1, f.Status, style)
	}

	r.screen.ShowCursor(f.View.Player.X, f.View.Player.Y)
	r.screen.Show()
	return nil
}

// WatchKeys polls screen events until a key is pressed or ctx is done,
// then calls quit. Resizes resync the screen.
func (r *TerminalRenderer) WatchKeys(ctx context.Context, quit func()) {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := r.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				quit()
				return
			}
			switch ev.(type) {
			case *tcell.EventKey:
				quit()
				return
			case *tcell.EventResize:
				r.screen.Sync()
			}
		}
	}
}

func cellStyle(ch rune) tcell.Style {
	switch {
	case ch == models.SeedStage:
		return styleSeed
	case ch == models.FinalStage:
		return styleBloomed
	case models.IsStage(ch):
		return styleGrowing
	default:
		return styleBackground
	}
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, ch := range text {
		screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

func summary(stats models.GardenStats, total int) string {
	return fmt.Sprintf("growing %d  bloomed %d  planted %d  harvested %d (all time %d)  any key quits",
		stats.Growing, stats.Bloomed, stats.Planted, stats.Harvested, total)
}
