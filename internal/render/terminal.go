// Package render draws simulation frames on a terminal with tcell.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/warroom/extension/internal/channel"
	"github.com/warroom/extension/internal/geo"
	"github.com/warroom/extension/pkg/core"
)

const (
	landGlyph     = '·'
	missileGlyph  = '•'
	targetGlyph   = '×'
	healthGlyph   = '▁'
	calculations  = "CALCULATIONS..."
	victoryBanner = "UNCONTESTED DOMINANCE SECURED"
)

var (
	coastColor = tcell.GetColor("#004444")
	alarmColor = tcell.GetColor("#ff0000")
)

// Terrain answers land/water queries in geographic coordinates.
type Terrain interface {
	IsOnLand(lon, lat float64) bool
}

// Config configures a Terminal.
type Config struct {
	// Land is drawn as the map background. Optional.
	Land Terrain
	// CalculationsAfter is how many ticks the footer shows the maximum
	// alert label before switching to CALCULATIONS...
	CalculationsAfter uint64
	// Dispatch receives commands triggered by key presses.
	Dispatch func(command string)
	Logger   *slog.Logger
}

// Terminal is a frame sink that draws on a tcell screen.
type Terminal struct {
	screen tcell.Screen
	cfg    Config
	frames *channel.Latest[core.Frame]

	mu       sync.Mutex
	mask     landMask
	maxSince uint64
	atMax    bool
}

// New creates a Terminal on an initialized screen.
func New(screen tcell.Screen, cfg Config) *Terminal {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(string) {}
	}
	return &Terminal{
		screen: screen,
		cfg:    cfg,
		frames: channel.NewLatest[core.Frame](),
	}
}

// Publish hands a frame to the draw loop. Frames the loop has not drawn yet
// are replaced.
func (t *Terminal) Publish(f core.Frame) {
	t.frames.Send(f)
}

// Run draws published frames and handles keys until ctx is done or the user
// quits.
func (t *Terminal) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go t.screen.ChannelEvents(events, quit)

	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-t.frames.Receive():
			if !ok {
				return nil
			}
			t.Draw(f)
		case ev, ok := <-events:
			if !ok || !t.handleEvent(ev) {
				return nil
			}
		}
	}
}

// Close stops accepting frames and restores the terminal.
func (t *Terminal) Close() {
	t.frames.Close()
	t.screen.Fini()
}

func (t *Terminal) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return false
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'b':
			t.cfg.Logger.Debug("Key command", "command", ":BOMBARD:")
			t.cfg.Dispatch(":BOMBARD:")
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
	return true
}

// Draw renders one frame: land, effects, beams, missiles, units, then the footer.
func (t *Terminal) Draw(f core.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Clear()
	cols, rows := t.screen.Size()
	rows-- // footer
	if cols <= 0 || rows <= 0 || f.Width <= 0 || f.Height <= 0 {
		t.screen.Show()
		return
	}
	grid := grid{cols: cols, rows: rows, width: f.Width, height: f.Height}

	t.drawLand(grid)
	for _, e := range f.Effects {
		t.drawEffect(grid, e)
	}
	for _, b := range f.Beams {
		t.drawBeam(grid, b)
	}
	for _, m := range f.Missiles {
		t.drawMissile(grid, m)
	}
	for _, u := range f.Units {
		t.drawUnit(grid, u)
	}
	t.drawFooter(f, cols, rows)

	t.screen.Show()
}

func (t *Terminal) drawLand(g grid) {
	if t.cfg.Land == nil {
		return
	}
	if !t.mask.matches(g) {
		t.mask = buildMask(g, t.cfg.Land)
	}
	style := tcell.StyleDefault.Foreground(coastColor)
	for y := range g.rows {
		for x := range g.cols {
			if t.mask.land[y*g.cols+x] {
				t.screen.SetContent(x, y, landGlyph, nil, style)
			}
		}
	}
}

func (t *Terminal) drawEffect(g grid, e core.EffectView) {
	x, y, ok := g.cell(e.Position)
	if !ok {
		return
	}
	glyph := 'o'
	switch {
	case e.Radius >= 20:
		glyph = '@'
	case e.Radius >= 10:
		glyph = 'O'
	}
	style := tcell.StyleDefault.Foreground(tcell.GetColor(e.Color)).Dim(e.Alpha < 0.5)
	t.screen.SetContent(x, y, glyph, nil, style)
}

// drawBeam traces the cells between shooter and target. The end cells are
// left to the units drawn over them.
func (t *Terminal) drawBeam(g grid, b core.BeamView) {
	x0, y0 := g.rawCell(b.From)
	x1, y1 := g.rawCell(b.To)
	glyph := beamGlyph(x1-x0, y1-y0)
	style := tcell.StyleDefault.Foreground(tcell.GetColor(b.Color)).Bold(true)

	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	x, y, e := x0, y0, dx+dy
	for x != x1 || y != y1 {
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
		if (x == x1 && y == y1) || x < 0 || y < 0 || x >= g.cols || y >= g.rows {
			continue
		}
		t.screen.SetContent(x, y, glyph, nil, style)
	}
}

func beamGlyph(dx, dy int) rune {
	switch {
	case abs(dx) > 2*abs(dy):
		return '-'
	case abs(dy) > 2*abs(dx):
		return '|'
	case (dx > 0) == (dy > 0):
		return '\\'
	default:
		return '/'
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (t *Terminal) drawMissile(g grid, m core.MissileView) {
	style := tcell.StyleDefault.Foreground(tcell.GetColor(m.Color))
	if x, y, ok := g.cell(m.End); ok {
		t.screen.SetContent(x, y, targetGlyph, nil, style.Dim(true))
	}
	if x, y, ok := g.cell(m.Position); ok {
		t.screen.SetContent(x, y, missileGlyph, nil, style.Bold(true))
	}
}

func (t *Terminal) drawUnit(g grid, u core.UnitView) {
	x, y, ok := g.cell(u.Position)
	if !ok {
		return
	}
	icon := []rune(u.Archetype.Icon())
	start := x - len(icon)/2
	style := tcell.StyleDefault.Foreground(tcell.GetColor(u.Color))
	for i, r := range icon {
		if cx := start + i; cx >= 0 && cx < g.cols {
			t.screen.SetContent(cx, y, r, nil, style)
		}
	}
	if y > 0 {
		t.screen.SetContent(x, y-1, healthGlyph, nil, tcell.StyleDefault.Foreground(healthColor(u.HealthFraction)))
	}
}

func (t *Terminal) drawFooter(f core.Frame, cols, row int) {
	text, color := t.footer(f)
	drawText(t.screen, 0, row, cols, text, tcell.StyleDefault.Foreground(color).Bold(true))
}

// footer picks the status line: the winner banner once declared, the
// CALCULATIONS... notice after a while at maximum alert, else the alert
// level.
func (t *Terminal) footer(f core.Frame) (string, tcell.Color) {
	if f.AlertLevel == core.MaxAlert && !t.atMax {
		t.atMax = true
		t.maxSince = f.Tick
	}

	if f.Winner != "" {
		return victoryBanner, tcell.GetColor(winnerColor(f))
	}
	if t.atMax && f.Tick-t.maxSince >= t.cfg.CalculationsAfter {
		return calculations, alarmColor
	}
	return fmt.Sprintf("DEFCON %d // %s", int(f.AlertLevel), f.AlertLevel.Label()), tcell.GetColor(f.AlertLevel.Color())
}

func winnerColor(f core.Frame) string {
	for _, u := range f.Units {
		if u.Faction == f.Winner {
			return u.Color
		}
	}
	return "#ffffff"
}

// healthColor maps 0..1 onto the hue range red..green at full saturation.
func healthColor(frac float64) tcell.Color {
	frac = min(max(frac, 0), 1)
	hue := frac * 120
	var r, g float64
	if hue < 60 {
		r, g = 255, 255*hue/60
	} else {
		r, g = 255*(120-hue)/60, 255
	}
	return tcell.NewRGBColor(int32(r), int32(g), 0)
}

func drawText(s tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= maxWidth {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

// grid maps simulation plane coordinates onto terminal cells.
type grid struct {
	cols, rows    int
	width, height float64
}

func (g grid) cell(p core.Position2D) (int, int, bool) {
	x, y := g.rawCell(p)
	if p.X < 0 || p.Y < 0 || x >= g.cols || y >= g.rows {
		return 0, 0, false
	}
	return x, y, true
}

// rawCell maps p without bounds checks.
func (g grid) rawCell(p core.Position2D) (int, int) {
	return int(p.X / g.width * float64(g.cols)), int(p.Y / g.height * float64(g.rows))
}

// center returns the plane point at the middle of a cell.
func (g grid) center(x, y int) core.Position2D {
	return core.Position2D{
		X: (float64(x) + 0.5) / float64(g.cols) * g.width,
		Y: (float64(y) + 0.5) / float64(g.rows) * g.height,
	}
}

// landMask caches the land test of every cell for one grid.
type landMask struct {
	grid grid
	land []bool
}

func (m landMask) matches(g grid) bool {
	return m.land != nil && m.grid == g
}

func buildMask(g grid, land Terrain) landMask {
	proj := geo.NewProjector(g.width, g.height)
	m := landMask{grid: g, land: make([]bool, g.cols*g.rows)}
	for y := range g.rows {
		for x := range g.cols {
			ll := proj.Unproject(g.center(x, y))
			m.land[y*g.cols+x] = land.IsOnLand(ll.Lon, ll.Lat)
		}
	}
	return m
}
