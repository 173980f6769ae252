package chart

import (
	"math"
	"strconv"

	"option-guide/src/models"
)

// Op is a drawing primitive.
type Op int

const (
	OpRect Op = iota
	OpLine
	OpText
	OpPolyline
)

// Role says which part of the chart a command belongs to, so a backend can
// pick its color.
type Role int

const (
	RoleAxis Role = iota
	RoleZero
	RoleGrid
	RoleTick
	RoleLabel
	RoleCaption
	RoleCurve
)

// Point is a pixel position.
type Point struct {
	X, Y float64
}

// Command is one drawing instruction in pixel space.
//
//   - OpRect: Points[0] is the top-left corner, W/H the size.
//   - OpLine: Points[0] to Points[1].
//   - OpText: Text anchored at Points[0]; Rotated turns it 90 degrees counterclockwise.
//   - OpPolyline: straight segments through Points in order.
type Command struct {
	Op      Op
	Role    Role
	Points  []Point
	W, H    float64
	Text    string
	Rotated bool
}

// Options describes the canvas and axis styling.
type Options struct {
	Width    int
	Height   int
	Padding  int
	TickStep float64
	XCaption string
	YCaption string
}

// maxTicksPerAxis bounds label output when the step is tiny relative to the range.
const maxTicksPerAxis = 200

const tickLength = 5

// -----------------------------------------------------------------------------

// Render lays out a full redraw of series. It holds no state between calls.
func Render(series models.MSeries, opts Options) []Command {
	m := NewMapper(series, opts.Width, opts.Height, opts.Padding)
	pad := m.Padding
	bottom := pad + m.InnerHeight
	right := pad + m.InnerWidth

	cmds := []Command{{
		Op:     OpRect,
		Role:   RoleAxis,
		Points: []Point{{pad, pad}},
		W:      m.InnerWidth,
		H:      m.InnerHeight,
	}}

	if opts.XCaption != "" {
		cmds = append(cmds, Command{Op: OpText, Role: RoleCaption, Text: opts.XCaption,
			Points: []Point{{pad + m.InnerWidth/2 - 10, float64(opts.Height) - 10}}})
	}
	if opts.YCaption != "" {
		cmds = append(cmds, Command{Op: OpText, Role: RoleCaption, Text: opts.YCaption, Rotated: true,
			Points: []Point{{15, pad + m.InnerHeight/2 + 10}}})
	}

	for _, x := range Ticks(m.XMin, m.XMax, opts.TickStep) {
		px := m.PixelX(x)
		cmds = append(cmds,
			Command{Op: OpLine, Role: RoleGrid, Points: []Point{{px, pad}, {px, bottom}}},
			Command{Op: OpLine, Role: RoleTick, Points: []Point{{px, bottom}, {px, bottom + tickLength}}},
			Command{Op: OpText, Role: RoleLabel, Text: formatTick(x), Points: []Point{{px - 15, float64(opts.Height) - 25}}},
		)
	}
	for _, y := range Ticks(m.YMin, m.YMax, opts.TickStep) {
		py := m.PixelY(y)
		cmds = append(cmds,
			Command{Op: OpLine, Role: RoleGrid, Points: []Point{{pad, py}, {right, py}}},
			Command{Op: OpLine, Role: RoleTick, Points: []Point{{pad - tickLength, py}, {pad, py}}},
			Command{Op: OpText, Role: RoleLabel, Text: formatTick(y), Points: []Point{{5, py + 4}}},
		)
	}

	if m.ShowsZeroLine() {
		zy := m.PixelY(0)
		cmds = append(cmds, Command{Op: OpLine, Role: RoleZero, Points: []Point{{pad, zy}, {right, zy}}})
	}

	if len(series.Xs) > 0 {
		n := len(series.Xs)
		if len(series.Ys) < n {
			n = len(series.Ys)
		}
		pts := make([]Point, n)
		for i := 0; i < n; i++ {
			pts[i] = Point{m.PixelX(series.Xs[i]), m.PixelY(series.Ys[i])}
		}
		cmds = append(cmds, Command{Op: OpPolyline, Role: RoleCurve, Points: pts})
	}
	return cmds
}

// -----------------------------------------------------------------------------

// Ticks returns the multiples of step inside [min, max], from the smallest
// multiple >= min to the largest multiple <= max. Ranges that would need more
// than maxTicksPerAxis labels use a whole multiple of step instead.
func Ticks(min, max, step float64) []float64 {
	if step <= 0 || math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) || max < min {
		return nil
	}
	if n := math.Floor(max/step) - math.Ceil(min/step) + 1; n > maxTicksPerAxis {
		step *= math.Ceil(n / maxTicksPerAxis)
	}
	first := math.Ceil(min/step) * step
	last := math.Floor(max/step) * step
	if first > last {
		return nil
	}
	out := make([]float64, 0, int(math.Round((last-first)/step))+1)
	for i := 0; i < maxTicksPerAxis; i++ {
		v := first + float64(i)*step
		if v > last {
			break
		}
		out = append(out, v)
	}
	return out
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
