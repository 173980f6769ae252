package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	"option-guide/src/models"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format selects the output encoding of Draw.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" or "svg" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unsupported chart format '%s'", s)
}

// ContentType is the HTTP media type of f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// -----------------------------------------------------------------------------

// Palette holds one color per Role plus the canvas background.
type Palette struct {
	Background drawing.Color
	Axis       drawing.Color
	Zero       drawing.Color
	Grid       drawing.Color
	Label      drawing.Color
	Curve      drawing.Color
}

// PaletteFromConfig reads hex colors ("69b1ff" or "#69b1ff").
func PaletteFromConfig(cfg models.MChartConfig) Palette {
	axis := hexColor(cfg.AxisColor)
	return Palette{
		Background: hexColor(cfg.Background),
		Axis:       axis,
		Zero:       hexColor(cfg.ZeroColor),
		Grid:       axis.WithAlpha(96),
		Label:      hexColor(cfg.LabelColor),
		Curve:      hexColor(cfg.LineColor),
	}
}

// OptionsFromConfig maps the chart section onto render Options.
func OptionsFromConfig(cfg models.MChartConfig) Options {
	return Options{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Padding:  cfg.Padding,
		TickStep: cfg.TickStep,
		XCaption: cfg.XCaption,
		YCaption: cfg.YCaption,
	}
}

func hexColor(s string) drawing.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return drawing.ColorTransparent
	}
	return drawing.ColorFromHex(s)
}

func (p Palette) color(role Role) drawing.Color {
	switch role {
	case RoleZero:
		return p.Zero
	case RoleGrid:
		return p.Grid
	case RoleTick, RoleAxis:
		return p.Axis
	case RoleLabel, RoleCaption:
		return p.Label
	default:
		return p.Curve
	}
}

// -----------------------------------------------------------------------------

// Draw replays cmds on a go-chart renderer and encodes the result to w.
func Draw(w io.Writer, cmds []Command, width, height int, palette Palette, format Format) error {
	provider := gochart.PNG
	if format == FormatSVG {
		provider = gochart.SVG
	}
	r, err := provider(width, height)
	if err != nil {
		return fmt.Errorf("failed to create %s renderer: %w", format, err)
	}

	r.SetFillColor(palette.Background)
	r.MoveTo(0, 0)
	r.LineTo(width, 0)
	r.LineTo(width, height)
	r.LineTo(0, height)
	r.Close()
	r.Fill()

	// labels are skipped when no font is available rather than failing the image
	font, fontErr := gochart.GetDefaultFont()
	if fontErr == nil {
		r.SetFont(font)
		r.SetFontSize(12)
	}

	for _, cmd := range cmds {
		r.ResetStyle()
		col := palette.color(cmd.Role)
		switch cmd.Op {
		case OpRect:
			if len(cmd.Points) == 0 {
				continue
			}
			x, y := cmd.Points[0].X, cmd.Points[0].Y
			r.SetStrokeColor(col)
			r.SetStrokeWidth(1)
			r.MoveTo(px(x), px(y))
			r.LineTo(px(x+cmd.W), px(y))
			r.LineTo(px(x+cmd.W), px(y+cmd.H))
			r.LineTo(px(x), px(y+cmd.H))
			r.Close()
			r.Stroke()

		case OpLine, OpPolyline:
			if len(cmd.Points) == 0 {
				continue
			}
			r.SetStrokeColor(col)
			r.SetStrokeWidth(1)
			if cmd.Op == OpPolyline {
				r.SetStrokeWidth(2)
			}
			r.MoveTo(px(cmd.Points[0].X), px(cmd.Points[0].Y))
			for _, p := range cmd.Points[1:] {
				r.LineTo(px(p.X), px(p.Y))
			}
			r.Stroke()

		case OpText:
			if fontErr != nil || len(cmd.Points) == 0 {
				continue
			}
			r.SetFont(font)
			r.SetFontSize(12)
			r.SetFontColor(col)
			if cmd.Rotated {
				r.SetTextRotation(3 * math.Pi / 2)
			}
			r.Text(cmd.Text, px(cmd.Points[0].X), px(cmd.Points[0].Y))
			if cmd.Rotated {
				r.ClearTextRotation()
			}
		}
	}

	return r.Save(w)
}

func px(v float64) int {
	return int(math.Round(v))
}

// -----------------------------------------------------------------------------

// Renderer bundles layout options and palette for repeated renders.
type Renderer struct {
	opts    Options
	palette Palette
}

func NewRenderer(cfg models.MChartConfig) *Renderer {
	return &Renderer{opts: OptionsFromConfig(cfg), palette: PaletteFromConfig(cfg)}
}

// Write renders series and encodes it to w.
func (r *Renderer) Write(w io.Writer, series models.MSeries, format Format) error {
	cmds := Render(series, r.opts)
	return Draw(w, cmds, r.opts.Width, r.opts.Height, r.palette, format)
}
