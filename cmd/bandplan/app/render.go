package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/roman-kulish/blindscan/internal/channel"
	"github.com/roman-kulish/blindscan/internal/dvb"
)

const (
	dpi            = 120.0
	fontSize       = 9.0
	tickMarkHeight = 5
	pixelsPerLabel = 150.0

	laneHeight = 28
	lanePad    = 4
	maxLanes   = 4

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 120
	defaultBottomBorder = 40
	defaultRightBorder  = 40
)

var (
	colorDVBS    = color.RGBA{R: 0x46, G: 0x82, B: 0xb4, A: 0xff}
	colorDVBS2   = color.RGBA{R: 0xff, G: 0x8c, B: 0x00, A: 0xff}
	colorUnknown = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	colorStream  = color.RGBA{R: 0x8b, G: 0x00, B: 0x8b, A: 0xff}
	colorGrid    = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Space for frequency scale
	Left   int // Space for polarization labels
	Bottom int // Space for information bar
	Right  int // Right padding
}

type RenderConfig struct {
	Width        int    // Width of the plot area in pixels
	FontSize     float64
	Title        string // Shown in the information bar
	BorderConfig BorderConfig
}

// PlanRenderer draws a Plan as rows of carrier boxes on a frequency axis.
type PlanRenderer struct {
	config RenderConfig
}

func NewPlanRenderer(config RenderConfig) (*PlanRenderer, error) {
	if config.Width <= 0 {
		return nil, fmt.Errorf("invalid plot width %d", config.Width)
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &PlanRenderer{config: config}, nil
}

// rowLayout holds the lane of every carrier in a row; overlapping carriers
// are pushed into the next free lane.
type rowLayout struct {
	lanes []int
	count int
}

func layoutRow(row Row) rowLayout {
	var ends []float64
	l := rowLayout{lanes: make([]int, len(row.Carriers))}
	for i, c := range row.Carriers {
		lane := -1
		for j, end := range ends {
			if c.StartKHz >= end {
				lane = j
				break
			}
		}
		switch {
		case lane >= 0:
			ends[lane] = c.EndKHz
		case len(ends) < maxLanes:
			lane = len(ends)
			ends = append(ends, c.EndKHz)
		default:
			// Out of lanes: stack onto the lane that frees up first.
			lane = 0
			for j := range ends {
				if ends[j] < ends[lane] {
					lane = j
				}
			}
			ends[lane] = math.Max(ends[lane], c.EndKHz)
		}
		l.lanes[i] = lane
	}
	l.count = max(len(ends), 1)
	return l
}

func (l rowLayout) height() int {
	return l.count*laneHeight + 2*lanePad
}

func (r *PlanRenderer) Render(plan *Plan) (*image.RGBA, error) {
	layouts := make([]rowLayout, len(plan.Rows))
	plotHeight := 0
	for i, row := range plan.Rows {
		layouts[i] = layoutRow(row)
		plotHeight += layouts[i].height()
	}

	b := r.config.BorderConfig
	img := image.NewRGBA(image.Rect(0, 0, r.config.Width+b.Left+b.Right, plotHeight+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	ann, err := newAnnotator(r.config.FontSize, b)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()
	ann.context.SetClip(img.Bounds())
	ann.context.SetDst(img)

	if err = ann.drawFrequencyScale(img, plan, r.config.Width, plotHeight); err != nil {
		return nil, fmt.Errorf("drawing frequency scale: %w", err)
	}

	top := b.Top
	for i, row := range plan.Rows {
		area := image.Rect(b.Left, top, b.Left+r.config.Width, top+layouts[i].height())
		if err = ann.drawRowLabel(row, area); err != nil {
			return nil, fmt.Errorf("drawing row label: %w", err)
		}
		if err = r.drawRow(img, ann, plan, row, layouts[i], area); err != nil {
			return nil, fmt.Errorf("drawing %s row: %w", row.Polarization, err)
		}
		top = area.Max.Y
	}

	if err = ann.drawInfoBar(img, plan, r.config.Title); err != nil {
		return nil, fmt.Errorf("drawing info bar: %w", err)
	}
	return img, nil
}

func (r *PlanRenderer) drawRow(img *image.RGBA, ann *annotator, plan *Plan, row Row, layout rowLayout, area image.Rectangle) error {
	// row separator
	for x := area.Min.X; x < area.Max.X; x++ {
		img.Set(x, area.Max.Y-1, colorGrid)
	}

	for i, c := range row.Carriers {
		x0 := area.Min.X + plan.X(c.StartKHz, area.Dx())
		x1 := area.Min.X + plan.X(c.EndKHz, area.Dx())
		if x1 <= x0 {
			x1 = x0 + 1
		}
		y0 := area.Min.Y + lanePad + layout.lanes[i]*laneHeight
		box := image.Rect(x0, y0+1, x1, y0+laneHeight-1)

		draw.Draw(img, box, &image.Uniform{C: carrierColor(c.DeliverySystem)}, image.Point{}, draw.Src)
		outline(img, box, color.Black)
		if c.Stream().Kind != channel.StreamNone {
			stripe := image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+3)
			draw.Draw(img, stripe, &image.Uniform{C: colorStream}, image.Point{}, draw.Src)
		}

		if err := ann.drawCarrierLabel(c, box); err != nil {
			return err
		}
	}
	return nil
}

func carrierColor(ds dvb.DeliverySystem) color.Color {
	switch ds {
	case dvb.SysDVBS:
		return colorDVBS
	case dvb.SysDVBS2:
		return colorDVBS2
	default:
		return colorUnknown
	}
}

func outline(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
	borders  BorderConfig
}

func newAnnotator(size float64, borders BorderConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		borders: borders,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    size,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawString(s string, pt fixed.Point26_6) error {
	_, err := a.context.DrawString(s, pt)
	return err
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, plan *Plan, width, plotHeight int) error {
	span := plan.FrequencyMaxKHz - plan.FrequencyMinKHz
	step := calculateNiceFrequencyStep(span, width)
	start := math.Ceil(plan.FrequencyMinKHz/step) * step
	textY := a.borders.Top - tickMarkHeight - a.fontHeight()/2

	for freq := start; freq <= plan.FrequencyMaxKHz; freq += step {
		x := a.borders.Left + plan.X(freq, width)

		for y := a.borders.Top - tickMarkHeight; y < a.borders.Top; y++ {
			img.Set(x, y, color.Black)
		}
		for y := a.borders.Top; y < a.borders.Top+plotHeight; y++ {
			img.Set(x, y, colorGrid)
		}

		label := formatFrequency(freq)
		w := font.MeasureString(a.fontFace, label)
		if err := a.drawString(label, freetype.Pt(x-w.Round()/2, textY)); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawRowLabel(row Row, area image.Rectangle) error {
	label := fmt.Sprintf("%s (%d)", row.Polarization, len(row.Carriers))
	y := area.Min.Y + area.Dy()/2 + a.fontHeight()/2 - a.fontFace.Metrics().Descent.Round()
	return a.drawString(label, freetype.Pt(10, y))
}

// drawCarrierLabel writes the carrier frequency inside its box when it fits.
func (a *annotator) drawCarrierLabel(c Carrier, box image.Rectangle) error {
	label := fmt.Sprintf("%d", (c.FrequencyKHz+500)/1000)
	w := font.MeasureString(a.fontFace, label).Ceil()
	if w+4 > box.Dx() {
		return nil
	}
	y := box.Min.Y + box.Dy()/2 + a.fontHeight()/2 - a.fontFace.Metrics().Descent.Round()
	return a.drawString(label, freetype.Pt(box.Min.X+(box.Dx()-w)/2, y))
}

func (a *annotator) drawInfoBar(img *image.RGBA, plan *Plan, title string) error {
	var sb strings.Builder

	if title != "" {
		sb.WriteString(title)
		sb.WriteString("; ")
	}
	sb.WriteString(fmt.Sprintf("Freq: %s - %s; Channels: %s",
		formatFrequency(plan.FrequencyMinKHz),
		formatFrequency(plan.FrequencyMaxKHz),
		humanize.Comma(int64(plan.Channels))))

	textY := img.Bounds().Max.Y - (a.borders.Bottom-a.fontHeight())/2 - a.fontFace.Metrics().Descent.Round()
	if err := a.drawString(sb.String(), freetype.Pt(a.borders.Left, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// calculateNiceFrequencyStep picks a 1-2-5 step in kHz that gives roughly
// one label per pixelsPerLabel pixels.
func calculateNiceFrequencyStep(spanKHz float64, width int) float64 {
	target := spanKHz / math.Max(float64(width)/pixelsPerLabel, 1)
	for magnitude := 1.0; magnitude <= 1e9; magnitude *= 10 {
		for _, m := range []float64{1, 2, 5} {
			if step := m * magnitude; step >= target {
				return step
			}
		}
	}
	return spanKHz / 2
}

func formatFrequency(kHz float64) string {
	return humanize.SIWithDigits(kHz*1e3, 4, "Hz")
}
