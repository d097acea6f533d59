package charts

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"reebalance/internal/dates"
	"reebalance/internal/display"
	"reebalance/internal/models"
	"reebalance/internal/stats"
)

var (
	generationColor   = drawing.Color{R: 51, G: 102, B: 204, A: 255}
	demandColor       = drawing.Color{R: 220, G: 57, B: 18, A: 255}
	renewableColor    = drawing.Color{R: 16, G: 150, B: 24, A: 255}
	nonRenewableColor = drawing.Color{R: 153, G: 153, B: 153, A: 255}
)

// maxTicks keeps category labels readable on long ranges
const maxTicks = 12

func titleStyle() chart.Style {
	return chart.Style{
		FontSize:  16,
		FontColor: drawing.ColorBlack,
	}
}

func padding() chart.Style {
	return chart.Style{
		Padding: chart.Box{
			Top:    50,
			Left:   20,
			Right:  20,
			Bottom: 20,
		},
	}
}

// valueRange pads [min, max] so flat series still get a drawable axis
func valueRange(values ...[]float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 0) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.1, 1)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func categoryTicks(labels []string) []chart.Tick {
	step := 1
	if len(labels) > maxTicks {
		step = int(math.Ceil(float64(len(labels)) / maxTicks))
	}
	ticks := make([]chart.Tick, 0, len(labels)/step+1)
	for i := 0; i < len(labels); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: labels[i]})
	}
	return ticks
}

func mwhFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return display.Number(math.Round(f))
	}
	return ""
}

// balancePNG draws generation and demand lines with renewable share on the secondary axis
func (cg *ChartGenerator) balancePNG(points []models.ChartPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: balance needs at least 2 points, got %d", ErrNotEnoughData, len(points))
	}

	xs := make([]float64, len(points))
	gen := make([]float64, len(points))
	dem := make([]float64, len(points))
	ren := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		gen[i] = p.Generation
		dem[i] = p.Demand
		ren[i] = p.Renewable
		labels[i] = p.Label
		if labels[i] == "" {
			labels[i] = fmt.Sprintf("Punto %d", i+1)
		}
	}

	graph := chart.Chart{
		Title:      Title(ChartBalance),
		TitleStyle: titleStyle(),
		Background: padding(),
		Width:      900,
		Height:     420,
		XAxis: chart.XAxis{
			Style: chart.Style{FontSize: 9},
			Ticks: categoryTicks(labels),
		},
		YAxis: chart.YAxis{
			Name:           "MWh",
			Style:          chart.Style{FontSize: 9},
			Range:          valueRange(gen, dem),
			ValueFormatter: mwhFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:  "% renovable",
			Style: chart.Style{FontSize: 9},
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Generación",
				Style:   chart.Style{StrokeColor: generationColor, StrokeWidth: 2},
				XValues: xs,
				YValues: gen,
			},
			chart.ContinuousSeries{
				Name:    "Demanda",
				Style:   chart.Style{StrokeColor: demandColor, StrokeWidth: 2},
				XValues: xs,
				YValues: dem,
			},
			chart.ContinuousSeries{
				Name:    "% Renovable",
				Style:   chart.Style{StrokeColor: renewableColor, StrokeWidth: 1, StrokeDashArray: []float64{4, 4}},
				YAxis:   chart.YAxisSecondary,
				XValues: xs,
				YValues: ren,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.LegendThin(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render balance chart: %w", err)
	}
	return buf.Bytes(), nil
}

// demandPNG draws total demand over time with the period peak and valley
func (cg *ChartGenerator) demandPNG(records []models.NormalizedRecord) ([]byte, error) {
	var times []time.Time
	var values []float64
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		times = append(times, r.Date)
		values = append(values, r.Demand.Total)
	}
	if len(times) < 2 {
		return nil, fmt.Errorf("%w: demand needs at least 2 dated records, got %d", ErrNotEnoughData, len(times))
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "Demanda",
			Style:   chart.Style{StrokeColor: demandColor, StrokeWidth: 2, DotColor: demandColor, DotWidth: 3},
			XValues: times,
			YValues: values,
		},
	}
	bounds := append([]float64(nil), values...)

	first, last := times[0], times[len(times)-1]
	if first.After(last) {
		first, last = last, first
	}
	ref := records[0].Demand
	if ref.Peak != nil {
		bounds = append(bounds, *ref.Peak)
		series = append(series, chart.TimeSeries{
			Name:    "Pico",
			Style:   chart.Style{StrokeColor: drawing.Color{R: 255, G: 0, B: 0, A: 160}, StrokeWidth: 1, StrokeDashArray: []float64{5, 5}},
			XValues: []time.Time{first, last},
			YValues: []float64{*ref.Peak, *ref.Peak},
		})
	}
	if ref.Valley != nil {
		bounds = append(bounds, *ref.Valley)
		series = append(series, chart.TimeSeries{
			Name:    "Valle",
			Style:   chart.Style{StrokeColor: drawing.Color{R: 0, G: 128, B: 255, A: 160}, StrokeWidth: 1, StrokeDashArray: []float64{5, 5}},
			XValues: []time.Time{first, last},
			YValues: []float64{*ref.Valley, *ref.Valley},
		})
	}

	graph := chart.Chart{
		Title:      Title(ChartDemand),
		TitleStyle: titleStyle(),
		Background: padding(),
		Width:      900,
		Height:     380,
		XAxis: chart.XAxis{
			Style: chart.Style{FontSize: 9},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return dates.FormatChartLabel(chart.TimeFromFloat64(f), cg.loc)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name:           "MWh",
			Style:          chart.Style{FontSize: 9},
			Range:          valueRange(bounds),
			ValueFormatter: mwhFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendThin(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render demand chart: %w", err)
	}
	return buf.Bytes(), nil
}

// renewablePNG stacks renewable and non-renewable generation per record
func (cg *ChartGenerator) renewablePNG(records []models.NormalizedRecord) ([]byte, error) {
	var total float64
	bars := make([]chart.StackedBar, 0, len(records))
	for i, r := range records {
		total += r.Generation.Total
		label := fmt.Sprintf("Punto %d", i+1)
		if !r.Date.IsZero() {
			label = dates.FormatChartLabel(r.Date, cg.loc)
		}
		bars = append(bars, chart.StackedBar{
			Name: label,
			Values: []chart.Value{
				{Label: "Renovable", Value: r.Generation.Renewable, Style: chart.Style{FillColor: renewableColor, StrokeColor: renewableColor}},
				{Label: "No renovable", Value: r.Generation.NonRenewable, Style: chart.Style{FillColor: nonRenewableColor, StrokeColor: nonRenewableColor}},
			},
		})
	}
	if len(bars) == 0 || total <= 0 {
		return nil, fmt.Errorf("%w: no generation to stack", ErrNotEnoughData)
	}

	spacing := 4
	if len(bars) > 40 {
		spacing = 1
	}
	graph := chart.StackedBarChart{
		Title:      Title(ChartRenewable),
		TitleStyle: titleStyle(),
		Background: padding(),
		Width:      900,
		Height:     380,
		BarSpacing: spacing,
		XAxis:      chart.Style{FontSize: 8},
		YAxis:      chart.Style{FontSize: 9},
		Bars:       bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render renewable chart: %w", err)
	}
	return buf.Bytes(), nil
}

// distributionPNG draws the generation mix as a pie
func (cg *ChartGenerator) distributionPNG(shares []models.GenerationShare) ([]byte, error) {
	var total float64
	values := make([]chart.Value, 0, len(shares))
	for _, s := range shares {
		if s.Value <= 0 {
			continue
		}
		total += s.Value
		color := parseColor(s.Color)
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%s)", s.Name, display.Percent(s.Percentage)),
			Value: s.Value,
			Style: chart.Style{FillColor: color, StrokeColor: drawing.ColorWhite},
		})
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: distribution is empty", ErrNotEnoughData)
	}

	pie := chart.PieChart{
		Title:      Title(ChartDistribution),
		TitleStyle: titleStyle(),
		Width:      600,
		Height:     600,
		Values:     values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render distribution chart: %w", err)
	}
	return buf.Bytes(), nil
}

// parseColor reads "#rrggbb", falling back to the default breakdown color
func parseColor(hex string) drawing.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 && len(hex) != 3 {
		hex = strings.TrimPrefix(stats.DefaultColor, "#")
	}
	return drawing.ColorFromHex(hex)
}
