package charts

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"reebalance/internal/dates"
	"reebalance/internal/models"
)

// ChartSnippet describes an interactive chart page that reports embed
type ChartSnippet struct {
	ID    string
	Title string
	Path  string
}

// Snippets lists the interactive chart pages served under base
func Snippets(base string) []ChartSnippet {
	out := make([]ChartSnippet, 0, len(Names))
	for _, name := range Names {
		out = append(out, ChartSnippet{
			ID:    "chart-" + name,
			Title: Title(name),
			Path:  fmt.Sprintf("%s/%s.html", base, name),
		})
	}
	return out
}

func initOpts(name string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: Title(name),
		Theme:     types.ThemeWesteros,
		Width:     "900px",
		Height:    "420px",
		ChartID:   "chart-" + name,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RenderHTML renders one chart as a standalone interactive page
func (cg *ChartGenerator) RenderHTML(name string, ds Dataset) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch name {
	case ChartBalance:
		err = cg.balanceLine(ds.Points).Render(&buf)
	case ChartDemand:
		err = cg.demandLine(ds.Records).Render(&buf)
	case ChartRenewable:
		err = cg.renewableBar(ds.Records).Render(&buf)
	case ChartDistribution:
		err = cg.distributionPie(ds.Shares).Render(&buf)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (cg *ChartGenerator) balanceLine(points []models.ChartPoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(ChartBalance),
		charts.WithTitleOpts(opts.Title{
			Title:    Title(ChartBalance),
			Subtitle: "MWh y % de generación renovable",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MWh"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "%", Min: 0, Max: 100})

	labels := make([]string, len(points))
	gen := make([]opts.LineData, len(points))
	dem := make([]opts.LineData, len(points))
	ren := make([]opts.LineData, len(points))
	for i, p := range points {
		labels[i] = p.Label
		gen[i] = opts.LineData{Value: round2(p.Generation)}
		dem[i] = opts.LineData{Value: round2(p.Demand)}
		ren[i] = opts.LineData{Value: round2(p.Renewable)}
	}

	line.SetXAxis(labels).
		AddSeries("Generación", gen).
		AddSeries("Demanda", dem).
		AddSeries("% Renovable", ren, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1})).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: true}))
	return line
}

func (cg *ChartGenerator) demandLine(records []models.NormalizedRecord) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts(ChartDemand),
		charts.WithTitleOpts(opts.Title{Title: Title(ChartDemand)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MWh"}),
	)

	var labels []string
	var demand, peak, valley []opts.LineData
	for i, r := range records {
		label := fmt.Sprintf("Punto %d", i+1)
		if !r.Date.IsZero() {
			label = dates.FormatChartLabel(r.Date, cg.loc)
		}
		labels = append(labels, label)
		demand = append(demand, opts.LineData{Value: round2(r.Demand.Total)})
		if r.Demand.Peak != nil {
			peak = append(peak, opts.LineData{Value: round2(*r.Demand.Peak)})
		}
		if r.Demand.Valley != nil {
			valley = append(valley, opts.LineData{Value: round2(*r.Demand.Valley)})
		}
	}

	line.SetXAxis(labels).AddSeries("Demanda", demand)
	if len(peak) == len(records) && len(peak) > 0 {
		line.AddSeries("Pico", peak)
	}
	if len(valley) == len(records) && len(valley) > 0 {
		line.AddSeries("Valle", valley)
	}
	return line
}

func (cg *ChartGenerator) renewableBar(records []models.NormalizedRecord) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(ChartRenewable),
		charts.WithTitleOpts(opts.Title{Title: Title(ChartRenewable)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MWh"}),
	)

	labels := make([]string, len(records))
	ren := make([]opts.BarData, len(records))
	non := make([]opts.BarData, len(records))
	for i, r := range records {
		labels[i] = fmt.Sprintf("Punto %d", i+1)
		if !r.Date.IsZero() {
			labels[i] = dates.FormatChartLabel(r.Date, cg.loc)
		}
		ren[i] = opts.BarData{Value: round2(r.Generation.Renewable)}
		non[i] = opts.BarData{Value: round2(r.Generation.NonRenewable)}
	}

	bar.SetXAxis(labels).
		AddSeries("Renovable", ren, charts.WithBarChartOpts(opts.BarChart{Stack: "generation"})).
		AddSeries("No renovable", non, charts.WithBarChartOpts(opts.BarChart{Stack: "generation"}))
	return bar
}

func (cg *ChartGenerator) distributionPie(shares []models.GenerationShare) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		initOpts(ChartDistribution),
		charts.WithTitleOpts(opts.Title{Title: Title(ChartDistribution)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Orient: "vertical", Left: "left", Top: "middle"}),
	)

	data := make([]opts.PieData, 0, len(shares))
	for _, s := range shares {
		data = append(data, opts.PieData{
			Name:      s.Name,
			Value:     round2(s.Value),
			ItemStyle: &opts.ItemStyle{Color: s.Color},
		})
	}

	pie.AddSeries("Generación", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: true, Formatter: "{b}: {d}%"}),
			charts.WithPieChartOpts(opts.PieChart{Radius: []string{"35%", "70%"}}),
		)
	return pie
}
