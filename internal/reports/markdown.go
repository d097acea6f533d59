package reports

import (
	"fmt"
	"strings"
	"time"

	"reebalance/internal/dates"
	"reebalance/internal/display"
	"reebalance/internal/models"
	"reebalance/internal/stats"
)

const notAvailable = "N/D"

var sourceNotes = map[models.StatisticsSource]string{
	models.StatisticsFromPage:      "_Estadísticas calculadas con los registros de la página actual._",
	models.StatisticsFromFullRange: "_Estadísticas calculadas con todos los registros del periodo._",
}

func metricCell(p *float64, format func(float64) string) string {
	if p == nil {
		return notAvailable
	}
	return format(*p)
}

// SummaryMarkdown writes the period statistics, the latest snapshot and the
// generation mix as markdown. Sections without data are left out.
func SummaryMarkdown(in Input, loc *time.Location) string {
	var b strings.Builder
	writeStatistics(&b, in, loc)
	writeLatest(&b, in.Latest)
	writeShares(&b, in.Shares)
	return b.String()
}

func writeStatistics(b *strings.Builder, in Input, loc *time.Location) {
	b.WriteString("## Resumen del periodo\n\n")

	q := in.Query
	if q.Range.Valid() {
		fmt.Fprintf(b, "Del %s al %s · Escala: %s\n\n",
			dates.FormatDisplay(q.Range.Start, loc), dates.FormatDisplay(q.Range.End, loc), q.Scope.Label())
	} else {
		fmt.Fprintf(b, "%s\n\n", dates.ErrInvalidRange.Error())
	}

	summary := in.View.Statistics
	if summary == nil {
		b.WriteString("Sin estadísticas disponibles.\n\n")
		return
	}

	fmt.Fprintf(b, "Registros en el periodo: **%d**\n\n", summary.Count)
	b.WriteString("| Indicador | Media | Máximo | Mínimo |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	rows := []struct {
		label  string
		metric models.MetricSummary
		format func(float64) string
	}{
		{"Generación (MWh)", summary.Generation, display.Number},
		{"Demanda (MWh)", summary.Demand, display.Number},
		{"% Renovable", summary.RenewablePercentage, display.Percent},
	}
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n", r.label,
			metricCell(r.metric.Average, r.format),
			metricCell(r.metric.Max, r.format),
			metricCell(r.metric.Min, r.format))
	}
	b.WriteString("\n")

	if note, ok := sourceNotes[summary.Source]; ok {
		b.WriteString(note + "\n\n")
	}

	if len(in.View.Data) > 0 {
		page := stats.ComputeStatistics(in.View.Data)
		fmt.Fprintf(b, "En esta página: generación renovable media %s (%s del total), demanda media %s, máxima %s, mínima %s. Intercambio medio: %s.\n\n",
			display.MWh(page.RenewableMean), display.Percent(stats.CalculateRenewablePercentage(in.View.Data)),
			display.MWh(page.DemandMean), display.MWh(page.MaxDemand), display.MWh(page.MinDemand),
			display.BalanceText(page.ImportExportBalance))
	}
}

func writeLatest(b *strings.Builder, latest *models.LatestView) {
	if latest == nil {
		return
	}
	b.WriteString("## Último balance\n\n")
	fmt.Fprintf(b, "Actualizado: %s (%s)\n\n", latest.FormattedDate, latest.TimeScope)
	fmt.Fprintf(b, "- Generación total: %s\n", display.MWh(latest.TotalGeneration))
	fmt.Fprintf(b, "- Demanda total: %s\n", display.MWh(latest.TotalDemand))
	fmt.Fprintf(b, "- Renovable: %s\n", display.Percent(latest.RenewablePercentage))
	fmt.Fprintf(b, "- %s\n\n", latest.BalanceText)

	if len(latest.Generation) > 0 {
		b.WriteString("| Tecnología | Generación (MWh) | Cuota |\n")
		b.WriteString("|---|---:|---:|\n")
		for _, g := range latest.Generation {
			fmt.Fprintf(b, "| %s | %s | %s |\n", escapeCell(g.Name), display.Number(g.Value), display.Percent(g.Percentage))
		}
		b.WriteString("\n")
	}
}

func writeShares(b *strings.Builder, shares []models.GenerationShare) {
	if len(shares) == 0 {
		return
	}
	b.WriteString("## Distribución de la generación\n\n")
	b.WriteString("| Tecnología | Energía (MWh) | Cuota |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, s := range shares {
		fmt.Fprintf(b, "| %s | %s | %s |\n", escapeCell(s.Name), display.Number(s.Value), display.Percent(s.Percentage))
	}
	b.WriteString("\n")
}

// escapeCell keeps upstream names from breaking the table layout
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
