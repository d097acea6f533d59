// Package export writes normalized balance records as downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"reebalance/internal/dates"
	"reebalance/internal/display"
	"reebalance/internal/models"
)

// ErrNoData is returned when there are no records to export
var ErrNoData = errors.New("no data to export")

// Header is the fixed column set of the balance CSV
var Header = []string{
	"Fecha",
	"Generación Total (MWh)",
	"Generación Renovable (MWh)",
	"Generación No Renovable (MWh)",
	"Demanda Total (MWh)",
	"Importaciones (MWh)",
	"Exportaciones (MWh)",
	"Balance Intercambio (MWh)",
}

// ContentType of the CSV payload
const ContentType = "text/csv;charset=utf-8"

// Filename names the export after the selected range, in loc
func Filename(r models.DateRange, loc *time.Location) string {
	return fmt.Sprintf("balance-electrico-%s-%s.csv",
		dates.FormatFilename(r.Start, loc), dates.FormatFilename(r.End, loc))
}

// Row renders one record as CSV fields
func Row(rec models.NormalizedRecord, loc *time.Location) []string {
	return []string{
		dates.FormatDisplayWithTime(rec.Date, loc),
		display.Fixed(rec.Generation.Total, 2),
		display.Fixed(rec.Generation.Renewable, 2),
		display.Fixed(rec.Generation.NonRenewable, 2),
		display.Fixed(rec.Demand.Total, 2),
		display.Fixed(rec.Interchange.Import, 2),
		display.Fixed(rec.Interchange.Export, 2),
		display.Fixed(rec.Interchange.Import-rec.Interchange.Export, 2),
	}
}

// WriteCSV writes the header and one row per record. Nothing is written
// when records is empty.
func WriteCSV(w io.Writer, records []models.NormalizedRecord, loc *time.Location) error {
	if len(records) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, rec := range records {
		if err := cw.Write(Row(rec, loc)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV renders the export into memory
func CSV(records []models.NormalizedRecord, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records, loc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
