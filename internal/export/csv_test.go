package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"reebalance/internal/models"
)

func sampleRecord() models.NormalizedRecord {
	rec := models.NormalizedRecord{
		ID:                  "r1",
		Date:                time.Date(2024, 6, 5, 12, 30, 0, 0, time.UTC),
		RenewablePercentage: 40,
	}
	rec.Generation.Total = 1000
	rec.Generation.Renewable = 400
	rec.Generation.NonRenewable = 600
	rec.Demand.Total = 912.5
	rec.Interchange.Balance = -150
	rec.Interchange.Export = 150
	return rec
}

func TestWriteCSV(t *testing.T) {
	noDate := models.NormalizedRecord{ID: "r2"}

	out, err := CSV([]models.NormalizedRecord{sampleRecord(), noDate}, time.UTC)
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}

	want := "Fecha,Generación Total (MWh),Generación Renovable (MWh),Generación No Renovable (MWh)," +
		"Demanda Total (MWh),Importaciones (MWh),Exportaciones (MWh),Balance Intercambio (MWh)\n" +
		"05/06/2024 12:30,1000.00,400.00,600.00,912.50,0.00,150.00,-150.00\n" +
		",0.00,0.00,0.00,0.00,0.00,0.00,0.00\n"
	if string(out) != want {
		t.Errorf("unexpected CSV:\n%s\nwant:\n%s", out, want)
	}
	if strings.Contains(string(out), "\r") {
		t.Error("lines must be separated by \\n only")
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, nil, time.UTC)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %q", buf.String())
	}
}

func TestFilename(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("loading zone: %v", err)
	}
	r := models.DateRange{
		// 2023-12-31T23:00Z is already January 1st in Madrid
		Start: time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 22, 59, 0, 0, time.UTC),
	}
	if got := Filename(r, madrid); got != "balance-electrico-20240101-20240131.csv" {
		t.Errorf("unexpected filename %q", got)
	}
}
