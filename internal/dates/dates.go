package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"reebalance/internal/models"
)

// Layouts shared by the API client, the exporters and the dashboard
const (
	APILayout             = "2006-01-02T15:04:05Z"
	DisplayLayout         = "02/01/2006"
	DisplayWithTimeLayout = "02/01/2006 15:04"
	FilenameLayout        = "20060102"
	InputLayout           = "2006-01-02"
)

// ErrInvalidRange is returned when a range is missing a bound or reversed
var ErrInvalidRange = errors.New("La fecha de inicio debe ser anterior a la fecha de fin")

// Preset is a named "last N days" range offered next to the date pickers
type Preset struct {
	Label string `json:"label"`
	Days  int    `json:"days"`
}

// Presets are the quick ranges offered by the dashboard
var Presets = []Preset{
	{Label: "Última semana", Days: 7},
	{Label: "Último mes", Days: 30},
	{Label: "Últimos 3 meses", Days: 90},
	{Label: "Último año", Days: 365},
}

// FormatForAPI renders an instant the way the balance API expects it.
// A zero time renders as the empty string.
func FormatForAPI(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(APILayout)
}

// StartOfDay is 00:00 of t's calendar date in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay is 23:59 of t's calendar date in loc
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, loc)
}

// DayRange spans from 00:00 of start's date to 23:59 of end's date, in UTC
func DayRange(start, end time.Time, loc *time.Location) models.DateRange {
	var r models.DateRange
	if !start.IsZero() {
		r.Start = StartOfDay(start, loc).UTC()
	}
	if !end.IsZero() {
		r.End = EndOfDay(end, loc).UTC()
	}
	return r
}

// LastDays returns the day range covering the last n days up to now
func LastDays(now time.Time, n int, loc *time.Location) models.DateRange {
	return DayRange(now.AddDate(0, 0, -n), now, loc)
}

// MonthsBack returns the day range starting n months before now
func MonthsBack(now time.Time, n int, loc *time.Location) models.DateRange {
	return DayRange(now.AddDate(0, -n, 0), now, loc)
}

// PresetRange resolves a preset by its day count
func PresetRange(now time.Time, days int, loc *time.Location) (models.DateRange, error) {
	for _, p := range Presets {
		if p.Days == days {
			return LastDays(now, days, loc), nil
		}
	}
	return models.DateRange{}, fmt.Errorf("unknown preset of %d days", days)
}

// ValidateRange reports ErrInvalidRange unless both bounds are set and ordered
func ValidateRange(r models.DateRange) error {
	if !r.Valid() {
		return ErrInvalidRange
	}
	return nil
}

// ParseInputRange parses two YYYY-MM-DD dates into a day range.
// Empty inputs leave the matching bound unset.
func ParseInputRange(start, end string, loc *time.Location) (models.DateRange, error) {
	var s, e time.Time
	var err error
	if start = strings.TrimSpace(start); start != "" {
		if s, err = time.ParseInLocation(InputLayout, start, loc); err != nil {
			return models.DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
		}
	}
	if end = strings.TrimSpace(end); end != "" {
		if e, err = time.ParseInLocation(InputLayout, end, loc); err != nil {
			return models.DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
		}
	}
	return DayRange(s, e, loc), nil
}

// timestampLayouts are the shapes seen in upstream timestamps
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an upstream timestamp; zone-less values are taken as UTC
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseOptional parses p, returning the zero time for nil or unparsable values
func ParseOptional(p *string) time.Time {
	if p == nil {
		return time.Time{}
	}
	t, err := ParseTimestamp(*p)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatDisplay renders dd/MM/yyyy in loc, or "" for the zero time
func FormatDisplay(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(DisplayLayout)
}

// FormatDisplayWithTime renders dd/MM/yyyy HH:mm in loc, or "" for the zero time
func FormatDisplayWithTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(DisplayWithTimeLayout)
}

var shortMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// FormatChartLabel renders "dd MMM" with Spanish month abbreviations
func FormatChartLabel(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%02d %s", t.Day(), shortMonths[t.Month()-1])
}

// FormatFilename renders yyyyMMdd in loc
func FormatFilename(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(FilenameLayout)
}
