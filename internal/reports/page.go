package reports

import (
	"html/template"
	"net/url"
	"strconv"
	"time"

	"reebalance/internal/balance"
	"reebalance/internal/charts"
	"reebalance/internal/config"
	"reebalance/internal/dates"
	"reebalance/internal/display"
	"reebalance/internal/models"
)

// PageData represents the data structure for the HTML template
type PageData struct {
	Title       string
	Subtitle    string
	Version     string
	GeneratedAt string
	CSS         string
	Content     template.HTML
	Error       string
	Loading     bool

	// Dashboard enables the filter form, retry button and navigation links
	Dashboard bool
	SelfURL   string
	Form      FormView

	Charts      []ChartFrame
	ChartImages []ChartImage
	Rows        []RowView
	Pagination  *PagerView
	ExportURL   string
}

// FormView pre-fills the dashboard filters
type FormView struct {
	Start   string
	End     string
	Scopes  []ScopeOption
	Presets []PresetLink
}

// ScopeOption is one entry of the time scope selector
type ScopeOption struct {
	Value    string
	Label    string
	Selected bool
}

// PresetLink applies a quick range
type PresetLink struct {
	Label string
	URL   string
}

// ChartFrame embeds an interactive chart page
type ChartFrame struct {
	ID    string
	Title string
	URL   string
}

// ChartImage shows a static chart stored next to the report
type ChartImage struct {
	Title string
	Src   string
}

// RowView is one formatted line of the records table
type RowView struct {
	Date                string
	Generation          string
	Renewable           string
	NonRenewable        string
	Demand              string
	Import              string
	Export              string
	RenewablePercentage string
}

// PagerView is the pagination bar; links are empty when not navigable
type PagerView struct {
	Page       int
	TotalPages int
	Total      int
	PrevURL    string
	NextURL    string
}

// QueryValues encodes q as dashboard URL parameters, dates as YYYY-MM-DD in loc
func QueryValues(q balance.Query, loc *time.Location) url.Values {
	v := url.Values{}
	if !q.Range.Start.IsZero() {
		v.Set("start", q.Range.Start.In(loc).Format(dates.InputLayout))
	}
	if !q.Range.End.IsZero() {
		v.Set("end", q.Range.End.In(loc).Format(dates.InputLayout))
	}
	if q.Scope != "" {
		v.Set("scope", string(q.Scope))
	}
	p := q.Pagination
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.OrderBy != "" {
		v.Set("orderBy", p.OrderBy)
	}
	if p.OrderDirection != "" {
		v.Set("orderDirection", string(p.OrderDirection))
	}
	return v
}

func link(path string, q balance.Query, loc *time.Location) string {
	return path + "?" + QueryValues(q, loc).Encode()
}

// NewRows formats records for the table
func NewRows(records []models.NormalizedRecord, loc *time.Location) []RowView {
	rows := make([]RowView, 0, len(records))
	for _, r := range records {
		rows = append(rows, RowView{
			Date:                dates.FormatDisplayWithTime(r.Date, loc),
			Generation:          display.Number(r.Generation.Total),
			Renewable:           display.Number(r.Generation.Renewable),
			NonRenewable:        display.Number(r.Generation.NonRenewable),
			Demand:              display.Number(r.Demand.Total),
			Import:              display.Number(r.Interchange.Import),
			Export:              display.Number(r.Interchange.Export),
			RenewablePercentage: display.Percent(r.RenewablePercentage),
		})
	}
	return rows
}

// NewPager builds the pagination bar, or nil when everything fits one page.
// pageURL may be nil for static pages.
func NewPager(meta *models.PaginationMeta, pageURL func(page int) string) *PagerView {
	if !meta.ShowControls() {
		return nil
	}
	pages := (meta.TotalCount + meta.PageSize - 1) / meta.PageSize
	pv := &PagerView{Page: meta.Page, TotalPages: pages, Total: meta.TotalCount}
	if pageURL != nil {
		if meta.HasPreviousPage && meta.Page > 1 {
			pv.PrevURL = pageURL(meta.Page - 1)
		}
		if meta.HasNextPage {
			pv.NextURL = pageURL(meta.Page + 1)
		}
	}
	return pv
}

func newForm(q balance.Query, now time.Time, loc *time.Location) FormView {
	f := FormView{}
	if !q.Range.Start.IsZero() {
		f.Start = q.Range.Start.In(loc).Format(dates.InputLayout)
	}
	if !q.Range.End.IsZero() {
		f.End = q.Range.End.In(loc).Format(dates.InputLayout)
	}
	for _, s := range models.TimeScopes {
		f.Scopes = append(f.Scopes, ScopeOption{Value: string(s), Label: s.Label(), Selected: s == q.Scope})
	}
	for _, p := range dates.Presets {
		pq := q
		pq.Range = dates.LastDays(now, p.Days, loc)
		pq.Pagination.Page = 1
		f.Presets = append(f.Presets, PresetLink{Label: p.Label, URL: link("/", pq, loc)})
	}
	return f
}

func basePage(in Input, generatedAt time.Time, loc *time.Location) PageData {
	subtitle := ""
	if in.Query.Range.Valid() {
		subtitle = dates.FormatDisplay(in.Query.Range.Start, loc) + " - " + dates.FormatDisplay(in.Query.Range.End, loc)
	}
	return PageData{
		Title:       "Balance eléctrico de España",
		Subtitle:    subtitle,
		Version:     config.GetVersion(),
		GeneratedAt: dates.FormatDisplayWithTime(generatedAt, loc),
		Error:       in.View.Error,
		Loading:     in.View.Loading,
		Rows:        NewRows(in.View.Data, loc),
	}
}

// BuildDashboard renders the live dashboard page for in
func (h *HTMLBuilder) BuildDashboard(in Input, now time.Time, loc *time.Location) (string, error) {
	q := in.Query
	data := basePage(in, now, loc)
	data.Dashboard = true
	data.SelfURL = link("/", q, loc)
	data.Form = newForm(q, now, loc)
	data.Pagination = NewPager(in.View.Pagination, func(page int) string {
		pq := q
		pq.Pagination.Page = page
		return link("/", pq, loc)
	})
	if in.View.HasData() {
		data.ExportURL = link("/export.csv", q, loc)
		params := QueryValues(q, loc).Encode()
		for _, s := range charts.Snippets("/charts") {
			data.Charts = append(data.Charts, ChartFrame{ID: s.ID, Title: s.Title, URL: s.Path + "?" + params})
		}
	}
	return h.BuildPage(data, SummaryMarkdown(in, loc))
}

// BuildReport renders a static report page; images are paths relative to the report folder
func (h *HTMLBuilder) BuildReport(in Input, images []ChartImage, generatedAt time.Time, loc *time.Location) (string, error) {
	data := basePage(in, generatedAt, loc)
	data.ChartImages = images
	data.Pagination = NewPager(in.View.Pagination, nil)
	return h.BuildPage(data, SummaryMarkdown(in, loc))
}
