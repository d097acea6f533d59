package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"reebalance/internal/balance"
	"reebalance/internal/charts"
	"reebalance/internal/config"
	"reebalance/internal/dates"
	"reebalance/internal/export"
	"reebalance/internal/graphql"
	"reebalance/internal/models"
	"reebalance/internal/reports"
	"reebalance/internal/storage"
)

// currentView applies the request's inputs to the dashboard and waits for
// the fetches to settle. It writes a 400 and returns false on bad input.
func (s *Server) currentView(w http.ResponseWriter, r *http.Request) (balance.Query, models.ViewModel, bool) {
	q, err := s.parseQuery(r, s.baseQuery())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return q, models.ViewModel{}, false
	}

	s.Dashboard.Update(s.baseCtx, q)
	if err := s.Dashboard.Wait(r.Context()); err != nil {
		// the client went away; whatever is settled is still returned
		s.log.Debug("Stopped waiting for dashboard fetches", map[string]interface{}{"reason": err.Error()})
	}
	vm := s.Dashboard.ViewModel()
	if current, _ := s.Dashboard.Query(); !current.Equal(q) {
		// another client moved the dashboard meanwhile
		return q, s.aggregate(r, q), true
	}
	return q, vm, true
}

// requestView builds a private view for the request's inputs. The shared
// dashboard is left untouched, so the data always matches q.
func (s *Server) requestView(w http.ResponseWriter, r *http.Request) (balance.Query, models.ViewModel, bool) {
	q, err := s.parseQuery(r, s.baseQuery())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return q, models.ViewModel{}, false
	}
	return q, s.aggregate(r, q), true
}

func (s *Server) aggregate(r *http.Request, q balance.Query) models.ViewModel {
	vm, err := balance.Aggregate(r.Context(), s.Executor, q, s.viewOpts)
	if err != nil {
		s.log.Debug("Stopped waiting for request fetches", map[string]interface{}{"reason": err.Error()})
	}
	return vm
}

// shares fetches the generation mix for q. Failures only drop the section.
func (s *Server) shares(r *http.Request, q balance.Query, vm models.ViewModel) []models.GenerationShare {
	if !vm.HasData() {
		return nil
	}
	shares, err := balance.Distribution(r.Context(), s.Executor, q, vm.Data)
	if err != nil {
		s.log.Warn("Failed to load generation distribution", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return shares
}

// HandleRoot serves the dashboard page
func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	q, vm, ok := s.currentView(w, r)
	if !ok {
		return
	}

	in := reports.Input{
		Query:  q,
		View:   vm,
		Latest: s.Latest.Status().Data,
		Shares: s.shares(r, q, vm),
	}
	page, err := s.HTML.BuildDashboard(in, s.now(), s.loc)
	if err != nil {
		s.log.Error("Failed to render dashboard", err)
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

// HandleHealth provides health check endpoint
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	latest := "ok"
	if st := s.Latest.Status(); st.Data == nil {
		latest = "pending"
	} else if st.Error != "" {
		latest = "stale"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.GetVersion(),
		"checks": map[string]string{
			"storage": string(s.DeploymentMode),
			"latest":  latest,
		},
	})
}

// HandleBalance returns the dashboard view model for the requested inputs
func (s *Server) HandleBalance(w http.ResponseWriter, r *http.Request) {
	_, vm, ok := s.currentView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, vm)
}

// HandleRetry clears the dashboard error and refetches everything. Form
// posts carry a redirect target back to the page.
func (s *Server) HandleRetry(w http.ResponseWriter, r *http.Request) {
	s.Dashboard.Retry(s.baseCtx)

	if target, ok := safeRedirect(r.URL.Query().Get("redirect")); ok {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	if err := s.Dashboard.Wait(r.Context()); err != nil {
		s.log.Debug("Stopped waiting for retry", map[string]interface{}{"reason": err.Error()})
	}
	writeJSON(w, http.StatusOK, s.Dashboard.ViewModel())
}

// HandleNextPage moves the dashboard to the following page
func (s *Server) HandleNextPage(w http.ResponseWriter, r *http.Request) {
	s.movePage(w, r, s.Dashboard.NextPage)
}

// HandlePreviousPage moves the dashboard to the preceding page
func (s *Server) HandlePreviousPage(w http.ResponseWriter, r *http.Request) {
	s.movePage(w, r, s.Dashboard.PreviousPage)
}

func (s *Server) movePage(w http.ResponseWriter, r *http.Request, move func(ctx context.Context) bool) {
	if !move(s.baseCtx) {
		writeError(w, http.StatusConflict, "no such page")
		return
	}
	if err := s.Dashboard.Wait(r.Context()); err != nil {
		s.log.Debug("Stopped waiting for page change", map[string]interface{}{"reason": err.Error()})
	}
	writeJSON(w, http.StatusOK, s.Dashboard.ViewModel())
}

// HandleRecord returns one normalized record by id
func (s *Server) HandleRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	raw, err := graphql.FetchByID(r.Context(), s.Executor, id)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if raw == nil {
		writeError(w, http.StatusNotFound, "record "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, balance.Normalize(*raw, nil))
}

// HandleLatest returns the latest snapshot as last polled
func (s *Server) HandleLatest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, latestResponse(s.Latest.Status()))
}

// HandleLatestRefresh reloads the latest snapshot immediately
func (s *Server) HandleLatestRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.Latest.Refresh(r.Context()); err != nil {
		s.log.Warn("Manual refresh of latest snapshot failed", map[string]interface{}{"error": err.Error()})
	}
	writeJSON(w, http.StatusOK, latestResponse(s.Latest.Status()))
}

// HandleDistribution returns the generation mix of the requested range
func (s *Server) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	q, vm, ok := s.requestView(w, r)
	if !ok {
		return
	}
	shares, err := balance.Distribution(r.Context(), s.Executor, q, vm.Data)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

type presetResponse struct {
	Label string `json:"label"`
	Days  int    `json:"days"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// HandlePresets lists the quick ranges resolved against today
func (s *Server) HandlePresets(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	out := make([]presetResponse, 0, len(dates.Presets))
	for _, p := range dates.Presets {
		rng, err := dates.PresetRange(now, p.Days, s.loc)
		if err != nil {
			continue
		}
		out = append(out, presetResponse{
			Label: p.Label,
			Days:  p.Days,
			Start: rng.Start.In(s.loc).Format(dates.InputLayout),
			End:   rng.End.In(s.loc).Format(dates.InputLayout),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleExport downloads the current page of records as CSV
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	q, vm, ok := s.requestView(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, vm.Data, s.loc); err != nil {
		if errors.Is(err, export.ErrNoData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.log.Error("CSV export failed", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(q.Range, s.loc)+`"`)
	w.Write(buf.Bytes())
}

func (s *Server) chartInput(r *http.Request, name string, q balance.Query, vm models.ViewModel) reports.Input {
	in := reports.Input{Query: q, View: vm}
	if name == charts.ChartDistribution {
		in.Shares = s.shares(r, q, vm)
	}
	return in
}

func (s *Server) writeChartError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, charts.ErrUnknownChart):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, charts.ErrNotEnoughData):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error("Chart rendering failed", err, map[string]interface{}{"chart": name})
		writeError(w, http.StatusInternalServerError, "chart rendering failed")
	}
}

// HandleChartPNG renders one chart of the requested view as a PNG image
func (s *Server) HandleChartPNG(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	q, vm, ok := s.requestView(w, r)
	if !ok {
		return
	}
	img, err := s.Charts.RenderPNG(name, reports.ChartDataset(s.chartInput(r, name, q, vm), s.align, s.loc))
	if err != nil {
		s.writeChartError(w, name, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

// HandleChartHTML renders one chart of the requested view as an interactive page
func (s *Server) HandleChartHTML(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	q, vm, ok := s.requestView(w, r)
	if !ok {
		return
	}
	page, err := s.Charts.RenderHTML(name, reports.ChartDataset(s.chartInput(r, name, q, vm), s.align, s.loc))
	if err != nil {
		s.writeChartError(w, name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// HandleGenerate generates and stores a report of the requested view
func (s *Server) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	// Try to acquire the mutex - if already locked, return error immediately
	if !s.generateMutex.TryLock() {
		s.log.Warn("Report generation already in progress, rejecting new request", nil)
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":   "Report generation already in progress",
			"message": "Another report generation is currently running. Please wait for it to complete before starting a new one.",
			"status":  "conflict",
		})
		return
	}
	defer s.generateMutex.Unlock()

	q, vm, ok := s.requestView(w, r)
	if !ok {
		return
	}
	in := reports.Input{
		Query:  q,
		View:   vm,
		Latest: s.Latest.Status().Data,
		Shares: s.shares(r, q, vm),
	}

	result, err := s.Reports.GenerateCompleteReport(r.Context(), in)
	if err != nil {
		s.log.Error("Report generation failed", err)
		writeError(w, http.StatusInternalServerError, "Report generation failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type reportEntry struct {
	Folder string `json:"folder"`
	URL    string `json:"url"`
}

// HandleListReports lists recent reports
func (s *Server) HandleListReports(w http.ResponseWriter, r *http.Request) {
	// Get limit from query parameter (default 10)
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
		if limit > 100 {
			limit = 100 // Cap at 100
		}
	}

	folders, err := s.Storage.ListReports(r.Context(), limit)
	if err != nil {
		s.log.Error("Failed to list reports", err)
		writeError(w, http.StatusInternalServerError, "Failed to list reports: "+err.Error())
		return
	}

	entries := make([]reportEntry, 0, len(folders))
	for _, f := range folders {
		entries = append(entries, reportEntry{Folder: f, URL: "/files/" + f + "/" + storage.ReportIndexFile})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports":   entries,
		"count":     len(entries),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleFileProxy serves stored report files from local storage or GCS
func (s *Server) HandleFileProxy(w http.ResponseWriter, r *http.Request) {
	filePath, err := storage.CleanPath(mux.Vars(r)["path"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file path")
		return
	}

	fileData, err := s.Storage.GetFile(r.Context(), filePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		s.log.Error("Failed to get file from storage", err, map[string]interface{}{"path": filePath})
		writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	w.Header().Set("Content-Type", storage.GetContentType(filePath))
	w.Write(fileData)
}
