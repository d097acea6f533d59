package server

import (
	"encoding/json"
	"net/http"

	"reebalance/internal/refresh"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// latestStatus is the poller status plus whether clients should show the
// error in place of the snapshot
type latestStatus struct {
	refresh.Status
	ErrorVisible bool `json:"showError"`
}

func latestResponse(st refresh.Status) latestStatus {
	return latestStatus{Status: st, ErrorVisible: st.ShowError()}
}
