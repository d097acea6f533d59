package storage

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// ReportIndexFile is the entry page of every report folder
const ReportIndexFile = "index.html"

// GenerateReportFolderPath generates a consistent folder path for reports
// Format: YYYY/MM/DD/BalanceReport-YYYY-MM-DD-HH-MM-SS
func GenerateReportFolderPath(timestamp time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d/BalanceReport-%04d-%02d-%02d-%02d-%02d-%02d",
		timestamp.Year(), timestamp.Month(), timestamp.Day(),
		timestamp.Year(), timestamp.Month(), timestamp.Day(),
		timestamp.Hour(), timestamp.Minute(), timestamp.Second())
}

// CleanPath normalizes a storage path and rejects anything escaping the root
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	cleaned := path.Clean("/" + p)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty path %q", p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("path %q escapes storage root", p)
		}
	}
	return cleaned, nil
}

// GetContentType determines the MIME content type based on file extension
func GetContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain"
	case ".html":
		return "text/html"
	case ".css":
		return "text/css"
	case ".md":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// newestFirst sorts report folders so the latest timestamp comes first and applies limit
func newestFirst(folders []string, limit int) []string {
	sort.Sort(sort.Reverse(sort.StringSlice(folders)))
	if limit > 0 && limit < len(folders) {
		folders = folders[:limit]
	}
	return folders
}
