package config

import (
	"os"
	"path/filepath"
	"strings"
)

// fallbackVersion is reported when neither APP_VERSION nor a VERSION file exist
const fallbackVersion = "0.1.0"

// GetVersion returns the version from APP_VERSION (set by CI/CD) or the VERSION file
func GetVersion() string {
	if envVersion := strings.TrimSpace(os.Getenv("APP_VERSION")); envVersion != "" {
		return envVersion
	}
	return readVersionFile(".", "..")
}

// readVersionFile returns the first VERSION file found in dirs
func readVersionFile(dirs ...string) string {
	for _, dir := range dirs {
		content, err := os.ReadFile(filepath.Join(dir, "VERSION"))
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(content)); v != "" {
			return v
		}
	}
	return fallbackVersion
}
