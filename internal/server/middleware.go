package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"reebalance/internal/logger"
)

// recoveryLogger routes recovered panics into the structured logger
type recoveryLogger struct {
	log *logger.Logger
}

func (r recoveryLogger) Println(args ...interface{}) {
	r.log.Error("Recovered from panic in handler", fmt.Errorf("%s", fmt.Sprint(args...)))
}

// accessLog returns a formatter that writes one structured entry per request
func accessLog(log *logger.Logger) handlers.LogFormatter {
	return func(_ io.Writer, p handlers.LogFormatterParams) {
		log.Debug("HTTP request", map[string]interface{}{
			"method":   p.Request.Method,
			"path":     p.URL.Path,
			"status":   p.StatusCode,
			"size":     p.Size,
			"duration": time.Since(p.TimeStamp).String(),
		})
	}
}

// withMiddleware wraps h with access logging, panic recovery and CORS
func withMiddleware(h http.Handler, log *logger.Logger) http.Handler {
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: log}),
		handlers.PrintRecoveryStack(false),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, accessLog(log))
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
}
