package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// ErrorAppender receives ERROR: lines.
type ErrorAppender interface {
	Errorf(format string, args ...any)
}

// Recover converts a panic in next into a 500 JSON response and one ERROR
// line. http.ErrAbortHandler is passed through so the server can abort the
// connection.
func Recover(logger *slog.Logger, lines ErrorAppender) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				id := RequestID(r.Context())
				lines.Errorf("%s Error: %v", id, p)
				logger.Error("Unhandled error while serving request",
					slog.String("request_id", id),
					slog.String("method", r.Method),
					slog.String("url", r.URL.RequestURI()),
					slog.String("panic", fmt.Sprint(p)),
					slog.String("stack", string(debug.Stack())))

				if hw, ok := w.(interface{ HeaderWritten() bool }); ok && hw.HeaderWritten() {
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
