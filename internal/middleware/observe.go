package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// LineAppender receives one formatted line per completed request.
type LineAppender interface {
	Append(line string)
}

// CompletionRecorder counts completed requests by status code.
type CompletionRecorder interface {
	RecordCompletion(statusCode int)
}

// Observe assigns each request an id and, once the handler chain returns,
// appends "<id> <method> <url> <status> <duration>ms" to lines and records
// the status with analytics, in that order. A panic escaping next is still
// accounted for before it continues to unwind.
func Observe(lines LineAppender, analytics CompletionRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			start := time.Now()
			rawURL := r.URL.RequestURI()

			rec := newStatusRecorder(w)
			r = r.WithContext(WithRequestID(r.Context(), id))

			defer func() {
				p := recover()

				lines.Append(fmt.Sprintf("%s %s %s %d %dms",
					id, r.Method, rawURL, rec.statusCode, time.Since(start).Milliseconds()))
				analytics.RecordCompletion(rec.statusCode)

				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
