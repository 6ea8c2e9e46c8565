package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Echo is the response body for every request except /health.
type Echo struct {
	ID      string      `json:"id"`
	Backend string      `json:"backend"`
	Method  string      `json:"method"`
	Host    string      `json:"host"`
	URL     string      `json:"url"`
	Headers http.Header `json:"headers"`
	Body    string      `json:"body"`
}

func newEchoHandler(opts echoOptions, log *slog.Logger) http.Handler {
	status := opts.Status
	if status == 0 {
		status = http.StatusOK
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-r.Context().Done():
				log.Debug("client went away", "url", r.URL.RequestURI())
				return
			}
		}

		echo := Echo{
			ID:      uuid.NewString(),
			Backend: opts.Name,
			Method:  r.Method,
			Host:    r.Host,
			URL:     r.URL.RequestURI(),
			Headers: r.Header,
			Body:    string(body),
		}

		log.Info("request",
			slog.String("id", echo.ID),
			slog.String("method", r.Method),
			slog.String("url", echo.URL),
			slog.String("from", r.RemoteAddr))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(echo)
	})

	return mux
}
