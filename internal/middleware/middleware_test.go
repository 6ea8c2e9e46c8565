package middleware_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/metrics"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/middleware"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/requestlog"
)

var _ = Describe("Middleware", func() {
	var (
		lines     *requestlog.Logger
		collector *metrics.Collector
		log       *slog.Logger
	)

	BeforeEach(func() {
		lines = requestlog.New(requestlog.DefaultCapacity, nil)
		collector = metrics.NewCollector()
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	Describe("Observe", func() {
		It("should log one completion line and count the request", func() {
			var seenID string
			h := middleware.Observe(lines, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenID = middleware.RequestID(r.Context())
				w.WriteHeader(http.StatusTeapot)
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/some/path?x=1", nil))

			Expect(seenID).NotTo(Equal("-"))
			Expect(lines.Entries()).To(HaveLen(1))
			Expect(lines.Entries()[0].Message).To(MatchRegexp(`^` + seenID + ` GET /some/path\?x=1 418 \d+ms$`))

			snap := collector.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(1)))
			Expect(snap.ErrorCount).To(Equal(int64(1)))
		})

		It("should record 200 when the handler only writes a body", func() {
			h := middleware.Observe(lines, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("ok"))
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(lines.Entries()[0].Message).To(ContainSubstring(" GET / 200 "))
			Expect(collector.Snapshot().ErrorCount).To(BeZero())
		})

		It("should assign distinct ids per request", func() {
			ids := map[string]bool{}
			h := middleware.Observe(lines, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ids[middleware.RequestID(r.Context())] = true
			}))

			for i := 0; i < 5; i++ {
				h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			}
			Expect(ids).To(HaveLen(5))
		})

		It("should still account for a request that aborts", func() {
			h := middleware.Observe(lines, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(http.ErrAbortHandler)
			}))

			Expect(func() {
				h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			}).To(PanicWith(http.ErrAbortHandler))
			Expect(collector.Snapshot().TotalRequests).To(Equal(int64(1)))
		})
	})

	Describe("Recover", func() {
		It("should answer 500 JSON and write one ERROR line", func() {
			chain := middleware.Observe(lines, collector)(
				middleware.Recover(log, lines)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					panic("boom")
				})))

			w := httptest.NewRecorder()
			chain.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/routes", nil))

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			var body map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("error", "Internal server error"))

			entries := lines.Entries()
			Expect(entries).To(HaveLen(2))
			Expect(entries[1].Message).To(MatchRegexp(`^ERROR: \S+ Error: boom$`))
			Expect(entries[0].Message).To(ContainSubstring(" POST /api/routes 500 "))
			Expect(collector.Snapshot().ErrorCount).To(Equal(int64(1)))
		})

		It("should re-panic http.ErrAbortHandler", func() {
			h := middleware.Recover(log, lines)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(http.ErrAbortHandler)
			}))

			Expect(func() {
				h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			}).To(PanicWith(http.ErrAbortHandler))
			Expect(lines.Len()).To(BeZero())
		})
	})

	Describe("CORS", func() {
		var called bool
		var h http.Handler

		BeforeEach(func() {
			called = false
			h = middleware.CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
		})

		It("should set CORS headers on every response", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/routes", nil))

			Expect(called).To(BeTrue())
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(w.Header().Get("Access-Control-Allow-Methods")).To(Equal("GET, POST, DELETE, OPTIONS"))
			Expect(w.Header().Get("Access-Control-Allow-Headers")).To(Equal("Content-Type"))
		})

		It("should answer preflight with an empty 200", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/routes", nil))

			Expect(called).To(BeFalse())
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.Len()).To(BeZero())
		})
	})

	Describe("RequestID", func() {
		It("should return a placeholder outside a request", func() {
			Expect(middleware.RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context())).To(Equal("-"))
		})
	})
})
