package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/backend"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/requestlog"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

type seenRequest struct {
	Method string
	URI    string
	Body   string
	Header http.Header
}

var _ = Describe("Client", func() {
	var (
		client   *backend.Client
		lines    *requestlog.Logger
		log      *slog.Logger
		upstream *httptest.Server
		seen     chan seenRequest
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		lines = requestlog.New(requestlog.DefaultCapacity, nil)
		client = backend.New(2*time.Second, log, lines)
		seen = make(chan seenRequest, 1)

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			seen <- seenRequest{Method: r.Method, URI: r.URL.RequestURI(), Body: string(body), Header: r.Header.Clone()}
			w.Header().Set("X-Upstream", "yes")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("created"))
		}))
	})

	AfterEach(func() {
		upstream.Close()
	})

	Describe("New", func() {
		It("should default the timeout to 30 seconds", func() {
			Expect(backend.New(0, log, lines).Timeout()).To(Equal(30 * time.Second))
		})
	})

	Describe("Forward", func() {
		It("should preserve method, path, query and body", func() {
			rt := route.Route{ID: 1, Hostname: "a.example.com", TargetURL: upstream.URL}
			req := httptest.NewRequest(http.MethodPost, "http://a.example.com/items/7?verbose=1", strings.NewReader(`{"x":1}`))
			w := httptest.NewRecorder()

			client.Forward(w, req, rt)

			var got seenRequest
			Eventually(seen).Should(Receive(&got))
			Expect(got.Method).To(Equal(http.MethodPost))
			Expect(got.URI).To(Equal("/items/7?verbose=1"))
			Expect(got.Body).To(Equal(`{"x":1}`))
			Expect(got.Header.Get("X-Forwarded-Host")).To(Equal("a.example.com"))
		})

		It("should stream back status, headers and body unmodified", func() {
			rt := route.Route{ID: 1, Hostname: "a.example.com", TargetURL: upstream.URL}
			w := httptest.NewRecorder()

			client.Forward(w, httptest.NewRequest(http.MethodGet, "http://a.example.com/", nil), rt)

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(w.Header().Get("X-Upstream")).To(Equal("yes"))
			Expect(w.Body.String()).To(Equal("created"))
		})

		It("should append the original path to a target with a base path", func() {
			rt := route.Route{ID: 1, Hostname: "a.example.com", TargetURL: upstream.URL + "/base"}
			client.Forward(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://a.example.com/x", nil), rt)

			var got seenRequest
			Eventually(seen).Should(Receive(&got))
			Expect(got.URI).To(Equal("/base/x"))
		})

		It("should log the attempt and the upstream status", func() {
			rt := route.Route{ID: 1, Hostname: "a.example.com", TargetURL: upstream.URL}
			client.Forward(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://a.example.com/p", nil), rt)

			entries := lines.Entries()
			Expect(entries).To(HaveLen(2))
			Expect(entries[1].Message).To(HaveSuffix("Proxying request for a.example.com to " + upstream.URL + ": GET /p"))
			Expect(entries[0].Message).To(HaveSuffix("Received response from target " + upstream.URL + " for a.example.com: 201"))
		})

		Context("when the target is unreachable", func() {
			It("should answer 504 with a structured body", func() {
				ln, err := net.Listen("tcp", "127.0.0.1:0")
				Expect(err).NotTo(HaveOccurred())
				deadAddr := ln.Addr().String()
				Expect(ln.Close()).To(Succeed())

				rt := route.Route{ID: 1, Hostname: "a.example.com", TargetURL: "http://" + deadAddr}
				w := httptest.NewRecorder()
				client.Forward(w, httptest.NewRequest(http.MethodGet, "http://a.example.com/", nil), rt)

				Expect(w.Code).To(Equal(http.StatusGatewayTimeout))
				Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

				var body backend.GatewayError
				Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
				Expect(body.Error).To(Equal("Gateway Timeout"))
				Expect(body.Message).To(Equal("Failed to proxy request to http://" + deadAddr))
				Expect(body.Details).NotTo(BeEmpty())

				Expect(lines.Entries()[0].Message).To(HavePrefix("ERROR: "))
				Expect(lines.Entries()[0].Message).To(ContainSubstring("Proxy error for a.example.com"))
			})
		})

		Context("when the target is too slow", func() {
			It("should give up after the timeout with 504", func() {
				release := make(chan struct{})
				slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					select {
					case <-release:
					case <-r.Context().Done():
					}
				}))
				defer slow.Close()
				defer close(release)

				fast := backend.New(100*time.Millisecond, log, lines)
				rt := route.Route{ID: 1, Hostname: "a.example.com", TargetURL: slow.URL}
				w := httptest.NewRecorder()

				start := time.Now()
				fast.Forward(w, httptest.NewRequest(http.MethodGet, "http://a.example.com/", nil), rt)

				Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
				Expect(w.Code).To(Equal(http.StatusGatewayTimeout))
			})
		})

		Context("when the inbound client disconnects", func() {
			It("should abort the outbound request", func() {
				aborted := make(chan struct{})
				hanging := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					<-r.Context().Done()
					close(aborted)
				}))
				defer hanging.Close()

				ctx, cancel := context.WithCancel(context.Background())
				req := httptest.NewRequest(http.MethodGet, "http://a.example.com/", nil).WithContext(ctx)
				rt := route.Route{ID: 1, Hostname: "a.example.com", TargetURL: hanging.URL}

				done := make(chan struct{})
				go func() {
					defer close(done)
					client.Forward(httptest.NewRecorder(), req, rt)
				}()

				time.Sleep(50 * time.Millisecond)
				cancel()

				Eventually(aborted).Should(BeClosed())
				Eventually(done).Should(BeClosed())
			})
		})

		Context("when the target URL is malformed", func() {
			It("should answer 504 without dialing", func() {
				rt := route.Route{ID: 1, Hostname: "a.example.com", TargetURL: "::not-a-url"}
				w := httptest.NewRecorder()
				client.Forward(w, httptest.NewRequest(http.MethodGet, "http://a.example.com/", nil), rt)

				Expect(w.Code).To(Equal(http.StatusGatewayTimeout))
			})
		})
	})
})
