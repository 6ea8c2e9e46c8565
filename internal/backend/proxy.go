package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/middleware"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

const DefaultTimeout = 30 * time.Second

// LineAppender receives the per-forward log lines.
type LineAppender interface {
	Appendf(format string, args ...any)
	Errorf(format string, args ...any)
}

// GatewayError is the JSON body written when a forward fails.
type GatewayError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// Client forwards requests to route targets.
type Client struct {
	timeout   time.Duration
	transport http.RoundTripper
	logger    *slog.Logger
	lines     LineAppender
}

// New creates a Client whose forwards are bounded by timeout. A non-positive
// timeout falls back to DefaultTimeout.
func New(timeout time.Duration, logger *slog.Logger, lines LineAppender) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = timeout

	return &Client{
		timeout:   timeout,
		transport: transport,
		logger:    logger,
		lines:     lines,
	}
}

// Timeout returns the upper bound applied to every forward.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Forward sends r to rt's target and streams the response back to w. The
// outbound request is cancelled when the inbound client goes away or the
// timeout elapses, whichever comes first.
func (c *Client) Forward(w http.ResponseWriter, r *http.Request, rt route.Route) {
	id := middleware.RequestID(r.Context())

	target, err := url.Parse(rt.TargetURL)
	if err != nil || target.Host == "" {
		if err == nil {
			err = fmt.Errorf("target %q has no host", rt.TargetURL)
		}
		c.fail(w, r, rt, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	c.lines.Appendf("%s Proxying request for %s to %s: %s %s",
		id, rt.Hostname, rt.TargetURL, r.Method, r.URL.RequestURI())
	c.logger.Debug("Proxy options",
		slog.String("request_id", id),
		slog.String("route", rt.Hostname),
		slog.String("target", rt.TargetURL),
		slog.String("method", r.Method),
		slog.String("url", r.URL.RequestURI()))

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: c.transport,
		ModifyResponse: func(res *http.Response) error {
			c.lines.Appendf("%s Received response from target %s for %s: %d",
				id, rt.TargetURL, rt.Hostname, res.StatusCode)
			c.logger.Debug("Response details",
				slog.String("request_id", id),
				slog.String("route", rt.Hostname),
				slog.String("target", rt.TargetURL),
				slog.Int("status", res.StatusCode),
				slog.Any("headers", res.Header))
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			c.fail(w, req, rt, err)
		},
		ErrorLog: slog.NewLogLogger(c.logger.Handler(), slog.LevelError),
	}

	proxy.ServeHTTP(w, r.WithContext(ctx))
}

func (c *Client) fail(w http.ResponseWriter, r *http.Request, rt route.Route, err error) {
	id := middleware.RequestID(r.Context())

	c.lines.Errorf("%s Proxy error for %s to %s: %v", id, rt.Hostname, rt.TargetURL, err)
	c.logger.Error("Proxy error details",
		slog.String("request_id", id),
		slog.String("route", rt.Hostname),
		slog.String("target", rt.TargetURL),
		slog.Any("err", err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusGatewayTimeout)
	_ = json.NewEncoder(w).Encode(GatewayError{
		Error:   "Gateway Timeout",
		Message: "Failed to proxy request to " + rt.TargetURL,
		Details: err.Error(),
	})
}
