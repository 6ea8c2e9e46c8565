package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

// FallthroughConfig configures the handlers tried when no route matches.
// Empty fields disable the corresponding step.
type FallthroughConfig struct {
	StaticDir      string
	UpstreamPrefix string
	UpstreamURL    string
	DebugPrefix    string
}

// Fallthrough tries, in order: an existing static file, the fixed upstream
// mount, the debug echo mount, and finally 404.
type Fallthrough struct {
	static         http.FileSystem
	files          http.Handler
	upstreamPrefix string
	upstream       http.Handler
	debugPrefix    string
}

func NewFallthrough(cfg FallthroughConfig, proxy Forwarder) *Fallthrough {
	f := &Fallthrough{}

	if cfg.StaticDir != "" {
		f.static = http.Dir(cfg.StaticDir)
		f.files = http.FileServer(f.static)
	}

	if cfg.UpstreamPrefix != "" && cfg.UpstreamURL != "" {
		f.upstreamPrefix = strings.TrimSuffix(cfg.UpstreamPrefix, "/")
		target := cfg.UpstreamURL
		f.upstream = http.StripPrefix(f.upstreamPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			proxy.Forward(w, r, route.Route{Hostname: route.StripPort(r.Host), TargetURL: target})
		}))
	}

	if cfg.DebugPrefix != "" {
		f.debugPrefix = strings.TrimSuffix(cfg.DebugPrefix, "/")
	}

	return f
}

func (f *Fallthrough) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case f.hasStaticFile(r):
		f.files.ServeHTTP(w, r)
	case f.upstream != nil && underPrefix(r.URL.Path, f.upstreamPrefix):
		f.upstream.ServeHTTP(w, r)
	case f.debugPrefix != "" && underPrefix(r.URL.Path, f.debugPrefix):
		serveDebug(w, r, f.debugPrefix)
	default:
		http.NotFound(w, r)
	}
}

func (f *Fallthrough) hasStaticFile(r *http.Request) bool {
	if f.static == nil {
		return false
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	name := path.Clean("/" + r.URL.Path)
	file, err := f.static.Open(name)
	if err != nil {
		return false
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}

	index, err := f.static.Open(path.Join(name, "index.html"))
	if err != nil {
		return false
	}
	index.Close()
	return true
}

func underPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// DebugEcho is the body returned by the debug mount.
type DebugEcho struct {
	Hostname string      `json:"hostname"`
	Headers  http.Header `json:"headers"`
	URL      string      `json:"url"`
	Method   string      `json:"method"`
	Body     any         `json:"body"`
}

// maxDebugBody caps the body the debug mount reads.
const maxDebugBody = 1 << 20

func serveDebug(w http.ResponseWriter, r *http.Request, prefix string) {
	uri := strings.TrimPrefix(r.URL.RequestURI(), prefix)
	if uri == "" || uri[0] != '/' {
		uri = "/" + uri
	}

	body, err := readDebugBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDebugError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeDebugError(w, http.StatusBadRequest, err.Error())
		return
	}

	echo := DebugEcho{
		Hostname: route.StripPort(r.Host),
		Headers:  r.Header,
		URL:      uri,
		Method:   r.Method,
		Body:     body,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(echo); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeDebugError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// readDebugBody parses JSON bodies, returns anything else as a string and an
// empty body as {}.
func readDebugBody(w http.ResponseWriter, r *http.Request) (any, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDebugBody))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err == nil {
			return parsed, nil
		}
	}
	return string(raw), nil
}
