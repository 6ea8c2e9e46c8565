package registry

import (
	"time"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

// Snapshot is an immutable, ordered route set.
type Snapshot struct {
	routes   []route.Route
	loadedAt time.Time
}

func newSnapshot(routes []route.Route, loadedAt time.Time) *Snapshot {
	owned := make([]route.Route, len(routes))
	copy(owned, routes)
	return &Snapshot{routes: owned, loadedAt: loadedAt}
}

// Lookup returns the first route, in snapshot order, that matches host.
func (s *Snapshot) Lookup(host string) (route.Route, bool) {
	for _, r := range s.routes {
		if r.Matches(host) {
			return r, true
		}
	}
	return route.Route{}, false
}

// Routes returns a copy of the routes in snapshot order.
func (s *Snapshot) Routes() []route.Route {
	out := make([]route.Route, len(s.routes))
	copy(out, s.routes)
	return out
}

func (s *Snapshot) Len() int {
	return len(s.routes)
}

// LoadedAt is the time the snapshot was published; zero for the initial
// empty snapshot.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// shadowed returns routes whose hostname is already claimed by an earlier
// route and therefore never receive traffic.
func (s *Snapshot) shadowed() []route.Route {
	var out []route.Route
	for i, r := range s.routes {
		for _, earlier := range s.routes[:i] {
			if earlier.Matches(r.Hostname) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
