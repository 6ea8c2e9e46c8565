package routestore

import (
	"context"
	"sort"
	"sync"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

// MemoryStore is an in-process Store. Ids are assigned sequentially from 1.
type MemoryStore struct {
	mu     sync.RWMutex
	routes map[int64]route.Route
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		routes: make(map[int64]route.Route),
		nextID: 1,
	}
}

func (m *MemoryStore) List(_ context.Context) ([]route.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]route.Route, 0, len(m.routes))
	for _, r := range m.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Create(_ context.Context, fields route.Fields) (route.Route, error) {
	fields, err := prepare(fields)
	if err != nil {
		return route.Route{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := route.Route{ID: m.nextID, Hostname: fields.Hostname, TargetURL: fields.TargetURL}
	m.routes[r.ID] = r
	m.nextID++
	return r, nil
}

func (m *MemoryStore) Update(_ context.Context, id int64, fields route.Fields) (route.Route, error) {
	fields, err := prepare(fields)
	if err != nil {
		return route.Route{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.routes[id]; !ok {
		return route.Route{}, notFound(id)
	}
	r := route.Route{ID: id, Hostname: fields.Hostname, TargetURL: fields.TargetURL}
	m.routes[id] = r
	return r, nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.routes[id]; !ok {
		return notFound(id)
	}
	delete(m.routes, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
