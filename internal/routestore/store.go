package routestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var ErrNotFound = errors.New("route not found")

// Store is the persistence collaborator for routes. List returns routes in
// ascending id order, which is registration order.
type Store interface {
	List(ctx context.Context) ([]route.Route, error)
	Create(ctx context.Context, fields route.Fields) (route.Route, error)
	Update(ctx context.Context, id int64, fields route.Fields) (route.Route, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

// Open returns the Store for driver, connected with dsn.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverMySQL:
		return OpenMySQL(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func prepare(fields route.Fields) (route.Fields, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return route.Fields{}, err
	}
	return fields, nil
}

func notFound(id int64) error {
	return fmt.Errorf("%w: id %d", ErrNotFound, id)
}
