package routestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS routes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hostname TEXT NOT NULL,
	target_url TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_routes_hostname ON routes(hostname);`

// SQLiteStore persists routes in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dsn and ensures the
// routes table exists. A dsn such as "file:routes.db?_pragma=busy_timeout=5000"
// is passed through to the driver unchanged.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	initCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := db.PingContext(initCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(initCtx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]route.Route, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, hostname, target_url FROM routes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	out := []route.Route{}
	for rows.Next() {
		var r route.Route
		if err := rows.Scan(&r.ID, &r.Hostname, &r.TargetURL); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Create(ctx context.Context, fields route.Fields) (route.Route, error) {
	fields, err := prepare(fields)
	if err != nil {
		return route.Route{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO routes(hostname, target_url) VALUES(?, ?)`,
		fields.Hostname, fields.TargetURL)
	if err != nil {
		return route.Route{}, fmt.Errorf("insert route: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return route.Route{}, fmt.Errorf("insert route: %w", err)
	}

	return route.Route{ID: id, Hostname: fields.Hostname, TargetURL: fields.TargetURL}, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, fields route.Fields) (route.Route, error) {
	fields, err := prepare(fields)
	if err != nil {
		return route.Route{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE routes SET hostname = ?, target_url = ? WHERE id = ?`,
		fields.Hostname, fields.TargetURL, id)
	if err != nil {
		return route.Route{}, fmt.Errorf("update route %d: %w", id, err)
	}
	if err := expectOneRow(res, id); err != nil {
		return route.Route{}, err
	}

	return route.Route{ID: id, Hostname: fields.Hostname, TargetURL: fields.TargetURL}, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete route %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("route %d: %w", id, err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}
