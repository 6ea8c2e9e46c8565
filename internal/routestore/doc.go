// Package routestore persists routes. It is the only component that talks to a
// database; everything else reads routes through the Store interface.
//
// Three implementations are provided:
//   - MemoryStore keeps routes in process memory (tests, throwaway setups)
//   - SQLiteStore persists to a local SQLite file through modernc.org/sqlite
//   - MySQLStore persists to MySQL through gorm
//
// Every implementation validates route fields before writing and returns
// ErrNotFound when an update or delete names an id that does not exist.
package routestore
