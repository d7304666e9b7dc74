// Package db caches fetched routes in SQLite so repeated trips between the
// same endpoints skip the routing service.
package db

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/deadreckon/internal/monitoring"
	"github.com/banshee-data/deadreckon/internal/timeutil"
)

type DB struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

// pragmas applied to every connection opened by NewDB.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// SetClock replaces the time source used for created_at and last_used_at.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

// NewDB opens (creating if needed) the SQLite database at path and brings
// its schema up to date.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps in-memory databases coherent and avoids
	// SQLITE_BUSY between our own writers.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	db := &DB{DB: sqlDB, path: path, clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// AttachAdminRoutes mounts tailsql and a backup endpoint under /debug/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Route cache",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Download a snapshot of the route cache", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("%s/routes-backup-%d.db", os.TempDir(), db.clock.Now().UnixNano())
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			monitoring.Logf("db backup failed: %v", err)
			http.Error(w, "backup failed", http.StatusInternalServerError)
			return
		}
		defer os.Remove(backupPath)

		w.Header().Set("Content-Type", "application/vnd.sqlite3")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=routes-%d.db", db.clock.Now().Unix()))
		http.ServeFile(w, r, backupPath)
	}))
	return nil
}
