package store

import (
	"context"
	"fmt"
)

// Options selects and configures a Store backend.
type Options struct {
	// Driver is postgres, sqlite or memory.
	Driver      string
	DatabaseURL string
	SQLitePath  string
	// AutoMigrate applies embedded migrations when opening Postgres.
	AutoMigrate bool
}

// Open returns the Store named by o.Driver.
func Open(ctx context.Context, o Options) (Store, error) {
	switch o.Driver {
	case "postgres":
		if o.DatabaseURL == "" {
			return nil, fmt.Errorf("open store: postgres requires a database url")
		}
		return OpenPostgres(ctx, o.DatabaseURL, o.AutoMigrate)
	case "sqlite", "":
		path := o.SQLitePath
		if path == "" {
			path = ".dare/dare.db"
		}
		return OpenSQLite(path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("open store: unknown driver %q", o.Driver)
	}
}
