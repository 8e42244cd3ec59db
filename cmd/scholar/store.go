package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/FranksOps/scholar/internal/storage"
	"github.com/FranksOps/scholar/internal/storage/jsonbackend"
	"github.com/FranksOps/scholar/internal/storage/postgres"
	"github.com/FranksOps/scholar/internal/storage/sqlite"
)

// openStore opens the backend named by dsn:
//
//	sqlite:<path>
//	json:<path>
//	postgres://... or postgresql://...
func openStore(ctx context.Context, dsn string) (storage.Backend, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.New(strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "json:"):
		return jsonbackend.New(strings.TrimPrefix(dsn, "json:"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.New(ctx, dsn)
	case dsn == "":
		return nil, fmt.Errorf("no store configured: pass --store or set storage.dsn")
	default:
		return nil, fmt.Errorf("unsupported store %q (want sqlite:, json: or postgres://)", dsn)
	}
}
