package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/store"
)

// openStore connects to Postgres using store.database_url.
func openStore(ctx context.Context) (*store.PostgresStore, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("store: no database_url configured (set store.database_url or KRITIKOS_STORE_DATABASE_URL)")
	}
	return store.NewPostgres(ctx, dsn, nil)
}
