package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres persists entries in tile_cache, one row per (owner, idea, tile).
// A row written for different filters reads as a miss and is replaced on
// the next write.
type Postgres struct {
	DB  *sql.DB
	now func() time.Time
}

// OpenPostgres opens and pings a lib/pq connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgres returns a Postgres tier over db.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db, now: time.Now}
}

func (p *Postgres) Get(ctx context.Context, key Key) (Entry, error) {
	var (
		e    Entry
		hash string
	)
	err := p.DB.QueryRowContext(ctx, `
SELECT data, filters_hash, created_at, expires_at
FROM tile_cache
WHERE owner_key = $1 AND idea_text = $2 AND tile_type = $3 AND expires_at > $4
`, key.Owner, key.Idea, string(key.Tile), p.now()).Scan(&e.Data, &hash, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("select tile_cache: %w", err)
	}
	if hash != key.FiltersHash {
		return Entry{}, ErrMiss
	}
	return e, nil
}

func (p *Postgres) Set(ctx context.Context, key Key, e Entry) error {
	_, err := p.DB.ExecContext(ctx, `
INSERT INTO tile_cache (owner_key, idea_text, tile_type, filters_hash, data, created_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (owner_key, idea_text, tile_type) DO UPDATE SET
  filters_hash = EXCLUDED.filters_hash,
  data = EXCLUDED.data,
  created_at = EXCLUDED.created_at,
  expires_at = EXCLUDED.expires_at;
`, key.Owner, key.Idea, string(key.Tile), key.FiltersHash, e.Data, e.CreatedAt, e.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert tile_cache: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key Key) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM tile_cache WHERE owner_key = $1 AND idea_text = $2 AND tile_type = $3`, key.Owner, key.Idea, string(key.Tile)); err != nil {
		return fmt.Errorf("delete tile_cache: %w", err)
	}
	return nil
}

// PurgeExpired removes rows past their expiry and returns how many were deleted.
func (p *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM tile_cache WHERE expires_at <= $1`, p.now())
	if err != nil {
		return 0, fmt.Errorf("purge tile_cache: %w", err)
	}
	return res.RowsAffected()
}
