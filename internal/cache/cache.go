// Package cache implements the content-addressed, TTL-aware local response
// cache backing the fetch layer. Entries are gzip payload files on disk
// indexed by a SQLite table carrying expiry metadata; expired entries are
// treated as absent and lazily evicted. An optional write-through mirrors
// payloads to the remote object-storage collaborator.
package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Remote is the write-through target. Put failures are logged, not fatal;
// the local cache remains authoritative for reads.
type Remote interface {
	Put(ctx context.Context, path string, data []byte, contentType string, compressed bool) (string, error)
}

// Cache is a TTL cache of fetched payloads, safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	db     *sql.DB
	dir    string
	remote Remote

	// MaxPayloadBytes caps the uncompressed size Set will store; larger
	// payloads are silently skipped. Zero means no limit. Set once at
	// startup, before concurrent use.
	MaxPayloadBytes int64
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key_hash   TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_expires_at ON entries(expires_at);
`

// Open creates or opens a cache rooted at dir. remote may be nil.
func Open(dir string, remote Remote) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "payloads"), 0o755); err != nil {
		return nil, eris.Wrap(err, "cache: create dir")
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, eris.Wrap(err, "cache: open index")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: migrate index")
	}

	return &Cache{db: db, dir: dir, remote: remote}, nil
}

// Close releases the index database.
func (c *Cache) Close() error { return c.db.Close() }

// Key derives the cache key: sha256 of the URL plus sorted query params.
func Key(url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached payload for key, or ok=false when absent or
// expired. Expired entries are evicted on the way out.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var path string
	var expiresAt time.Time
	err := c.db.QueryRowContext(ctx,
		"SELECT path, expires_at FROM entries WHERE key_hash = ?", key,
	).Scan(&path, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: lookup")
	}

	if time.Now().After(expiresAt) {
		if err := c.evict(ctx, key, path); err != nil {
			zap.L().Warn("cache: evict expired entry", zap.Error(err))
		}
		return nil, false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		// Index without payload; drop the dangling row.
		_ = c.evict(ctx, key, path)
		return nil, false, nil
	}
	defer f.Close() //nolint:errcheck

	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = c.evict(ctx, key, path)
		return nil, false, eris.Wrap(err, "cache: open payload")
	}
	defer zr.Close() //nolint:errcheck

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: read payload")
	}
	return data, true, nil
}

// Set stores the payload under key with the given TTL. TTL must be positive
// so that expires_at > created_at always holds.
func (c *Cache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return eris.New("cache: ttl must be positive")
	}
	if c.MaxPayloadBytes > 0 && int64(len(data)) > c.MaxPayloadBytes {
		zap.L().Debug("cache: payload over size cap, not stored",
			zap.String("key", key),
			zap.Int("bytes", len(data)),
		)
		return nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return eris.Wrap(err, "cache: compress payload")
	}
	if err := zw.Close(); err != nil {
		return eris.Wrap(err, "cache: compress payload")
	}

	path := filepath.Join(c.dir, "payloads", key+".gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrap(err, "cache: write payload")
	}

	now := time.Now().UTC()
	c.mu.Lock()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO entries (key_hash, path, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key_hash) DO UPDATE SET
			path = excluded.path,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, path, now, now.Add(ttl),
	)
	c.mu.Unlock()
	if err != nil {
		return eris.Wrap(err, "cache: index payload")
	}

	if c.remote != nil {
		remotePath := "fetch-cache/" + key + ".gz"
		if _, err := c.remote.Put(ctx, remotePath, buf.Bytes(), "application/gzip", true); err != nil {
			zap.L().Warn("cache: remote write-through failed",
				zap.String("path", remotePath),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Sweep evicts every expired entry and returns the count removed.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT key_hash, path FROM entries WHERE expires_at < ?", time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: sweep query")
	}
	defer rows.Close() //nolint:errcheck

	type stale struct{ key, path string }
	var expired []stale
	for rows.Next() {
		var s stale
		if err := rows.Scan(&s.key, &s.path); err != nil {
			return 0, eris.Wrap(err, "cache: sweep scan")
		}
		expired = append(expired, s)
	}
	if err := rows.Err(); err != nil {
		return 0, eris.Wrap(err, "cache: sweep rows")
	}

	removed := 0
	for _, s := range expired {
		if err := c.evict(ctx, s.key, s.path); err != nil {
			zap.L().Warn("cache: sweep evict", zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (c *Cache) evict(ctx context.Context, key, path string) error {
	c.mu.Lock()
	_, err := c.db.ExecContext(ctx, "DELETE FROM entries WHERE key_hash = ?", key)
	c.mu.Unlock()
	if err != nil {
		return eris.Wrap(err, "cache: delete index row")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "cache: remove payload")
	}
	return nil
}
