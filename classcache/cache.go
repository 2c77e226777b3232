// Package classcache persists native-method descriptors (and no other
// class metadata) across interpreter restarts, keyed by a SHA-256 content
// hash of the class name and method signature — the same
// hash-the-normalized-content idiom compiler/hash.HashMethod uses to
// content-address a compiled method, applied here to an ABI descriptor
// instead of a compiled method body. modernc.org/sqlite backs the store
// of record; wire.NativeDescriptor is the CBOR-serialized payload shape.
package classcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chazu/classvm/interp"
	"github.com/chazu/classvm/wire"
)

// Cache is a sqlite-backed store of resolved native-method descriptors,
// so a process restart does not need to re-walk every native method's
// descriptor string before its first call.
type Cache struct {
	db *sql.DB
}

// Key identifies one cached descriptor: a class name, method name, and
// JVM descriptor string hashed together.
type Key struct {
	Class  string
	Method string
	Spec   string
}

// hash computes the SHA-256 content hash of a Key, the cache's primary
// key, mirroring compiler/hash's "hash the normalized content, not an
// incrementing id" convention.
func (k Key) hash() [32]byte {
	return sha256.Sum256([]byte(k.Class + "\x00" + k.Method + "\x00" + k.Spec))
}

// Open creates (if absent) the descriptor table in the sqlite database
// at path and returns a Cache over it.
func Open(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("classcache: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS native_descriptors (
	hash BLOB PRIMARY KEY,
	class TEXT NOT NULL,
	method TEXT NOT NULL,
	spec TEXT NOT NULL,
	descriptor BLOB NOT NULL
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("classcache: migrate %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying sqlite connection.
func (c *Cache) Close() error { return c.db.Close() }

// Put stores nd's ABI shape under key, overwriting any prior entry with
// the same hash.
func (c *Cache) Put(ctx context.Context, key Key, nd *interp.NativeDescriptor) error {
	wnd := wire.FromNativeDescriptor(nd)
	payload, err := wire.MarshalNativeDescriptor(&wnd)
	if err != nil {
		return fmt.Errorf("classcache: marshal descriptor for %s.%s%s: %w", key.Class, key.Method, key.Spec, err)
	}
	h := key.hash()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO native_descriptors (hash, class, method, spec, descriptor)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET descriptor = excluded.descriptor`,
		h[:], key.Class, key.Method, key.Spec, payload)
	if err != nil {
		return fmt.Errorf("classcache: put %s.%s%s: %w", key.Class, key.Method, key.Spec, err)
	}
	return nil
}

// Get returns the cached ABI shape for key, or ok=false if absent. The
// returned descriptor's Func is always zero: a raw function pointer from
// a prior process is meaningless in this one, so NativeResolver must
// still re-resolve the symbol; only the parsed ABI shape is reused.
func (c *Cache) Get(ctx context.Context, key Key) (nd *interp.NativeDescriptor, ok bool, err error) {
	h := key.hash()
	row := c.db.QueryRowContext(ctx,
		`SELECT descriptor FROM native_descriptors WHERE hash = ?`, h[:])
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("classcache: get %s.%s%s: %w", key.Class, key.Method, key.Spec, err)
	}
	wnd, err := wire.UnmarshalNativeDescriptor(payload)
	if err != nil {
		return nil, false, fmt.Errorf("classcache: unmarshal %s.%s%s: %w", key.Class, key.Method, key.Spec, err)
	}
	tags := make([]interp.Tag, len(wnd.ParamTags))
	for i, t := range wnd.ParamTags {
		tags[i] = interp.Tag(t)
	}
	return &interp.NativeDescriptor{
		ParamTags:    tags,
		ArgTableSize: wnd.ArgTableSize,
		ReturnCode:   interp.ReturnCode(wnd.ReturnCode),
		Fast:         wnd.Fast,
	}, true, nil
}
