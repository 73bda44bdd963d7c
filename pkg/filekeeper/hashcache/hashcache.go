// Package hashcache caches content digests keyed by path, size, and
// modification time, backed by Badger. A file that has not changed since
// its digest was computed is never re-hashed.
package hashcache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no digest is cached for the key.
var ErrNotFound = errors.New("digest not cached")

// DefaultTTL is how long a cached digest is retained. The key already
// embeds size and mtime, so the TTL only bounds store growth.
const DefaultTTL = 30 * 24 * time.Hour

// Cache is a persistent digest cache. It is safe for concurrent use.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens or creates a cache at the given directory.
func Open(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening hash cache: %w", err)
	}

	return &Cache{db: db, ttl: DefaultTTL}, nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}

// makeKey builds the cache key. Size and mtime are part of the key so a
// changed file naturally misses.
func makeKey(path string, size, mtimeNanos int64) []byte {
	return []byte(fmt.Sprintf("d1|%s|%d|%d", path, size, mtimeNanos))
}

// Get returns the cached digest for the file state, or ErrNotFound.
func (c *Cache) Get(path string, size, mtimeNanos int64) (string, error) {
	var digest string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(path, size, mtimeNanos))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			digest = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return digest, nil
}

// Put stores a digest for the file state.
func (c *Cache) Put(path string, size, mtimeNanos int64, digest string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(makeKey(path, size, mtimeNanos), []byte(digest)).
			WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

// Invalidate drops every cached digest for the given path, regardless of
// the size/mtime it was recorded under.
func (c *Cache) Invalidate(path string) error {
	return c.deletePrefix([]byte("d1|" + path + "|"))
}

// InvalidatePrefix drops cached digests for every path under the given
// directory prefix.
func (c *Cache) InvalidatePrefix(dir string) error {
	return c.deletePrefix([]byte("d1|" + dir))
}

func (c *Cache) deletePrefix(prefix []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}
