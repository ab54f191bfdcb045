package exposure

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// A Cache stores sweep results on disk, keyed by a hash of their inputs.
// A nil *Cache caches nothing.
type Cache struct {
	dir    string
	logger *zap.Logger
}

// NewCache returns a cache in dir. It returns nil if dir is empty.
func NewCache(dir string, logger *zap.Logger) *Cache {
	if dir == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{dir: dir, logger: logger}
}

type CacheKey struct {
	key string
}

// MakeCacheKey hashes args, which must be gob-encodable.
func MakeCacheKey(args ...any) CacheKey {
	h := sha256.New()

	enc := gob.NewEncoder(h)
	for _, arg := range args {
		if err := enc.Encode(arg); err != nil {
			panic("error encoding cache key: " + err.Error())
		}
	}

	return CacheKey{hex.EncodeToString(h.Sum(nil))}
}

func (ck CacheKey) String() string { return ck.key }

func (c *Cache) path(ck CacheKey) string {
	return filepath.Join(c.dir, ck.key)
}

// Load decodes the value saved under ck into out and reports whether it
// found one.
func (c *Cache) Load(ck CacheKey, out any) bool {
	if c == nil {
		return false
	}
	f, err := os.Open(c.path(ck))
	if err != nil {
		return false
	}
	defer f.Close()
	dec := gob.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		c.logger.Warn("ignoring corrupt cache entry", zap.String("key", ck.key), zap.Error(err))
		return false
	}
	return true
}

// Save saves val under ck. Failures are logged and otherwise ignored.
func (c *Cache) Save(ck CacheKey, val any) {
	if c == nil {
		return
	}
	if err := os.MkdirAll(c.dir, 0777); err != nil {
		c.logger.Warn("error creating cache directory", zap.String("dir", c.dir), zap.Error(err))
		return
	}
	// Write to a temporary file so a concurrent Load never sees a
	// partial entry.
	f, err := os.CreateTemp(c.dir, ck.key+".*.tmp")
	if err != nil {
		c.logger.Warn("error saving to cache", zap.Error(err))
		return
	}
	enc := gob.NewEncoder(f)
	err = enc.Encode(val)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(f.Name(), c.path(ck))
	}
	if err != nil {
		os.Remove(f.Name())
		c.logger.Warn("error saving to cache", zap.String("key", ck.key), zap.Error(err))
	}
}
