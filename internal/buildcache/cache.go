// Package buildcache stores encoded modules in a single bbolt file, keyed by the
// hash of the source they were compiled from.
package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/navmlang/navc/internal/core"
	"github.com/navmlang/navc/internal/utils"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
)

const (
	CACHE_FILE_NAME    = "build-cache.bbolt"
	BUILDCACHE_LOG_SRC = "buildcache"

	//changing the code generation or the module format requires incrementing this value.
	FORMAT_VERSION = "1"

	OPEN_TIMEOUT = time.Second
)

var (
	MODULES_BUCKET = []byte("modules")
	RECORDS_BUCKET = []byte("records")

	ErrCacheClosed     = errors.New("build cache is closed")
	ErrCorruptedRecord = errors.New("corrupted build cache record")
)

// Record describes a cached module, records are stored as JSON.
type Record struct {
	Key            string    `json:"key"`
	BuildID        ulid.ULID `json:"buildId"`
	SourcePath     string    `json:"sourcePath"`
	ModuleSize     int       `json:"moduleSize"`
	CompressedSize int       `json:"compressedSize"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Config struct {
	Path   string
	Logger zerolog.Logger
}

// Cache is a thin wrapper around a bbolt database, modules are compressed with zstd.
type Cache struct {
	db      *bbolt.DB
	path    string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  zerolog.Logger
}

func Open(config Config) (_ *Cache, finalErr error) {
	db, err := bbolt.Open(config.Path, 0600, &bbolt.Options{Timeout: OPEN_TIMEOUT})
	if err != nil {
		return nil, fmt.Errorf("failed to open build cache %s: %w", config.Path, err)
	}

	defer func() {
		if finalErr != nil {
			db.Close()
		}
	}()

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(MODULES_BUCKET); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(RECORDS_BUCKET)
		return err
	})
	if err != nil {
		return nil, err
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &Cache{
		db:      db,
		path:    config.Path,
		encoder: encoder,
		decoder: decoder,
		logger:  core.ChildLoggerForSource(config.Logger, BUILDCACHE_LOG_SRC),
	}, nil
}

// Key returns the cache key of a source file.
func Key(source []byte) string {
	hash := sha256.New()
	hash.Write([]byte(FORMAT_VERSION))
	hash.Write([]byte{0})
	hash.Write(source)
	return hex.EncodeToString(hash.Sum(nil))
}

func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) Close() error {
	c.logger.Debug().Msg("close build cache")

	c.decoder.Close()
	return utils.CombineErrors(c.encoder.Close(), c.db.Close())
}

// Get returns the module compiled from source if it is present in the cache.
func (c *Cache) Get(source []byte) (module []byte, record Record, found bool, finalErr error) {
	key := []byte(Key(source))

	finalErr = c.view(func(tx *bbolt.Tx) error {
		compressed := tx.Bucket(MODULES_BUCKET).Get(key)
		if compressed == nil {
			return nil
		}
		found = true

		if err := json.Unmarshal(tx.Bucket(RECORDS_BUCKET).Get(key), &record); err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptedRecord, err)
		}

		//the slice returned by Get is only valid during the transaction, DecodeAll copies it.
		decompressed, err := c.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptedRecord, err)
		}
		module = decompressed
		return nil
	})

	if finalErr != nil {
		return nil, Record{}, false, finalErr
	}

	c.logger.Debug().Str("key", string(key[:12])).Bool("hit", found).Msg("lookup")
	return
}

// Put stores the module compiled from source, an existing entry is replaced.
func (c *Cache) Put(sourcePath string, source []byte, module []byte, buildID ulid.ULID) (Record, error) {
	key := Key(source)
	compressed := c.encoder.EncodeAll(module, nil)

	record := Record{
		Key:            key,
		BuildID:        buildID,
		SourcePath:     sourcePath,
		ModuleSize:     len(module),
		CompressedSize: len(compressed),
		CreatedAt:      ulid.Time(buildID.Time()).UTC(),
	}

	serialized, err := json.Marshal(record)
	if err != nil {
		return Record{}, err
	}

	err = c.update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(MODULES_BUCKET).Put([]byte(key), compressed); err != nil {
			return err
		}
		return tx.Bucket(RECORDS_BUCKET).Put([]byte(key), serialized)
	})
	if err != nil {
		return Record{}, err
	}

	c.logger.Debug().
		Str(core.BUILD_LOG_FIELD_NAME, buildID.String()).
		Int("size", record.ModuleSize).
		Int("compressed", record.CompressedSize).
		Msg("module cached")

	return record, nil
}

// Records returns the records of all cached modules, oldest first.
func (c *Cache) Records() ([]Record, error) {
	var records []Record

	err := c.view(func(tx *bbolt.Tx) error {
		return tx.Bucket(RECORDS_BUCKET).ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("%w: key %s: %w", ErrCorruptedRecord, k, err)
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortRecords(records)
	return records, nil
}

// Clear removes all the cached modules and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	removed := 0

	err := c.update(func(tx *bbolt.Tx) error {
		removed = tx.Bucket(RECORDS_BUCKET).Stats().KeyN

		for _, name := range [][]byte{MODULES_BUCKET, RECORDS_BUCKET} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.logger.Debug().Int("removed", removed).Msg("build cache cleared")
	return removed, nil
}

func (c *Cache) view(fn func(tx *bbolt.Tx) error) error {
	err := c.db.View(fn)
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrCacheClosed
	}
	return err
}

func (c *Cache) update(fn func(tx *bbolt.Tx) error) error {
	err := c.db.Update(fn)
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrCacheClosed
	}
	return err
}
