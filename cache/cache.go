/*
Package cache provides the filesystem-backed artifact cache for rendered
listing images.

The filesystem is the source of truth: there is no in-memory index, a file's
modification time is its freshness timestamp, and a periodic sweep removes
entries older than the retention window. Writes go to a temporary file and are
renamed into place so readers never observe a partial artifact.
*/
package cache

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/monitoring"
)

// ArtifactCache stores rendered images on disk keyed by listing id.
type ArtifactCache struct {
	dir           string
	retention     time.Duration
	sweepInterval time.Duration
	logger        *logrus.Logger
	quit          chan struct{}
}

// New creates an artifact cache rooted at dir, creating the directory if
// needed, and starts the background sweep loop.
func New(dir string, retention, sweepInterval time.Duration, logger *logrus.Logger) (*ArtifactCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %v", dir, err)
	}

	c := &ArtifactCache{
		dir:           dir,
		retention:     retention,
		sweepInterval: sweepInterval,
		logger:        logger,
		quit:          make(chan struct{}),
	}

	go c.sweepLoop()

	return c, nil
}

// Get returns the cached artifact for the listing id. A miss is not an
// error; it signals the artifact is not (yet) available.
func (c *ArtifactCache) Get(id string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(id))
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.WithFields(logrus.Fields{
				"listing_id": id,
				"error":      err.Error(),
			}).Error("Failed to read cached artifact")
		}
		monitoring.RecordCacheMiss("get_artifact")
		return nil, false
	}

	monitoring.RecordCacheHit("get_artifact")
	return data, true
}

// Put stores the artifact for the listing id. The write is atomic from a
// reader's point of view: the bytes land in a temp file that is renamed over
// the final name.
func (c *ArtifactCache) Put(id string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, "put-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %v", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close artifact: %v", err)
	}

	if err := os.Rename(tmp.Name(), c.path(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to publish artifact: %v", err)
	}

	monitoring.RecordCacheWrite(len(data))

	c.logger.WithFields(logrus.Fields{
		"listing_id": id,
		"bytes":      len(data),
	}).Debug("Cached rendered artifact")

	return nil
}

// Sweep removes every cache entry older than the retention window and
// returns the number of removed entries. It operates per-file and tolerates
// concurrent Put calls.
func (c *ArtifactCache) Sweep() int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.WithError(err).Error("Failed to read cache directory during sweep")
		return 0
	}

	cutoff := time.Now().Add(-c.retention)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			if !os.IsNotExist(err) {
				c.logger.WithFields(logrus.Fields{
					"file":  entry.Name(),
					"error": err.Error(),
				}).Warn("Failed to remove expired artifact")
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		monitoring.RecordCacheSweep(removed)
		c.logger.WithField("removed_count", removed).Info("Swept expired artifacts")
	}

	return removed
}

// Writable reports whether the cache directory accepts writes. Used by the
// readiness probe.
func (c *ArtifactCache) Writable() bool {
	tmp, err := os.CreateTemp(c.dir, "probe-*.tmp")
	if err != nil {
		return false
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return true
}

// Stop terminates the background sweep loop.
func (c *ArtifactCache) Stop() {
	close(c.quit)
}

// sweepLoop runs sweeps on the configured interval until Stop is called.
func (c *ArtifactCache) sweepLoop() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.quit:
			return
		}
	}
}

// path maps a listing id to its cache file. Ids are externally assigned and
// opaque, so the filename is a digest rather than the raw id.
func (c *ArtifactCache) path(id string) string {
	sum := md5.Sum([]byte(id))
	return filepath.Join(c.dir, fmt.Sprintf("%x.png", sum))
}

// EntryName reports the cache filename for a listing id, without the
// directory. Exposed for operational tooling and tests.
func EntryName(id string) string {
	sum := md5.Sum([]byte(id))
	return fmt.Sprintf("%x.png", sum)
}
