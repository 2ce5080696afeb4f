package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

// CachedBatch is one fetched batch of raw payloads, kept for debugging and replay
type CachedBatch struct {
	RunID      string             `json:"run_id"`
	Target     string             `json:"target"`
	Provenance types.Provenance   `json:"provenance"`
	FetchedAt  time.Time          `json:"fetched_at"`
	Payloads   []types.RawPayload `json:"payloads"`
}

// ErrNoCachedBatch is returned by Latest when the cache is empty
var ErrNoCachedBatch = errors.New("no cached batch")

// RawCache writes fetched batches as timestamped JSON files in one directory
type RawCache struct {
	dir string
}

// NewRawCache returns a cache rooted at dir. The directory is created on first save.
func NewRawCache(dir string) *RawCache {
	return &RawCache{dir: dir}
}

// Dir returns the cache directory
func (c *RawCache) Dir() string {
	return c.dir
}

// Save writes b and returns the path of the new file
func (c *RawCache) Save(b CachedBatch) (string, error) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	// Fixed-width timestamps keep name order chronological
	name := b.FetchedAt.UTC().Format("20060102T150405.000000000") + "_" + string(b.Provenance) + ".json"
	path := filepath.Join(c.dir, name)

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal batch: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write batch: %w", err)
	}
	return path, nil
}

// Latest returns the path of the most recently saved batch
func (c *RawCache) Latest() (string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoCachedBatch
		}
		return "", err
	}

	// os.ReadDir sorts by name
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].IsDir() && filepath.Ext(entries[i].Name()) == ".json" {
			return filepath.Join(c.dir, entries[i].Name()), nil
		}
	}
	return "", ErrNoCachedBatch
}

// LoadBatch reads a batch written by Save
func LoadBatch(path string) (CachedBatch, error) {
	var b CachedBatch

	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("failed to read batch: %w", err)
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return b, nil
}
