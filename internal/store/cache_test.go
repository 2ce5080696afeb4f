package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

func TestRawCacheLatest(t *testing.T) {
	c := NewRawCache(filepath.Join(t.TempDir(), "raw"))

	_, err := c.Latest()
	require.ErrorIs(t, err, ErrNoCachedBatch)

	first := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err = c.Save(CachedBatch{RunID: "a", Provenance: types.ProvenanceAPI, FetchedAt: first})
	require.NoError(t, err)
	second, err := c.Save(CachedBatch{
		RunID:      "b",
		Target:     "@alice",
		Provenance: types.ProvenanceBrowser,
		FetchedAt:  first.Add(time.Second),
		Payloads: []types.RawPayload{
			{"id": "1", "text": "hi", "likes": 3, "metrics": map[string]any{"likes": 4}},
		},
	})
	require.NoError(t, err)

	latest, err := c.Latest()
	require.NoError(t, err)
	require.Equal(t, second, latest)

	b, err := LoadBatch(latest)
	require.NoError(t, err)
	require.Equal(t, "b", b.RunID)
	require.Equal(t, types.ProvenanceBrowser, b.Provenance)
	require.Len(t, b.Payloads, 1)
	// JSON numbers come back as float64
	require.Equal(t, float64(3), b.Payloads[0]["likes"])
	require.Equal(t, map[string]any{"likes": float64(4)}, b.Payloads[0]["metrics"])
}
