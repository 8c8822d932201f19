package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeRecording creates an empty recording directory at
// root/YYYY/MM/DD/<monitor>/<id> for the given recording id.
func makeRecording(t *testing.T, root, id, monitor string) {
	t.Helper()
	year, month, day := id[0:4], id[5:7], id[8:10]
	dir := filepath.Join(root, year, month, day, monitor, id)
	require.NoError(t, os.MkdirAll(dir, 0o700))
}

func idsOf(recs []CrawledRecording) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

// TestCrawlerOrdering reproduces the worked example of a tree with ids
// 2000-01-01_01-01-11_m1, 2000-01-01_01-01-22_m1, 2000-01-02_01-01-11_m1,
// 2000-02-01_01-01-11_m1, 2099-01-01_01-01-11_m1, all under monitor m1.
func TestCrawlerOrdering(t *testing.T) {
	root := t.TempDir()
	ids := []string{
		"2000-01-01_01-01-11_m1",
		"2000-01-01_01-01-22_m1",
		"2000-01-02_01-01-11_m1",
		"2000-02-01_01-01-11_m1",
		"2099-01-01_01-01-11_m1",
	}
	for _, id := range ids {
		makeRecording(t, root, id, "m1")
	}
	c := NewCrawler(root)

	t.Run("exactMatchSteppedBack", func(t *testing.T) {
		recs, err := c.Crawl(CrawlerQuery{
			RecordingID: "2000-01-01_01-01-22_m1",
			Limit:       1,
			Reverse:     false,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"2000-01-01_01-01-11_m1"}, idsOf(recs))
	})

	t.Run("beyondEverythingWalksBackward", func(t *testing.T) {
		recs, err := c.Crawl(CrawlerQuery{
			RecordingID: "9999-01-01_00-00-00_m1",
			Limit:       5,
			Reverse:     false,
		})
		require.NoError(t, err)
		require.Equal(t, []string{
			"2099-01-01_01-01-11_m1",
			"2000-02-01_01-01-11_m1",
			"2000-01-02_01-01-11_m1",
			"2000-01-01_01-01-22_m1",
			"2000-01-01_01-01-11_m1",
		}, idsOf(recs))
	})

	t.Run("reverseWalksForward", func(t *testing.T) {
		recs, err := c.Crawl(CrawlerQuery{
			RecordingID: "1999-01-01_00-00-00_m1",
			Limit:       5,
			Reverse:     true,
		})
		require.NoError(t, err)
		require.Equal(t, ids, idsOf(recs))
	})
}

func TestCrawlerMonitorFilter(t *testing.T) {
	root := t.TempDir()
	makeRecording(t, root, "2000-01-01_01-01-11_m1", "m1")
	makeRecording(t, root, "2000-01-01_01-01-22_m2", "m2")
	makeRecording(t, root, "2000-01-01_01-01-33_m1", "m1")
	c := NewCrawler(root)

	recs, err := c.Crawl(CrawlerQuery{
		RecordingID: "9999-01-01_00-00-00_m1",
		Limit:       10,
		Monitors:    []string{"m1"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		"2000-01-01_01-01-33_m1",
		"2000-01-01_01-01-11_m1",
	}, idsOf(recs))
}

func TestCrawlerInvalidValue(t *testing.T) {
	c := NewCrawler(t.TempDir())
	_, err := c.Crawl(CrawlerQuery{RecordingID: "short", Limit: 1})
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestCrawlerEmptyTree(t *testing.T) {
	c := NewCrawler(t.TempDir())
	recs, err := c.Crawl(CrawlerQuery{RecordingID: "2000-01-01_00-00-00_m1", Limit: 5})
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestCrawlerIncludeData(t *testing.T) {
	root := t.TempDir()
	makeRecording(t, root, "2000-01-01_01-01-11_m1", "m1")
	dataPath := filepath.Join(root, "2000", "01", "01", "m1", "2000-01-01_01-01-11_m1.json")
	require.NoError(t, os.WriteFile(dataPath,
		[]byte(`{"start":1,"end":2,"events":[{"time":1,"rec_duration":1000000000}]}`), 0o600))

	c := NewCrawler(root)
	recs, err := c.Crawl(CrawlerQuery{
		RecordingID: "9999-01-01_00-00-00_m1",
		Limit:       1,
		IncludeData: true,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Data)
	require.Len(t, recs[0].Data.Events, 1)
}
