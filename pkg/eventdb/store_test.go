package eventdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"camkeep/pkg/recid"
	"camkeep/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir())
}

func chunkFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var ids []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".data" {
			ids = append(ids, e.Name()[:chunkIDLength])
		}
	}
	return ids
}

func TestEventDBDedupIncrementsTime(t *testing.T) {
	s := newTestStore(t)
	db, err := s.Database("m1")
	require.NoError(t, err)

	require.NoError(t, db.Write(storage.Event{Time: 100, RecDuration: 1}))
	require.NoError(t, db.Write(storage.Event{Time: 100, RecDuration: 1}))
	require.NoError(t, db.Write(storage.Event{Time: 100, RecDuration: 1}))

	events, err := db.Query(100, 200, 0, Forward)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, recid.UnixNano(100), events[0].Time)
	require.Equal(t, recid.UnixNano(101), events[1].Time)
	require.Equal(t, recid.UnixNano(102), events[2].Time)

	// A point query over the original write time sees exactly one of the
	// deduplicated records.
	events, err = db.Query(100, 100, 0, Forward)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, recid.UnixNano(100), events[0].Time)
}

func TestEventDBPrune(t *testing.T) {
	s := newTestStore(t)

	day := int64(24 * 60 * 60 * int64(recid.Second))

	a, err := s.Database("A")
	require.NoError(t, err)
	require.NoError(t, a.Write(storage.Event{Time: 1, RecDuration: 1}))
	require.NoError(t, a.Write(storage.Event{Time: recid.UnixNano(2 * day), RecDuration: 1}))
	require.NoError(t, a.Write(storage.Event{Time: recid.UnixNano(3 * day), RecDuration: 1}))

	b, err := s.Database("B")
	require.NoError(t, err)
	require.NoError(t, b.Write(storage.Event{Time: recid.UnixNano(2 * day), RecDuration: 1}))
	require.NoError(t, b.Write(storage.Event{Time: recid.UnixNano(3 * day), RecDuration: 1}))
	require.NoError(t, b.Write(storage.Event{Time: recid.UnixNano(4 * day), RecDuration: 1}))

	require.ElementsMatch(t, []string{"00000", "00001", "00002"}, chunkFiles(t, a.dir))
	require.ElementsMatch(t, []string{"00001", "00002", "00003"}, chunkFiles(t, b.dir))

	require.NoError(t, s.Prune(recid.UnixNano(3*day)))

	require.ElementsMatch(t, []string{"00002"}, chunkFiles(t, a.dir))
	require.ElementsMatch(t, []string{"00002", "00003"}, chunkFiles(t, b.dir))

	_, err = os.Stat(a.dir)
	require.NoError(t, err)
	_, err = os.Stat(b.dir)
	require.NoError(t, err)
}

func TestEventDBQueryBackward(t *testing.T) {
	s := newTestStore(t)
	db, err := s.Database("m1")
	require.NoError(t, err)

	require.NoError(t, db.Write(storage.Event{Time: 10, RecDuration: 1}))
	require.NoError(t, db.Write(storage.Event{Time: 20, RecDuration: 1}))
	require.NoError(t, db.Write(storage.Event{Time: 30, RecDuration: 1}))

	events, err := db.Query(0, 30, 2, Backward)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, recid.UnixNano(30), events[0].Time)
	require.Equal(t, recid.UnixNano(20), events[1].Time)

	// An end bound between two records excludes everything above it.
	events, err = db.Query(0, 25, 0, Backward)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, recid.UnixNano(20), events[0].Time)
	require.Equal(t, recid.UnixNano(10), events[1].Time)

	// A start bound between two records excludes everything below it.
	events, err = db.Query(15, 30, 0, Backward)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, recid.UnixNano(30), events[0].Time)
	require.Equal(t, recid.UnixNano(20), events[1].Time)
}

func TestEventDBClosedAfterStoreClose(t *testing.T) {
	s := newTestStore(t)
	db, err := s.Database("m1")
	require.NoError(t, err)

	s.Close()

	require.ErrorIs(t, db.Write(storage.Event{Time: 1, RecDuration: 1}), ErrClosed)
	_, err = s.Database("m1")
	require.ErrorIs(t, err, ErrClosed)
}
