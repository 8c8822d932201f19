package group

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "monitorGroups.json"))
}

func TestStoreLoadMissingIsEmpty(t *testing.T) {
	s := newTestStore(t)
	doc, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, doc)
}

func TestStoreSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	doc := Document{
		"1": {ID: "1", Name: "one", Monitors: []string{"cam1", "cam2"}},
		"2": {ID: "2", Name: "two", Monitors: []string{"cam3"}},
	}
	require.NoError(t, s.Save(doc))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestStoreSaveLeavesNoTempFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(Document{"1": {ID: "1", Name: "one"}}))

	_, err := os.Stat(s.path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestStoreSet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("1", MonitorGroup{ID: "1", Name: "one", Monitors: []string{"cam1"}}))
	require.NoError(t, s.Set("2", MonitorGroup{ID: "2", Name: "two"}))

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc, 2)
	require.Equal(t, "one", doc["1"].Name)

	require.NoError(t, s.Set("1", MonitorGroup{ID: "1", Name: "renamed"}))
	doc, err = s.Load()
	require.NoError(t, err)
	require.Equal(t, "renamed", doc["1"].Name)
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("1", MonitorGroup{ID: "1", Name: "one"}))

	require.NoError(t, s.Delete("1"))

	doc, err := s.Load()
	require.NoError(t, err)
	require.NotContains(t, doc, "1")
}

func TestStoreDeleteNotExist(t *testing.T) {
	s := newTestStore(t)
	err := s.Delete("missing")
	require.ErrorIs(t, err, ErrGroupNotExist)
}

func TestEnsureParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "monitorGroups.json")

	require.NoError(t, EnsureParentDir(path))
	require.DirExists(t, filepath.Join(dir, "nested"))
}
