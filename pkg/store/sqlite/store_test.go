package sqlite

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/brainscan/pkg/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAndFetchScan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	contents := []byte("A = 1\n$END\n$END\n1 2\n\x00\xff")
	scan := &core.Scan{FileName: "05_E2", Contents: contents, GroupLabel: "groupA"}
	require.NoError(t, s.StoreScan(ctx, scan))

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), scan.ID)
	assert.False(t, scan.CreatedAt.IsZero())

	got, err := s.FetchScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, contents, got.Contents, "raw bytes must come back unchanged")
	assert.Equal(t, "05_E2", got.FileName)
	assert.Equal(t, "groupA", got.GroupLabel)
	assert.True(t, scan.CreatedAt.Equal(got.CreatedAt))
}

func TestFetchScanNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.FetchScan(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreScanValidation(t *testing.T) {
	s := openTestStore(t)

	err := s.StoreScan(context.Background(), &core.Scan{FileName: "x"})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestStoreScanDuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	scan := &core.Scan{ID: "fixed", FileName: "a", Contents: []byte("x"), GroupLabel: "g"}
	require.NoError(t, s.StoreScan(ctx, scan))

	dup := &core.Scan{ID: "fixed", FileName: "b", Contents: []byte("y"), GroupLabel: "g"}
	assert.Error(t, s.StoreScan(ctx, dup))
}

func TestFetchAllScans(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	scans, err := s.FetchAllScans(ctx)
	require.NoError(t, err)
	assert.Empty(t, scans)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, s.StoreScan(ctx, &core.Scan{
			FileName:   name,
			Contents:   []byte(name),
			GroupLabel: "g",
			CreatedAt:  base.Add(time.Duration(i) * 100 * time.Millisecond),
		}))
	}

	scans, err = s.FetchAllScans(ctx)
	require.NoError(t, err)
	require.Len(t, scans, 3)
	assert.Equal(t, "first", scans[0].FileName)
	assert.Equal(t, "second", scans[1].FileName)
	assert.Equal(t, "third", scans[2].FileName)
}

func TestClassifiers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.FetchClassifier(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rec := &core.ClassifierRecord{Name: "baseline", Type: "centroid", Serialized: []byte(`{"kind":"centroid"}`)}
	require.NoError(t, s.StoreClassifier(ctx, rec))
	require.NotEmpty(t, rec.ID)

	got, err := s.FetchClassifier(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.Type, got.Type)
	assert.Equal(t, rec.Serialized, got.Serialized)

	all, err := s.FetchAllClassifiers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Error(t, s.StoreClassifier(ctx, &core.ClassifierRecord{Name: "x", Type: "knn"}))
}

func TestStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	scan := &core.Scan{FileName: "a", Contents: []byte("x"), GroupLabel: "g"}
	require.NoError(t, s.StoreScan(ctx, scan))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.FetchScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got.Contents)
	assert.Equal(t, path, s.Path())
}
