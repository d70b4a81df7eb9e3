package dao

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/haierkeys/fast-library-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDao(t *testing.T) *Dao {
	t.Helper()
	dir := t.TempDir()
	cfg := DatabaseConfig{Type: "sqlite", Path: filepath.Join(dir, "main.sqlite3"), LibraryDir: filepath.Join(dir, "library")}
	db, err := NewDBEngineWithConfig(cfg, nil)
	require.NoError(t, err)
	d := New(db, context.Background(), WithConfig(&cfg))
	t.Cleanup(func() {
		_ = d.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return d
}

func ptr[T any](v T) *T { return &v }

func TestLibraryDBPath(t *testing.T) {
	d := New(nil, context.Background(), WithConfig(&DatabaseConfig{Type: "sqlite", LibraryDir: "data"}))
	assert.Equal(t, filepath.Join("data", "library_a_b.sqlite3"), d.LibraryDBPath("a/b", ""))
	assert.Equal(t, filepath.Join("x", "library.sqlite3"), d.LibraryDBPath("a", "x"))
	assert.Equal(t, "x/lib.db", d.LibraryDBPath("a", "x/lib.db"))

	pg := New(nil, context.Background(), WithConfig(&DatabaseConfig{Type: "postgres", Name: "lib"}))
	assert.Equal(t, "lib_library-1", pg.LibraryDBPath("library-1", "ignored"))
}

func TestFolderRepositoryCRUD(t *testing.T) {
	d := newTestDao(t)
	ctx := context.Background()
	_, err := d.OpenLibraryDB("lib", "")
	require.NoError(t, err)

	repo := NewFolderRepository(d)
	root, err := repo.Create(ctx, &domain.Folder{ID: 5, Title: "Docs"}, "lib")
	require.NoError(t, err)
	assert.Equal(t, int64(5), root.ID)

	child, err := repo.Create(ctx, &domain.Folder{Title: "100% real_docs", ParentID: ptr(int64(5))}, "lib")
	require.NoError(t, err)
	assert.Greater(t, child.ID, int64(5))

	n, err := repo.CountChildren(ctx, 5, "lib")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := repo.List(ctx, domain.TreeFilter{RootOnly: true}, "lib")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Docs", list[0].Title)

	list, err = repo.List(ctx, domain.TreeFilter{Title: "0% real_"}, "lib")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, child.ID, list[0].ID)

	require.NoError(t, repo.Update(ctx, child.ID, domain.FolderUpdate{ClearParent: true, Title: ptr("Moved")}, "lib"))
	got, err := repo.GetByID(ctx, child.ID, "lib")
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
	assert.Equal(t, "Moved", got.Title)

	rows, err := repo.Delete(ctx, 999, "lib")
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestFileRepositoryTagsAndFilter(t *testing.T) {
	d := newTestDao(t)
	ctx := context.Background()
	_, err := d.OpenLibraryDB("lib", "")
	require.NoError(t, err)
	repo := NewFileRepository(d)

	a, err := repo.Create(ctx, &domain.File{Name: "a.txt", Size: 5, Tags: []int64{1, 12, 1}, Path: ptr("a.txt")}, "lib")
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.File{Name: "b.txt", Size: 9, Tags: []int64{2}}, "lib")
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, a.ID, "lib")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 12}, got.Tags)
	assert.Equal(t, "a.txt", *got.Path)
	assert.Nil(t, got.Notes)

	n, err := repo.CountByTag(ctx, 1, "lib")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	files, err := repo.List(ctx, domain.FileFilter{TagID: ptr(int64(2))}, "lib")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].Name)

	files, err = repo.List(ctx, domain.FileFilter{OrderBy: domain.FileOrderSize, Desc: true}, "lib")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "b.txt", files[0].Name)

	empty := []int64{}
	require.NoError(t, repo.Update(ctx, a.ID, domain.FileUpdate{Tags: &empty, Hash: ptr("abc")}, "lib"))
	got, err = repo.GetByID(ctx, a.ID, "lib")
	require.NoError(t, err)
	assert.Nil(t, got.Tags)
	assert.Equal(t, "abc", got.Hash)

	rows, err := repo.ClearHash(ctx, a.ID, "lib")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
}

func TestTagSetCodec(t *testing.T) {
	assert.Nil(t, EncodeTagSet(nil))
	assert.Equal(t, `["3","1"]`, *EncodeTagSet([]int64{3, 1, 3}))
	assert.Equal(t, []int64{3, 1}, DecodeTagSet(ptr(`["3",1,"x"]`)))
	assert.Nil(t, DecodeTagSet(ptr(`[]`)))
	assert.Nil(t, DecodeTagSet(ptr(`not json`)))
}

func TestNormalizeSelect(t *testing.T) {
	s, err := NormalizeSelect("  select * from file; ")
	require.NoError(t, err)
	assert.Equal(t, "select * from file", s)

	s, err = NormalizeSelect(`SELECT * FROM file WHERE name = 'a;b' OR notes = "c;d";`)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM file WHERE name = 'a;b' OR notes = "c;d"`, s)

	s, err = NormalizeSelect(`SELECT 'it''s; fine'`)
	require.NoError(t, err)
	assert.Equal(t, `SELECT 'it''s; fine'`, s)

	for _, bad := range []string{"", "delete from file", "select 1; drop table file", "selection", "UPDATE file SET name = 'x'",
		"select 'a'; drop table file", "select 'unterminated; drop table file"} {
		_, err := NormalizeSelect(bad)
		assert.ErrorIs(t, err, ErrNotReadOnly, bad)
	}
}

func TestQueryRepositorySelect(t *testing.T) {
	d := newTestDao(t)
	ctx := context.Background()
	_, err := d.OpenLibraryDB("lib", "")
	require.NoError(t, err)
	_, err = NewFileRepository(d).Create(ctx, &domain.File{Name: "a.txt", Size: 5}, "lib")
	require.NoError(t, err)

	rows, err := NewQueryRepository(d).Select(ctx, "SELECT name, size FROM file", "lib")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a.txt", rows[0]["name"])
	assert.EqualValues(t, 5, rows[0]["size"])
}

func TestLibraryRepositorySave(t *testing.T) {
	d := newTestDao(t)
	ctx := context.Background()
	repo := NewLibraryRepository(d)

	lib, err := repo.Save(ctx, &domain.Library{ID: "library-1", Name: "One", Config: map[string]any{"id": "library-1"}})
	require.NoError(t, err)
	created := lib.CreatedAt

	lib, err = repo.Save(ctx, &domain.Library{ID: "library-1", Name: "Renamed", Config: map[string]any{"id": "library-1"}})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", lib.Name)
	assert.Equal(t, "library-1", lib.Config["id"])
	assert.True(t, created.Equal(lib.CreatedAt))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
