package importer

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/haierkeys/fast-library-service/internal/dao"
	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacySchema = `
CREATE TABLE files (id INTEGER PRIMARY KEY, title TEXT, size INTEGER, date INTEGER, birthtime INTEGER, link TEXT, md5 TEXT);
CREATE TABLE folders (id INTEGER PRIMARY KEY, title TEXT, icon TEXT, "desc" TEXT, meta TEXT, parent INTEGER, ctime INTEGER);
CREATE TABLE tags (id INTEGER PRIMARY KEY, title TEXT, icon TEXT, "desc" TEXT, meta TEXT, parent INTEGER, ctime INTEGER);
CREATE TABLE url_meta (fid INTEGER, url TEXT);
CREATE TABLE desc_meta (fid INTEGER, "desc" TEXT);
CREATE TABLE folders_meta (fid INTEGER, ids TEXT);
CREATE TABLE tags_meta (fid INTEGER, ids TEXT);
`

// writeLegacyDB 生成旧版库文件
func writeLegacyDB(t *testing.T, stmts ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(legacySchema)
	require.NoError(t, err)
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return path
}

func TestReadSource(t *testing.T) {
	path := writeLegacyDB(t,
		`INSERT INTO folders (id, title, parent) VALUES (1, 'Docs', 0), (2, NULL, NULL)`,
		`INSERT INTO tags (id, title, parent, meta) VALUES (7, 'red', NULL, '{"color":1}')`,
		`INSERT INTO files (id, title, size, date, birthtime, link, md5) VALUES (10, 'a.txt', 5, 200, NULL, 'a.txt', 'ff')`,
		`INSERT INTO url_meta VALUES (10, 'https://example.com')`,
		`INSERT INTO desc_meta VALUES (10, 'hello')`,
		`INSERT INTO folders_meta VALUES (10, '1')`,
		`INSERT INTO tags_meta VALUES (10, 7)`,
	)

	data, err := ReadSource(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, data.Folders, 2)
	assert.Equal(t, SourceNode{ID: 1, Title: "Docs"}, data.Folders[0])
	assert.Equal(t, SourceNode{ID: 2}, data.Folders[1])
	require.Len(t, data.Tags, 1)
	assert.Equal(t, `{"color":1}`, data.Tags[0].Meta)
	require.Len(t, data.Files, 1)
	assert.Equal(t, SourceFile{ID: 10, Title: "a.txt", Size: 5, Date: 200, Link: "a.txt", MD5: "ff"}, data.Files[0])
	assert.Equal(t, []URLMeta{{FID: 10, URL: "https://example.com"}}, data.URLMeta)
	assert.Equal(t, []DescMeta{{FID: 10, Desc: "hello"}}, data.DescMeta)
	assert.Equal(t, []AssocMeta{{FID: 10, IDs: "1"}}, data.FoldersMeta)
	assert.Equal(t, []AssocMeta{{FID: 10, IDs: "7"}}, data.TagsMeta)
}

func TestReadSourceErrors(t *testing.T) {
	_, err := ReadSource(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorContains(t, err, "source database not found")
	_, err = ReadSource(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "is a directory")

	path := filepath.Join(t.TempDir(), "partial.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE files (id INTEGER PRIMARY KEY, title TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = ReadSource(context.Background(), path)
	assert.Error(t, err)
}

func TestImportIntoLibraryStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := dao.DatabaseConfig{Type: "sqlite", Path: filepath.Join(dir, "main.sqlite3"), LibraryDir: filepath.Join(dir, "library")}
	db, err := dao.NewDBEngineWithConfig(cfg, nil)
	require.NoError(t, err)
	svc := service.NewLibraryService(dao.New(db, ctx, dao.WithConfig(&cfg)))
	t.Cleanup(func() {
		_ = svc.Shutdown(ctx)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store, err := svc.Open(ctx, domain.LibraryConfig{ID: "library-1", Path: filepath.Join(dir, "target")})
	require.NoError(t, err)
	defer store.Close(ctx)

	path := writeLegacyDB(t,
		`INSERT INTO folders (id, title, parent) VALUES (1, 'Docs', 0)`,
		`INSERT INTO files (id, title, size, link) VALUES (10, 'a.txt', 5, 'a.txt')`,
		`INSERT INTO folders_meta VALUES (10, '1')`,
	)
	data, err := ReadSource(ctx, path)
	require.NoError(t, err)

	for run := 0; run < 2; run++ {
		_, err = NewPipeline(store, nil).Convert(ctx, data, DefaultOptions())
		require.NoError(t, err)
	}

	folders, err := store.QueryFolder(ctx, domain.TreeFilter{})
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "Docs", folders[0].Title)

	files, err := store.QueryFile(ctx, domain.FileFilter{})
	require.NoError(t, err)
	// 文件每次都会新建，重复导入会产生重复文件
	require.Len(t, files, 2)
	f := files[0]
	assert.Equal(t, folders[0].ID, *f.FolderID)
	assert.Empty(t, f.Hash)
	assert.Equal(t, "a.txt", *f.Path)
	assert.Equal(t, int64(5), f.Size)
}
