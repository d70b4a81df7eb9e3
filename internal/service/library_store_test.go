package service

import (
	"context"
	"testing"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/pkg/code"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderRules(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, newTestService(t), "lib")

	_, err := store.CreateFolder(ctx, &domain.Folder{Title: "  "})
	assert.ErrorIs(t, err, code.ErrorTitleRequired)

	_, err = store.CreateFolder(ctx, &domain.Folder{Title: "orphan", ParentID: ptr(int64(42))})
	assert.ErrorIs(t, err, code.ErrorParentNotFound)

	root, err := store.CreateFolder(ctx, &domain.Folder{ID: 1, Title: "Docs"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), root)

	_, err = store.CreateFolder(ctx, &domain.Folder{ID: 1, Title: "Again"})
	assert.ErrorIs(t, err, code.ErrorFolderExists)

	child, err := store.CreateFolder(ctx, &domain.Folder{Title: "Sub", ParentID: ptr(root)})
	require.NoError(t, err)

	_, err = store.UpdateFolder(ctx, root, domain.FolderUpdate{ParentID: ptr(child)})
	assert.ErrorIs(t, err, code.ErrorParentCycle)
	_, err = store.UpdateFolder(ctx, root, domain.FolderUpdate{ParentID: ptr(root)})
	assert.ErrorIs(t, err, code.ErrorParentCycle)

	_, err = store.DeleteFolder(ctx, root)
	assert.ErrorIs(t, err, code.ErrorFolderNotEmpty)

	ok, err := store.UpdateFolder(ctx, child, domain.FolderUpdate{ClearParent: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DeleteFolder(ctx, root)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.DeleteFolder(ctx, root)
	assert.ErrorIs(t, err, code.ErrorFolderNotFound)
	_, err = store.UpdateFolder(ctx, 999, domain.FolderUpdate{Title: ptr("x")})
	assert.ErrorIs(t, err, code.ErrorFolderNotFound)

	roots, err := store.QueryFolder(ctx, domain.TreeFilter{RootOnly: true})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Sub", roots[0].Title)
}

func TestTagInUse(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, newTestService(t), "lib")

	tag, err := store.CreateTag(ctx, &domain.Tag{Title: "red"})
	require.NoError(t, err)
	fileID, err := store.CreateFile(ctx, &domain.File{Name: "a.txt", Tags: []int64{tag}})
	require.NoError(t, err)

	_, err = store.DeleteTag(ctx, tag)
	assert.ErrorIs(t, err, code.ErrorTagInUse)

	_, err = store.UpdateFile(ctx, fileID, domain.FileUpdate{Tags: &[]int64{}})
	require.NoError(t, err)
	ok, err := store.DeleteTag(ctx, tag)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, newTestService(t), "lib")

	folder, err := store.CreateFolder(ctx, &domain.Folder{Title: "Docs"})
	require.NoError(t, err)
	tag, err := store.CreateTag(ctx, &domain.Tag{Title: "t"})
	require.NoError(t, err)

	_, err = store.CreateFile(ctx, &domain.File{Name: ""})
	assert.ErrorIs(t, err, code.ErrorFileNameRequired)
	_, err = store.CreateFile(ctx, &domain.File{Name: "x", FolderID: ptr(int64(77))})
	assert.ErrorIs(t, err, code.ErrorFolderNotFound)
	_, err = store.CreateFile(ctx, &domain.File{Name: "x", Tags: []int64{tag, 88}})
	assert.ErrorIs(t, err, code.ErrorTagNotFound)

	in := &domain.File{
		Name:      "a.txt",
		CreatedAt: 1700000000000,
		Size:      5,
		Hash:      "abc",
		Notes:     ptr("note"),
		FolderID:  ptr(folder),
		Tags:      []int64{tag},
		Reference: ptr("https://example.com"),
		Path:      ptr("a.txt"),
	}
	id, err := store.CreateFile(ctx, in)
	require.NoError(t, err)

	got, err := store.GetFile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.CreatedAt, got.CreatedAt)
	assert.Equal(t, in.Size, got.Size)
	assert.Equal(t, in.Hash, got.Hash)
	assert.Equal(t, *in.Notes, *got.Notes)
	assert.Equal(t, folder, *got.FolderID)
	assert.Equal(t, []int64{tag}, got.Tags)
	assert.Equal(t, *in.Reference, *got.Reference)
	assert.Equal(t, *in.Path, *got.Path)
	assert.Positive(t, got.ImportedAt)

	zero, err := store.CreateFile(ctx, &domain.File{Name: "epoch.txt"})
	require.NoError(t, err)
	got, err = store.GetFile(ctx, zero)
	require.NoError(t, err)
	assert.Zero(t, got.CreatedAt)
	assert.Positive(t, got.ImportedAt)
	_, err = store.DeleteFile(ctx, zero, domain.DeleteFileOptions{})
	require.NoError(t, err)

	ok, err := store.DeleteFile(ctx, id, domain.DeleteFileOptions{HashOnly: true})
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = store.GetFile(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Hash)

	_, err = store.DeleteFolder(ctx, folder)
	assert.ErrorIs(t, err, code.ErrorFolderNotEmpty)

	_, err = store.UpdateFile(ctx, id, domain.FileUpdate{ClearFolder: true})
	require.NoError(t, err)
	got, err = store.GetFile(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.FolderID)

	ok, err = store.DeleteFile(ctx, id, domain.DeleteFileOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = store.DeleteFile(ctx, id, domain.DeleteFileOptions{HashOnly: true})
	assert.ErrorIs(t, err, code.ErrorFileNotFound)
	_, err = store.GetFile(ctx, id)
	assert.ErrorIs(t, err, code.ErrorFileNotFound)
}

func TestStoreQuery(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, newTestService(t), "lib")
	_, err := store.CreateFile(ctx, &domain.File{Name: "a.txt", Size: 3})
	require.NoError(t, err)

	rows, err := store.Query(ctx, "SELECT name FROM file")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a.txt", rows[0]["name"])

	_, err = store.Query(ctx, "DELETE FROM file")
	assert.ErrorIs(t, err, code.ErrorQueryReadOnly)

	_, err = store.Query(ctx, "SELECT * FROM missing_table")
	assert.ErrorIs(t, err, code.ErrorDBQuery)
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	store, err := svc.Open(ctx, domain.LibraryConfig{ID: "lib"})
	require.NoError(t, err)

	require.NoError(t, store.Close(ctx))
	require.NoError(t, store.Close(ctx))

	_, err = store.CreateFolder(ctx, &domain.Folder{Title: "x"})
	assert.ErrorIs(t, err, code.ErrorLibraryNotOpen)
	_, err = store.QueryTag(ctx, domain.TreeFilter{})
	assert.ErrorIs(t, err, code.ErrorLibraryNotOpen)
}
