package importer

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/haierkeys/fast-library-service/pkg/code"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1700000000000)

func testOptions(max int) Options {
	return Options{MaxItems: max, Now: func() time.Time { return fixedNow }}
}

func TestConvertDocsScenario(t *testing.T) {
	store := newMemStore()
	src := &SourceData{
		Folders:     []SourceNode{{ID: 1, Title: "Docs", Parent: 0}},
		Files:       []SourceFile{{ID: 10, Title: "a.txt", Size: 5, Link: "a.txt", MD5: "deadbeef"}},
		FoldersMeta: []AssocMeta{{FID: 10, IDs: "1"}},
	}

	res, err := NewPipeline(store, nil).Convert(context.Background(), src, testOptions(-1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Folders)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, res.Total)

	require.Len(t, store.folders, 1)
	require.Len(t, store.files, 1)
	folderID, ok := res.FolderIDs.Resolve(1)
	require.True(t, ok)

	f := store.files[0]
	assert.Equal(t, "a.txt", f.Name)
	assert.Equal(t, folderID, *f.FolderID)
	assert.Empty(t, f.Hash)
	assert.Equal(t, "a.txt", *f.Path)
	assert.Equal(t, fixedNow.UnixMilli(), f.ImportedAt)
	assert.Nil(t, f.Tags)
	assert.Nil(t, f.Notes)
	assert.Nil(t, f.Reference)
}

func TestConvertIsIdempotentForFoldersAndTags(t *testing.T) {
	store := newMemStore()
	src := &SourceData{
		Folders: []SourceNode{{ID: 1, Title: "Root"}, {ID: 2, Title: "Child", Parent: 1}},
		Tags:    []SourceNode{{ID: 5, Title: "red"}},
	}
	p := NewPipeline(store, nil)

	_, err := p.Convert(context.Background(), src, testOptions(-1))
	require.NoError(t, err)
	src.Folders[0].Title = "Renamed"
	res, err := p.Convert(context.Background(), src, testOptions(-1))
	require.NoError(t, err)

	assert.Len(t, store.folders, 2)
	assert.Len(t, store.tags, 1)
	assert.Equal(t, "Renamed", store.folders[1].Title)
	assert.Equal(t, int64(1), *store.folders[2].ParentID)
	id, ok := res.FolderIDs.Resolve(2)
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)
}

func TestConvertParentTranslation(t *testing.T) {
	store := newMemStore()
	src := &SourceData{
		// 子节点先于父节点出现时父节点尚未翻译，按根节点处理
		Folders: []SourceNode{{ID: 3, Title: "early child", Parent: 4}, {ID: 4, Title: "parent"}, {ID: 5, Title: "late child", Parent: 4}},
	}
	_, err := NewPipeline(store, nil).Convert(context.Background(), src, testOptions(-1))
	require.NoError(t, err)
	assert.Nil(t, store.folders[3].ParentID)
	assert.Equal(t, int64(4), *store.folders[5].ParentID)
}

func TestConvertFileAssociations(t *testing.T) {
	store := newMemStore()
	src := &SourceData{
		Folders: []SourceNode{{ID: 1, Title: "one"}, {ID: 2, Title: "two"}},
		Tags:    []SourceNode{{ID: 1, Title: "t1"}, {ID: 3, Title: "t3"}},
		Files: []SourceFile{
			{ID: 10, Title: "born", BirthTime: 111, Date: 222},
			{ID: 11, Title: "dated", Date: 222},
		},
		URLMeta:     []URLMeta{{FID: 10, URL: "https://first"}, {FID: 10, URL: "https://second"}},
		DescMeta:    []DescMeta{{FID: 10, Desc: "first"}, {FID: 10, Desc: "second"}},
		FoldersMeta: []AssocMeta{{FID: 10, IDs: "99|2|1"}, {FID: 10, IDs: "1"}},
		TagsMeta:    []AssocMeta{{FID: 10, IDs: "3|x||7|1|3"}, {FID: 11, IDs: "7"}},
	}
	_, err := NewPipeline(store, nil).Convert(context.Background(), src, testOptions(-1))
	require.NoError(t, err)
	require.Len(t, store.files, 2)

	born := store.files[0]
	assert.Equal(t, int64(111), born.CreatedAt)
	assert.Equal(t, "https://first", *born.Reference)
	assert.Equal(t, "first", *born.Notes)
	assert.Equal(t, int64(2), *born.FolderID)
	assert.Equal(t, []int64{3, 1}, born.Tags)
	assert.Nil(t, born.Path)

	dated := store.files[1]
	assert.Equal(t, int64(222), dated.CreatedAt)
	assert.Nil(t, dated.FolderID)
	assert.Nil(t, dated.Tags)
}

func TestConvertBudget(t *testing.T) {
	src := &SourceData{
		Folders: []SourceNode{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}},
		Tags:    []SourceNode{{ID: 1, Title: "t"}},
		Files:   []SourceFile{{ID: 1, Title: "f"}},
	}

	store := newMemStore()
	res, err := NewPipeline(store, nil).Convert(context.Background(), src, testOptions(0))
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Zero(t, res.Total)
	assert.Empty(t, store.folders)

	store = newMemStore()
	res, err = NewPipeline(store, nil).Convert(context.Background(), src, testOptions(len(src.Folders)))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Folders)
	assert.Zero(t, res.Tags)
	assert.Zero(t, res.Files)
	assert.Empty(t, store.files)
}

func TestConvertProgressIsMonotonic(t *testing.T) {
	src := &SourceData{
		Folders: []SourceNode{{ID: 1, Title: "a"}},
		Tags:    []SourceNode{{ID: 1, Title: "t"}, {ID: 2, Title: "u"}},
		Files:   []SourceFile{{ID: 1, Title: "f"}, {ID: 2, Title: "g"}},
	}
	var seen []Progress
	opts := testOptions(-1)
	opts.Progress = func(p Progress) { seen = append(seen, p) }

	_, err := NewPipeline(newMemStore(), nil).Convert(context.Background(), src, opts)
	require.NoError(t, err)
	require.Len(t, seen, 5)
	for i, p := range seen {
		assert.Equal(t, i+1, p.Processed)
		assert.Equal(t, 5, p.Total)
	}
	assert.Equal(t, []string{StageFolders, StageTags, StageTags, StageFiles, StageFiles},
		[]string{seen[0].Stage, seen[1].Stage, seen[2].Stage, seen[3].Stage, seen[4].Stage})
	assert.Equal(t, 100, seen[4].Percent())
}

func TestConvertAbortsOnStoreError(t *testing.T) {
	store := newMemStore()
	store.failFileAfter = 2
	src := &SourceData{Files: []SourceFile{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}, {ID: 3, Title: "c"}}}

	res, err := NewPipeline(store, nil).Convert(context.Background(), src, testOptions(-1))
	require.ErrorIs(t, err, errDiskFull)
	assert.Contains(t, err.Error(), "create file 2")
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 2, store.fileCalls)
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := newMemStore()
	res, err := NewPipeline(store, nil).Convert(ctx, &SourceData{Folders: []SourceNode{{ID: 1, Title: "a"}}}, testOptions(-1))
	require.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, code.ErrorImportAborted)
	assert.Zero(t, res.Processed)
	assert.Empty(t, store.folders)
}

func TestProperty_BudgetCutsInOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("categories fill the budget in folder, tag, file order", prop.ForAll(
		func(nf, nt, nfi, max int) bool {
			src := &SourceData{}
			for i := 1; i <= nf; i++ {
				src.Folders = append(src.Folders, SourceNode{ID: int64(i), Title: "f"})
			}
			for i := 1; i <= nt; i++ {
				src.Tags = append(src.Tags, SourceNode{ID: int64(i), Title: "t"})
			}
			for i := 1; i <= nfi; i++ {
				src.Files = append(src.Files, SourceFile{ID: int64(i), Title: "x"})
			}
			res, err := NewPipeline(newMemStore(), nil).Convert(context.Background(), src, testOptions(max))
			if err != nil {
				return false
			}
			budget := nf + nt + nfi
			if max >= 0 && max < budget {
				budget = max
			}
			wantFolders := min(nf, budget)
			wantTags := min(nt, budget-wantFolders)
			wantFiles := min(nfi, budget-wantFolders-wantTags)
			return res.Folders == wantFolders && res.Tags == wantTags && res.Files == wantFiles &&
				res.Processed == budget && res.Total == budget
		},
		gen.IntRange(0, 6), gen.IntRange(0, 6), gen.IntRange(0, 6), gen.IntRange(-1, 20),
	))

	properties.Property("files land in the first translated folder and keep only known tags", prop.ForAll(
		func(folderRefs, tagRefs []int64) bool {
			src := &SourceData{
				Folders:     []SourceNode{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}, {ID: 3, Title: "c"}},
				Tags:        []SourceNode{{ID: 1, Title: "x"}, {ID: 2, Title: "y"}},
				Files:       []SourceFile{{ID: 1, Title: "file"}},
				FoldersMeta: []AssocMeta{{FID: 1, IDs: joinIDs(folderRefs)}},
				TagsMeta:    []AssocMeta{{FID: 1, IDs: joinIDs(tagRefs)}},
			}
			store := newMemStore()
			if _, err := NewPipeline(store, nil).Convert(context.Background(), src, testOptions(-1)); err != nil {
				return false
			}
			f := store.files[0]

			var wantFolder *int64
			for _, id := range folderRefs {
				if id >= 1 && id <= 3 {
					v := id
					wantFolder = &v
					break
				}
			}
			if (wantFolder == nil) != (f.FolderID == nil) || (wantFolder != nil && *wantFolder != *f.FolderID) {
				return false
			}
			for _, id := range f.Tags {
				if id < 1 || id > 2 {
					return false
				}
			}
			return len(f.Tags) == countDistinctIn(tagRefs, 1, 2)
		},
		gen.SliceOf(gen.Int64Range(0, 6)), gen.SliceOf(gen.Int64Range(0, 4)),
	))

	properties.TestingRun(t)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, "|")
}

func countDistinctIn(ids []int64, lo, hi int64) int {
	seen := map[int64]bool{}
	for _, id := range ids {
		if id >= lo && id <= hi {
			seen[id] = true
		}
	}
	return len(seen)
}
