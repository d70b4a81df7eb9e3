package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/pkg/code"
)

// memStore 内存实现，用于脱离数据库测试导入流程
type memStore struct {
	domain.LibraryStore

	folders map[int64]*domain.Folder
	tags    map[int64]*domain.Tag
	files   []*domain.File
	nextID  int64

	// failFileAfter 大于 0 时第 n 次创建文件失败
	failFileAfter int
	fileCalls     int
}

func newMemStore() *memStore {
	return &memStore{
		folders: map[int64]*domain.Folder{},
		tags:    map[int64]*domain.Tag{},
		nextID:  1000,
	}
}

func (m *memStore) LibraryID() string { return "mem" }

func (m *memStore) assign(id int64) int64 {
	if id > 0 {
		return id
	}
	m.nextID++
	return m.nextID
}

func (m *memStore) GetFolder(ctx context.Context, id int64) (*domain.Folder, error) {
	f, ok := m.folders[id]
	if !ok {
		return nil, code.ErrorFolderNotFound.WithDetails(fmt.Sprintf("id %d", id))
	}
	return f, nil
}

func (m *memStore) CreateFolder(ctx context.Context, f *domain.Folder) (int64, error) {
	c := *f
	c.ID = m.assign(f.ID)
	m.folders[c.ID] = &c
	return c.ID, nil
}

func (m *memStore) UpdateFolder(ctx context.Context, id int64, u domain.FolderUpdate) (bool, error) {
	f := m.folders[id]
	if u.Title != nil {
		f.Title = *u.Title
	}
	if u.ClearParent {
		f.ParentID = nil
	} else if u.ParentID != nil {
		f.ParentID = u.ParentID
	}
	return true, nil
}

func (m *memStore) GetTag(ctx context.Context, id int64) (*domain.Tag, error) {
	t, ok := m.tags[id]
	if !ok {
		return nil, code.ErrorTagNotFound.WithDetails(fmt.Sprintf("id %d", id))
	}
	return t, nil
}

func (m *memStore) CreateTag(ctx context.Context, t *domain.Tag) (int64, error) {
	c := *t
	c.ID = m.assign(t.ID)
	m.tags[c.ID] = &c
	return c.ID, nil
}

func (m *memStore) UpdateTag(ctx context.Context, id int64, u domain.TagUpdate) (bool, error) {
	t := m.tags[id]
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.ClearParent {
		t.ParentID = nil
	} else if u.ParentID != nil {
		t.ParentID = u.ParentID
	}
	return true, nil
}

var errDiskFull = errors.New("disk full")

func (m *memStore) CreateFile(ctx context.Context, f *domain.File) (int64, error) {
	m.fileCalls++
	if m.failFileAfter > 0 && m.fileCalls >= m.failFileAfter {
		return 0, errDiskFull
	}
	c := *f
	c.ID = m.assign(0)
	m.files = append(m.files, &c)
	return c.ID, nil
}
