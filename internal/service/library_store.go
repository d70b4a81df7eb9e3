package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/haierkeys/fast-library-service/internal/dao"
	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/pkg/code"
	pkgerrors "github.com/haierkeys/fast-library-service/pkg/errors"
	"github.com/haierkeys/fast-library-service/pkg/util"

	"gorm.io/gorm"
)

// maxTreeDepth 父链遍历上限，超过即视为循环
const maxTreeDepth = 4096

// libraryStore 实现 domain.LibraryStore
// 写操作经写队列按库串行执行，读操作直接访问仓储
type libraryStore struct {
	svc    *libraryService
	lib    *domain.Library
	closed atomic.Bool
}

var _ domain.LibraryStore = (*libraryStore)(nil)

func (s *libraryStore) LibraryID() string {
	return s.lib.ID
}

func (s *libraryStore) Library() *domain.Library {
	return s.lib
}

// Close 释放持有，重复调用无副作用
func (s *libraryStore) Close(ctx context.Context) error {
	if s.closed.CompareAndSwap(false, true) {
		s.svc.Release(s.lib.ID)
	}
	return nil
}

func (s *libraryStore) check() error {
	if s.closed.Load() {
		return code.ErrorLibraryNotOpen.WithDetails(s.lib.ID)
	}
	return nil
}

func (s *libraryStore) write(ctx context.Context, fn func() error) error {
	if err := s.check(); err != nil {
		return err
	}
	return writeErr(s.svc.dao.ExecuteWrite(ctx, s.lib.ID, fn))
}

// walkParents 从 parent 向上遍历，遇到 id 则说明会形成循环
func walkParents(ctx context.Context, id, parent int64, parentOf func(context.Context, int64) (*int64, error)) error {
	cur := &parent
	for depth := 0; cur != nil; depth++ {
		if *cur == id || depth > maxTreeDepth {
			return code.ErrorParentCycle.WithDetails(fmt.Sprintf("id %d, parent %d", id, parent))
		}
		next, err := parentOf(ctx, *cur)
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// ------------------------------------> Folder

func (s *libraryStore) GetFolder(ctx context.Context, id int64) (*domain.Folder, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	f, err := s.svc.folderRepo.GetByID(ctx, id, s.lib.ID)
	if err != nil {
		return nil, queryErr(err, code.ErrorFolderNotFound, id)
	}
	return f, nil
}

func (s *libraryStore) QueryFolder(ctx context.Context, filter domain.TreeFilter) ([]*domain.Folder, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	list, err := s.svc.folderRepo.List(ctx, filter, s.lib.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(code.ErrorDBQuery, err)
	}
	return list, nil
}

func (s *libraryStore) folderParent(ctx context.Context, id int64) (*int64, error) {
	f, err := s.svc.folderRepo.GetByID(ctx, id, s.lib.ID)
	if err != nil {
		return nil, queryErr(err, code.ErrorParentNotFound, id)
	}
	return f.ParentID, nil
}

func (s *libraryStore) CreateFolder(ctx context.Context, folder *domain.Folder) (int64, error) {
	if strings.TrimSpace(folder.Title) == "" {
		return 0, code.ErrorTitleRequired
	}
	var id int64
	err := s.write(ctx, func() error {
		if folder.ID > 0 {
			_, err := s.svc.folderRepo.GetByID(ctx, folder.ID, s.lib.ID)
			if err == nil {
				return code.ErrorFolderExists.WithDetails(fmt.Sprintf("id %d", folder.ID))
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(code.ErrorDBQuery, err)
			}
		}
		if folder.ParentID != nil {
			if folder.ID > 0 && *folder.ParentID == folder.ID {
				return code.ErrorParentCycle.WithDetails(fmt.Sprintf("id %d, parent %d", folder.ID, folder.ID))
			}
			if _, err := s.folderParent(ctx, *folder.ParentID); err != nil {
				return err
			}
		}
		created, err := s.svc.folderRepo.Create(ctx, folder, s.lib.ID)
		if err != nil {
			return err
		}
		id = created.ID
		return nil
	})
	return id, err
}

func (s *libraryStore) UpdateFolder(ctx context.Context, id int64, update domain.FolderUpdate) (bool, error) {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return false, code.ErrorTitleRequired
	}
	err := s.write(ctx, func() error {
		if _, err := s.svc.folderRepo.GetByID(ctx, id, s.lib.ID); err != nil {
			return queryErr(err, code.ErrorFolderNotFound, id)
		}
		if update.ParentID != nil && !update.ClearParent {
			if err := walkParents(ctx, id, *update.ParentID, s.folderParent); err != nil {
				return err
			}
		}
		if update.IsEmpty() {
			return nil
		}
		return s.svc.folderRepo.Update(ctx, id, update, s.lib.ID)
	})
	return err == nil, err
}

// DeleteFolder 仅允许删除空文件夹
func (s *libraryStore) DeleteFolder(ctx context.Context, id int64) (bool, error) {
	err := s.write(ctx, func() error {
		if _, err := s.svc.folderRepo.GetByID(ctx, id, s.lib.ID); err != nil {
			return queryErr(err, code.ErrorFolderNotFound, id)
		}
		children, err := s.svc.folderRepo.CountChildren(ctx, id, s.lib.ID)
		if err != nil {
			return err
		}
		files, err := s.svc.fileRepo.CountByFolder(ctx, id, s.lib.ID)
		if err != nil {
			return err
		}
		if children > 0 || files > 0 {
			return code.ErrorFolderNotEmpty.WithDetails(fmt.Sprintf("id %d has %d folders and %d files", id, children, files))
		}
		rows, err := s.svc.folderRepo.Delete(ctx, id, s.lib.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return code.ErrorFolderNotFound.WithDetails(fmt.Sprintf("id %d", id))
		}
		return nil
	})
	return err == nil, err
}

// ------------------------------------> Tag

func (s *libraryStore) GetTag(ctx context.Context, id int64) (*domain.Tag, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	t, err := s.svc.tagRepo.GetByID(ctx, id, s.lib.ID)
	if err != nil {
		return nil, queryErr(err, code.ErrorTagNotFound, id)
	}
	return t, nil
}

func (s *libraryStore) QueryTag(ctx context.Context, filter domain.TreeFilter) ([]*domain.Tag, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	list, err := s.svc.tagRepo.List(ctx, filter, s.lib.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(code.ErrorDBQuery, err)
	}
	return list, nil
}

func (s *libraryStore) tagParent(ctx context.Context, id int64) (*int64, error) {
	t, err := s.svc.tagRepo.GetByID(ctx, id, s.lib.ID)
	if err != nil {
		return nil, queryErr(err, code.ErrorParentNotFound, id)
	}
	return t.ParentID, nil
}

func (s *libraryStore) CreateTag(ctx context.Context, tag *domain.Tag) (int64, error) {
	if strings.TrimSpace(tag.Title) == "" {
		return 0, code.ErrorTitleRequired
	}
	var id int64
	err := s.write(ctx, func() error {
		if tag.ID > 0 {
			_, err := s.svc.tagRepo.GetByID(ctx, tag.ID, s.lib.ID)
			if err == nil {
				return code.ErrorTagExists.WithDetails(fmt.Sprintf("id %d", tag.ID))
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(code.ErrorDBQuery, err)
			}
		}
		if tag.ParentID != nil {
			if tag.ID > 0 && *tag.ParentID == tag.ID {
				return code.ErrorParentCycle.WithDetails(fmt.Sprintf("id %d, parent %d", tag.ID, tag.ID))
			}
			if _, err := s.tagParent(ctx, *tag.ParentID); err != nil {
				return err
			}
		}
		created, err := s.svc.tagRepo.Create(ctx, tag, s.lib.ID)
		if err != nil {
			return err
		}
		id = created.ID
		return nil
	})
	return id, err
}

func (s *libraryStore) UpdateTag(ctx context.Context, id int64, update domain.TagUpdate) (bool, error) {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return false, code.ErrorTitleRequired
	}
	err := s.write(ctx, func() error {
		if _, err := s.svc.tagRepo.GetByID(ctx, id, s.lib.ID); err != nil {
			return queryErr(err, code.ErrorTagNotFound, id)
		}
		if update.ParentID != nil && !update.ClearParent {
			if err := walkParents(ctx, id, *update.ParentID, s.tagParent); err != nil {
				return err
			}
		}
		if update.IsEmpty() {
			return nil
		}
		return s.svc.tagRepo.Update(ctx, id, update, s.lib.ID)
	})
	return err == nil, err
}

// DeleteTag 子标签或文件仍引用时拒绝删除
func (s *libraryStore) DeleteTag(ctx context.Context, id int64) (bool, error) {
	err := s.write(ctx, func() error {
		if _, err := s.svc.tagRepo.GetByID(ctx, id, s.lib.ID); err != nil {
			return queryErr(err, code.ErrorTagNotFound, id)
		}
		children, err := s.svc.tagRepo.CountChildren(ctx, id, s.lib.ID)
		if err != nil {
			return err
		}
		files, err := s.svc.fileRepo.CountByTag(ctx, id, s.lib.ID)
		if err != nil {
			return err
		}
		if children > 0 || files > 0 {
			return code.ErrorTagInUse.WithDetails(fmt.Sprintf("id %d has %d tags and %d files", id, children, files))
		}
		rows, err := s.svc.tagRepo.Delete(ctx, id, s.lib.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return code.ErrorTagNotFound.WithDetails(fmt.Sprintf("id %d", id))
		}
		return nil
	})
	return err == nil, err
}

// ------------------------------------> File

func (s *libraryStore) GetFile(ctx context.Context, id int64) (*domain.File, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	f, err := s.svc.fileRepo.GetByID(ctx, id, s.lib.ID)
	if err != nil {
		return nil, queryErr(err, code.ErrorFileNotFound, id)
	}
	return f, nil
}

func (s *libraryStore) QueryFile(ctx context.Context, filter domain.FileFilter) ([]*domain.File, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	list, err := s.svc.fileRepo.List(ctx, filter, s.lib.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(code.ErrorDBQuery, err)
	}
	return list, nil
}

// checkPlacement 文件夹与标签必须存在于当前库
func (s *libraryStore) checkPlacement(ctx context.Context, folderID *int64, tags []int64) error {
	if folderID != nil {
		if _, err := s.svc.folderRepo.GetByID(ctx, *folderID, s.lib.ID); err != nil {
			return queryErr(err, code.ErrorFolderNotFound, *folderID)
		}
	}
	for _, tagID := range tags {
		if _, err := s.svc.tagRepo.GetByID(ctx, tagID, s.lib.ID); err != nil {
			return queryErr(err, code.ErrorTagNotFound, tagID)
		}
	}
	return nil
}

// CreateFile imported_at 为空时取当前时间，created_at 原样保存
func (s *libraryStore) CreateFile(ctx context.Context, file *domain.File) (int64, error) {
	if strings.TrimSpace(file.Name) == "" {
		return 0, code.ErrorFileNameRequired
	}
	f := *file
	f.Tags = util.Unique(file.Tags)
	if f.ImportedAt == 0 {
		f.ImportedAt = time.Now().UnixMilli()
	}

	var id int64
	err := s.write(ctx, func() error {
		if f.ID > 0 {
			_, err := s.svc.fileRepo.GetByID(ctx, f.ID, s.lib.ID)
			if err == nil {
				return code.ErrorFileExists.WithDetails(fmt.Sprintf("id %d", f.ID))
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(code.ErrorDBQuery, err)
			}
		}
		if err := s.checkPlacement(ctx, f.FolderID, f.Tags); err != nil {
			return err
		}
		created, err := s.svc.fileRepo.Create(ctx, &f, s.lib.ID)
		if err != nil {
			return err
		}
		id = created.ID
		return nil
	})
	return id, err
}

func (s *libraryStore) UpdateFile(ctx context.Context, id int64, update domain.FileUpdate) (bool, error) {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return false, code.ErrorFileNameRequired
	}
	if update.Tags != nil {
		tags := util.Unique(*update.Tags)
		update.Tags = &tags
	}
	err := s.write(ctx, func() error {
		if _, err := s.svc.fileRepo.GetByID(ctx, id, s.lib.ID); err != nil {
			return queryErr(err, code.ErrorFileNotFound, id)
		}
		var folderID *int64
		if !update.ClearFolder {
			folderID = update.FolderID
		}
		var tags []int64
		if update.Tags != nil {
			tags = *update.Tags
		}
		if err := s.checkPlacement(ctx, folderID, tags); err != nil {
			return err
		}
		if update.IsEmpty() {
			return nil
		}
		return s.svc.fileRepo.Update(ctx, id, update, s.lib.ID)
	})
	return err == nil, err
}

// DeleteFile HashOnly 时只清除内容哈希
func (s *libraryStore) DeleteFile(ctx context.Context, id int64, options domain.DeleteFileOptions) (bool, error) {
	err := s.write(ctx, func() error {
		if options.HashOnly {
			// 部分数据库只统计值发生变化的行，先确认存在
			if _, err := s.svc.fileRepo.GetByID(ctx, id, s.lib.ID); err != nil {
				return queryErr(err, code.ErrorFileNotFound, id)
			}
			_, err := s.svc.fileRepo.ClearHash(ctx, id, s.lib.ID)
			return err
		}
		rows, err := s.svc.fileRepo.Delete(ctx, id, s.lib.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return code.ErrorFileNotFound.WithDetails(fmt.Sprintf("id %d", id))
		}
		return nil
	})
	return err == nil, err
}

// ------------------------------------> Query

// Query 执行只读 SELECT，不经过写队列
func (s *libraryStore) Query(ctx context.Context, expression string) ([]map[string]any, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.svc.queryRepo.Select(ctx, expression, s.lib.ID)
	if err != nil {
		if errors.Is(err, dao.ErrNotReadOnly) {
			return nil, code.ErrorQueryReadOnly
		}
		return nil, pkgerrors.Wrap(code.ErrorDBQuery, err)
	}
	return rows, nil
}
