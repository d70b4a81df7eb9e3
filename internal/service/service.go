// Package service 实现业务逻辑层
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/dto"
	"github.com/haierkeys/fast-library-service/pkg/code"
	"github.com/haierkeys/fast-library-service/pkg/convert"
	pkgerrors "github.com/haierkeys/fast-library-service/pkg/errors"
	"github.com/haierkeys/fast-library-service/pkg/timex"
	"github.com/haierkeys/fast-library-service/pkg/writequeue"

	"gorm.io/gorm"
)

// queryErr 将仓储读错误映射为错误码
func queryErr(err error, notFound *code.Code, id int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound.WithDetails(fmt.Sprintf("id %d", id))
	}
	return pkgerrors.Wrap(code.ErrorDBQuery, err)
}

// writeErr 将写队列或仓储写错误映射为错误码，已是错误码的原样返回
func writeErr(err error) error {
	if err == nil {
		return nil
	}
	var c *code.Code
	if errors.As(err, &c) || pkgerrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, writequeue.ErrWriteQueueFull), errors.Is(err, writequeue.ErrWriteTimeout):
		return code.ErrorWriteQueueBusy.WithDetails(err.Error())
	case errors.Is(err, writequeue.ErrWriteQueueClosed):
		return code.ErrorLibraryNotOpen.WithDetails(err.Error())
	}
	return pkgerrors.Wrap(code.ErrorDBWrite, err)
}

// FolderToDTO 领域模型转 DTO
func FolderToDTO(f *domain.Folder) *dto.FolderDTO {
	if f == nil {
		return nil
	}
	return &dto.FolderDTO{
		ID:        f.ID,
		Title:     f.Title,
		ParentID:  f.ParentID,
		CreatedAt: timex.Time(f.CreatedAt),
		UpdatedAt: timex.Time(f.UpdatedAt),
	}
}

func TagToDTO(t *domain.Tag) *dto.TagDTO {
	if t == nil {
		return nil
	}
	return &dto.TagDTO{
		ID:        t.ID,
		Title:     t.Title,
		ParentID:  t.ParentID,
		CreatedAt: timex.Time(t.CreatedAt),
		UpdatedAt: timex.Time(t.UpdatedAt),
	}
}

// FileToDTO 字段同名，直接拷贝
func FileToDTO(f *domain.File) (*dto.FileDTO, error) {
	if f == nil {
		return nil, nil
	}
	out := &dto.FileDTO{}
	if err := convert.StructAssign(f, out); err != nil {
		return nil, err
	}
	if out.Tags == nil {
		out.Tags = []int64{}
	}
	return out, nil
}

func FoldersToDTO(list []*domain.Folder) []*dto.FolderDTO {
	res := make([]*dto.FolderDTO, 0, len(list))
	for _, f := range list {
		res = append(res, FolderToDTO(f))
	}
	return res
}

func TagsToDTO(list []*domain.Tag) []*dto.TagDTO {
	res := make([]*dto.TagDTO, 0, len(list))
	for _, t := range list {
		res = append(res, TagToDTO(t))
	}
	return res
}

func FilesToDTO(list []*domain.File) ([]*dto.FileDTO, error) {
	res := make([]*dto.FileDTO, 0, len(list))
	for _, f := range list {
		d, err := FileToDTO(f)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, nil
}

// FileFromCreateRequest 创建请求转领域模型
// 未提供 created_at 时与 imported_at 相同，显式的 0 保持不变
func FileFromCreateRequest(req *dto.FileCreateRequest) *domain.File {
	now := time.Now().UnixMilli()
	created := now
	if req.CreatedAt != nil {
		created = *req.CreatedAt
	}
	return &domain.File{
		Name:       req.Name,
		CreatedAt:  created,
		ImportedAt: now,
		Size:       req.Size,
		Hash:       req.Hash,
		Notes:      req.Notes,
		FolderID:   req.FolderID,
		Tags:       req.Tags,
		Reference:  req.Reference,
		Path:       req.Path,
	}
}

// FileFilterFromQuery 查询条件转领域过滤器
func FileFilterFromQuery(q dto.FileQuery) domain.FileFilter {
	return domain.FileFilter{
		IDs:         q.IDs,
		Name:        q.Name,
		FolderID:    q.FolderID,
		TagID:       q.TagID,
		Hash:        q.Hash,
		Reference:   q.Reference,
		Path:        q.Path,
		CreatedFrom: q.CreatedFrom,
		CreatedTo:   q.CreatedTo,
		Limit:       q.Limit,
		Offset:      q.Offset,
		OrderBy:     domain.FileOrder(q.OrderBy),
		Desc:        q.Desc,
	}
}

// TreeFilterFromQuery 文件夹与标签共用
func TreeFilterFromQuery(q dto.TreeQuery) domain.TreeFilter {
	return domain.TreeFilter{
		IDs:      q.IDs,
		ParentID: q.ParentID,
		RootOnly: q.Root,
		Title:    q.Title,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
}
