// Package importer 将旧版库数据导入到新库
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/pkg/logger"

	"go.uber.org/zap"
)

// 导入阶段，按此顺序执行
const (
	StageFolders = "folders"
	StageTags    = "tags"
	StageFiles   = "files"
)

// progressLogEvery 每处理多少条记录输出一次 Info 日志
const progressLogEvery = 1000

// Progress 进度快照，Processed 单调递增
type Progress struct {
	Stage     string
	Processed int
	Total     int
}

// Percent 向下取整的百分比
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 100
	}
	return p.Processed * 100 / p.Total
}

// Options 导入选项
type Options struct {
	// MaxItems 三类记录合计的处理上限，负数表示不限，0 表示不处理任何记录
	MaxItems int
	// Progress 每处理一条记录回调一次
	Progress func(Progress)
	// Now 时间来源，用于 imported_at
	Now func() time.Time
}

// DefaultOptions 不限数量
func DefaultOptions() Options {
	return Options{MaxItems: -1}
}

// Result 导入结果
type Result struct {
	Folders   int
	Tags      int
	Files     int
	Processed int
	Total     int

	// FolderIDs / TagIDs 本次导入的 ID 映射
	FolderIDs *Translator
	TagIDs    *Translator
}

// Pipeline 三阶段导入：文件夹 → 标签 → 文件
// 前两阶段产出的 Translator 交给文件阶段使用
type Pipeline struct {
	store  domain.LibraryStore
	logger *zap.Logger
}

func NewPipeline(store domain.LibraryStore, lg *zap.Logger) *Pipeline {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Pipeline{store: store, logger: lg}
}

// budget 全局处理配额
type budget struct {
	limit int
	used  int
}

func (b *budget) exhausted() bool {
	return b.limit >= 0 && b.used >= b.limit
}

// run 单次转换的状态
type run struct {
	p        *Pipeline
	opts     Options
	budget   budget
	total    int
	imported time.Time
}

func (r *run) step(stage string) {
	r.budget.used++
	pr := Progress{Stage: stage, Processed: r.budget.used, Total: r.total}
	if r.opts.Progress != nil {
		r.opts.Progress(pr)
	}
	if r.budget.used%progressLogEvery == 0 {
		r.p.logger.Info("import progress",
			zap.String(logger.FieldLibraryID, r.p.store.LibraryID()),
			zap.String(logger.FieldStage, stage),
			zap.Int(logger.FieldProcessed, pr.Processed),
			zap.Int(logger.FieldTotal, pr.Total))
	}
}

// Convert 执行导入。任一存储错误立即中止并返回，已写入的数据不回滚
func (p *Pipeline) Convert(ctx context.Context, src *SourceData, opts Options) (*Result, error) {
	if src == nil {
		src = &SourceData{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	sum := len(src.Folders) + len(src.Tags) + len(src.Files)
	total := sum
	if opts.MaxItems >= 0 && opts.MaxItems < sum {
		total = opts.MaxItems
	}
	r := &run{
		p:        p,
		opts:     opts,
		budget:   budget{limit: opts.MaxItems},
		total:    total,
		imported: opts.Now(),
	}
	res := &Result{Total: total}
	start := time.Now()

	folders, n, err := r.folders(ctx, src.Folders)
	res.FolderIDs, res.Folders, res.Processed = folders, n, r.budget.used
	if err != nil {
		return res, aborted(err)
	}

	tags, n, err := r.tags(ctx, src.Tags)
	res.TagIDs, res.Tags, res.Processed = tags, n, r.budget.used
	if err != nil {
		return res, aborted(err)
	}

	n, err = r.files(ctx, src, folders, tags)
	res.Files, res.Processed = n, r.budget.used
	if err != nil {
		return res, aborted(err)
	}

	p.logger.Info("import completed",
		zap.String(logger.FieldLibraryID, p.store.LibraryID()),
		zap.Int("folders", res.Folders),
		zap.Int("tags", res.Tags),
		zap.Int("files", res.Files),
		zap.Int(logger.FieldProcessed, res.Processed),
		zap.Int(logger.FieldTotal, res.Total),
		zap.Duration(logger.FieldDuration, time.Since(start)))
	return res, nil
}

// parentOf 父节点翻译失败时视为根节点
func parentOf(t *Translator, parent int64) *int64 {
	if parent == 0 {
		return nil
	}
	if id, ok := t.Resolve(parent); ok {
		return &id
	}
	return nil
}

// folders 阶段一：按 ID 存在则更新，否则以源 ID 创建
func (r *run) folders(ctx context.Context, nodes []SourceNode) (*Translator, int, error) {
	t := NewTranslator(StageFolders)
	done := 0
	for _, node := range nodes {
		if r.budget.exhausted() {
			break
		}
		if err := ctx.Err(); err != nil {
			return t, done, err
		}

		parent := parentOf(t, node.Parent)
		_, err := r.p.store.GetFolder(ctx, node.ID)
		switch {
		case err == nil:
			update := domain.FolderUpdate{Title: &node.Title, ParentID: parent, ClearParent: parent == nil}
			if _, err := r.p.store.UpdateFolder(ctx, node.ID, update); err != nil {
				return t, done, fmt.Errorf("update folder %d: %w", node.ID, err)
			}
			t.Record(node.ID, node.ID)
		case isNotFound(err):
			id, err := r.p.store.CreateFolder(ctx, &domain.Folder{ID: node.ID, Title: node.Title, ParentID: parent})
			if err != nil {
				return t, done, fmt.Errorf("create folder %d: %w", node.ID, err)
			}
			t.Record(node.ID, id)
		default:
			return t, done, fmt.Errorf("get folder %d: %w", node.ID, err)
		}
		done++
		r.step(StageFolders)
	}
	return t, done, nil
}

// tags 阶段二：与文件夹相同的策略，独立的映射
func (r *run) tags(ctx context.Context, nodes []SourceNode) (*Translator, int, error) {
	t := NewTranslator(StageTags)
	done := 0
	for _, node := range nodes {
		if r.budget.exhausted() {
			break
		}
		if err := ctx.Err(); err != nil {
			return t, done, err
		}

		parent := parentOf(t, node.Parent)
		_, err := r.p.store.GetTag(ctx, node.ID)
		switch {
		case err == nil:
			update := domain.TagUpdate{Title: &node.Title, ParentID: parent, ClearParent: parent == nil}
			if _, err := r.p.store.UpdateTag(ctx, node.ID, update); err != nil {
				return t, done, fmt.Errorf("update tag %d: %w", node.ID, err)
			}
			t.Record(node.ID, node.ID)
		case isNotFound(err):
			id, err := r.p.store.CreateTag(ctx, &domain.Tag{ID: node.ID, Title: node.Title, ParentID: parent})
			if err != nil {
				return t, done, fmt.Errorf("create tag %d: %w", node.ID, err)
			}
			t.Record(node.ID, id)
		default:
			return t, done, fmt.Errorf("get tag %d: %w", node.ID, err)
		}
		done++
		r.step(StageTags)
	}
	return t, done, nil
}

// files 阶段三：每个源文件新建一条记录
func (r *run) files(ctx context.Context, src *SourceData, folders, tags *Translator) (int, error) {
	urls := firstByFID(src.URLMeta, func(m URLMeta) int64 { return m.FID })
	descs := firstByFID(src.DescMeta, func(m DescMeta) int64 { return m.FID })
	folderMeta := firstByFID(src.FoldersMeta, func(m AssocMeta) int64 { return m.FID })
	tagMeta := firstByFID(src.TagsMeta, func(m AssocMeta) int64 { return m.FID })

	done := 0
	for _, sf := range src.Files {
		if r.budget.exhausted() {
			break
		}
		if err := ctx.Err(); err != nil {
			return done, err
		}

		file := r.buildFile(sf, urls, descs, folderMeta, tagMeta, folders, tags)
		if _, err := r.p.store.CreateFile(ctx, file); err != nil {
			return done, fmt.Errorf("create file %d: %w", sf.ID, err)
		}
		done++
		r.step(StageFiles)
	}
	return done, nil
}

func (r *run) buildFile(sf SourceFile, urls map[int64]URLMeta, descs map[int64]DescMeta,
	folderMeta, tagMeta map[int64]AssocMeta, folders, tags *Translator) *domain.File {
	created := sf.BirthTime
	if created == 0 {
		created = sf.Date
	}
	file := &domain.File{
		Name:       sf.Title,
		CreatedAt:  created,
		ImportedAt: r.imported.UnixMilli(),
		Size:       sf.Size,
		Hash:       "",
	}
	if m, ok := descs[sf.ID]; ok {
		file.Notes = &m.Desc
	}
	if m, ok := urls[sf.ID]; ok {
		file.Reference = &m.URL
	}
	if sf.Link != "" {
		link := sf.Link
		file.Path = &link
	}
	if m, ok := folderMeta[sf.ID]; ok {
		if id, ok := folders.ResolveFirst(ParseIDList(m.IDs)); ok {
			file.FolderID = &id
		}
	}
	if m, ok := tagMeta[sf.ID]; ok {
		if ids := tags.ResolveAll(ParseIDList(m.IDs)); len(ids) > 0 {
			file.Tags = ids
		}
	}
	return file
}

// firstByFID 同一文件有多条记录时取第一条
func firstByFID[T any](rows []T, fid func(T) int64) map[int64]T {
	out := make(map[int64]T, len(rows))
	for _, row := range rows {
		k := fid(row)
		if _, ok := out[k]; !ok {
			out[k] = row
		}
	}
	return out
}
