package task

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/haierkeys/fast-library-service/internal/app"
	"github.com/haierkeys/fast-library-service/internal/importer"
	"github.com/haierkeys/fast-library-service/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ImportTask 按 cron 定时从旧版库导入
type ImportTask struct {
	app      *app.App
	schedule cron.Schedule
	req      importer.Request
	maxItems int
	running  atomic.Bool
}

// Name 返回任务名称
func (t *ImportTask) Name() string {
	return "LibraryImport"
}

// LoopInterval 由 Schedule 决定
func (t *ImportTask) LoopInterval() time.Duration {
	return 0
}

// IsStartupRun 是否立即执行一次
func (t *ImportTask) IsStartupRun() bool {
	return false
}

func (t *ImportTask) Schedule() cron.Schedule {
	return t.schedule
}

// Run 执行导入，上一次尚未结束时跳过
func (t *ImportTask) Run(ctx context.Context) error {
	lg := t.app.Logger()
	if !t.running.CompareAndSwap(false, true) {
		lg.Warn("task log",
			zap.String("task", t.Name()),
			zap.String("msg", "previous run still in progress, skipped"))
		return nil
	}
	defer t.running.Store(false)

	done := t.app.TrackOperation()
	defer done()

	opts := importer.DefaultOptions()
	opts.MaxItems = t.maxItems
	var res *importer.Result
	// 导入在 worker pool 中执行，占用一个后台 worker
	err := t.app.SubmitTask(ctx, func(ctx context.Context) error {
		var err error
		res, err = importer.Import(ctx, t.app.LibraryService, t.req, opts, lg)
		return err
	})
	if err != nil {
		return err
	}

	lg.Info("task log",
		zap.String("task", t.Name()),
		zap.String(logger.FieldLibraryID, t.req.LibraryID),
		zap.Int(logger.FieldProcessed, res.Processed),
		zap.Int(logger.FieldTotal, res.Total),
		zap.String("msg", "success"))
	return nil
}

// NewImportTask 创建导入任务，未配置 cron 或源文件时不启用
func NewImportTask(appContainer *app.App) (Task, error) {
	cfg := appContainer.Config().Import
	if cfg.Cron == "" || cfg.Source == "" {
		return nil, nil
	}
	schedule, err := ParseCron(cfg.Cron)
	if err != nil {
		return nil, err
	}
	return &ImportTask{
		app:      appContainer,
		schedule: schedule,
		req: importer.Request{
			Source:    cfg.Source,
			LibraryID: cfg.Library,
			Path:      cfg.Path,
		},
		maxItems: appContainer.Config().GetImportMaxItems(),
	}, nil
}

// init 自动注册导入任务
func init() {
	RegisterWithApp(NewImportTask)
}
