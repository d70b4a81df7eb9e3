package task

import (
	"context"
	"time"

	"github.com/haierkeys/fast-library-service/internal/app"

	"go.uber.org/zap"
)

// LibraryReleaseTask 关闭空闲的库
type LibraryReleaseTask struct {
	app  *app.App
	idle time.Duration
}

func (t *LibraryReleaseTask) Name() string {
	return "LibraryRelease"
}

// LoopInterval 最长一分钟检查一次
func (t *LibraryReleaseTask) LoopInterval() time.Duration {
	if t.idle < time.Minute {
		return t.idle
	}
	return time.Minute
}

func (t *LibraryReleaseTask) IsStartupRun() bool {
	return false
}

// Run 异步提交到 worker pool，池满时本轮跳过
func (t *LibraryReleaseTask) Run(ctx context.Context) error {
	return t.app.SubmitTaskAsync(context.WithoutCancel(ctx), func(ctx context.Context) error {
		n := t.app.LibraryService.CloseIdle(ctx, t.idle)
		if n > 0 {
			t.app.Logger().Info("task log",
				zap.String("task", t.Name()),
				zap.Int("closed", n),
				zap.Int("open", t.app.LibraryService.OpenCount()))
		}
		return nil
	})
}

// NewLibraryReleaseTask 空闲释放时间为 0 时库在释放时立即关闭，无需该任务
func NewLibraryReleaseTask(appContainer *app.App) (Task, error) {
	idle := appContainer.Config().GetIdleReleaseTime()
	if idle <= 0 {
		return nil, nil
	}
	return &LibraryReleaseTask{app: appContainer, idle: idle}, nil
}

func init() {
	RegisterWithApp(NewLibraryReleaseTask)
}
