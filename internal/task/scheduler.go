package task

import (
	"context"
	"time"

	"github.com/haierkeys/fast-library-service/pkg/safe_close"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task 定义任务接口
type Task interface {
	Name() string                  // 任务名称
	Run(ctx context.Context) error // 执行任务
	LoopInterval() time.Duration   // 执行间隔
	IsStartupRun() bool            // 是否立即执行一次
}

// CronTask 按 cron 表达式执行的任务，实现该接口时忽略 LoopInterval
type CronTask interface {
	Task
	Schedule() cron.Schedule
}

// cronParser 五段式表达式：分 时 日 月 周
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron 解析 cron 表达式
func ParseCron(expr string) (cron.Schedule, error) {
	return cronParser.Parse(expr)
}

// Scheduler 任务调度器
type Scheduler struct {
	logger *zap.Logger
	tasks  []Task
	sc     *safe_close.SafeClose
}

// NewScheduler 创建任务调度器
func NewScheduler(logger *zap.Logger, sc *safe_close.SafeClose) *Scheduler {
	return &Scheduler{
		logger: logger,
		tasks:  make([]Task, 0),
		sc:     sc,
	}
}

// AddTask 添加任务
func (s *Scheduler) AddTask(task Task) {
	s.tasks = append(s.tasks, task)
}

// Tasks 已添加的任务
func (s *Scheduler) Tasks() []Task {
	return s.tasks
}

// Start 启动所有任务
func (s *Scheduler) Start() {
	if len(s.tasks) == 0 {
		s.logger.Info("no tasks to schedule")
		return
	}

	s.logger.Info("tasks starting ", zap.Int("count", len(s.tasks)))

	for _, task := range s.tasks {
		s.startTask(task)
	}
}

// runOnce 执行一次任务，收到关闭信号时取消 ctx
func (s *Scheduler) runOnce(task Task, closeSignal <-chan struct{}, mode string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panic",
				zap.String("name", task.Name()),
				zap.String("mode", mode),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-closeSignal:
			cancel()
		case <-stop:
		}
	}()

	s.logger.Info("task running", zap.String("name", task.Name()), zap.String("mode", mode))
	if err := task.Run(ctx); err != nil {
		s.logger.Error("task running error",
			zap.String("name", task.Name()),
			zap.String("mode", mode),
			zap.Error(err))
	}
}

// startTask 启动单个任务
func (s *Scheduler) startTask(task Task) {

	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()

		// 如果任务需要立即执行
		if task.IsStartupRun() {
			s.runOnce(task, closeSignal, "startupRun")
		}

		if ct, ok := task.(CronTask); ok && ct.Schedule() != nil {
			s.cronLoop(ct, closeSignal)
			return
		}

		if task.LoopInterval() <= 0 {
			return
		}

		ticker := time.NewTicker(task.LoopInterval())
		defer ticker.Stop()

		// 定时执行
		for {
			select {
			case <-ticker.C:
				s.runOnce(task, closeSignal, "loopRun")
			case <-closeSignal:
				s.logger.Info("task stopped", zap.String("name", task.Name()), zap.String("mode", "loopRun"))
				return
			}
		}
	})
}

// cronLoop 按 schedule.Next 计算下一次执行时间
func (s *Scheduler) cronLoop(task CronTask, closeSignal <-chan struct{}) {
	schedule := task.Schedule()
	for {
		next := schedule.Next(time.Now())
		if next.IsZero() {
			s.logger.Warn("task schedule has no next run", zap.String("name", task.Name()))
			return
		}
		s.logger.Debug("task next run", zap.String("name", task.Name()), zap.Time("next", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.runOnce(task, closeSignal, "cronRun")
		case <-closeSignal:
			timer.Stop()
			s.logger.Info("task stopped", zap.String("name", task.Name()), zap.String("mode", "cronRun"))
			return
		}
	}
}
