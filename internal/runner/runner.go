// Package runner 管理异步求解任务的生命周期
package runner

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/schedulus/schedulus/internal/config"
	"github.com/schedulus/schedulus/internal/metrics"
	"github.com/schedulus/schedulus/internal/repository"
	apperrors "github.com/schedulus/schedulus/pkg/errors"
	"github.com/schedulus/schedulus/pkg/logger"
	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver"
)

// JobStatus 任务状态
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job 一次异步求解任务
// 运行期间 best 随搜索进度更新，读取须经 View
type Job struct {
	mu sync.RWMutex

	id        uuid.UUID
	status    JobStatus
	problem   *model.Timetable
	term      *solver.TerminationConfig
	best      *model.Timetable
	bestScore model.Score
	result    *solver.Result
	err       error
	createdAt time.Time
	startedAt time.Time
	finished  time.Time
	cancel    context.CancelFunc
}

// View 任务状态的一致性快照
type View struct {
	ID        uuid.UUID         `json:"id"`
	Status    JobStatus         `json:"status"`
	Best      *model.Timetable  `json:"best,omitempty"`
	BestScore model.Score       `json:"best_score"`
	Result    *solver.Result    `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	StartedAt *time.Time        `json:"started_at,omitempty"`
	Finished  *time.Time        `json:"finished_at,omitempty"`
}

// View 生成当前任务状态的快照
func (j *Job) View() *View {
	j.mu.RLock()
	defer j.mu.RUnlock()

	v := &View{
		ID:        j.id,
		Status:    j.status,
		Best:      j.best,
		BestScore: j.bestScore,
		Result:    j.result,
		CreatedAt: j.createdAt,
	}
	if j.err != nil {
		v.Error = j.err.Error()
	}
	if !j.startedAt.IsZero() {
		t := j.startedAt
		v.StartedAt = &t
	}
	if !j.finished.IsZero() {
		t := j.finished
		v.Finished = &t
	}
	return v
}

// Runner 求解任务运行器
// 运行中的任务保存在内存表里，完成后移入 TTL 缓存并可选落库
type Runner struct {
	cfg  config.RunnerConfig
	slv  *solver.Solver
	repo repository.SolveJobRepositoryInterface // 可为 nil（不落库）

	mu      sync.RWMutex
	active  map[uuid.UUID]*Job
	done    *gocache.Cache
	running int
}

// New 创建求解任务运行器。repo 为 nil 时不做持久化
func New(cfg config.RunnerConfig, slv *solver.Solver, repo repository.SolveJobRepositoryInterface) *Runner {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 30 * time.Minute
	}
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	return &Runner{
		cfg:    cfg,
		slv:    slv,
		repo:   repo,
		active: make(map[uuid.UUID]*Job),
		done:   gocache.New(cfg.JobTTL, cfg.CleanupPeriod),
	}
}

// Submit 提交异步求解任务，超出并发上限时拒绝
func (r *Runner) Submit(problem *model.Timetable, term *solver.TerminationConfig) (*View, error) {
	r.mu.Lock()
	if r.running >= r.cfg.MaxConcurrent {
		r.mu.Unlock()
		return nil, apperrors.New(apperrors.CodeSolveRunning, "求解任务已达并发上限，请稍后重试")
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		id:        uuid.New(),
		status:    StatusPending,
		problem:   problem,
		term:      term,
		createdAt: time.Now(),
		cancel:    cancel,
	}
	r.active[job.id] = job
	r.running++
	r.mu.Unlock()

	logger.Info().
		Str("solve_id", job.id.String()).
		Int("lessons", len(problem.Lessons)).
		Msg("提交异步求解任务")

	go r.run(ctx, job)
	return job.View(), nil
}

// run 执行任务并在结束后归档
func (r *Runner) run(ctx context.Context, job *Job) {
	metrics.IncActiveSolves()
	defer metrics.DecActiveSolves()

	job.mu.Lock()
	job.status = StatusRunning
	job.startedAt = time.Now()
	job.mu.Unlock()

	ctx = context.WithValue(ctx, "solve_id", job.id.String())
	res, err := r.slv.SolveWithProgress(ctx, job.problem, job.term,
		func(best *model.Timetable, score model.Score) {
			job.mu.Lock()
			job.best = best
			job.bestScore = score
			job.mu.Unlock()
		})

	job.mu.Lock()
	job.finished = time.Now()
	switch {
	case err != nil:
		job.status = StatusFailed
		job.err = err
	case res.Cancelled:
		job.status = StatusCancelled
		job.result = res
		job.best = res.Timetable
		job.bestScore = res.Score
	default:
		job.status = StatusCompleted
		job.result = res
		job.best = res.Timetable
		job.bestScore = res.Score
	}
	status := job.status
	job.mu.Unlock()

	if res != nil {
		metrics.RecordSolve("async", status == StatusCompleted, res.Duration, res.Statistics.Iterations)
		metrics.SetLastSolveScore(res.Score.Hard, res.Score.Soft)
		metrics.SetLastAssignmentRate(res.Statistics.AssignmentRate)
	} else {
		metrics.RecordSolve("async", false, 0, 0)
	}

	r.archive(job)
}

// archive 将结束的任务移入 TTL 缓存并可选落库
func (r *Runner) archive(job *Job) {
	r.mu.Lock()
	delete(r.active, job.id)
	r.running--
	r.mu.Unlock()

	r.done.SetDefault(job.id.String(), job)

	if r.repo != nil {
		if err := r.persist(job); err != nil {
			logger.WithError(err).
				Str("solve_id", job.id.String()).
				Msg("求解任务落库失败")
		}
	}
}

// persist 将任务结果写入仓储
func (r *Runner) persist(job *Job) error {
	v := job.View()

	problemJSON, err := repository.MarshalProblem(job.problem)
	if err != nil {
		return err
	}

	record := &repository.SolveJob{
		ID:           v.ID,
		Status:       string(v.Status),
		Problem:      problemJSON,
		ErrorMessage: v.Error,
		FinishedAt:   v.Finished,
	}
	if v.Result != nil {
		solutionJSON, err := json.Marshal(v.Result.Timetable)
		if err != nil {
			return err
		}
		record.Solution = solutionJSON
		record.HardScore = v.Result.Score.Hard
		record.SoftScore = v.Result.Score.Soft
		record.Feasible = v.Result.Feasible
		record.Iterations = v.Result.Statistics.Iterations
		record.DurationMillis = v.Result.Duration.Milliseconds()
		record.StopReason = v.Result.StopReason
	}

	ctx, cancelFn := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelFn()
	return r.repo.Create(ctx, record)
}

// Get 查询任务（运行中或已结束），不存在时返回 nil
func (r *Runner) Get(id uuid.UUID) *View {
	r.mu.RLock()
	job, ok := r.active[id]
	r.mu.RUnlock()
	if ok {
		return job.View()
	}

	if cached, found := r.done.Get(id.String()); found {
		return cached.(*Job).View()
	}
	return nil
}

// List 列出全部任务视图（运行中优先）
func (r *Runner) List() []*View {
	r.mu.RLock()
	views := make([]*View, 0, len(r.active))
	for _, job := range r.active {
		views = append(views, job.View())
	}
	r.mu.RUnlock()

	for _, item := range r.done.Items() {
		views = append(views, item.Object.(*Job).View())
	}
	return views
}

// Cancel 请求取消运行中的任务
// 取消是协作式的：引擎在迭代边界响应，任务随后带着当前最优解结束
func (r *Runner) Cancel(id uuid.UUID) error {
	r.mu.RLock()
	job, ok := r.active[id]
	r.mu.RUnlock()
	if !ok {
		return apperrors.NotFoundf("求解任务", id.String())
	}

	job.cancel()
	logger.Info().Str("solve_id", id.String()).Msg("已发送取消信号")
	return nil
}

// Delete 删除已结束的任务记录，运行中的任务须先取消
func (r *Runner) Delete(id uuid.UUID) error {
	r.mu.RLock()
	_, isActive := r.active[id]
	r.mu.RUnlock()
	if isActive {
		return apperrors.New(apperrors.CodeSolveRunning, "任务仍在运行，请先取消")
	}

	if _, found := r.done.Get(id.String()); !found {
		return apperrors.NotFoundf("求解任务", id.String())
	}
	r.done.Delete(id.String())
	return nil
}

// ActiveCount 当前运行中的任务数
func (r *Runner) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Shutdown 取消全部运行中的任务并等待其结束
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	jobs := make([]*Job, 0, len(r.active))
	for _, job := range r.active {
		jobs = append(jobs, job)
	}
	r.mu.RUnlock()

	for _, job := range jobs {
		job.cancel()
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if r.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
