package solver

import (
	"context"
	"time"

	"github.com/schedulus/schedulus/pkg/logger"
	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
	"github.com/schedulus/schedulus/pkg/solver/optimizer"
	"github.com/schedulus/schedulus/pkg/validator"
)

// TerminationConfig 终止条件，任意子集可设，先触发者生效
type TerminationConfig struct {
	// MaxDurationMillis 最长求解时长（毫秒），<=0 取引擎默认
	MaxDurationMillis int64 `json:"max_duration_millis,omitempty"`
	// MaxIterations 最大迭代数。nil 取引擎默认；0 表示只做构造不做搜索；负数不限
	MaxIterations *int `json:"max_iterations,omitempty"`
	// UnimprovedIterationLimit 连续无改进迭代上限，<=0 取引擎默认
	UnimprovedIterationLimit int `json:"unimproved_iteration_limit,omitempty"`
	// ParallelStarts 多起点并行求解的起点数，>1 时生效
	ParallelStarts int `json:"parallel_starts,omitempty"`
}

// Statistics 求解统计
type Statistics struct {
	TotalLessons    int     `json:"total_lessons"`
	AssignedLessons int     `json:"assigned_lessons"`
	AssignmentRate  float64 `json:"assignment_rate"`
	Iterations      int     `json:"iterations"`
	AcceptedMoves   int     `json:"accepted_moves"`
	ImprovingMoves  int     `json:"improving_moves"`
}

// Result 一次求解的完整结果
type Result struct {
	Timetable   *model.Timetable   `json:"timetable"`
	Score       model.Score        `json:"score"`
	Feasible    bool               `json:"feasible"`
	Cancelled   bool               `json:"cancelled"`
	StopReason  string             `json:"stop_reason"`
	Duration    time.Duration      `json:"duration"`
	Statistics  Statistics         `json:"statistics"`
	Constraints *constraint.Result `json:"constraints,omitempty"`
}

// Solver 求解器门面：校验 -> 贪心构造 -> 局部搜索
type Solver struct {
	searchCfg *optimizer.Config
	ruleCfg   *constraint.Config
	log       *logger.SolverLogger
}

// New 创建求解器。nil 配置取各自默认值
func New(searchCfg *optimizer.Config, ruleCfg *constraint.Config) *Solver {
	if searchCfg == nil {
		searchCfg = optimizer.DefaultConfig()
	}
	if ruleCfg == nil {
		ruleCfg = constraint.DefaultConfig()
	}
	return &Solver{
		searchCfg: searchCfg,
		ruleCfg:   ruleCfg,
		log:       logger.NewSolverLogger(),
	}
}

// Solve 求解排课问题，输入不被修改，结果是独立副本
func (s *Solver) Solve(ctx context.Context, problem *model.Timetable, term *TerminationConfig) (*Result, error) {
	return s.SolveWithProgress(ctx, problem, term, nil)
}

// SolveWithProgress 与 Solve 相同，另在每次刷新最优解时回调一份快照。
// 回调在搜索协程内同步执行，不要在其中做耗时操作
func (s *Solver) SolveWithProgress(ctx context.Context, problem *model.Timetable, term *TerminationConfig, onBest func(*model.Timetable, model.Score)) (*Result, error) {
	if term != nil && term.ParallelStarts > 1 {
		return s.solveParallel(ctx, problem, term, onBest)
	}

	if err := validator.ValidateProblem(problem); err != nil {
		return nil, err
	}

	solveID, _ := ctx.Value("solve_id").(string)
	start := time.Now()
	s.log.SolveStart(solveID, len(problem.Lessons), len(problem.Timeslots), len(problem.Rooms))

	work := problem.Clone()
	calc := constraint.NewCalculator(s.ruleCfg)

	Construct(work, calc)

	ls := optimizer.NewLocalSearch(s.searchConfig(term), calc)
	if onBest != nil {
		ls.OnNewBest(onBest)
	}

	outcome := ls.Optimize(ctx, work)

	best := outcome.Best
	detail := constraint.NewCalculator(s.ruleCfg).Explain(best)

	res := &Result{
		Timetable:  best,
		Score:      outcome.Score,
		Feasible:   outcome.Score.Feasible(),
		Cancelled:  outcome.Cancelled,
		StopReason: outcome.StopReason,
		Duration:   outcome.Duration,
		Statistics: Statistics{
			TotalLessons:    len(best.Lessons),
			AssignedLessons: best.AssignedCount(),
			Iterations:      outcome.Iterations,
			AcceptedMoves:   outcome.Accepted,
			ImprovingMoves:  outcome.Improved,
		},
		Constraints: detail,
	}
	if res.Statistics.TotalLessons > 0 {
		res.Statistics.AssignmentRate = float64(res.Statistics.AssignedLessons) / float64(res.Statistics.TotalLessons)
	}

	if !res.Feasible {
		s.log.Infeasible(solveID, res.Score.Hard)
	}
	s.log.SolveComplete(solveID, time.Since(start), res.Score, res.Cancelled)
	return res, nil
}

// searchConfig 以引擎默认为底，叠加调用方终止条件
func (s *Solver) searchConfig(term *TerminationConfig) *optimizer.Config {
	cfg := *s.searchCfg
	if term != nil {
		if term.MaxDurationMillis > 0 {
			cfg.MaxDuration = time.Duration(term.MaxDurationMillis) * time.Millisecond
		}
		if term.MaxIterations != nil {
			cfg.MaxIterations = *term.MaxIterations
		}
		if term.UnimprovedIterationLimit > 0 {
			cfg.UnimprovedLimit = term.UnimprovedIterationLimit
		}
	}
	return &cfg
}
