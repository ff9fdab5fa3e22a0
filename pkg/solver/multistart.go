package solver

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/validator"
)

// solveParallel 多起点并行求解：每个起点用不同随机种子独立跑
// 构造+搜索，最后取字典序最优的结果。各起点共享取消信号
func (s *Solver) solveParallel(ctx context.Context, problem *model.Timetable, term *TerminationConfig, onBest func(*model.Timetable, model.Score)) (*Result, error) {
	if err := validator.ValidateProblem(problem); err != nil {
		return nil, err
	}

	starts := term.ParallelStarts
	workers := runtime.NumCPU()
	if workers > starts {
		workers = starts
	}

	solveID, _ := ctx.Value("solve_id").(string)
	start := time.Now()
	s.log.ParallelStart(solveID, starts, workers)

	baseSeed := s.searchCfg.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	// 全局最优只在真正刷新时向外回调
	var bestMu sync.Mutex
	hasBest := false
	var bestScore model.Score
	forward := func(tt *model.Timetable, score model.Score) {
		bestMu.Lock()
		defer bestMu.Unlock()
		// 回调须在锁内执行，保证对外可见的分数单调变优
		if hasBest && !score.Better(bestScore) {
			return
		}
		hasBest = true
		bestScore = score
		if onBest != nil {
			onBest(tt, score)
		}
	}

	seeds := make(chan int64, starts)
	for i := 0; i < starts; i++ {
		seeds <- baseSeed + int64(i)
	}
	close(seeds)

	results := make(chan *Result, starts)
	errs := make(chan error, starts)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range seeds {
				res, err := s.startWithSeed(ctx, problem, term, seed, forward)
				if err != nil {
					errs <- err
					continue
				}
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	var best *Result
	var iterations, accepted, improved int
	for res := range results {
		// 全部起点的迭代都计入总量
		iterations += res.Statistics.Iterations
		accepted += res.Statistics.AcceptedMoves
		improved += res.Statistics.ImprovingMoves
		if best == nil || res.Score.Better(best.Score) {
			best = res
		}
	}
	if best == nil {
		return nil, <-errs
	}
	best.Statistics.Iterations = iterations
	best.Statistics.AcceptedMoves = accepted
	best.Statistics.ImprovingMoves = improved

	best.Duration = time.Since(start)
	s.log.SolveComplete(solveID, best.Duration, best.Score, best.Cancelled)
	return best, nil
}

// startWithSeed 用派生种子跑一个独立起点
func (s *Solver) startWithSeed(ctx context.Context, problem *model.Timetable, term *TerminationConfig, seed int64, onBest func(*model.Timetable, model.Score)) (*Result, error) {
	cfg := *s.searchCfg
	cfg.Seed = seed

	sub := &Solver{searchCfg: &cfg, ruleCfg: s.ruleCfg, log: s.log}

	single := *term
	single.ParallelStarts = 0
	return sub.SolveWithProgress(ctx, problem, &single, onBest)
}
