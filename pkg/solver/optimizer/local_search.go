package optimizer

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/schedulus/schedulus/pkg/logger"
	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
)

// Config 局部搜索配置
type Config struct {
	MaxIterations   int            `json:"max_iterations"`    // 最大迭代次数，负数表示不限
	MaxDuration     time.Duration  `json:"max_duration"`      // 最大运行时间，0表示不限
	UnimprovedLimit int            `json:"unimproved_limit"`  // 无改进迭代上限，0表示不限
	InitialTemp     float64        `json:"initial_temp"`      // 模拟退火初始温度
	CoolingRate     float64        `json:"cooling_rate"`      // 冷却速率
	TabuSize        int            `json:"tabu_size"`         // 禁忌表大小
	Selector        SelectorPolicy `json:"selector"`          // 课程选择策略
	Seed            int64          `json:"seed,omitempty"`    // 随机种子，0表示按时间
}

// DefaultConfig 默认局部搜索配置
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:   10000,
		MaxDuration:     30 * time.Second,
		UnimprovedLimit: 2000,
		InitialTemp:     100.0,
		CoolingRate:     0.999,
		TabuSize:        200,
		Selector:        PolicyOffender,
	}
}

// Outcome 一次局部搜索的结果
type Outcome struct {
	Best       *model.Timetable `json:"-"`
	Score      model.Score      `json:"score"`
	Iterations int              `json:"iterations"`
	Accepted   int              `json:"accepted"`
	Improved   int              `json:"improved"`
	Duration   time.Duration    `json:"duration"`
	Cancelled  bool             `json:"cancelled"`
	StopReason string           `json:"stop_reason"`
}

// 终止原因
const (
	StopMaxIterations = "max_iterations"
	StopMaxDuration   = "max_duration"
	StopUnimproved    = "unimproved_limit"
	StopCancelled     = "cancelled"
	StopNoMoves       = "no_moves"
)

// LocalSearch 局部搜索引擎
// 单个求解在概念上单线程：一条顺序移动流改写同一份工作课表
type LocalSearch struct {
	cfg      *Config
	calc     *constraint.Calculator
	selector *MoveSelector
	tabu     *TabuList
	rng      *rand.Rand
	log      *logger.SolverLogger

	// 最优解快照：发布为不可变拷贝，外部只读
	mu        sync.RWMutex
	bestShot  *model.Timetable
	onNewBest func(*model.Timetable, model.Score)
}

// NewLocalSearch 创建局部搜索引擎
func NewLocalSearch(cfg *Config, calc *constraint.Calculator) *LocalSearch {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &LocalSearch{
		cfg:      cfg,
		calc:     calc,
		selector: NewMoveSelector(cfg.Selector, calc, rng),
		tabu:     NewTabuList(cfg.TabuSize),
		rng:      rng,
		log:      logger.NewSolverLogger(),
	}
}

// OnNewBest 注册新最优解回调（收到的是不可变拷贝）
func (ls *LocalSearch) OnNewBest(fn func(*model.Timetable, model.Score)) {
	ls.onNewBest = fn
}

// BestSnapshot 当前最优解的不可变拷贝，求解过程中可安全读取
func (ls *LocalSearch) BestSnapshot() *model.Timetable {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.bestShot
}

// Optimize 以 tt 为初始解迭代改进，返回最优解快照
// 取消信号在迭代边界检查，不会留下半应用的移动
func (ls *LocalSearch) Optimize(ctx context.Context, tt *model.Timetable) *Outcome {
	start := time.Now()

	current := ls.calc.Reset(tt)
	bestScore := current
	ls.publishBest(tt, bestScore)
	ls.selector.Bind(tt)
	ls.tabu.Clear()
	ls.tabu.Add(hashAssignment(tt))

	outcome := &Outcome{StopReason: StopMaxIterations}
	temperature := ls.cfg.InitialTemp
	unimproved := 0

	ls.log.SearchStart(len(tt.Lessons), ls.cfg.MaxIterations, ls.cfg.MaxDuration, current)

	i := 0
	for ; ls.cfg.MaxIterations < 0 || i < ls.cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			outcome.Cancelled = true
			outcome.StopReason = StopCancelled
			ls.log.SearchCancelled(i, bestScore)
			return ls.finish(outcome, i, start, bestScore)
		default:
		}

		if ls.cfg.MaxDuration > 0 && time.Since(start) > ls.cfg.MaxDuration {
			outcome.StopReason = StopMaxDuration
			return ls.finish(outcome, i, start, bestScore)
		}
		if ls.cfg.UnimprovedLimit > 0 && unimproved >= ls.cfg.UnimprovedLimit {
			outcome.StopReason = StopUnimproved
			return ls.finish(outcome, i, start, bestScore)
		}

		move := ls.selector.NextMove(tt)
		if move == nil {
			outcome.StopReason = StopNoMoves
			break
		}

		delta := move.Apply(ls.calc)
		candidate := current.Add(delta)
		key := hashAssignment(tt)

		accept := false
		if candidate.Better(current) {
			// 改进移动总是接受（特赦准则：即使在禁忌表中）
			accept = true
		} else if !ls.tabu.Contains(key) {
			prob := boltzmannProbability(energyDelta(current, candidate), temperature)
			accept = ls.rng.Float64() < prob
		}

		if accept {
			current = candidate
			outcome.Accepted++
			ls.tabu.Add(key)

			if current.Better(bestScore) {
				bestScore = current
				outcome.Improved++
				unimproved = 0
				ls.publishBest(tt, bestScore)
				ls.log.NewBest(i, bestScore)
			} else {
				unimproved++
			}
		} else {
			move.Undo(ls.calc)
			unimproved++
		}

		temperature *= ls.cfg.CoolingRate
	}

	return ls.finish(outcome, i, start, bestScore)
}

// finish 收尾：填充结果并返回最优快照
func (ls *LocalSearch) finish(outcome *Outcome, iterations int, start time.Time, bestScore model.Score) *Outcome {
	outcome.Iterations = iterations
	outcome.Duration = time.Since(start)
	outcome.Score = bestScore
	outcome.Best = ls.BestSnapshot()
	ls.log.SearchComplete(iterations, outcome.Duration, bestScore, outcome.StopReason)
	return outcome
}

// publishBest 发布最优解的不可变拷贝
func (ls *LocalSearch) publishBest(tt *model.Timetable, score model.Score) {
	snapshot := tt.Clone()
	snapshot.Score = &model.Score{Hard: score.Hard, Soft: score.Soft}

	ls.mu.Lock()
	ls.bestShot = snapshot
	ls.mu.Unlock()

	if ls.onNewBest != nil {
		ls.onNewBest(snapshot, score)
	}
}

// energyDelta 候选解相对当前解的能量增量（越大越差）
// 硬分以大系数折算，保证字典序语义下硬约束主导
func energyDelta(current, candidate model.Score) float64 {
	const hardScale = 1000.0
	return float64(current.Hard-candidate.Hard)*hardScale + float64(current.Soft-candidate.Soft)
}

// boltzmannProbability 模拟退火接受概率
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// TabuList 禁忌表（uint64 赋值哈希为键）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	if size <= 0 {
		size = 1
	}
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加键，超出容量时淘汰最旧的
func (t *TabuList) Add(key uint64) {
	if _, exists := t.items[key]; exists {
		return
	}
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}
	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	_, exists := t.items[key]
	return exists
}

// Clear 清空禁忌表
func (t *TabuList) Clear() {
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}
