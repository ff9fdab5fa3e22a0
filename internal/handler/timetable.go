package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/schedulus/schedulus/internal/metrics"
	"github.com/schedulus/schedulus/pkg/errors"
	"github.com/schedulus/schedulus/pkg/solver"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
	"github.com/schedulus/schedulus/pkg/stats"
)

// TimetableHandler 课表求解处理器
type TimetableHandler struct {
	slv     *solver.Solver
	ruleCfg *constraint.Config
	timeout time.Duration
}

// NewTimetableHandler 创建课表求解处理器
func NewTimetableHandler(slv *solver.Solver, ruleCfg *constraint.Config, timeout time.Duration) *TimetableHandler {
	if ruleCfg == nil {
		ruleCfg = constraint.DefaultConfig()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TimetableHandler{slv: slv, ruleCfg: ruleCfg, timeout: timeout}
}

// SolveResponse 同步求解响应
type SolveResponse struct {
	Success        bool               `json:"success"`
	Feasible       bool               `json:"feasible"`
	Timetable      *TimetableOutput   `json:"timetable"`
	Statistics     solver.Statistics  `json:"statistics"`
	Constraints    *constraint.Result `json:"constraints,omitempty"`
	StopReason     string             `json:"stop_reason"`
	DurationMillis int64              `json:"duration_millis"`
}

// Solve 同步求解：请求在求解完成后才返回
func (h *TimetableHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	problem, appErr := buildProblem(&req.ProblemInput)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.slv.Solve(ctx, problem, req.Termination)
	if err != nil {
		metrics.RecordSolve("sync", false, 0, 0)
		respondAnyError(w, err)
		return
	}

	metrics.RecordSolve("sync", !res.Cancelled, res.Duration, res.Statistics.Iterations)
	metrics.SetLastSolveScore(res.Score.Hard, res.Score.Soft)
	metrics.SetLastAssignmentRate(res.Statistics.AssignmentRate)

	respondJSON(w, http.StatusOK, SolveResponse{
		Success:        true,
		Feasible:       res.Feasible,
		Timetable:      buildTimetableOutput(res.Timetable, res.Score),
		Statistics:     res.Statistics,
		Constraints:    res.Constraints,
		StopReason:     res.StopReason,
		DurationMillis: res.Duration.Milliseconds(),
	})
}

// AnalyzeResponse 评分响应
type AnalyzeResponse struct {
	Score       ScoreOutput        `json:"score"`
	Constraints *constraint.Result `json:"constraints"`
}

// Analyze 对给定赋值做全量评分与违规归集，不做搜索
func (h *TimetableHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ProblemInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	problem, appErr := buildProblem(&req)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	result := constraint.NewCalculator(h.ruleCfg).Explain(problem)
	respondJSON(w, http.StatusOK, AnalyzeResponse{
		Score: ScoreOutput{
			Hard:     result.Score.Hard,
			Soft:     result.Score.Soft,
			Feasible: result.Feasible,
		},
		Constraints: result,
	})
}

// StatsResponse 课表统计响应
type StatsResponse struct {
	Utilization *stats.UtilizationMetrics `json:"utilization"`
	Workload    *stats.WorkloadMetrics    `json:"workload"`
}

// Stats 对给定赋值计算利用率与教师负载统计
func (h *TimetableHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ProblemInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	problem, appErr := buildProblem(&req)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Utilization: stats.NewUtilizationAnalyzer().Analyze(problem),
		Workload:    stats.NewWorkloadAnalyzer().Analyze(problem),
	})
}

// ConstraintLibraryResponse 约束库响应
type ConstraintLibraryResponse struct {
	Library []constraint.RuleDefinition `json:"library"`
}

// ConstraintLibrary 返回引擎支持的全部约束规则定义
func (h *TimetableHandler) ConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	respondJSON(w, http.StatusOK, ConstraintLibraryResponse{Library: constraint.Catalog()})
}
