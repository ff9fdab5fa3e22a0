package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/schedulus/schedulus/internal/runner"
	"github.com/schedulus/schedulus/pkg/errors"
	"github.com/schedulus/schedulus/pkg/solver"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
)

// JobsHandler 异步求解任务处理器
type JobsHandler struct {
	run *runner.Runner
}

// NewJobsHandler 创建异步求解任务处理器
func NewJobsHandler(run *runner.Runner) *JobsHandler {
	return &JobsHandler{run: run}
}

// JobResponse 任务视图响应
// 运行中的任务带当前最优解快照，结束后带完整结果
type JobResponse struct {
	ID        string           `json:"id"`
	Status    runner.JobStatus `json:"status"`
	Score     ScoreOutput      `json:"score"`
	Timetable *TimetableOutput `json:"timetable,omitempty"`
	Result    *JobResult       `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt string           `json:"created_at"`
	StartedAt string           `json:"started_at,omitempty"`
	Finished  string           `json:"finished_at,omitempty"`
}

// JobResult 已结束任务的求解摘要
type JobResult struct {
	Feasible       bool               `json:"feasible"`
	StopReason     string             `json:"stop_reason"`
	DurationMillis int64              `json:"duration_millis"`
	Statistics     solver.Statistics  `json:"statistics"`
	Constraints    *constraint.Result `json:"constraints,omitempty"`
}

// buildJobResponse 将任务视图转换为响应体
func buildJobResponse(v *runner.View) JobResponse {
	resp := JobResponse{
		ID:     v.ID.String(),
		Status: v.Status,
		Score: ScoreOutput{
			Hard:     v.BestScore.Hard,
			Soft:     v.BestScore.Soft,
			Feasible: v.BestScore.Feasible(),
		},
		Error:     v.Error,
		CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if v.Best != nil {
		resp.Timetable = buildTimetableOutput(v.Best, v.BestScore)
	}
	if v.Result != nil {
		resp.Result = &JobResult{
			Feasible:       v.Result.Feasible,
			StopReason:     v.Result.StopReason,
			DurationMillis: v.Result.Duration.Milliseconds(),
			Statistics:     v.Result.Statistics,
			Constraints:    v.Result.Constraints,
		}
	}
	if v.StartedAt != nil {
		resp.StartedAt = v.StartedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if v.Finished != nil {
		resp.Finished = v.Finished.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// Collection 处理 /api/v1/jobs：POST 提交，GET 列出
func (h *JobsHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submit(w, r)
	case http.MethodGet:
		h.list(w)
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET/POST方法"))
	}
}

// submit 提交异步求解任务
func (h *JobsHandler) submit(w http.ResponseWriter, r *http.Request) {
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

	view, err := h.run.Submit(problem, req.Termination)
	if err != nil {
		respondAnyError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, buildJobResponse(view))
}

// list 列出全部任务
func (h *JobsHandler) list(w http.ResponseWriter) {
	views := h.run.List()
	jobs := make([]JobResponse, 0, len(views))
	for _, v := range views {
		// 列表视图不携带课表主体
		resp := buildJobResponse(v)
		resp.Timetable = nil
		jobs = append(jobs, resp)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// Item 处理 /api/v1/jobs/{id} 与 /api/v1/jobs/{id}/cancel
func (h *JobsHandler) Item(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	idStr, action, _ := strings.Cut(rest, "/")

	id, err := uuid.Parse(idStr)
	if err != nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "无效的任务ID格式"))
		return
	}

	switch {
	case action == "cancel" && r.Method == http.MethodPost:
		h.cancel(w, id)
	case action == "" && r.Method == http.MethodGet:
		h.get(w, id)
	case action == "" && r.Method == http.MethodDelete:
		h.delete(w, id)
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "不支持的任务操作"))
	}
}

// get 查询任务状态与当前最优解
func (h *JobsHandler) get(w http.ResponseWriter, id uuid.UUID) {
	view := h.run.Get(id)
	if view == nil {
		respondError(w, errors.NotFoundf("求解任务", id.String()))
		return
	}
	respondJSON(w, http.StatusOK, buildJobResponse(view))
}

// cancel 协作式取消任务
func (h *JobsHandler) cancel(w http.ResponseWriter, id uuid.UUID) {
	if err := h.run.Cancel(id); err != nil {
		respondAnyError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":      id.String(),
		"message": "取消信号已发送，任务将在迭代边界结束",
	})
}

// delete 删除已结束的任务
func (h *JobsHandler) delete(w http.ResponseWriter, id uuid.UUID) {
	if err := h.run.Delete(id); err != nil {
		respondAnyError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id.String(),
		"deleted": true,
	})
}
