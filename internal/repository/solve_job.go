package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schedulus/schedulus/pkg/model"
)

// SolveJob 求解任务记录
// Problem 与 Solution 以 JSON 形式整体落库，便于审计与重放
type SolveJob struct {
	ID             uuid.UUID       `json:"id"`
	Status         string          `json:"status"` // pending/running/completed/failed/cancelled
	Problem        json.RawMessage `json:"problem,omitempty"`
	Solution       json.RawMessage `json:"solution,omitempty"`
	HardScore      int             `json:"hard_score"`
	SoftScore      int             `json:"soft_score"`
	Feasible       bool            `json:"feasible"`
	Iterations     int             `json:"iterations"`
	DurationMillis int64           `json:"duration_millis"`
	StopReason     string          `json:"stop_reason,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
}

// SolveJobRepositoryInterface 求解任务仓储接口
type SolveJobRepositoryInterface interface {
	Create(ctx context.Context, job *SolveJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*SolveJob, error)
	Update(ctx context.Context, job *SolveJob) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]*SolveJob, int, error)
	PurgeFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SolveJobRepository 求解任务仓储实现
type SolveJobRepository struct {
	db DB
}

// NewSolveJobRepository 创建求解任务仓储
func NewSolveJobRepository(db DB) *SolveJobRepository {
	return &SolveJobRepository{db: db}
}

// EnsureSchema 建表（幂等），服务启动时调用
func (r *SolveJobRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS solve_jobs (
			id              UUID PRIMARY KEY,
			status          VARCHAR(20) NOT NULL,
			problem         JSONB,
			solution        JSONB,
			hard_score      INTEGER NOT NULL DEFAULT 0,
			soft_score      INTEGER NOT NULL DEFAULT 0,
			feasible        BOOLEAN NOT NULL DEFAULT FALSE,
			iterations      INTEGER NOT NULL DEFAULT 0,
			duration_millis BIGINT NOT NULL DEFAULT 0,
			stop_reason     TEXT,
			error_message   TEXT,
			created_at      TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL,
			finished_at     TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_solve_jobs_status ON solve_jobs(status);
		CREATE INDEX IF NOT EXISTS idx_solve_jobs_created ON solve_jobs(created_at DESC)`)
	if err != nil {
		return fmt.Errorf("初始化求解任务表失败: %w", err)
	}
	return nil
}

// MarshalProblem 序列化问题实例
func MarshalProblem(tt *model.Timetable) (json.RawMessage, error) {
	data, err := json.Marshal(tt)
	if err != nil {
		return nil, fmt.Errorf("序列化问题实例失败: %w", err)
	}
	return data, nil
}

// Create 创建求解任务记录
func (r *SolveJobRepository) Create(ctx context.Context, job *SolveJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `
		INSERT INTO solve_jobs (
			id, status, problem, solution, hard_score, soft_score, feasible,
			iterations, duration_millis, stop_reason, error_message,
			created_at, updated_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, []byte(job.Problem), []byte(job.Solution),
		job.HardScore, job.SoftScore, job.Feasible,
		job.Iterations, job.DurationMillis, job.StopReason, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("创建求解任务失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取求解任务，不存在时返回 nil
func (r *SolveJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*SolveJob, error) {
	query := `
		SELECT id, status, problem, solution, hard_score, soft_score, feasible,
			iterations, duration_millis, stop_reason, error_message,
			created_at, updated_at, finished_at
		FROM solve_jobs
		WHERE id = $1
	`

	job, err := scanSolveJob(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询求解任务失败: %w", err)
	}
	return job, nil
}

// Update 更新求解任务（状态、结果与终止信息）
func (r *SolveJobRepository) Update(ctx context.Context, job *SolveJob) error {
	job.UpdatedAt = time.Now()

	query := `
		UPDATE solve_jobs SET
			status = $2, solution = $3, hard_score = $4, soft_score = $5,
			feasible = $6, iterations = $7, duration_millis = $8,
			stop_reason = $9, error_message = $10, updated_at = $11, finished_at = $12
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Status, []byte(job.Solution), job.HardScore, job.SoftScore,
		job.Feasible, job.Iterations, job.DurationMillis,
		job.StopReason, job.ErrorMessage, job.UpdatedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("更新求解任务失败: %w", err)
	}

	return nil
}

// Delete 删除求解任务
func (r *SolveJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM solve_jobs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("删除求解任务失败: %w", err)
	}
	return nil
}

// List 列出求解任务
func (r *SolveJobRepository) List(ctx context.Context, filter ListFilter) ([]*SolveJob, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM solve_jobs %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计求解任务数量失败: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, status, problem, solution, hard_score, soft_score, feasible,
			iterations, duration_millis, stop_reason, error_message,
			created_at, updated_at, finished_at
		FROM solve_jobs %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, filter.OrderBy, filter.OrderDir, argNum, argNum+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询求解任务列表失败: %w", err)
	}
	defer rows.Close()

	var jobs []*SolveJob
	for rows.Next() {
		job, err := scanSolveJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("扫描求解任务失败: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, total, nil
}

// PurgeFinishedBefore 清理指定时间之前完成的任务，返回删除行数
func (r *SolveJobRepository) PurgeFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM solve_jobs WHERE finished_at IS NOT NULL AND finished_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("清理过期求解任务失败: %w", err)
	}
	return result.RowsAffected()
}

// scanSolveJob 扫描单行求解任务
func scanSolveJob(row Scanner) (*SolveJob, error) {
	job := &SolveJob{}
	var problem, solution []byte
	var finishedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.Status, &problem, &solution,
		&job.HardScore, &job.SoftScore, &job.Feasible,
		&job.Iterations, &job.DurationMillis, &job.StopReason, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Problem = problem
	job.Solution = solution
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}

	return job, nil
}
