// Package e2e 提供端到端测试
package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/schedulus/schedulus/internal/config"
	"github.com/schedulus/schedulus/internal/handler"
	"github.com/schedulus/schedulus/internal/runner"
	"github.com/schedulus/schedulus/pkg/solver"
	"github.com/schedulus/schedulus/pkg/solver/optimizer"
)

// newTestServer 组装与生产一致的路由
func newTestServer() *httptest.Server {
	searchCfg := optimizer.DefaultConfig()
	searchCfg.MaxIterations = 3000
	searchCfg.MaxDuration = 10 * time.Second
	searchCfg.Seed = 99

	slv := solver.New(searchCfg, nil)
	run := runner.New(config.RunnerConfig{
		MaxConcurrent: 2,
		JobTTL:        time.Minute,
		CleanupPeriod: time.Minute,
	}, slv, nil)

	timetableHandler := handler.NewTimetableHandler(slv, nil, 10*time.Second)
	jobsHandler := handler.NewJobsHandler(run)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/timetables/solve", timetableHandler.Solve)
	mux.HandleFunc("/api/v1/timetables/analyze", timetableHandler.Analyze)
	mux.HandleFunc("/api/v1/timetables/stats", timetableHandler.Stats)
	mux.HandleFunc("/api/v1/constraints/library", timetableHandler.ConstraintLibrary)
	mux.HandleFunc("/api/v1/jobs", jobsHandler.Collection)
	mux.HandleFunc("/api/v1/jobs/", jobsHandler.Item)
	return httptest.NewServer(mux)
}

func problemBody() string {
	return `{
		"timeslots": [
			{"day_of_week": "MONDAY", "start_time": "09:00", "end_time": "11:00"},
			{"day_of_week": "MONDAY", "start_time": "14:00", "end_time": "16:00"},
			{"day_of_week": "TUESDAY", "start_time": "09:00", "end_time": "11:00"}
		],
		"rooms": [
			{"name": "101", "capacity": 40},
			{"name": "202", "capacity": 30}
		],
		"lessons": [
			{"id": "L1", "subject": "数学", "teacher": "张老师", "student_group": "一班", "difficulty_weight": 0.9},
			{"id": "L2", "subject": "物理", "teacher": "李老师", "student_group": "二班"},
			{"id": "L3", "subject": "化学", "teacher": "张老师", "student_group": "二班"},
			{"id": "L4", "subject": "音乐", "teacher": "王老师", "student_group": "一班"}
		]
	}`
}

// TestFullSolveWorkflow 测试同步求解完整工作流
func TestFullSolveWorkflow(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/timetables/solve", "application/json",
		strings.NewReader(problemBody()))
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("期望200, 实际: %d", resp.StatusCode)
	}

	var solveResp struct {
		Success   bool `json:"success"`
		Feasible  bool `json:"feasible"`
		Timetable struct {
			Lessons []struct {
				ID            string `json:"id"`
				TimeslotIndex *int   `json:"timeslot_index"`
				RoomIndex     *int   `json:"room_index"`
			} `json:"lessons"`
			Score struct {
				Hard int `json:"hard"`
				Soft int `json:"soft"`
			} `json:"score"`
		} `json:"timetable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&solveResp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}

	t.Logf("可行: %v, 分数: %d/%d", solveResp.Feasible,
		solveResp.Timetable.Score.Hard, solveResp.Timetable.Score.Soft)

	if !solveResp.Success || !solveResp.Feasible {
		t.Error("四节课六个落点应当可行")
	}
	for _, l := range solveResp.Timetable.Lessons {
		if l.TimeslotIndex == nil || l.RoomIndex == nil {
			t.Errorf("课程 %s 未完成赋值", l.ID)
		}
	}
}

// TestFullJobWorkflow 测试异步任务完整工作流：提交 -> 轮询 -> 删除
func TestFullJobWorkflow(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json",
		strings.NewReader(problemBody()))
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("期望202, 实际: %d", resp.StatusCode)
	}
	t.Logf("任务已提交: %s (%s)", created.ID, created.Status)

	// 轮询到任务完成
	deadline := time.Now().Add(15 * time.Second)
	var final struct {
		Status string `json:"status"`
		Score  struct {
			Hard     int  `json:"hard"`
			Feasible bool `json:"feasible"`
		} `json:"score"`
	}
	for {
		if time.Now().After(deadline) {
			t.Fatalf("任务未在限期内完成, 状态: %s", final.Status)
		}
		resp, err := http.Get(srv.URL + "/api/v1/jobs/" + created.ID)
		if err != nil {
			t.Fatalf("查询失败: %v", err)
		}
		err = json.NewDecoder(resp.Body).Decode(&final)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("响应解析失败: %v", err)
		}
		if final.Status == "completed" {
			break
		}
		if final.Status == "failed" {
			t.Fatal("任务执行失败")
		}
		time.Sleep(50 * time.Millisecond)
	}

	if !final.Score.Feasible {
		t.Errorf("任务结果应当可行, hard=%d", final.Score.Hard)
	}

	// 删除后再查询应404
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/jobs/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("删除期望200, 实际: %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/jobs/" + created.ID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("删除后查询期望404, 实际: %d", resp.StatusCode)
	}
}
