// Package integration 提供接口集成测试
package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/schedulus/schedulus/internal/handler"
	"github.com/schedulus/schedulus/pkg/solver"
	"github.com/schedulus/schedulus/pkg/solver/optimizer"
)

func newHandler() *handler.TimetableHandler {
	cfg := optimizer.DefaultConfig()
	cfg.MaxIterations = 1000
	cfg.MaxDuration = 5 * time.Second
	cfg.Seed = 3
	return handler.NewTimetableHandler(solver.New(cfg, nil), nil, 10*time.Second)
}

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// TestSolveAPI_WireFormatRoundTrip 测试下标引用与snake_case字段的往返
func TestSolveAPI_WireFormatRoundTrip(t *testing.T) {
	body := `{
		"timeslots": [
			{"day_of_week": "MONDAY", "start_time": "09:00", "end_time": "11:00", "preference_bonus": 0.9},
			{"day_of_week": "FRIDAY", "start_time": "14:00", "end_time": "16:00"}
		],
		"rooms": [{"name": "101", "capacity": 40}],
		"lessons": [
			{"id": "L1", "subject": "数学", "teacher": "张老师", "student_group": "一班",
			 "pinned": true, "pinned_timeslot_index": 1, "pinned_room_index": 0},
			{"id": "L2", "subject": "物理", "teacher": "李老师", "student_group": "二班"}
		]
	}`

	rec := post(newHandler().Solve, "/api/v1/timetables/solve", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("期望200, 实际: %d, body: %s", rec.Code, rec.Body.String())
	}

	raw := rec.Body.String()
	// 输出保持snake_case
	for _, key := range []string{"day_of_week", "start_time", "timeslot_index", "room_index", "stop_reason"} {
		if !strings.Contains(raw, key) {
			t.Errorf("响应缺少字段: %s", key)
		}
	}

	var resp struct {
		Timetable struct {
			Timeslots []struct {
				DayOfWeek       string  `json:"day_of_week"`
				StartTime       string  `json:"start_time"`
				PreferenceBonus float64 `json:"preference_bonus"`
			} `json:"timeslots"`
			Lessons []struct {
				ID                  string `json:"id"`
				Pinned              bool   `json:"pinned"`
				PinnedTimeslotIndex *int   `json:"pinned_timeslot_index"`
				PinnedRoomIndex     *int   `json:"pinned_room_index"`
				TimeslotIndex       *int   `json:"timeslot_index"`
				RoomIndex           *int   `json:"room_index"`
			} `json:"lessons"`
		} `json:"timetable"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}

	if len(resp.Timetable.Timeslots) != 2 {
		t.Fatalf("时段列表应原样返回, 实际: %d", len(resp.Timetable.Timeslots))
	}
	if resp.Timetable.Timeslots[0].StartTime != "09:00" {
		t.Errorf("时钟格式应保持HH:MM, 实际: %s", resp.Timetable.Timeslots[0].StartTime)
	}
	if resp.Timetable.Timeslots[0].PreferenceBonus != 0.9 {
		t.Errorf("显式偏好奖励应原样返回, 实际: %f", resp.Timetable.Timeslots[0].PreferenceBonus)
	}

	// 固定课程必须回到其固定下标，且固定引用本身随结果返回
	for _, l := range resp.Timetable.Lessons {
		if l.ID != "L1" {
			continue
		}
		if !l.Pinned {
			t.Error("固定标记丢失")
		}
		if l.PinnedTimeslotIndex == nil || *l.PinnedTimeslotIndex != 1 {
			t.Errorf("固定时段引用应为1, 实际: %v", l.PinnedTimeslotIndex)
		}
		if l.PinnedRoomIndex == nil || *l.PinnedRoomIndex != 0 {
			t.Errorf("固定教室引用应为0, 实际: %v", l.PinnedRoomIndex)
		}
		if l.TimeslotIndex == nil || *l.TimeslotIndex != 1 {
			t.Errorf("固定课程的时段下标应为1, 实际: %v", l.TimeslotIndex)
		}
		if l.RoomIndex == nil || *l.RoomIndex != 0 {
			t.Errorf("固定课程的教室下标应为0, 实际: %v", l.RoomIndex)
		}
	}

	// 结果可以原样重新提交且固定语义不变
	var echo struct {
		Timetable json.RawMessage `json:"timetable"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &echo); err != nil {
		t.Fatalf("结果提取失败: %v", err)
	}
	rec2 := post(newHandler().Solve, "/api/v1/timetables/solve", string(echo.Timetable))
	if rec2.Code != http.StatusOK {
		t.Fatalf("重新提交期望200, 实际: %d, body: %s", rec2.Code, rec2.Body.String())
	}
	for _, key := range []string{"pinned_timeslot_index", "pinned_room_index"} {
		if !strings.Contains(rec2.Body.String(), key) {
			t.Errorf("重新提交后丢失字段: %s", key)
		}
	}
}

// TestSolveAPI_InvalidIndexRejected 测试越界下标的错误响应
func TestSolveAPI_InvalidIndexRejected(t *testing.T) {
	body := `{
		"timeslots": [{"day_of_week": "MONDAY", "start_time": "09:00", "end_time": "11:00"}],
		"rooms": [{"name": "101"}],
		"lessons": [{"id": "L1", "subject": "数学", "teacher": "张老师", "student_group": "一班", "room_index": 9}]
	}`

	rec := post(newHandler().Solve, "/api/v1/timetables/solve", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("期望400, 实际: %d", rec.Code)
	}

	var errResp struct {
		Error   bool   `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("错误响应解析失败: %v", err)
	}
	if !errResp.Error || errResp.Code != "INVALID_PROBLEM" {
		t.Errorf("期望INVALID_PROBLEM错误, 实际: %+v", errResp)
	}
}

// TestSolveAPI_BadClockRejected 测试非法时钟格式的错误响应
func TestSolveAPI_BadClockRejected(t *testing.T) {
	body := `{
		"timeslots": [{"day_of_week": "MONDAY", "start_time": "9am", "end_time": "11:00"}],
		"rooms": [{"name": "101"}],
		"lessons": [{"id": "L1", "subject": "数学", "teacher": "张老师", "student_group": "一班"}]
	}`

	rec := post(newHandler().Solve, "/api/v1/timetables/solve", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("期望400, 实际: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INVALID_PROBLEM") {
		t.Errorf("应返回INVALID_PROBLEM, body: %s", rec.Body.String())
	}
}

// TestSolveAPI_ParallelStarts 测试带并行起点的求解请求
func TestSolveAPI_ParallelStarts(t *testing.T) {
	body := `{
		"timeslots": [
			{"day_of_week": "MONDAY", "start_time": "09:00", "end_time": "11:00"},
			{"day_of_week": "MONDAY", "start_time": "14:00", "end_time": "16:00"}
		],
		"rooms": [{"name": "101", "capacity": 40}],
		"lessons": [
			{"id": "L1", "subject": "数学", "teacher": "张老师", "student_group": "一班"},
			{"id": "L2", "subject": "物理", "teacher": "李老师", "student_group": "二班"}
		],
		"termination": {"parallel_starts": 3, "max_iterations": 500}
	}`

	rec := post(newHandler().Solve, "/api/v1/timetables/solve", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("期望200, 实际: %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Feasible   bool `json:"feasible"`
		Statistics struct {
			Iterations int `json:"iterations"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解析失败: %v", err)
	}
	if !resp.Feasible {
		t.Error("两节课四个落点应当可行")
	}
	t.Logf("三起点合计迭代: %d", resp.Statistics.Iterations)
}
