// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/schedulus/schedulus/pkg/errors"
	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver"
)

// TimeslotInput 时段输入
type TimeslotInput struct {
	DayOfWeek       string   `json:"day_of_week"`
	StartTime       string   `json:"start_time"` // HH:MM
	EndTime         string   `json:"end_time"`   // HH:MM
	PreferenceBonus *float64 `json:"preference_bonus,omitempty"`
}

// RoomInput 教室输入
type RoomInput struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity,omitempty"`
}

// LessonInput 课程输入
// 时段与教室用候选集合下标引用；-1 或缺省表示未赋值
type LessonInput struct {
	ID                string   `json:"id"`
	Subject           string   `json:"subject"`
	Teacher           string   `json:"teacher"`
	StudentGroup      string   `json:"student_group"`
	DurationHours     *int     `json:"duration_hours,omitempty"`
	DifficultyWeight  *float64 `json:"difficulty_weight,omitempty"`
	SatisfactionScore *float64 `json:"satisfaction_score,omitempty"`

	Pinned              bool `json:"pinned,omitempty"`
	PinnedTimeslotIndex *int `json:"pinned_timeslot_index,omitempty"`
	PinnedRoomIndex     *int `json:"pinned_room_index,omitempty"`

	TimeslotIndex *int `json:"timeslot_index,omitempty"`
	RoomIndex     *int `json:"room_index,omitempty"`
}

// ProblemInput 问题实例输入
type ProblemInput struct {
	Timeslots []TimeslotInput `json:"timeslots"`
	Rooms     []RoomInput     `json:"rooms"`
	Lessons   []LessonInput   `json:"lessons"`
}

// SolveRequest 求解请求
type SolveRequest struct {
	ProblemInput
	Termination *solver.TerminationConfig `json:"termination,omitempty"`
}

// TimeslotOutput 时段输出
type TimeslotOutput struct {
	DayOfWeek       string  `json:"day_of_week"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	PreferenceBonus float64 `json:"preference_bonus"`
}

// LessonOutput 课程输出
type LessonOutput struct {
	ID                string  `json:"id"`
	Subject           string  `json:"subject"`
	Teacher           string  `json:"teacher"`
	StudentGroup      string  `json:"student_group"`
	DurationHours     int     `json:"duration_hours"`
	DifficultyWeight  float64 `json:"difficulty_weight"`
	SatisfactionScore float64 `json:"satisfaction_score"`
	Pinned            bool    `json:"pinned,omitempty"`

	PinnedTimeslotIndex *int `json:"pinned_timeslot_index,omitempty"`
	PinnedRoomIndex     *int `json:"pinned_room_index,omitempty"`

	TimeslotIndex *int `json:"timeslot_index,omitempty"`
	RoomIndex     *int `json:"room_index,omitempty"`
}

// ScoreOutput 分数输出
type ScoreOutput struct {
	Hard     int  `json:"hard"`
	Soft     int  `json:"soft"`
	Feasible bool `json:"feasible"`
}

// TimetableOutput 课表输出
type TimetableOutput struct {
	Timeslots []TimeslotOutput `json:"timeslots"`
	Rooms     []RoomInput      `json:"rooms"`
	Lessons   []LessonOutput   `json:"lessons"`
	Score     ScoreOutput      `json:"score"`
}

// buildProblem 将请求体转换为问题实例
func buildProblem(in *ProblemInput) (*model.Timetable, *errors.AppError) {
	tt := &model.Timetable{}

	for i, t := range in.Timeslots {
		start, err := model.ParseClock(t.StartTime)
		if err != nil {
			return nil, errors.InvalidProblem("时段 " + t.StartTime + " 的开始时间格式无效").WithField("index", i)
		}
		end, err := model.ParseClock(t.EndTime)
		if err != nil {
			return nil, errors.InvalidProblem("时段 " + t.EndTime + " 的结束时间格式无效").WithField("index", i)
		}
		tt.Timeslots = append(tt.Timeslots,
			model.NewTimeslot(model.DayOfWeek(t.DayOfWeek), start, end, t.PreferenceBonus))
	}

	for _, r := range in.Rooms {
		tt.Rooms = append(tt.Rooms, model.NewRoom(r.Name, r.Capacity))
	}

	for _, l := range in.Lessons {
		lesson := model.NewLesson(l.ID, l.Subject, l.Teacher, l.StudentGroup)
		if l.DurationHours != nil {
			lesson.DurationHours = *l.DurationHours
		}
		if l.DifficultyWeight != nil {
			lesson.DifficultyWeight = *l.DifficultyWeight
		}
		if l.SatisfactionScore != nil {
			lesson.SatisfactionScore = *l.SatisfactionScore
		}
		lesson.Pinned = l.Pinned

		var appErr *errors.AppError
		if lesson.PinnedTimeslot, appErr = timeslotAt(tt, l.PinnedTimeslotIndex, l.ID); appErr != nil {
			return nil, appErr
		}
		if lesson.PinnedRoom, appErr = roomAt(tt, l.PinnedRoomIndex, l.ID); appErr != nil {
			return nil, appErr
		}
		if lesson.Timeslot, appErr = timeslotAt(tt, l.TimeslotIndex, l.ID); appErr != nil {
			return nil, appErr
		}
		if lesson.Room, appErr = roomAt(tt, l.RoomIndex, l.ID); appErr != nil {
			return nil, appErr
		}

		tt.Lessons = append(tt.Lessons, lesson)
	}

	return tt, nil
}

// timeslotAt 按下标取时段引用，nil 下标表示未赋值
func timeslotAt(tt *model.Timetable, idx *int, lessonID string) (*model.Timeslot, *errors.AppError) {
	if idx == nil || *idx < 0 {
		return nil, nil
	}
	if *idx >= len(tt.Timeslots) {
		return nil, errors.InvalidProblem("课程 " + lessonID + " 引用了不存在的时段下标")
	}
	return tt.Timeslots[*idx], nil
}

// roomAt 按下标取教室引用
func roomAt(tt *model.Timetable, idx *int, lessonID string) (*model.Room, *errors.AppError) {
	if idx == nil || *idx < 0 {
		return nil, nil
	}
	if *idx >= len(tt.Rooms) {
		return nil, errors.InvalidProblem("课程 " + lessonID + " 引用了不存在的教室下标")
	}
	return tt.Rooms[*idx], nil
}

// buildTimetableOutput 将求解结果转回下标引用形式
func buildTimetableOutput(tt *model.Timetable, score model.Score) *TimetableOutput {
	out := &TimetableOutput{
		Score: ScoreOutput{Hard: score.Hard, Soft: score.Soft, Feasible: score.Feasible()},
	}

	for _, ts := range tt.Timeslots {
		out.Timeslots = append(out.Timeslots, TimeslotOutput{
			DayOfWeek:       string(ts.DayOfWeek),
			StartTime:       ts.StartClock(),
			EndTime:         ts.EndClock(),
			PreferenceBonus: ts.PreferenceBonus,
		})
	}
	for _, r := range tt.Rooms {
		out.Rooms = append(out.Rooms, RoomInput{Name: r.Name, Capacity: r.Capacity})
	}
	for _, l := range tt.Lessons {
		lo := LessonOutput{
			ID:                l.ID,
			Subject:           l.Subject,
			Teacher:           l.Teacher,
			StudentGroup:      l.StudentGroup,
			DurationHours:     l.DurationHours,
			DifficultyWeight:  l.DifficultyWeight,
			SatisfactionScore: l.SatisfactionScore,
			Pinned:            l.Pinned,
		}
		// 固定引用必须随结果返回，重新提交结果时固定语义才不丢失
		if l.PinnedTimeslot != nil {
			if idx := tt.TimeslotIndex(l.PinnedTimeslot); idx >= 0 {
				lo.PinnedTimeslotIndex = &idx
			}
		}
		if l.PinnedRoom != nil {
			if idx := tt.RoomIndex(l.PinnedRoom); idx >= 0 {
				lo.PinnedRoomIndex = &idx
			}
		}
		if l.Timeslot != nil {
			if idx := tt.TimeslotIndex(l.Timeslot); idx >= 0 {
				lo.TimeslotIndex = &idx
			}
		}
		if l.Room != nil {
			if idx := tt.RoomIndex(l.Room); idx >= 0 {
				lo.RoomIndex = &idx
			}
		}
		out.Lessons = append(out.Lessons, lo)
	}

	return out
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondAnyError 返回错误响应，非 AppError 统一按内部错误处理
func respondAnyError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		respondError(w, appErr)
		return
	}
	respondError(w, errors.Wrap(err, errors.CodeInternal, "求解失败"))
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}
