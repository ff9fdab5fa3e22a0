package validator

import (
	"testing"

	"github.com/schedulus/schedulus/pkg/errors"
	"github.com/schedulus/schedulus/pkg/model"
)

func validProblem() *model.Timetable {
	return &model.Timetable{
		Timeslots: []*model.Timeslot{model.NewTimeslot(model.Monday, 8*60, 10*60, nil)},
		Rooms:     []*model.Room{model.NewRoom("A101", 30)},
		Lessons:   []*model.Lesson{model.NewLesson("L1", "数学", "张老师", "一班")},
	}
}

func TestValidateProblem(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(tt *model.Timetable)
		wantErr bool
	}{
		{"合法问题", func(tt *model.Timetable) {}, false},
		{"无时段", func(tt *model.Timetable) { tt.Timeslots = nil }, true},
		{"无教室", func(tt *model.Timetable) { tt.Rooms = nil }, true},
		{"无课程", func(tt *model.Timetable) { tt.Lessons = nil }, true},
		{"时段首尾颠倒", func(tt *model.Timetable) {
			tt.Timeslots[0].EndMinute = tt.Timeslots[0].StartMinute
		}, true},
		{"课程ID重复", func(tt *model.Timetable) {
			dup := model.NewLesson("L1", "物理", "李老师", "二班")
			tt.Lessons = append(tt.Lessons, dup)
		}, true},
		{"教室容量非正", func(tt *model.Timetable) { tt.Rooms[0].Capacity = 0 }, true},
		{"难度权重越界", func(tt *model.Timetable) { tt.Lessons[0].DifficultyWeight = 1.5 }, true},
		{"外部时段引用", func(tt *model.Timetable) {
			tt.Lessons[0].Timeslot = model.NewTimeslot(model.Friday, 8*60, 10*60, nil)
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := validProblem()
			tt.mutate(problem)
			err := ValidateProblem(problem)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProblem() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.CodeInvalidProblem) {
				t.Errorf("错误码应为 INVALID_PROBLEM, got %v", errors.GetCode(err))
			}
		})
	}
}
