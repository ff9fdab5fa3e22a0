package scenario

import (
	"context"
	"testing"

	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver"
)

// TestPinnedLessonsKeepTheirSlots 固定课程测试
// 固定的课程必须排在其指定的时段和教室，其余课程围绕它们避让
func TestPinnedLessonsKeepTheirSlots(t *testing.T) {
	timeslots := []*model.Timeslot{
		createTimeslot(model.Monday, 9, 11),
		createTimeslot(model.Monday, 14, 16),
		createTimeslot(model.Tuesday, 9, 11),
	}
	rooms := []*model.Room{
		model.NewRoom("101", 40),
		model.NewRoom("102", 40),
	}

	pinned := createLesson("体育一班", "体育", "刘老师", "一班")
	pinned.Pinned = true
	pinned.PinnedTimeslot = timeslots[0]
	pinned.PinnedRoom = rooms[0]

	lessons := []*model.Lesson{
		pinned,
		createLesson("数学一班", "数学", "张老师", "一班"),
		createLesson("物理二班", "物理", "李老师", "二班"),
		createLesson("化学二班", "化学", "张老师", "二班"),
	}

	problem := &model.Timetable{Timeslots: timeslots, Rooms: rooms, Lessons: lessons}

	s := solver.New(searchConfig(10000), nil)
	result, err := s.Solve(context.Background(), problem, nil)
	if err != nil {
		t.Fatalf("求解执行失败: %v", err)
	}

	t.Logf("可行: %v, 分数: %d/%d", result.Feasible, result.Score.Hard, result.Score.Soft)

	if !result.Feasible {
		t.Errorf("问题规模宽松, 应当可行, hard=%d", result.Score.Hard)
	}

	var solved *model.Lesson
	for _, l := range result.Timetable.Lessons {
		if l.ID == "体育一班" {
			solved = l
		}
	}
	if solved == nil {
		t.Fatal("固定课程在结果中丢失")
	}

	if solved.Timeslot == nil || !solved.Timeslot.Overlaps(timeslots[0]) || solved.Timeslot.DayOfWeek != model.Monday {
		t.Errorf("固定课程未排在指定时段: %v", solved.Timeslot)
	}
	if solved.Room == nil || solved.Room.Name != "101" {
		t.Errorf("固定课程未排在指定教室: %v", solved.Room)
	}

	// 一班的数学课必须避开固定课程的时段
	for _, l := range result.Timetable.Lessons {
		if l.ID == "数学一班" && l.Timeslot != nil &&
			l.Timeslot.Overlaps(solved.Timeslot) {
			t.Error("同班课程与固定课程撞时段")
		}
	}
}
