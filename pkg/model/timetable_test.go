package model

import "testing"

func TestScore_Compare(t *testing.T) {
	tests := []struct {
		name     string
		a        Score
		b        Score
		expected int
	}{
		{"硬分优先", Score{Hard: 0, Soft: -100}, Score{Hard: -1, Soft: 100}, 1},
		{"硬分相同比软分", Score{Hard: -2, Soft: 10}, Score{Hard: -2, Soft: 5}, 1},
		{"完全相等", Score{Hard: -1, Soft: 3}, Score{Hard: -1, Soft: 3}, 0},
		{"劣解", Score{Hard: -5, Soft: 0}, Score{Hard: 0, Soft: 0}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.expected {
				t.Errorf("Compare() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestScore_Feasible(t *testing.T) {
	if !(Score{Hard: 0, Soft: -50}).Feasible() {
		t.Error("Hard为0应当可行")
	}
	if (Score{Hard: -1, Soft: 100}).Feasible() {
		t.Error("Hard为负不可行")
	}
}

func TestTimetable_Clone(t *testing.T) {
	ts1 := NewTimeslot(Monday, 8*60, 10*60, nil)
	ts2 := NewTimeslot(Monday, 10*60, 12*60, nil)
	r1 := NewRoom("A101", 30)

	lesson := NewLesson("L1", "数学", "张老师", "一年级一班")
	lesson.Timeslot = ts1
	lesson.Room = r1
	lesson.Pinned = true
	lesson.PinnedTimeslot = ts2

	tt := &Timetable{
		Timeslots: []*Timeslot{ts1, ts2},
		Rooms:     []*Room{r1},
		Lessons:   []*Lesson{lesson},
		Score:     &Score{Hard: -1, Soft: 5},
	}

	clone := tt.Clone()

	// 实体引用映射到拷贝内部
	if clone.Lessons[0].Timeslot != clone.Timeslots[0] {
		t.Error("拷贝后的时段引用应指向拷贝内的实体")
	}
	if clone.Lessons[0].Room != clone.Rooms[0] {
		t.Error("拷贝后的教室引用应指向拷贝内的实体")
	}
	if clone.Lessons[0].PinnedTimeslot != clone.Timeslots[1] {
		t.Error("锁定时段引用也应映射")
	}

	// 修改拷贝不影响原件
	clone.Lessons[0].Timeslot = clone.Timeslots[1]
	if lesson.Timeslot != ts1 {
		t.Error("修改拷贝不应影响原课表")
	}
	clone.Score.Hard = 0
	if tt.Score.Hard != -1 {
		t.Error("分数应当深拷贝")
	}
}

func TestLesson_PinnedConsistent(t *testing.T) {
	ts1 := NewTimeslot(Monday, 8*60, 10*60, nil)
	ts2 := NewTimeslot(Tuesday, 8*60, 10*60, nil)

	l := NewLesson("L1", "物理", "李老师", "二年级三班")
	if !l.PinnedConsistent() {
		t.Error("未锁定课程总是一致")
	}

	l.Pinned = true
	l.PinnedTimeslot = ts1
	l.Timeslot = ts2
	if l.PinnedConsistent() {
		t.Error("实际时段与锁定时段不同应当不一致")
	}

	l.Timeslot = ts1
	if !l.PinnedConsistent() {
		t.Error("实际时段等于锁定时段应当一致")
	}
}
