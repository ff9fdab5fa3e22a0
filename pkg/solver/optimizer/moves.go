// Package optimizer 提供课表局部搜索优化算法
package optimizer

import (
	"fmt"
	"hash/fnv"

	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
)

// Move 原子移动：对工作课表的一次候选变更
// Apply 返回增量分数变化，Undo 精确还原
type Move interface {
	Apply(calc *constraint.Calculator) model.Score
	Undo(calc *constraint.Calculator)
	String() string
}

// ChangeMove 变更移动：为一节非锁定课程换一个时段或教室
type ChangeMove struct {
	Lesson      *model.Lesson
	NewTimeslot *model.Timeslot
	NewRoom     *model.Room

	prevTimeslot *model.Timeslot
	prevRoom     *model.Room
}

// Apply 应用变更并返回分数变化量
func (m *ChangeMove) Apply(calc *constraint.Calculator) model.Score {
	m.prevTimeslot = m.Lesson.Timeslot
	m.prevRoom = m.Lesson.Room
	return calc.Assign(m.Lesson, m.NewTimeslot, m.NewRoom)
}

// Undo 还原变更
func (m *ChangeMove) Undo(calc *constraint.Calculator) {
	calc.Assign(m.Lesson, m.prevTimeslot, m.prevRoom)
}

func (m *ChangeMove) String() string {
	return fmt.Sprintf("change(%s -> %v/%v)", m.Lesson.ID, m.NewTimeslot, m.NewRoom)
}

// SwapMove 交换移动：两节非锁定课程互换 (时段, 教室) 对
type SwapMove struct {
	A *model.Lesson
	B *model.Lesson

	prevATimeslot *model.Timeslot
	prevARoom     *model.Room
	prevBTimeslot *model.Timeslot
	prevBRoom     *model.Room
}

// Apply 应用交换并返回分数变化量
// 两步顺序赋值，每步增量都相对于最新状态计算
func (m *SwapMove) Apply(calc *constraint.Calculator) model.Score {
	m.prevATimeslot, m.prevARoom = m.A.Timeslot, m.A.Room
	m.prevBTimeslot, m.prevBRoom = m.B.Timeslot, m.B.Room

	delta := calc.Assign(m.A, m.prevBTimeslot, m.prevBRoom)
	delta = delta.Add(calc.Assign(m.B, m.prevATimeslot, m.prevARoom))
	return delta
}

// Undo 按相反顺序还原两节课程
func (m *SwapMove) Undo(calc *constraint.Calculator) {
	calc.Assign(m.B, m.prevBTimeslot, m.prevBRoom)
	calc.Assign(m.A, m.prevATimeslot, m.prevARoom)
}

func (m *SwapMove) String() string {
	return fmt.Sprintf("swap(%s <-> %s)", m.A.ID, m.B.ID)
}

// hashAssignment 计算整个赋值的哈希（FNV-1a），用作禁忌表键
func hashAssignment(tt *model.Timetable) uint64 {
	h := fnv.New64a()
	for _, l := range tt.Lessons {
		h.Write([]byte(l.ID))
		if l.Timeslot != nil {
			h.Write([]byte(string(l.Timeslot.DayOfWeek)))
			h.Write([]byte{byte(l.Timeslot.StartMinute >> 8), byte(l.Timeslot.StartMinute)})
		}
		if l.Room != nil {
			h.Write([]byte(l.Room.Name))
		}
		h.Write([]byte{0})
	}
	return h.Sum64()
}
