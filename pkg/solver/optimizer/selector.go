package optimizer

import (
	"math/rand"

	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
)

// SelectorPolicy 课程选择策略标识
type SelectorPolicy string

const (
	PolicyRandom     SelectorPolicy = "random"      // 均匀随机
	PolicyRoundRobin SelectorPolicy = "round_robin" // 轮询
	PolicyOffender   SelectorPolicy = "offender"    // 侧重当前违反硬约束的课程（推荐默认）
)

// 移动类型权重：多数迭代做变更移动，少数做交换
const changeMoveWeight = 0.7

// offenderBias 侧重策略下选中违规课程的概率
const offenderBias = 0.8

// MoveSelector 移动选择器
// 锁定课程不会被选为移动的变更方，但仍作为冲突检查的被动方参与评分
type MoveSelector struct {
	policy   SelectorPolicy
	calc     *constraint.Calculator
	rng      *rand.Rand
	cursor   int
	movable  []*model.Lesson
}

// NewMoveSelector 创建移动选择器
func NewMoveSelector(policy SelectorPolicy, calc *constraint.Calculator, rng *rand.Rand) *MoveSelector {
	return &MoveSelector{policy: policy, calc: calc, rng: rng}
}

// Bind 绑定工作课表，缓存可移动（非锁定）课程列表
func (s *MoveSelector) Bind(tt *model.Timetable) {
	s.movable = s.movable[:0]
	for _, l := range tt.Lessons {
		if !l.Pinned {
			s.movable = append(s.movable, l)
		}
	}
	s.cursor = 0
}

// NextMove 生成下一个候选移动，无可行候选时返回 nil
func (s *MoveSelector) NextMove(tt *model.Timetable) Move {
	if len(s.movable) == 0 {
		return nil
	}

	if len(s.movable) >= 2 && s.rng.Float64() >= changeMoveWeight {
		return s.swapMove()
	}
	return s.changeMove(tt)
}

// changeMove 为选中课程提出一个不同于当前值的时段或教室
func (s *MoveSelector) changeMove(tt *model.Timetable) Move {
	l := s.pickLesson()
	if l == nil {
		return nil
	}

	move := &ChangeMove{Lesson: l, NewTimeslot: l.Timeslot, NewRoom: l.Room}

	// 随机决定变更哪个变量；候选集合只有一个值时换另一个变量
	changeTimeslot := s.rng.Float64() < 0.5
	if changeTimeslot && len(tt.Timeslots) < 2 {
		changeTimeslot = false
	}
	if !changeTimeslot && len(tt.Rooms) < 2 {
		changeTimeslot = len(tt.Timeslots) >= 2
	}

	if changeTimeslot {
		candidate := tt.Timeslots[s.rng.Intn(len(tt.Timeslots))]
		for candidate == l.Timeslot {
			candidate = tt.Timeslots[s.rng.Intn(len(tt.Timeslots))]
		}
		move.NewTimeslot = candidate
		return move
	}

	if len(tt.Rooms) < 2 && l.Room != nil {
		return nil
	}
	candidate := tt.Rooms[s.rng.Intn(len(tt.Rooms))]
	for candidate == l.Room {
		candidate = tt.Rooms[s.rng.Intn(len(tt.Rooms))]
	}
	move.NewRoom = candidate
	return move
}

// swapMove 随机选两节可移动课程交换赋值
func (s *MoveSelector) swapMove() Move {
	i := s.rng.Intn(len(s.movable))
	j := s.rng.Intn(len(s.movable))
	for j == i {
		j = s.rng.Intn(len(s.movable))
	}
	return &SwapMove{A: s.movable[i], B: s.movable[j]}
}

// pickLesson 按策略选择变更方课程
func (s *MoveSelector) pickLesson() *model.Lesson {
	switch s.policy {
	case PolicyRoundRobin:
		l := s.movable[s.cursor%len(s.movable)]
		s.cursor++
		return l
	case PolicyOffender:
		if s.rng.Float64() < offenderBias {
			if l := s.pickOffender(); l != nil {
				return l
			}
		}
		return s.movable[s.rng.Intn(len(s.movable))]
	default:
		return s.movable[s.rng.Intn(len(s.movable))]
	}
}

// pickOffender 从当前硬约束足迹为负的课程中随机选一节
func (s *MoveSelector) pickOffender() *model.Lesson {
	var offenders []*model.Lesson
	for _, l := range s.movable {
		if s.calc.HardFootprint(l) < 0 {
			offenders = append(offenders, l)
		}
	}
	if len(offenders) == 0 {
		return nil
	}
	return offenders[s.rng.Intn(len(offenders))]
}
