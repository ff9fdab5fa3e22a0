// Package solver 提供课表求解器
package solver

import (
	"sort"

	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
)

// Construct 贪心构造启发式
// 按难度权重降序，为每节未赋值课程首次适配一个不引入硬约束违反的
// (时段, 教室) 对；找不到时取硬分损失最小的候选。
// 过约束输入会得到部分不可行的初始解，由硬分如实体现，不抛错
func Construct(tt *model.Timetable, calc *constraint.Calculator) {
	calc.Reset(tt)

	// 锁定课程先行落到锁定值上
	for _, l := range tt.Lessons {
		if !l.Pinned {
			continue
		}
		ts, room := l.Timeslot, l.Room
		if l.PinnedTimeslot != nil {
			ts = l.PinnedTimeslot
		}
		if l.PinnedRoom != nil {
			room = l.PinnedRoom
		}
		if ts != l.Timeslot || room != l.Room {
			calc.Assign(l, ts, room)
		}
	}

	// 非锁定且未完成赋值的课程按难度降序排队
	var pending []*model.Lesson
	for _, l := range tt.Lessons {
		if !l.Pinned && !l.IsAssigned() {
			pending = append(pending, l)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].DifficultyWeight > pending[j].DifficultyWeight
	})

	for _, l := range pending {
		placeFirstFit(l, tt, calc)
	}
}

// placeFirstFit 为单节课程寻找落点
func placeFirstFit(l *model.Lesson, tt *model.Timetable, calc *constraint.Calculator) {
	type candidate struct {
		ts   *model.Timeslot
		room *model.Room
	}

	var best *candidate
	bestFoot := model.Score{Hard: -1 << 30}
	origTS, origRoom := l.Timeslot, l.Room

	for _, ts := range tt.Timeslots {
		for _, room := range tt.Rooms {
			calc.Assign(l, ts, room)
			foot := calc.Footprint(l)

			if foot.Hard == 0 {
				// 首次适配即采纳
				return
			}
			if foot.Hard > bestFoot.Hard || (foot.Hard == bestFoot.Hard && foot.Soft > bestFoot.Soft) {
				bestFoot = foot
				best = &candidate{ts: ts, room: room}
			}
			calc.Assign(l, origTS, origRoom)
		}
	}

	if best != nil {
		calc.Assign(l, best.ts, best.room)
	}
}
