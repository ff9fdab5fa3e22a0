// Package validator 提供问题实例验证功能
package validator

import (
	"fmt"

	"github.com/schedulus/schedulus/pkg/errors"
	"github.com/schedulus/schedulus/pkg/model"
)

// ValidateProblem 求解前验证问题实例
// 仅致命缺陷在此拒绝：空实体集合、畸形时段、重复课程ID；
// 过约束（无可行解）不在此判定，由求解结果的硬分如实体现
func ValidateProblem(tt *model.Timetable) error {
	if tt == nil {
		return errors.InvalidProblem("课表为空")
	}
	if len(tt.Timeslots) == 0 {
		return errors.InvalidProblem("没有可用时段")
	}
	if len(tt.Rooms) == 0 {
		return errors.InvalidProblem("没有可用教室")
	}
	if len(tt.Lessons) == 0 {
		return errors.InvalidProblem("没有待排课程")
	}

	for i, ts := range tt.Timeslots {
		if !ts.DayOfWeek.IsValid() {
			return errors.InvalidProblem(fmt.Sprintf("时段 %d 的星期值 %q 不合法", i, ts.DayOfWeek))
		}
		if ts.EndMinute <= ts.StartMinute {
			return errors.InvalidProblem(fmt.Sprintf("时段 %d 结束时间不晚于开始时间", i))
		}
	}

	seenRooms := make(map[string]bool, len(tt.Rooms))
	for i, r := range tt.Rooms {
		if r.Name == "" {
			return errors.InvalidProblem(fmt.Sprintf("教室 %d 缺少名称", i))
		}
		if seenRooms[r.Name] {
			return errors.InvalidProblem(fmt.Sprintf("教室名称 %q 重复", r.Name))
		}
		seenRooms[r.Name] = true
		if r.Capacity <= 0 {
			return errors.InvalidProblem(fmt.Sprintf("教室 %q 容量必须为正", r.Name))
		}
	}

	seenLessons := make(map[string]bool, len(tt.Lessons))
	for i, l := range tt.Lessons {
		if l.ID == "" {
			return errors.InvalidProblem(fmt.Sprintf("课程 %d 缺少ID", i))
		}
		if seenLessons[l.ID] {
			return errors.InvalidProblem(fmt.Sprintf("课程ID %q 重复", l.ID))
		}
		seenLessons[l.ID] = true

		if l.DifficultyWeight < 0 || l.DifficultyWeight > 1 {
			return errors.InvalidProblem(fmt.Sprintf("课程 %q 的难度权重超出 [0,1]", l.ID))
		}
		if l.SatisfactionScore < 0 || l.SatisfactionScore > 1 {
			return errors.InvalidProblem(fmt.Sprintf("课程 %q 的满意度超出 [0,1]", l.ID))
		}
		if l.DurationHours <= 0 {
			return errors.InvalidProblem(fmt.Sprintf("课程 %q 的时长必须为正", l.ID))
		}

		// 决策变量与锁定值必须引用候选集合内的实体
		for name, ts := range map[string]*model.Timeslot{"timeslot": l.Timeslot, "pinned_timeslot": l.PinnedTimeslot} {
			if ts != nil && tt.TimeslotIndex(ts) < 0 {
				return errors.InvalidProblem(fmt.Sprintf("课程 %q 的 %s 不在候选时段集合内", l.ID, name))
			}
		}
		for name, r := range map[string]*model.Room{"room": l.Room, "pinned_room": l.PinnedRoom} {
			if r != nil && tt.RoomIndex(r) < 0 {
				return errors.InvalidProblem(fmt.Sprintf("课程 %q 的 %s 不在候选教室集合内", l.ID, name))
			}
		}
	}

	return nil
}
