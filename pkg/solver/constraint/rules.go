// Package constraint 定义课表约束规则与分数计算
package constraint

import (
	"math"

	"github.com/schedulus/schedulus/pkg/model"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// 规则名称
const (
	RuleRoomConflict         = "room_conflict"
	RuleTeacherConflict      = "teacher_conflict"
	RuleStudentGroupConflict = "student_group_conflict"
	RuleDurationFit          = "duration_fit"
	RulePinnedTimeslot       = "pinned_timeslot"
	RulePinnedRoom           = "pinned_room"
	RuleMorningPreference    = "morning_preference"
	RuleSatisfaction         = "satisfaction"
	RuleTimeslotPreference   = "timeslot_preference"
	RuleTeacherSpacing       = "teacher_spacing"
	RuleRoomFit              = "room_fit"
)

// 规则权重
const (
	WeightConflict    = 1   // 每对冲突
	WeightDurationFit = 50  // 时段过短
	WeightPinned      = 100 // 锁定不一致（时段、教室各自独立计）

	teacherSpacingPenalty = 2  // 连堂惩罚
	spacingGapMinutes     = 15 // 连堂判定的间隔上限（分钟）
)

// Config 规则配置
type Config struct {
	// RoomFitFactor 教室匹配奖励的缩放因子
	// 原始规则 difficultyWeight*capacity 无上界，大教室会压过其他软分信号，
	// 因此缩放可调而非写死
	RoomFitFactor float64 `json:"room_fit_factor"`
}

// DefaultConfig 默认规则配置
func DefaultConfig() *Config {
	return &Config{RoomFitFactor: 1.0}
}

// roomConflict 教室冲突：两节课同教室且时段重叠
func roomConflict(a, b *model.Lesson) int {
	if a.Room == nil || a.Room != b.Room {
		return 0
	}
	if !a.Timeslot.Overlaps(b.Timeslot) {
		return 0
	}
	return -WeightConflict
}

// teacherConflict 教师冲突：同一教师的两节课时段重叠
func teacherConflict(a, b *model.Lesson) int {
	if a.Teacher != b.Teacher {
		return 0
	}
	if !a.Timeslot.Overlaps(b.Timeslot) {
		return 0
	}
	return -WeightConflict
}

// studentGroupConflict 班级冲突：同一班级的两节课时段重叠
func studentGroupConflict(a, b *model.Lesson) int {
	if a.StudentGroup != b.StudentGroup {
		return 0
	}
	if !a.Timeslot.Overlaps(b.Timeslot) {
		return 0
	}
	return -WeightConflict
}

// durationFit 时长匹配：时段短于课程所需时长
func durationFit(l *model.Lesson) int {
	if l.Timeslot == nil {
		return 0
	}
	if l.Timeslot.DurationMinutes() < l.RequiredMinutes() {
		return -WeightDurationFit
	}
	return 0
}

// pinnedTimeslot 锁定时段不一致
func pinnedTimeslot(l *model.Lesson) int {
	if l.Pinned && l.PinnedTimeslot != nil && l.Timeslot != l.PinnedTimeslot {
		return -WeightPinned
	}
	return 0
}

// pinnedRoom 锁定教室不一致
func pinnedRoom(l *model.Lesson) int {
	if l.Pinned && l.PinnedRoom != nil && l.Room != l.PinnedRoom {
		return -WeightPinned
	}
	return 0
}

// morningPreference 高难度课程上午偏好：难课排在非上午时段则惩罚
func morningPreference(l *model.Lesson) int {
	if !l.IsDifficult() || l.Timeslot == nil {
		return 0
	}
	if l.Timeslot.IsMorning() {
		return 0
	}
	return -round(l.DifficultyWeight * 10)
}

// satisfaction 满意度最大化：按满意度与时段偏好的乘积奖励
func satisfaction(l *model.Lesson) int {
	if l.Timeslot == nil {
		return 0
	}
	return round(l.SatisfactionScore * l.Timeslot.PreferenceBonus * 10)
}

// timeslotPreference 时段偏好奖励
func timeslotPreference(l *model.Lesson) int {
	if l.Timeslot == nil {
		return 0
	}
	return round(l.Timeslot.PreferenceBonus * 5)
}

// teacherSpacing 教师连堂间隔：同教师同日两节课间隔不超过15分钟则惩罚
// 鼓励教师课间休息；重叠的课对已按冲突计，不再重复计
func teacherSpacing(a, b *model.Lesson) int {
	if a.Teacher != b.Teacher {
		return 0
	}
	if a.Timeslot == nil || b.Timeslot == nil {
		return 0
	}
	if a.Timeslot.DayOfWeek != b.Timeslot.DayOfWeek || a.Timeslot.Overlaps(b.Timeslot) {
		return 0
	}
	gap1 := b.Timeslot.StartMinute - a.Timeslot.EndMinute
	gap2 := a.Timeslot.StartMinute - b.Timeslot.EndMinute
	if (gap1 >= 0 && gap1 <= spacingGapMinutes) || (gap2 >= 0 && gap2 <= spacingGapMinutes) {
		return -teacherSpacingPenalty
	}
	return 0
}

// roomFit 教室匹配：高权重课程安排到大教室获得奖励
func roomFit(l *model.Lesson, cfg *Config) int {
	if l.Room == nil {
		return 0
	}
	return round(l.DifficultyWeight * float64(l.Room.Capacity) * cfg.RoomFitFactor)
}

// lessonScore 单课程规则的总贡献
func lessonScore(l *model.Lesson, cfg *Config) model.Score {
	var s model.Score
	s.Hard += durationFit(l)
	s.Hard += pinnedTimeslot(l)
	s.Hard += pinnedRoom(l)
	s.Soft += morningPreference(l)
	s.Soft += satisfaction(l)
	s.Soft += timeslotPreference(l)
	s.Soft += roomFit(l, cfg)
	return s
}

// pairScore 课程对规则的总贡献
func pairScore(a, b *model.Lesson) model.Score {
	var s model.Score
	if a.Timeslot != nil && b.Timeslot != nil {
		s.Hard += roomConflict(a, b)
		s.Hard += teacherConflict(a, b)
		s.Hard += studentGroupConflict(a, b)
		s.Soft += teacherSpacing(a, b)
	}
	return s
}

func round(v float64) int {
	return int(math.Round(v))
}
