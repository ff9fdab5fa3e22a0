package model

import (
	"fmt"
)

// DayOfWeek 星期枚举
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// IsValid 检查是否为合法的星期值
func (d DayOfWeek) IsValid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// Timeslot 时段（求解期间不可变）
// 开始/结束时间以当日分钟数表示（0-1440）
type Timeslot struct {
	DayOfWeek       DayOfWeek `json:"day_of_week"`
	StartMinute     int       `json:"start_minute"`
	EndMinute       int       `json:"end_minute"`
	PreferenceBonus float64   `json:"preference_bonus"` // 越高越受偏好（如上午时段）
}

// NewTimeslot 创建时段，偏好值为空时按开始时间推导
func NewTimeslot(day DayOfWeek, startMinute, endMinute int, preferenceBonus *float64) *Timeslot {
	ts := &Timeslot{
		DayOfWeek:   day,
		StartMinute: startMinute,
		EndMinute:   endMinute,
	}
	if preferenceBonus != nil {
		ts.PreferenceBonus = *preferenceBonus
	} else {
		ts.PreferenceBonus = defaultPreference(startMinute)
	}
	return ts
}

// defaultPreference 按开始时间推导默认偏好值
// 上午(8-12点)最受偏好，午间(12-14点)次之，其余时段最低
func defaultPreference(startMinute int) float64 {
	hour := startMinute / 60
	switch {
	case hour >= 8 && hour < 12:
		return 1.0
	case hour >= 12 && hour < 14:
		return 0.7
	default:
		return 0.5
	}
}

// DurationMinutes 时段时长（分钟）
func (t *Timeslot) DurationMinutes() int {
	return t.EndMinute - t.StartMinute
}

// IsMorning 是否为上午时段（12点前开始）
func (t *Timeslot) IsMorning() bool {
	return t.StartMinute/60 < 12
}

// Overlaps 判断两个时段是否重叠
// 同一天且 [start,end) 区间相交才算重叠，首尾相接不算
func (t *Timeslot) Overlaps(other *Timeslot) bool {
	if other == nil || t.DayOfWeek != other.DayOfWeek {
		return false
	}
	return t.StartMinute < other.EndMinute && other.StartMinute < t.EndMinute
}

// StartClock 返回 HH:MM 格式的开始时间
func (t *Timeslot) StartClock() string {
	return formatClock(t.StartMinute)
}

// EndClock 返回 HH:MM 格式的结束时间
func (t *Timeslot) EndClock() string {
	return formatClock(t.EndMinute)
}

func (t *Timeslot) String() string {
	return fmt.Sprintf("%s %s", t.DayOfWeek, t.StartClock())
}

// ParseClock 解析 HH:MM 格式时间为当日分钟数
func ParseClock(s string) (int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("无效的时间格式 %q: %w", s, err)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("时间 %q 超出范围", s)
	}
	return hour*60 + minute, nil
}

// formatClock 当日分钟数转 HH:MM
func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
