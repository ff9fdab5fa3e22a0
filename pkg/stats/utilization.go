// Package stats 提供课表统计分析功能
package stats

import (
	"sort"

	"github.com/schedulus/schedulus/pkg/model"
)

// UtilizationMetrics 课表利用率指标
type UtilizationMetrics struct {
	// 整体赋值情况
	TotalLessons    int     `json:"total_lessons"`    // 总课程数
	AssignedLessons int     `json:"assigned_lessons"` // 已赋值课程数
	AssignmentRate  float64 `json:"assignment_rate"`  // 赋值率 (%)

	// 按星期统计
	DailyLoad map[string]DayLoad `json:"daily_load"` // 每日排课情况

	// 按教室统计
	RoomUtilization map[string]RoomUsage `json:"room_utilization"` // 教室利用率

	// 按小时统计
	HourlyLessons map[int]int `json:"hourly_lessons"` // 各小时开始的课程数 (0-23)

	// 上午时段占比
	MorningShare float64 `json:"morning_share"` // 上午课程占比 (%)

	// 问题识别
	UnassignedLessons []string `json:"unassigned_lessons,omitempty"` // 未赋值课程ID
}

// DayLoad 每日排课情况
type DayLoad struct {
	Day          string  `json:"day"`
	LessonCount  int     `json:"lesson_count"`
	TotalMinutes int     `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
}

// RoomUsage 单间教室的使用情况
type RoomUsage struct {
	Room             string  `json:"room"`
	Capacity         int     `json:"capacity"`
	LessonCount      int     `json:"lesson_count"`
	ScheduledMinutes int     `json:"scheduled_minutes"`
	AvailableMinutes int     `json:"available_minutes"`
	UtilizationRate  float64 `json:"utilization_rate"` // 已排分钟 / 可排分钟 (%)
}

// UtilizationAnalyzer 利用率分析器
type UtilizationAnalyzer struct{}

// NewUtilizationAnalyzer 创建利用率分析器
func NewUtilizationAnalyzer() *UtilizationAnalyzer {
	return &UtilizationAnalyzer{}
}

// Analyze 分析课表利用率
func (u *UtilizationAnalyzer) Analyze(tt *model.Timetable) *UtilizationMetrics {
	metrics := &UtilizationMetrics{
		DailyLoad:       make(map[string]DayLoad),
		RoomUtilization: make(map[string]RoomUsage),
		HourlyLessons:   make(map[int]int),
	}
	if tt == nil || len(tt.Lessons) == 0 {
		metrics.AssignmentRate = 100
		return metrics
	}

	// 每间教室的可排总时长等于全部候选时段时长之和
	availableMinutes := 0
	for _, ts := range tt.Timeslots {
		availableMinutes += ts.DurationMinutes()
	}
	for _, room := range tt.Rooms {
		metrics.RoomUtilization[room.Name] = RoomUsage{
			Room:             room.Name,
			Capacity:         room.Capacity,
			AvailableMinutes: availableMinutes,
		}
	}

	morning := 0
	for _, l := range tt.Lessons {
		metrics.TotalLessons++
		if !l.IsAssigned() {
			metrics.UnassignedLessons = append(metrics.UnassignedLessons, l.ID)
			continue
		}
		metrics.AssignedLessons++

		day := string(l.Timeslot.DayOfWeek)
		load := metrics.DailyLoad[day]
		load.Day = day
		load.LessonCount++
		load.TotalMinutes += l.Timeslot.DurationMinutes()
		load.TotalHours = float64(load.TotalMinutes) / 60
		metrics.DailyLoad[day] = load

		usage := metrics.RoomUtilization[l.Room.Name]
		usage.LessonCount++
		usage.ScheduledMinutes += l.Timeslot.DurationMinutes()
		metrics.RoomUtilization[l.Room.Name] = usage

		metrics.HourlyLessons[l.Timeslot.StartMinute/60]++
		if l.Timeslot.IsMorning() {
			morning++
		}
	}

	metrics.AssignmentRate = percentage(metrics.AssignedLessons, metrics.TotalLessons)
	metrics.MorningShare = percentage(morning, metrics.AssignedLessons)

	for name, usage := range metrics.RoomUtilization {
		usage.UtilizationRate = percentage(usage.ScheduledMinutes, usage.AvailableMinutes)
		metrics.RoomUtilization[name] = usage
	}

	sort.Strings(metrics.UnassignedLessons)
	return metrics
}

// percentage 百分比，分母为零时记为 0
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
