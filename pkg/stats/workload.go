package stats

import (
	"math"
	"sort"

	"github.com/schedulus/schedulus/pkg/model"
)

// WorkloadMetrics 教师负载均衡指标
type WorkloadMetrics struct {
	// 负载公平性
	WorkloadGini      float64 `json:"workload_gini"`        // 课时基尼系数 (0=完全均衡, 1=完全失衡)
	WorkloadVariance  float64 `json:"workload_variance"`    // 课时方差
	WorkloadStdDev    float64 `json:"workload_std_dev"`     // 课时标准差
	AvgHoursPerTeacher float64 `json:"avg_hours_per_teacher"` // 人均课时
	MaxHours          float64 `json:"max_hours"`            // 最大课时
	MinHours          float64 `json:"min_hours"`            // 最小课时

	// 教师级别统计
	TeacherStats []TeacherStat `json:"teacher_stats"`

	// 综合评分
	OverallBalanceScore float64 `json:"overall_balance_score"` // 综合均衡评分 (0-100)
}

// TeacherStat 单个教师的负载统计
type TeacherStat struct {
	Teacher        string  `json:"teacher"`
	LessonCount    int     `json:"lesson_count"`
	TotalHours     float64 `json:"total_hours"`
	MorningLessons int     `json:"morning_lessons"`
	ActiveDays     int     `json:"active_days"`
	Deviation      float64 `json:"deviation"` // 与人均课时的偏差百分比
}

// WorkloadAnalyzer 教师负载分析器
type WorkloadAnalyzer struct{}

// NewWorkloadAnalyzer 创建教师负载分析器
func NewWorkloadAnalyzer() *WorkloadAnalyzer {
	return &WorkloadAnalyzer{}
}

// Analyze 分析教师负载均衡度，只统计已赋值课程
func (w *WorkloadAnalyzer) Analyze(tt *model.Timetable) *WorkloadMetrics {
	if tt == nil || len(tt.Lessons) == 0 {
		return &WorkloadMetrics{OverallBalanceScore: 100}
	}

	type acc struct {
		count   int
		minutes int
		morning int
		days    map[model.DayOfWeek]struct{}
	}
	byTeacher := make(map[string]*acc)

	for _, l := range tt.Lessons {
		if !l.IsAssigned() {
			continue
		}
		a, exists := byTeacher[l.Teacher]
		if !exists {
			a = &acc{days: make(map[model.DayOfWeek]struct{})}
			byTeacher[l.Teacher] = a
		}
		a.count++
		a.minutes += l.Timeslot.DurationMinutes()
		a.days[l.Timeslot.DayOfWeek] = struct{}{}
		if l.Timeslot.IsMorning() {
			a.morning++
		}
	}
	if len(byTeacher) == 0 {
		return &WorkloadMetrics{OverallBalanceScore: 100}
	}

	stats := make([]TeacherStat, 0, len(byTeacher))
	hours := make([]float64, 0, len(byTeacher))
	for teacher, a := range byTeacher {
		h := float64(a.minutes) / 60
		stats = append(stats, TeacherStat{
			Teacher:        teacher,
			LessonCount:    a.count,
			TotalHours:     h,
			MorningLessons: a.morning,
			ActiveDays:     len(a.days),
		})
		hours = append(hours, h)
	}

	avg := mean(hours)
	variance := varianceOf(hours, avg)
	stdDev := math.Sqrt(variance)
	maxH, minH := rangeOf(hours)

	for i := range stats {
		if avg > 0 {
			stats[i].Deviation = (stats[i].TotalHours - avg) / avg * 100
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].TotalHours > stats[j].TotalHours
	})

	gini := giniCoefficient(hours)

	return &WorkloadMetrics{
		WorkloadGini:        gini,
		WorkloadVariance:    variance,
		WorkloadStdDev:      stdDev,
		AvgHoursPerTeacher:  avg,
		MaxHours:            maxH,
		MinHours:            minH,
		TeacherStats:        stats,
		OverallBalanceScore: balanceScore(gini, stdDev, avg),
	}
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// varianceOf 计算方差
func varianceOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// rangeOf 计算极值
func rangeOf(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// giniCoefficient 计算基尼系数
func giniCoefficient(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}
	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

// balanceScore 综合均衡评分
func balanceScore(gini, stdDev, avg float64) float64 {
	const (
		giniWeight = 0.7
		cvWeight   = 0.3
	)

	giniScore := (1 - gini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avg > 0 {
		cv := stdDev / avg
		cvScore = math.Max(0, 100-cv*200)
	}

	score := giniWeight*giniScore + cvWeight*cvScore
	return math.Max(0, math.Min(100, score))
}
