// Package scenario 提供场景测试
package scenario

import (
	"time"

	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver/optimizer"
)

// createTimeslot 按小时创建时段
func createTimeslot(day model.DayOfWeek, startHour, endHour int) *model.Timeslot {
	return model.NewTimeslot(day, startHour*60, endHour*60, nil)
}

// createLesson 创建课程
func createLesson(id, subject, teacher, group string) *model.Lesson {
	return model.NewLesson(id, subject, teacher, group)
}

// searchConfig 场景测试共用的搜索配置，固定种子保证可复现
func searchConfig(iterations int) *optimizer.Config {
	cfg := optimizer.DefaultConfig()
	cfg.MaxIterations = iterations
	cfg.MaxDuration = 20 * time.Second
	cfg.UnimprovedLimit = 0
	cfg.Seed = 2024
	return cfg
}
