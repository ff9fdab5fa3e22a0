package constraint

import (
	"fmt"

	"github.com/schedulus/schedulus/pkg/model"
)

// ViolationDetail 约束违反/贡献明细
type ViolationDetail struct {
	Rule     string   `json:"rule"`
	Category Category `json:"category"`
	Lessons  []string `json:"lessons"`
	Message  string   `json:"message"`
	Hard     int      `json:"hard,omitempty"`
	Soft     int      `json:"soft,omitempty"`
}

// Result 约束评估结果（含按规则归集的贡献，便于审计）
type Result struct {
	Score          model.Score            `json:"score"`
	Feasible       bool                   `json:"feasible"`
	RuleTotals     map[string]model.Score `json:"rule_totals"`
	HardViolations []ViolationDetail      `json:"hard_violations,omitempty"`
	SoftViolations []ViolationDetail      `json:"soft_violations,omitempty"`
}

// Calculator 增量分数计算器
// 持有当前工作课表的运行分数与教师/班级索引；
// 单个变量变更只需重算该课程涉及的规则贡献
type Calculator struct {
	cfg       *Config
	tt        *model.Timetable
	byTeacher map[string][]*model.Lesson
	byGroup   map[string][]*model.Lesson
	score     model.Score
}

// NewCalculator 创建分数计算器
func NewCalculator(cfg *Config) *Calculator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Calculator{cfg: cfg}
}

// Reset 绑定工作课表，建立索引并全量计算运行分数
func (c *Calculator) Reset(tt *model.Timetable) model.Score {
	c.tt = tt
	c.byTeacher = make(map[string][]*model.Lesson)
	c.byGroup = make(map[string][]*model.Lesson)
	for _, l := range tt.Lessons {
		c.byTeacher[l.Teacher] = append(c.byTeacher[l.Teacher], l)
		c.byGroup[l.StudentGroup] = append(c.byGroup[l.StudentGroup], l)
	}
	c.score = c.Calculate(tt)
	return c.score
}

// Current 当前运行分数
func (c *Calculator) Current() model.Score {
	return c.score
}

// Calculate 全量计算（纯函数，与课程插入顺序无关）
func (c *Calculator) Calculate(tt *model.Timetable) model.Score {
	var s model.Score
	for _, l := range tt.Lessons {
		s = s.Add(lessonScore(l, c.cfg))
	}
	for i := 0; i < len(tt.Lessons); i++ {
		for j := i + 1; j < len(tt.Lessons); j++ {
			s = s.Add(pairScore(tt.Lessons[i], tt.Lessons[j]))
		}
	}
	return s
}

// Assign 增量赋值：改写课程的两个决策变量并返回分数变化量
// 不变式：delta 等于全量重算前后之差
func (c *Calculator) Assign(l *model.Lesson, ts *model.Timeslot, room *model.Room) model.Score {
	before := c.Footprint(l)
	l.Timeslot = ts
	l.Room = room
	after := c.Footprint(l)
	delta := after.Sub(before)
	c.score = c.score.Add(delta)
	return delta
}

// Footprint 课程的分数足迹：自身单课规则贡献加上其参与的全部课程对贡献
// 单个课程的变量变更只影响其足迹
func (c *Calculator) Footprint(l *model.Lesson) model.Score {
	s := lessonScore(l, c.cfg)

	// 教室冲突可能涉及任意课程（教室是可变变量，不建可变索引，直接线扫）
	for _, other := range c.tt.Lessons {
		if other == l {
			continue
		}
		if l.Timeslot != nil && other.Timeslot != nil {
			s.Hard += roomConflict(l, other)
		}
	}

	// 教师相关规则按不可变事实索引
	for _, other := range c.byTeacher[l.Teacher] {
		if other == l {
			continue
		}
		if l.Timeslot != nil && other.Timeslot != nil {
			s.Hard += teacherConflict(l, other)
		}
		s.Soft += teacherSpacing(l, other)
	}

	for _, other := range c.byGroup[l.StudentGroup] {
		if other == l {
			continue
		}
		if l.Timeslot != nil && other.Timeslot != nil {
			s.Hard += studentGroupConflict(l, other)
		}
	}

	return s
}

// HardFootprint 课程足迹的硬分部分（供侧重违规课程的移动选择使用）
func (c *Calculator) HardFootprint(l *model.Lesson) int {
	return c.Footprint(l).Hard
}

// Explain 全量评估并生成按规则归集的违规明细
func (c *Calculator) Explain(tt *model.Timetable) *Result {
	result := &Result{
		RuleTotals: make(map[string]model.Score),
	}

	addDetail := func(rule string, cat Category, hard, soft int, msg string, lessons ...string) {
		if hard == 0 && soft == 0 {
			return
		}
		total := result.RuleTotals[rule]
		total.Hard += hard
		total.Soft += soft
		result.RuleTotals[rule] = total
		detail := ViolationDetail{
			Rule: rule, Category: cat, Lessons: lessons, Message: msg, Hard: hard, Soft: soft,
		}
		if cat == CategoryHard {
			result.HardViolations = append(result.HardViolations, detail)
		} else if hard < 0 || soft < 0 {
			result.SoftViolations = append(result.SoftViolations, detail)
		}
	}

	for _, l := range tt.Lessons {
		addDetail(RuleDurationFit, CategoryHard, durationFit(l), 0,
			fmt.Sprintf("课程 %s 的时段短于所需 %d 分钟", l.ID, l.RequiredMinutes()), l.ID)
		addDetail(RulePinnedTimeslot, CategoryHard, pinnedTimeslot(l), 0,
			fmt.Sprintf("课程 %s 未保持锁定时段", l.ID), l.ID)
		addDetail(RulePinnedRoom, CategoryHard, pinnedRoom(l), 0,
			fmt.Sprintf("课程 %s 未保持锁定教室", l.ID), l.ID)
		addDetail(RuleMorningPreference, CategorySoft, 0, morningPreference(l),
			fmt.Sprintf("高难度课程 %s 未排在上午", l.ID), l.ID)
		addDetail(RuleSatisfaction, CategorySoft, 0, satisfaction(l), "", l.ID)
		addDetail(RuleTimeslotPreference, CategorySoft, 0, timeslotPreference(l), "", l.ID)
		addDetail(RuleRoomFit, CategorySoft, 0, roomFit(l, c.cfg), "", l.ID)
	}

	for i := 0; i < len(tt.Lessons); i++ {
		for j := i + 1; j < len(tt.Lessons); j++ {
			a, b := tt.Lessons[i], tt.Lessons[j]
			if a.Timeslot != nil && b.Timeslot != nil {
				addDetail(RuleRoomConflict, CategoryHard, roomConflict(a, b), 0,
					fmt.Sprintf("课程 %s 与 %s 在同一教室时段重叠", a.ID, b.ID), a.ID, b.ID)
				addDetail(RuleTeacherConflict, CategoryHard, teacherConflict(a, b), 0,
					fmt.Sprintf("教师 %s 的课程 %s 与 %s 时段重叠", a.Teacher, a.ID, b.ID), a.ID, b.ID)
				addDetail(RuleStudentGroupConflict, CategoryHard, studentGroupConflict(a, b), 0,
					fmt.Sprintf("班级 %s 的课程 %s 与 %s 时段重叠", a.StudentGroup, a.ID, b.ID), a.ID, b.ID)
			}
			addDetail(RuleTeacherSpacing, CategorySoft, 0, teacherSpacing(a, b),
				fmt.Sprintf("教师 %s 的课程 %s 与 %s 间隔不足", a.Teacher, a.ID, b.ID), a.ID, b.ID)
		}
	}

	for _, total := range result.RuleTotals {
		result.Score = result.Score.Add(total)
	}
	result.Feasible = result.Score.Feasible()
	return result
}
