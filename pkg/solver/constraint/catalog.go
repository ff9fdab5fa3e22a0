package constraint

// RuleParam 规则参数定义
type RuleParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
}

// RuleDefinition 规则定义（供约束库接口展示）
type RuleDefinition struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Category    Category    `json:"category"`
	Weight      int         `json:"weight"`
	Description string      `json:"description"`
	Params      []RuleParam `json:"params,omitempty"`
}

// Catalog 返回引擎内置的全部规则定义
func Catalog() []RuleDefinition {
	return []RuleDefinition{
		{
			Name:        RuleRoomConflict,
			DisplayName: "教室冲突",
			Category:    CategoryHard,
			Weight:      WeightConflict,
			Description: "同一教室同一时间只能容纳一节课，每对重叠课程计一次违反。",
		},
		{
			Name:        RuleTeacherConflict,
			DisplayName: "教师冲突",
			Category:    CategoryHard,
			Weight:      WeightConflict,
			Description: "同一教师同一时间只能上一节课。",
		},
		{
			Name:        RuleStudentGroupConflict,
			DisplayName: "班级冲突",
			Category:    CategoryHard,
			Weight:      WeightConflict,
			Description: "同一班级同一时间只能上一节课。",
		},
		{
			Name:        RuleDurationFit,
			DisplayName: "时长匹配",
			Category:    CategoryHard,
			Weight:      WeightDurationFit,
			Description: "课程分配的时段不得短于课程所需时长。",
		},
		{
			Name:        RulePinnedTimeslot,
			DisplayName: "锁定时段",
			Category:    CategoryHard,
			Weight:      WeightPinned,
			Description: "锁定课程必须保持指定时段，偏离计重罚。",
		},
		{
			Name:        RulePinnedRoom,
			DisplayName: "锁定教室",
			Category:    CategoryHard,
			Weight:      WeightPinned,
			Description: "锁定课程必须保持指定教室，偏离计重罚。",
		},
		{
			Name:        RuleMorningPreference,
			DisplayName: "难课上午偏好",
			Category:    CategorySoft,
			Weight:      10,
			Description: "难度权重不低于0.7的课程未排在上午时按权重比例惩罚。",
		},
		{
			Name:        RuleSatisfaction,
			DisplayName: "满意度最大化",
			Category:    CategorySoft,
			Weight:      10,
			Description: "按课程满意度与时段偏好值的乘积奖励。",
		},
		{
			Name:        RuleTimeslotPreference,
			DisplayName: "时段偏好",
			Category:    CategorySoft,
			Weight:      5,
			Description: "按时段偏好值奖励，引导课程流向受偏好时段。",
		},
		{
			Name:        RuleTeacherSpacing,
			DisplayName: "教师连堂间隔",
			Category:    CategorySoft,
			Weight:      teacherSpacingPenalty,
			Description: "同一教师同一天两节课间隔不超过15分钟时惩罚，鼓励课间休息。",
		},
		{
			Name:        RuleRoomFit,
			DisplayName: "教室匹配",
			Category:    CategorySoft,
			Weight:      1,
			Description: "高难度课程安排到大容量教室获得奖励，奖励与容量成正比。",
			Params: []RuleParam{
				{Name: "room_fit_factor", Type: "float", Description: "奖励缩放因子", Default: "1.0"},
			},
		},
	}
}
