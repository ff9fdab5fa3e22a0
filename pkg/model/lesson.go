package model

import "fmt"

// Lesson 课程（规划实体）
// Timeslot 和 Room 是仅有的两个决策变量，求解期间其余字段只读
type Lesson struct {
	ID           string `json:"id"` // 问题实例内唯一
	Subject      string `json:"subject"`
	Teacher      string `json:"teacher"`
	StudentGroup string `json:"student_group"`
	DurationHours int   `json:"duration_hours"`

	// ML 预测的优化提示，取值 [0,1]
	DifficultyWeight  float64 `json:"difficulty_weight"`  // 越高越难
	SatisfactionScore float64 `json:"satisfaction_score"` // 越高越满意

	// 用户锁定：锁定后课程应保持指定的时段/教室
	Pinned         bool      `json:"pinned"`
	PinnedTimeslot *Timeslot `json:"pinned_timeslot,omitempty"`
	PinnedRoom     *Room     `json:"pinned_room,omitempty"`

	// 决策变量
	Timeslot *Timeslot `json:"timeslot,omitempty"`
	Room     *Room     `json:"room,omitempty"`
}

// NewLesson 创建课程，权重缺省为中等
func NewLesson(id, subject, teacher, studentGroup string) *Lesson {
	return &Lesson{
		ID:                id,
		Subject:           subject,
		Teacher:           teacher,
		StudentGroup:      studentGroup,
		DurationHours:     2,
		DifficultyWeight:  0.5,
		SatisfactionScore: 0.5,
	}
}

// IsAssigned 两个决策变量是否都已赋值
func (l *Lesson) IsAssigned() bool {
	return l.Timeslot != nil && l.Room != nil
}

// IsDifficult 是否为高难度课程（上午偏好规则的触发阈值）
func (l *Lesson) IsDifficult() bool {
	return l.DifficultyWeight >= 0.7
}

// RequiredMinutes 课程所需的最短时段时长（分钟）
func (l *Lesson) RequiredMinutes() int {
	return l.DurationHours * 60
}

// PinnedConsistent 锁定一致性：锁定值已设置时，决策变量必须与之相等
func (l *Lesson) PinnedConsistent() bool {
	if !l.Pinned {
		return true
	}
	if l.PinnedTimeslot != nil && l.Timeslot != l.PinnedTimeslot {
		return false
	}
	if l.PinnedRoom != nil && l.Room != l.PinnedRoom {
		return false
	}
	return true
}

func (l *Lesson) String() string {
	return fmt.Sprintf("%s(%s)", l.Subject, l.ID)
}
