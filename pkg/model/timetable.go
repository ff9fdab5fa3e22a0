package model

// Score 两级分数：硬约束违反与软约束效用
// 违反做减法，奖励做加法；Hard 为 0 即为可行解
type Score struct {
	Hard int `json:"hard"`
	Soft int `json:"soft"`
}

// Add 分数相加
func (s Score) Add(other Score) Score {
	return Score{Hard: s.Hard + other.Hard, Soft: s.Soft + other.Soft}
}

// Sub 分数相减
func (s Score) Sub(other Score) Score {
	return Score{Hard: s.Hard - other.Hard, Soft: s.Soft - other.Soft}
}

// Compare 字典序比较：先比 Hard 再比 Soft
// 返回 1 表示 s 更优，-1 表示 other 更优
func (s Score) Compare(other Score) int {
	if s.Hard != other.Hard {
		if s.Hard > other.Hard {
			return 1
		}
		return -1
	}
	if s.Soft != other.Soft {
		if s.Soft > other.Soft {
			return 1
		}
		return -1
	}
	return 0
}

// Better 是否严格优于 other
func (s Score) Better(other Score) bool {
	return s.Compare(other) > 0
}

// Feasible 是否无硬约束违反
func (s Score) Feasible() bool {
	return s.Hard == 0
}

// Timetable 课表问题实例/解
// 求解开始后实体集合固定不变，仅课程的决策变量在候选集合内重新赋值
type Timetable struct {
	Timeslots []*Timeslot `json:"timeslots"`
	Rooms     []*Room     `json:"rooms"`
	Lessons   []*Lesson   `json:"lessons"`
	Score     *Score      `json:"score,omitempty"`
}

// Clone 深拷贝课表
// 课程中的时段/教室引用会映射到拷贝后的对应实体
func (t *Timetable) Clone() *Timetable {
	clone := &Timetable{
		Timeslots: make([]*Timeslot, len(t.Timeslots)),
		Rooms:     make([]*Room, len(t.Rooms)),
		Lessons:   make([]*Lesson, len(t.Lessons)),
	}

	tsMap := make(map[*Timeslot]*Timeslot, len(t.Timeslots))
	for i, ts := range t.Timeslots {
		c := *ts
		clone.Timeslots[i] = &c
		tsMap[ts] = &c
	}

	roomMap := make(map[*Room]*Room, len(t.Rooms))
	for i, r := range t.Rooms {
		c := *r
		clone.Rooms[i] = &c
		roomMap[r] = &c
	}

	for i, l := range t.Lessons {
		c := *l
		c.Timeslot = tsMap[l.Timeslot]
		c.Room = roomMap[l.Room]
		c.PinnedTimeslot = tsMap[l.PinnedTimeslot]
		c.PinnedRoom = roomMap[l.PinnedRoom]
		clone.Lessons[i] = &c
	}

	if t.Score != nil {
		s := *t.Score
		clone.Score = &s
	}
	return clone
}

// TimeslotIndex 返回时段在候选集合内的下标，未找到返回 -1
func (t *Timetable) TimeslotIndex(ts *Timeslot) int {
	for i, candidate := range t.Timeslots {
		if candidate == ts {
			return i
		}
	}
	return -1
}

// RoomIndex 返回教室在候选集合内的下标，未找到返回 -1
func (t *Timetable) RoomIndex(r *Room) int {
	for i, candidate := range t.Rooms {
		if candidate == r {
			return i
		}
	}
	return -1
}

// LessonByID 按ID查找课程
func (t *Timetable) LessonByID(id string) *Lesson {
	for _, l := range t.Lessons {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// AssignedCount 已完成双变量赋值的课程数
func (t *Timetable) AssignedCount() int {
	count := 0
	for _, l := range t.Lessons {
		if l.IsAssigned() {
			count++
		}
	}
	return count
}
