// Package model 定义课表求解引擎的核心数据模型
package model

// Room 教室（求解期间不可变）
type Room struct {
	Name     string `json:"name"`     // 唯一标识
	Capacity int    `json:"capacity"` // 容量（正整数）
}

// NewRoom 创建教室，容量缺省为30
func NewRoom(name string, capacity int) *Room {
	if capacity <= 0 {
		capacity = 30
	}
	return &Room{Name: name, Capacity: capacity}
}

func (r *Room) String() string {
	return r.Name
}
