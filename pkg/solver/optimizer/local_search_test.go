package optimizer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
)

// crowdedProblem 四节课全部挤在同一教室同一时段的劣质初始解
func crowdedProblem() *model.Timetable {
	ts := []*model.Timeslot{
		model.NewTimeslot(model.Monday, 9*60, 11*60, nil),
		model.NewTimeslot(model.Monday, 14*60, 16*60, nil),
		model.NewTimeslot(model.Tuesday, 9*60, 11*60, nil),
		model.NewTimeslot(model.Tuesday, 14*60, 16*60, nil),
	}
	rooms := []*model.Room{
		model.NewRoom("A101", 40),
		model.NewRoom("B202", 40),
	}

	subjects := []string{"数学", "物理", "化学", "英语"}
	teachers := []string{"张老师", "李老师", "王老师", "赵老师"}
	groups := []string{"一班", "二班", "三班", "四班"}

	var lessons []*model.Lesson
	for i := 0; i < 4; i++ {
		l := model.NewLesson(subjects[i], subjects[i], teachers[i], groups[i])
		l.Timeslot = ts[0]
		l.Room = rooms[0]
		lessons = append(lessons, l)
	}

	return &model.Timetable{Timeslots: ts, Rooms: rooms, Lessons: lessons}
}

func searchConfig() *Config {
	cfg := DefaultConfig()
	cfg.MaxIterations = 5000
	cfg.MaxDuration = 5 * time.Second
	cfg.UnimprovedLimit = 2000
	cfg.Seed = 7
	return cfg
}

func TestOptimize_EscapesCrowdedInitial(t *testing.T) {
	tt := crowdedProblem()
	calc := constraint.NewCalculator(nil)
	initial := calc.Calculate(tt)
	require.Less(t, initial.Hard, 0, "初始解应当存在硬约束违反")

	ls := NewLocalSearch(searchConfig(), calc)
	outcome := ls.Optimize(context.Background(), tt)

	// 四节课八个落点，搜索应当消除全部硬冲突
	assert.Equal(t, 0, outcome.Score.Hard)
	assert.True(t, outcome.Score.Better(initial))

	// 最优快照的分数必须与独立重算一致
	require.NotNil(t, outcome.Best)
	recomputed := constraint.NewCalculator(nil).Calculate(outcome.Best)
	assert.Equal(t, recomputed, outcome.Score)
}

func TestOptimize_BestNeverWorseThanInitial(t *testing.T) {
	tt := crowdedProblem()
	calc := constraint.NewCalculator(nil)
	initial := calc.Calculate(tt)

	cfg := searchConfig()
	cfg.MaxIterations = 30
	ls := NewLocalSearch(cfg, calc)
	outcome := ls.Optimize(context.Background(), tt)

	assert.False(t, initial.Better(outcome.Score), "最优解不得劣于初始解")
	assert.LessOrEqual(t, outcome.Iterations, 30)
}

func TestOptimize_ZeroIterations(t *testing.T) {
	tt := crowdedProblem()
	calc := constraint.NewCalculator(nil)
	initial := calc.Calculate(tt)

	cfg := searchConfig()
	cfg.MaxIterations = 0
	ls := NewLocalSearch(cfg, calc)
	outcome := ls.Optimize(context.Background(), tt)

	assert.Equal(t, 0, outcome.Iterations)
	assert.Equal(t, 0, outcome.Accepted)
	assert.Equal(t, initial, outcome.Score)
	assert.Equal(t, StopMaxIterations, outcome.StopReason)
	require.NotNil(t, outcome.Best)
}

func TestOptimize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tt := crowdedProblem()
	calc := constraint.NewCalculator(nil)
	ls := NewLocalSearch(searchConfig(), calc)
	outcome := ls.Optimize(ctx, tt)

	assert.True(t, outcome.Cancelled)
	assert.Equal(t, StopCancelled, outcome.StopReason)
	require.NotNil(t, outcome.Best, "取消时仍返回已发布的最优快照")
}

func TestOptimize_UnimprovedLimit(t *testing.T) {
	tt := crowdedProblem()
	calc := constraint.NewCalculator(nil)

	cfg := searchConfig()
	cfg.UnimprovedLimit = 50
	cfg.MaxIterations = -1
	cfg.MaxDuration = 5 * time.Second
	ls := NewLocalSearch(cfg, calc)
	outcome := ls.Optimize(context.Background(), tt)

	assert.Equal(t, StopUnimproved, outcome.StopReason)
}

func TestOptimize_PinnedNeverMoved(t *testing.T) {
	tt := crowdedProblem()
	pinned := tt.Lessons[0]
	pinned.Pinned = true
	pinned.PinnedTimeslot = pinned.Timeslot
	pinned.PinnedRoom = pinned.Room

	calc := constraint.NewCalculator(nil)
	ls := NewLocalSearch(searchConfig(), calc)
	outcome := ls.Optimize(context.Background(), tt)

	// 工作课表里的锁定课程保持原位
	assert.Equal(t, pinned.PinnedTimeslot, pinned.Timeslot)
	assert.Equal(t, pinned.PinnedRoom, pinned.Room)

	got := outcome.Best.LessonByID(pinned.ID)
	require.NotNil(t, got)
	assert.Equal(t, pinned.PinnedTimeslot.StartMinute, got.Timeslot.StartMinute)
	assert.Equal(t, pinned.PinnedRoom.Name, got.Room.Name)
}

func TestOptimize_AllPinnedStopsEarly(t *testing.T) {
	tt := crowdedProblem()
	for _, l := range tt.Lessons {
		l.Pinned = true
		l.PinnedTimeslot = l.Timeslot
		l.PinnedRoom = l.Room
	}

	calc := constraint.NewCalculator(nil)
	ls := NewLocalSearch(searchConfig(), calc)
	outcome := ls.Optimize(context.Background(), tt)

	// 没有可移动课程时无法产生任何移动，终止原因应当如实反映
	assert.Equal(t, StopNoMoves, outcome.StopReason)
	assert.Equal(t, 0, outcome.Iterations)
	require.NotNil(t, outcome.Best)
}

func TestOptimize_SeedReproducible(t *testing.T) {
	run := func() model.Score {
		tt := crowdedProblem()
		calc := constraint.NewCalculator(nil)
		ls := NewLocalSearch(searchConfig(), calc)
		return ls.Optimize(context.Background(), tt).Score
	}
	assert.Equal(t, run(), run(), "相同种子应得到相同结果")
}

func TestMoveSelector_SkipsPinned(t *testing.T) {
	tt := crowdedProblem()
	tt.Lessons[0].Pinned = true
	tt.Lessons[1].Pinned = true

	calc := constraint.NewCalculator(nil)
	calc.Reset(tt)
	sel := NewMoveSelector(PolicyRandom, calc, rand.New(rand.NewSource(1)))
	sel.Bind(tt)

	for i := 0; i < 200; i++ {
		move := sel.NextMove(tt)
		require.NotNil(t, move)
		switch m := move.(type) {
		case *ChangeMove:
			assert.False(t, m.Lesson.Pinned)
		case *SwapMove:
			assert.False(t, m.A.Pinned)
			assert.False(t, m.B.Pinned)
		}
	}
}
