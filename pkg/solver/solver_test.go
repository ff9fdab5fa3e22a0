package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/schedulus/schedulus/pkg/errors"
	"github.com/schedulus/schedulus/pkg/model"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
	"github.com/schedulus/schedulus/pkg/solver/optimizer"
)

func testConfig() *optimizer.Config {
	cfg := optimizer.DefaultConfig()
	cfg.MaxIterations = 3000
	cfg.MaxDuration = 5 * time.Second
	cfg.UnimprovedLimit = 1000
	cfg.Seed = 42
	return cfg
}

// easyProblem 三节课、两时段、两教室，存在零硬分解
func easyProblem() *model.Timetable {
	mon9 := model.NewTimeslot(model.Monday, 9*60, 11*60, nil)
	mon14 := model.NewTimeslot(model.Monday, 14*60, 16*60, nil)
	roomA := model.NewRoom("A101", 40)
	roomB := model.NewRoom("B202", 40)

	l1 := model.NewLesson("L1", "数学", "张老师", "一班")
	l2 := model.NewLesson("L2", "物理", "李老师", "二班")
	l3 := model.NewLesson("L3", "化学", "王老师", "三班")

	return &model.Timetable{
		Timeslots: []*model.Timeslot{mon9, mon14},
		Rooms:     []*model.Room{roomA, roomB},
		Lessons:   []*model.Lesson{l1, l2, l3},
	}
}

func TestSolve_FindsFeasibleSolution(t *testing.T) {
	s := New(testConfig(), nil)

	res, err := s.Solve(context.Background(), easyProblem(), nil)
	require.NoError(t, err)

	assert.True(t, res.Feasible, "三节课四个落点应当有可行解")
	assert.Equal(t, 0, res.Score.Hard)
	assert.Equal(t, 3, res.Statistics.AssignedLessons)
	assert.InDelta(t, 1.0, res.Statistics.AssignmentRate, 1e-9)

	// 返回的分数必须与独立重算一致
	recomputed := constraint.NewCalculator(nil).Calculate(res.Timetable)
	assert.Equal(t, recomputed, res.Score)
}

func TestSolve_MaxIterationsZeroReturnsConstruction(t *testing.T) {
	s := New(testConfig(), nil)
	zero := 0

	res, err := s.Solve(context.Background(), easyProblem(), &TerminationConfig{MaxIterations: &zero})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Statistics.Iterations)
	assert.Equal(t, 0, res.Statistics.AcceptedMoves)
	// 构造启发式已完成全部赋值
	assert.Equal(t, 3, res.Statistics.AssignedLessons)

	recomputed := constraint.NewCalculator(nil).Calculate(res.Timetable)
	assert.Equal(t, recomputed, res.Score)
}

func TestSolve_PigeonholeReportsHardViolation(t *testing.T) {
	problem := easyProblem()
	// 只留一个时段：三节课两间教室必然撞教室
	problem.Timeslots = problem.Timeslots[:1]

	s := New(testConfig(), nil)
	res, err := s.Solve(context.Background(), problem, nil)
	require.NoError(t, err, "过约束问题不是错误，照常返回最优解")

	assert.False(t, res.Feasible)
	assert.LessOrEqual(t, res.Score.Hard, -1)
	require.NotNil(t, res.Constraints)
	assert.NotEmpty(t, res.Constraints.HardViolations)
}

func TestSolve_PinnedLessonKeepsAssignment(t *testing.T) {
	problem := easyProblem()
	pinnedTS := problem.Timeslots[1]
	pinnedRoom := problem.Rooms[1]
	problem.Lessons[0].Pinned = true
	problem.Lessons[0].PinnedTimeslot = pinnedTS
	problem.Lessons[0].PinnedRoom = pinnedRoom

	s := New(testConfig(), nil)
	res, err := s.Solve(context.Background(), problem, nil)
	require.NoError(t, err)

	got := res.Timetable.LessonByID("L1")
	require.NotNil(t, got)
	require.NotNil(t, got.Timeslot)
	require.NotNil(t, got.Room)
	assert.Equal(t, pinnedTS.DayOfWeek, got.Timeslot.DayOfWeek)
	assert.Equal(t, pinnedTS.StartMinute, got.Timeslot.StartMinute)
	assert.Equal(t, pinnedRoom.Name, got.Room.Name)
}

func TestSolve_InputNotMutated(t *testing.T) {
	problem := easyProblem()

	s := New(testConfig(), nil)
	_, err := s.Solve(context.Background(), problem, nil)
	require.NoError(t, err)

	for _, l := range problem.Lessons {
		assert.Nil(t, l.Timeslot, "输入问题的决策变量不应被改写")
		assert.Nil(t, l.Room)
	}
}

func TestSolve_InvalidProblem(t *testing.T) {
	problem := easyProblem()
	problem.Lessons[1].ID = problem.Lessons[0].ID

	s := New(testConfig(), nil)
	_, err := s.Solve(context.Background(), problem, nil)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInvalidProblem, appErr.Code)
}

func TestSolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(testConfig(), nil)
	res, err := s.Solve(ctx, easyProblem(), nil)
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, optimizer.StopCancelled, res.StopReason)
	// 取消时仍返回构造得到的最优快照
	require.NotNil(t, res.Timetable)
	assert.Equal(t, 3, res.Statistics.AssignedLessons)
}

func TestSolve_ProgressCallback(t *testing.T) {
	var calls int
	var lastScore model.Score

	s := New(testConfig(), nil)
	res, err := s.SolveWithProgress(context.Background(), easyProblem(), nil,
		func(best *model.Timetable, score model.Score) {
			calls++
			lastScore = score
			// 回调收到的是独立拷贝
			require.NotNil(t, best)
		})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, calls, 1, "至少发布一次初始最优解")
	assert.Equal(t, res.Score, lastScore)
}

func TestConstruct_FirstFitAvoidsHardViolations(t *testing.T) {
	problem := easyProblem().Clone()
	calc := constraint.NewCalculator(nil)

	Construct(problem, calc)

	assert.Equal(t, 0, calc.Current().Hard)
	for _, l := range problem.Lessons {
		assert.True(t, l.IsAssigned())
	}
}

func TestConstruct_PinnedTakesPinnedValues(t *testing.T) {
	problem := easyProblem()
	problem.Lessons[2].Pinned = true
	problem.Lessons[2].PinnedTimeslot = problem.Timeslots[0]
	problem.Lessons[2].PinnedRoom = problem.Rooms[0]
	work := problem.Clone()

	calc := constraint.NewCalculator(nil)
	Construct(work, calc)

	got := work.LessonByID("L3")
	require.NotNil(t, got.Timeslot)
	assert.Equal(t, got.PinnedTimeslot, got.Timeslot)
	assert.Equal(t, got.PinnedRoom, got.Room)
}
