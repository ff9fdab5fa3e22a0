// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/schedulus/schedulus/pkg/model"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value("request_id").(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}
	if solveID, ok := ctx.Value("solve_id").(string); ok {
		l = l.With().Str("solve_id", solveID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// SolverLogger 求解引擎专用日志器
type SolverLogger struct {
	base *zerolog.Logger
}

// NewSolverLogger 创建求解引擎日志器
func NewSolverLogger() *SolverLogger {
	l := Get().With().Str("component", "solver").Logger()
	return &SolverLogger{base: &l}
}

// SolveStart 记录求解开始
func (l *SolverLogger) SolveStart(solveID string, lessons, timeslots, rooms int) {
	l.base.Info().
		Str("solve_id", solveID).
		Int("lessons", lessons).
		Int("timeslots", timeslots).
		Int("rooms", rooms).
		Msg("开始求解课表")
}

// ParallelStart 记录多起点并行求解开始
func (l *SolverLogger) ParallelStart(solveID string, starts, workers int) {
	l.base.Info().
		Str("solve_id", solveID).
		Int("starts", starts).
		Int("workers", workers).
		Msg("开始多起点并行求解")
}

// SearchStart 记录局部搜索开始
func (l *SolverLogger) SearchStart(lessons, maxIterations int, maxDuration time.Duration, initial model.Score) {
	l.base.Info().
		Int("lessons", lessons).
		Int("max_iterations", maxIterations).
		Dur("max_duration", maxDuration).
		Int("initial_hard", initial.Hard).
		Int("initial_soft", initial.Soft).
		Msg("开始局部搜索")
}

// NewBest 记录新最优解
func (l *SolverLogger) NewBest(iteration int, score model.Score) {
	l.base.Debug().
		Int("iteration", iteration).
		Int("hard", score.Hard).
		Int("soft", score.Soft).
		Msg("发现更优解")
}

// SearchCancelled 记录搜索被取消
func (l *SolverLogger) SearchCancelled(iteration int, best model.Score) {
	l.base.Warn().
		Int("iteration", iteration).
		Int("best_hard", best.Hard).
		Int("best_soft", best.Soft).
		Msg("局部搜索被取消")
}

// SearchComplete 记录搜索完成
func (l *SolverLogger) SearchComplete(iterations int, duration time.Duration, best model.Score, reason string) {
	l.base.Info().
		Int("iterations", iterations).
		Dur("duration", duration).
		Int("best_hard", best.Hard).
		Int("best_soft", best.Soft).
		Str("stop_reason", reason).
		Msg("局部搜索完成")
}

// Infeasible 记录不可行结果（如实返回给调用方，不视为错误）
func (l *SolverLogger) Infeasible(solveID string, hard int) {
	l.base.Warn().
		Str("solve_id", solveID).
		Int("hard", hard).
		Msg("最优解仍存在硬约束违反")
}

// SolveComplete 记录求解完成
func (l *SolverLogger) SolveComplete(solveID string, duration time.Duration, score model.Score, cancelled bool) {
	l.base.Info().
		Str("solve_id", solveID).
		Dur("duration", duration).
		Int("hard", score.Hard).
		Int("soft", score.Soft).
		Bool("cancelled", cancelled).
		Msg("求解完成")
}
