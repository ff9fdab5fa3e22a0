// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Solver   SolverConfig   `yaml:"solver"`
	Runner   RunnerConfig   `yaml:"runner"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SlowQueryLimit  time.Duration `yaml:"slow_query_limit"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int           `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	APIKey    string        `yaml:"api_key"` // 为空时不启用鉴权
	CORS      CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// SolverConfig 求解引擎配置
type SolverConfig struct {
	DefaultTimeout  time.Duration `yaml:"default_timeout"`
	MaxIterations   int           `yaml:"max_iterations"`
	UnimprovedLimit int           `yaml:"unimproved_limit"`
	InitialTemp     float64       `yaml:"initial_temp"`
	CoolingRate     float64       `yaml:"cooling_rate"`
	TabuSize        int           `yaml:"tabu_size"`
	Selector        string        `yaml:"selector"` // random/round_robin/offender
	RoomFitFactor   float64       `yaml:"room_fit_factor"`
}

// RunnerConfig 求解任务运行器配置
type RunnerConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"` // 并行求解任务上限
	JobTTL        time.Duration `yaml:"job_ttl"`        // 完成任务的保留时长
	CleanupPeriod time.Duration `yaml:"cleanup_period"` // 过期任务清理周期
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "schedulus"),
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnvInt("APP_PORT", 7021),
			LogLevel: getEnv("APP_LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "schedulus"),
			User:            getEnv("DB_USER", "schedulus"),
			Password:        getEnv("DB_PASSWORD", "schedulus123"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			SlowQueryLimit:  getEnvDuration("DB_SLOW_QUERY_LIMIT", 100*time.Millisecond),
		},
		API: APIConfig{
			RateLimit: getEnvInt("API_RATE_LIMIT", 100),
			Timeout:   getEnvDuration("API_TIMEOUT", 60*time.Second),
			APIKey:    getEnv("API_KEY", ""),
			CORS: CORSConfig{
				Enabled: getEnvBool("API_CORS_ENABLED", true),
				Origins: []string{"*"},
			},
		},
		Solver: SolverConfig{
			DefaultTimeout:  getEnvDuration("SOLVER_TIMEOUT", 30*time.Second),
			MaxIterations:   getEnvInt("SOLVER_MAX_ITERATIONS", 10000),
			UnimprovedLimit: getEnvInt("SOLVER_UNIMPROVED_LIMIT", 2000),
			InitialTemp:     getEnvFloat("SOLVER_INITIAL_TEMP", 100.0),
			CoolingRate:     getEnvFloat("SOLVER_COOLING_RATE", 0.999),
			TabuSize:        getEnvInt("SOLVER_TABU_SIZE", 200),
			Selector:        getEnv("SOLVER_SELECTOR", "offender"),
			RoomFitFactor:   getEnvFloat("SOLVER_ROOM_FIT_FACTOR", 1.0),
		},
		Runner: RunnerConfig{
			MaxConcurrent: getEnvInt("RUNNER_MAX_CONCURRENT", 4),
			JobTTL:        getEnvDuration("RUNNER_JOB_TTL", 30*time.Minute),
			CleanupPeriod: getEnvDuration("RUNNER_CLEANUP_PERIOD", 5*time.Minute),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
