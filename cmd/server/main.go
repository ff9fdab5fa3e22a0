// Schedulus 课表求解引擎服务
// 主程序入口

package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/schedulus/schedulus/internal/config"
	"github.com/schedulus/schedulus/internal/database"
	"github.com/schedulus/schedulus/internal/handler"
	"github.com/schedulus/schedulus/internal/metrics"
	"github.com/schedulus/schedulus/internal/repository"
	"github.com/schedulus/schedulus/internal/runner"
	"github.com/schedulus/schedulus/pkg/logger"
	"github.com/schedulus/schedulus/pkg/solver"
	"github.com/schedulus/schedulus/pkg/solver/constraint"
	"github.com/schedulus/schedulus/pkg/solver/optimizer"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	format := "json"
	if cfg.IsDevelopment() {
		format = "console"
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: format,
	})

	// 打印版本信息
	fmt.Printf("Schedulus 课表求解引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 求解器与规则配置
	searchCfg := searchConfig(cfg.Solver)
	ruleCfg := &constraint.Config{RoomFitFactor: cfg.Solver.RoomFitFactor}
	slv := solver.New(searchCfg, ruleCfg)

	// 数据库可选：未启用时任务只存内存，不落库
	var repo repository.SolveJobRepositoryInterface
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("数据库连接失败")
		}
		jobRepo := repository.NewSolveJobRepository(db)
		if err := jobRepo.EnsureSchema(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("数据库初始化失败")
		}
		repo = jobRepo
		logger.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.Name).Msg("数据库已连接")

		// 连接池状态定期上报
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				st := db.Stats()
				metrics.SetDBConnections(st.OpenConnections, st.Idle, st.InUse)
			}
		}()
	}

	run := runner.New(cfg.Runner, slv, repo)

	timetableHandler := handler.NewTimetableHandler(slv, ruleCfg, cfg.Solver.DefaultTimeout)
	jobsHandler := handler.NewJobsHandler(run)

	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"schedulus"}`))
	})

	// 版本信息端点
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "Schedulus 课表求解引擎 API v1",
			"endpoints": {
				"timetables": {
					"solve": "POST /api/v1/timetables/solve",
					"analyze": "POST /api/v1/timetables/analyze",
					"stats": "POST /api/v1/timetables/stats"
				},
				"jobs": {
					"submit": "POST /api/v1/jobs",
					"list": "GET /api/v1/jobs",
					"get": "GET /api/v1/jobs/{id}",
					"cancel": "POST /api/v1/jobs/{id}/cancel",
					"delete": "DELETE /api/v1/jobs/{id}"
				},
				"constraints": {
					"library": "GET /api/v1/constraints/library"
				}
			}
		}`))
	})

	// 同步求解 API
	mux.HandleFunc("/api/v1/timetables/solve", timetableHandler.Solve)

	// 评分分析 API
	mux.HandleFunc("/api/v1/timetables/analyze", timetableHandler.Analyze)

	// 课表统计 API
	mux.HandleFunc("/api/v1/timetables/stats", timetableHandler.Stats)

	// 约束库 API - 返回引擎支持的所有约束规则定义
	mux.HandleFunc("/api/v1/constraints/library", timetableHandler.ConstraintLibrary)

	// 异步求解任务 API
	mux.HandleFunc("/api/v1/jobs", jobsHandler.Collection)
	mux.HandleFunc("/api/v1/jobs/", jobsHandler.Item)

	// ========================================
	// 监控端点
	// ========================================

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	// 中间件执行顺序：requestID -> apiKey -> rateLimit -> cors -> logging -> handler
	rateLimiter := NewRateLimiter(float64(cfg.API.RateLimit))
	root := requestIDMiddleware(apiKeyMiddleware(cfg.API.APIKey, rateLimitMiddleware(rateLimiter, corsMiddleware(loggingMiddleware(mux)))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Solver.DefaultTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Str("api_docs", fmt.Sprintf("http://localhost:%d/api/v1/", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}

	// 取消运行中的求解任务并等待其落盘
	if err := run.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("求解任务未在限期内结束")
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("数据库关闭失败")
		}
	}

	logger.Info().Msg("服务器已关闭")
}

// searchConfig 由服务配置组装局部搜索参数
func searchConfig(sc config.SolverConfig) *optimizer.Config {
	cfg := optimizer.DefaultConfig()
	if sc.MaxIterations != 0 {
		cfg.MaxIterations = sc.MaxIterations
	}
	if sc.UnimprovedLimit != 0 {
		cfg.UnimprovedLimit = sc.UnimprovedLimit
	}
	if sc.InitialTemp > 0 {
		cfg.InitialTemp = sc.InitialTemp
	}
	if sc.CoolingRate > 0 {
		cfg.CoolingRate = sc.CoolingRate
	}
	if sc.TabuSize > 0 {
		cfg.TabuSize = sc.TabuSize
	}
	if sc.DefaultTimeout > 0 {
		cfg.MaxDuration = sc.DefaultTimeout
	}
	switch optimizer.SelectorPolicy(sc.Selector) {
	case optimizer.PolicyRandom, optimizer.PolicyRoundRobin, optimizer.PolicyOffender:
		cfg.Selector = optimizer.SelectorPolicy(sc.Selector)
	}
	return cfg
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 尝试从请求头获取 Request ID，没有则生成新的
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// 设置响应头
		w.Header().Set("X-Request-ID", requestID)

		// 将 Request ID 存储到 context 中
		ctx := context.WithValue(r.Context(), "request_id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// apiKeyMiddleware API密钥鉴权，密钥为空时放行全部请求
// 健康检查与监控端点始终免鉴权
func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey == "" || r.URL.Path == "/health" || r.URL.Path == "/version" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-API-Key")), []byte(apiKey)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "UNAUTHORIZED",
				"message": "无效的API密钥",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 获取 Request ID
		requestID, _ := r.Context().Value("request_id").(string)

		// 包装ResponseWriter以捕获状态码
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		// 记录Prometheus指标
		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 100
	}
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(rl *RateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
