package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// Job 调度任务接口
type Job interface {
	Name() string
	Execute(ctx context.Context) (*JobResult, error)
	Timeout() time.Duration
	// RequiresLock 多实例部署时需要分布式锁的任务返回 true
	RequiresLock() bool
	LockTTL() time.Duration
	UseWatchdog() bool
}

// JobResult 任务执行结果
type JobResult struct {
	ProcessedCount int
	ErrorCount     int
}

// JobConfig 任务调度配置
type JobConfig struct {
	Cron    string
	Enabled bool
}

// JobStatus 任务最近一次执行的状态
type JobStatus struct {
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	Cron           string `json:"cron"`
	IsLocked       bool   `json:"is_locked"`
	LastStatus     string `json:"last_status"`
	LastStartedAt  int64  `json:"last_started_at"`
	LastDurationMs int64  `json:"last_duration_ms"`
	LastProcessed  int    `json:"last_processed"`
	LastError      string `json:"last_error"`
}

// Scheduler 任务调度器
// cron 表达式支持秒级粒度; 同名任务通过 Redis 锁做跨实例互斥
type Scheduler struct {
	cron        *cron.Cron
	lockManager *LockManager

	mu         sync.RWMutex
	jobs       map[string]Job
	jobConfigs map[string]JobConfig
	lastRuns   map[string]*JobStatus

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler 创建调度器
func NewScheduler(redisClient redis.UniversalClient) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		lockManager: NewLockManager(redisClient),
		jobs:        make(map[string]Job),
		jobConfigs:  make(map[string]JobConfig),
		lastRuns:    make(map[string]*JobStatus),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// RegisterJob 注册任务
func (s *Scheduler) RegisterJob(job Job, config JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}
	s.jobs[job.Name()] = job
	s.jobConfigs[job.Name()] = config

	if !config.Enabled {
		logger.Info("job registered but disabled", zap.String("job", job.Name()))
		return nil
	}

	if _, err := s.cron.AddFunc(config.Cron, func() {
		s.executeJob(job)
	}); err != nil {
		delete(s.jobs, job.Name())
		delete(s.jobConfigs, job.Name())
		return fmt.Errorf("add cron entry for %s: %w", job.Name(), err)
	}

	logger.Info("job registered",
		zap.String("job", job.Name()),
		zap.String("cron", config.Cron))
	return nil
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("scheduler started")
}

// Stop 停止调度器并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logger.Info("scheduler stopped")
}

// TriggerJob 手动触发任务
func (s *Scheduler) TriggerJob(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	go s.executeJob(job)
	return nil
}

// GetJobStatus 查询任务状态
func (s *Scheduler) GetJobStatus(name string) (*JobStatus, error) {
	s.mu.RLock()
	_, exists := s.jobs[name]
	config := s.jobConfigs[name]
	last := s.lastRuns[name]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}

	status := &JobStatus{
		Name:    name,
		Enabled: config.Enabled,
		Cron:    config.Cron,
	}
	if last != nil {
		status.LastStatus = last.LastStatus
		status.LastStartedAt = last.LastStartedAt
		status.LastDurationMs = last.LastDurationMs
		status.LastProcessed = last.LastProcessed
		status.LastError = last.LastError
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status.IsLocked, _ = s.lockManager.IsLocked(ctx, name)
	return status, nil
}

// ListJobStatus 列出全部任务状态
func (s *Scheduler) ListJobStatus() []*JobStatus {
	s.mu.RLock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.mu.RUnlock()

	statuses := make([]*JobStatus, 0, len(names))
	for _, name := range names {
		if status, err := s.GetJobStatus(name); err == nil {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

func (s *Scheduler) executeJob(job Job) {
	select {
	case <-s.ctx.Done():
		return
	default:
	}

	ctx, cancel := context.WithTimeout(s.ctx, job.Timeout())
	defer cancel()

	if job.RequiresLock() {
		lock := s.lockManager.NewLock(job.Name(), job.LockTTL(), job.UseWatchdog())
		acquired, err := lock.TryLock(ctx)
		if err != nil {
			logger.Error("acquire job lock failed",
				zap.String("job", job.Name()),
				zap.Error(err))
			s.recordRun(job.Name(), "lock_failed", 0, 0, err.Error())
			return
		}
		if !acquired {
			logger.Debug("job running on another instance",
				zap.String("job", job.Name()))
			s.recordRun(job.Name(), "skipped", 0, 0, "")
			return
		}
		defer func() {
			if err := lock.Unlock(context.Background()); err != nil {
				logger.Error("release job lock failed",
					zap.String("job", job.Name()),
					zap.Error(err))
			}
		}()
	}

	started := time.Now()
	logger.Debug("job started", zap.String("job", job.Name()))

	result, err := job.Execute(ctx)
	duration := time.Since(started)

	if err != nil {
		logger.Error("job failed",
			zap.String("job", job.Name()),
			zap.Duration("duration", duration),
			zap.Error(err))
		s.recordRun(job.Name(), "failed", duration.Milliseconds(), 0, err.Error())
		return
	}

	processed := 0
	if result != nil {
		processed = result.ProcessedCount
	}
	logger.Info("job completed",
		zap.String("job", job.Name()),
		zap.Duration("duration", duration),
		zap.Int("processed", processed))
	s.recordRun(job.Name(), "success", duration.Milliseconds(), processed, "")
}

func (s *Scheduler) recordRun(name, status string, durationMs int64, processed int, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRuns[name] = &JobStatus{
		Name:           name,
		LastStatus:     status,
		LastStartedAt:  time.Now().UnixMilli(),
		LastDurationMs: durationMs,
		LastProcessed:  processed,
		LastError:      errMsg,
	}
}
