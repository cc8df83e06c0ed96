package scheduler

import (
	"context"
	"fmt"
	"time"
)

// JobNameFinalizer 到期拍卖终结任务名
const JobNameFinalizer = "auction-finalizer"

// FinalizerRunner 终结器的最小调用面
type FinalizerRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

// FinalizerJob 周期扫描到期拍卖并终结
// 扫描本身有进程内互斥, 分布式锁避免多实例同时提交终结交易
type FinalizerJob struct {
	finalizer FinalizerRunner
	timeout   time.Duration
	lockTTL   time.Duration
}

// NewFinalizerJob 创建终结任务
func NewFinalizerJob(finalizer FinalizerRunner, timeout time.Duration) *FinalizerJob {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &FinalizerJob{
		finalizer: finalizer,
		timeout:   timeout,
		lockTTL:   timeout + time.Minute,
	}
}

func (j *FinalizerJob) Name() string {
	return JobNameFinalizer
}

func (j *FinalizerJob) Execute(ctx context.Context) (*JobResult, error) {
	processed, err := j.finalizer.RunOnce(ctx)
	if err != nil {
		return nil, fmt.Errorf("finalizer run: %w", err)
	}
	return &JobResult{ProcessedCount: processed}, nil
}

func (j *FinalizerJob) Timeout() time.Duration {
	return j.timeout
}

func (j *FinalizerJob) RequiresLock() bool {
	return true
}

func (j *FinalizerJob) LockTTL() time.Duration {
	return j.lockTTL
}

// UseWatchdog 批量大时单轮可能超过 TTL, 需要续期
func (j *FinalizerJob) UseWatchdog() bool {
	return true
}
