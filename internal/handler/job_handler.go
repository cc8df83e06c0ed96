package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/RaprApraP54/rapz-auction/internal/scheduler"
)

// JobHandler 定时任务管理接口
type JobHandler struct {
	sched *scheduler.Scheduler
}

// NewJobHandler 创建定时任务处理器
func NewJobHandler(sched *scheduler.Scheduler) *JobHandler {
	return &JobHandler{sched: sched}
}

// List 查询所有任务状态
// GET /api/v1/admin/jobs
func (h *JobHandler) List(c *gin.Context) {
	Success(c, h.sched.ListJobStatus())
}

// Get 查询单个任务状态
// GET /api/v1/admin/jobs/:name
func (h *JobHandler) Get(c *gin.Context) {
	status, err := h.sched.GetJobStatus(c.Param("name"))
	if err != nil {
		Error(c, NewBizError(ErrInvalidParams.Code, err.Error(), 404))
		return
	}
	Success(c, status)
}

// Trigger 手动触发任务
// POST /api/v1/admin/jobs/:name/trigger
func (h *JobHandler) Trigger(c *gin.Context) {
	name := c.Param("name")
	if err := h.sched.TriggerJob(name); err != nil {
		Error(c, NewBizError(ErrInvalidParams.Code, err.Error(), 404))
		return
	}
	Success(c, gin.H{"job": name, "triggered": true})
}
