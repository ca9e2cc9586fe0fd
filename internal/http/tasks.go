package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/checkoutdesk/internal/tasks"
)

// OverdueSweeper runs the overdue sweep on demand.
type OverdueSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// TasksController handles task queue management endpoints.
type TasksController struct {
	client        *tasks.Client
	sweeper       OverdueSweeper
	retentionDays int
}

// NewTasksController creates a new TasksController. client may be nil
// when the queue is disabled; the sweep then runs inline.
func NewTasksController(client *tasks.Client, sweeper OverdueSweeper, retentionDays int) *TasksController {
	return &TasksController{client: client, sweeper: sweeper, retentionDays: retentionDays}
}

// ListTaskTypes handles GET /api/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{
		"task_types":    tasks.Types(),
		"queue_enabled": tc.client != nil,
	})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if tc.client == nil {
		respondBadRequest(c, "task queue is disabled")
		return
	}
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTask handles POST /api/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	switch taskType {
	case "overdue_sweep":
		if tc.sweeper == nil {
			respondBadRequest(c, "overdue sweep is not configured")
			return
		}
		count, err := tc.sweeper.Sweep(c.Request.Context())
		if err != nil {
			respondInternalError(c, err, "overdue sweep")
			return
		}
		respondOK(c, http.StatusAccepted, gin.H{"type": taskType, "notices": count})

	case "cleanup_audit_events":
		if tc.client == nil {
			respondBadRequest(c, "task queue is disabled")
			return
		}
		ids, err := tc.client.Enqueue(c.Request.Context(), tasks.CleanupAuditEventsTask{RetentionDays: tc.retentionDays})
		if err != nil {
			respondInternalError(c, err, "enqueue audit cleanup")
			return
		}
		respondOK(c, http.StatusAccepted, gin.H{"type": taskType, "task_id": ids[0]})

	default:
		respondBadRequest(c, "unknown task type: "+taskType)
	}
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
