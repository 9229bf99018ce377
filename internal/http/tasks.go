package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/tasks"
)

// TasksController lets an administrator trigger maintenance tasks by hand.
type TasksController struct {
	client   *tasks.Client
	runnable []runnableTask
}

// RunTaskRequest is the optional body of POST /api/tasks/:type/run.
type RunTaskRequest struct {
	BookID uint `json:"book_id,omitempty"`
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

type runnableTask struct {
	info  TaskTypeInfo
	build func(RunTaskRequest) (backlite.Task, error)
}

// NewTasksController wires the manually runnable tasks. retentionDays
// applies to audit cleanups started from here.
func NewTasksController(client *tasks.Client, retentionDays int) *TasksController {
	defs := []runnableTask{
		{
			info: taskInfo(tasks.WarmCoverTask{}, "Download one book's cover into the local cache"),
			build: func(req RunTaskRequest) (backlite.Task, error) {
				if req.BookID == 0 {
					return nil, errors.New("book_id is required for warm_cover task")
				}
				return tasks.WarmCoverTask{BookID: req.BookID}, nil
			},
		},
		{
			info: taskInfo(tasks.WarmAllCoversTask{}, "Download every missing cover into the local cache"),
			build: func(RunTaskRequest) (backlite.Task, error) {
				return tasks.WarmAllCoversTask{}, nil
			},
		},
		{
			info: taskInfo(tasks.CleanupAuditEventsTask{}, "Delete audit events past the retention period"),
			build: func(RunTaskRequest) (backlite.Task, error) {
				return tasks.CleanupAuditEventsTask{RetentionDays: retentionDays}, nil
			},
		},
	}

	return &TasksController{client: client, runnable: defs}
}

// taskInfo names a task type after the queue it lands on.
func taskInfo(prototype backlite.Task, description string) TaskTypeInfo {
	queue := prototype.Config().Name
	return TaskTypeInfo{Type: queue, Description: description, Queue: queue}
}

func (tc *TasksController) lookup(taskType string) (runnableTask, bool) {
	for _, d := range tc.runnable {
		if d.info.Type == taskType {
			return d, true
		}
	}
	return runnableTask{}, false
}

// ListTaskTypes handles GET /api/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := make([]TaskTypeInfo, 0, len(tc.runnable))
	for _, d := range tc.runnable {
		types = append(types, d.info)
	}
	c.JSON(http.StatusOK, gin.H{"task_types": types})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": taskID, "status": taskStatusToString(status)})
}

// RunTask handles POST /api/tasks/:type/run and answers 202 with the task id.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")
	def, ok := tc.lookup(taskType)
	if !ok {
		respondBadRequest(c, "unknown task type: "+taskType)
		return
	}

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	task, err := def.build(req)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	ids, err := tc.client.Add(task).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue "+taskType)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": ids[0],
		"type":    taskType,
		"message": "task enqueued",
	})
}

var taskStatusNames = map[backlite.TaskStatus]string{
	backlite.TaskStatusPending:  "pending",
	backlite.TaskStatusRunning:  "running",
	backlite.TaskStatusSuccess:  "success",
	backlite.TaskStatusFailure:  "failure",
	backlite.TaskStatusNotFound: "not_found",
}

func taskStatusToString(status backlite.TaskStatus) string {
	if name, ok := taskStatusNames[status]; ok {
		return name
	}
	return "unknown"
}
