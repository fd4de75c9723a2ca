package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homekey/stage-tracker/internal/repository"
	"github.com/homekey/stage-tracker/pkg/observability"
)

const msgTaskNotFound = "Task not found"

// TaskAPI handles API endpoints for tasks
type TaskAPI struct {
	repo   repository.TaskRepository
	logger observability.Logger
}

// NewTaskAPI creates a new task API handler
func NewTaskAPI(repo repository.TaskRepository, logger observability.Logger) *TaskAPI {
	return &TaskAPI{repo: repo, logger: logger}
}

// RegisterRoutes registers all task API routes
func (api *TaskAPI) RegisterRoutes(router *gin.RouterGroup) {
	tasks := router.Group("/tasks")
	tasks.GET("", api.listTasks)
	tasks.GET("/:id", api.getTask)
	tasks.POST("", api.createTask)
	tasks.PATCH("/:id", api.updateTask)
	tasks.DELETE("/:id", api.deleteTask)
}

// listTasks returns the tasks referencing ?stageId, or every task
func (api *TaskAPI) listTasks(c *gin.Context) {
	tasks, err := api.repo.List(c.Request.Context(), c.Query("stageId"))
	if err != nil {
		respondError(c, api.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (api *TaskAPI) getTask(c *gin.Context) {
	task, err := api.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, api.logger, err, msgTaskNotFound)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (api *TaskAPI) createTask(c *gin.Context) {
	var payload repository.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
		return
	}

	task, err := api.repo.Create(c.Request.Context(), payload)
	if err != nil {
		respondError(c, api.logger, err, "")
		return
	}
	c.JSON(http.StatusCreated, task)
}

// updateTask applies a partial update; string booleans for isCompleted are coerced
func (api *TaskAPI) updateTask(c *gin.Context) {
	var payload repository.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
		return
	}

	task, err := api.repo.Update(c.Request.Context(), c.Param("id"), repository.CoerceCompletion(payload))
	if err != nil {
		respondError(c, api.logger, err, msgTaskNotFound)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (api *TaskAPI) deleteTask(c *gin.Context) {
	if err := api.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, api.logger, err, msgTaskNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
