package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/internal/repository"
	"github.com/homekey/stage-tracker/pkg/observability"
)

const msgStageNotFound = "Stage not found"

// StageAPI handles API endpoints for stages
type StageAPI struct {
	repo   repository.StageRepository
	logger observability.Logger
}

// NewStageAPI creates a new stage API handler
func NewStageAPI(repo repository.StageRepository, logger observability.Logger) *StageAPI {
	return &StageAPI{repo: repo, logger: logger}
}

// RegisterRoutes registers all stage API routes
func (api *StageAPI) RegisterRoutes(router *gin.RouterGroup) {
	stages := router.Group("/stages")
	stages.GET("", api.listStages)
	stages.GET("/:id", api.getStage)
	stages.POST("", api.createStage)
	stages.PATCH("/:id", api.updateStage)
	stages.DELETE("/:id", api.deleteStage)
}

// listStages returns the stages of the type given by ?type, in creation order
func (api *StageAPI) listStages(c *gin.Context) {
	stages, err := api.repo.List(c.Request.Context(), models.StageType(c.Query("type")))
	if err != nil {
		respondError(c, api.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, stages)
}

func (api *StageAPI) getStage(c *gin.Context) {
	stage, err := api.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, api.logger, err, msgStageNotFound)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (api *StageAPI) createStage(c *gin.Context) {
	var payload repository.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
		return
	}

	stage, err := api.repo.Create(c.Request.Context(), payload)
	if err != nil {
		respondError(c, api.logger, err, "")
		return
	}
	c.JSON(http.StatusCreated, stage)
}

// updateStage applies a partial update; string booleans for isCompleted are coerced
func (api *StageAPI) updateStage(c *gin.Context) {
	var payload repository.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
		return
	}

	stage, err := api.repo.Update(c.Request.Context(), c.Param("id"), repository.CoerceCompletion(payload))
	if err != nil {
		respondError(c, api.logger, err, msgStageNotFound)
		return
	}
	c.JSON(http.StatusOK, stage)
}

func (api *StageAPI) deleteStage(c *gin.Context) {
	if err := api.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, api.logger, err, msgStageNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
