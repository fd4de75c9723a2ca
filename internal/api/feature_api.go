package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/internal/repository"
	"github.com/homekey/stage-tracker/pkg/observability"
)

// FeatureAPI serves the read-only feature list
type FeatureAPI struct {
	repo   repository.FeatureRepository
	logger observability.Logger
}

// NewFeatureAPI creates a new feature API handler
func NewFeatureAPI(repo repository.FeatureRepository, logger observability.Logger) *FeatureAPI {
	return &FeatureAPI{repo: repo, logger: logger}
}

// RegisterRoutes registers the feature API routes
func (api *FeatureAPI) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/features", api.listFeatures)
}

func (api *FeatureAPI) listFeatures(c *gin.Context) {
	role := models.StageType(c.Query("role"))
	if role != "" && !role.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "role must be buyer or seller"})
		return
	}

	features, err := api.repo.List(c.Request.Context(), role)
	if err != nil {
		respondError(c, api.logger, err, "")
		return
	}
	c.JSON(http.StatusOK, features)
}
