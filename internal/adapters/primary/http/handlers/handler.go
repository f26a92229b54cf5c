// Package handlers exposes the serving surface over the registry: model
// listing and info, alias-resolved prediction, and process metrics.
package handlers

import (
	"github.com/gin-gonic/gin"

	ports "model-pipeline/internal/core/ports/output"
	"model-pipeline/internal/core/services"
)

type Handler struct {
	registry  *services.RegistryService
	promotion *services.PromotionService
	artifacts ports.ArtifactStore
}

func New(registry *services.RegistryService, promotion *services.PromotionService, artifacts ports.ArtifactStore) *Handler {
	return &Handler{registry: registry, promotion: promotion, artifacts: artifacts}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/models", h.ListModels)
	rg.GET("/models/:name", h.GetModel)
	rg.GET("/models/:name/versions/:version", h.GetVersion)
	rg.POST("/models/:name/predict", h.Predict)
}
