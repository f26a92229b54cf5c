package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListModels(c *gin.Context) {
	names, err := h.registry.ListModels(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("list models failed")
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": names, "total": len(names)})
}

func (h *Handler) GetModel(c *gin.Context) {
	info, err := h.registry.ModelInfo(c.Request.Context(), c.Param("name"))
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) GetVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
		return
	}
	v, err := h.registry.GetVersionInfo(c.Request.Context(), c.Param("name"), version)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
