package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"model-pipeline/internal/core/domain"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrModelNotFound),
		errors.Is(err, domain.ErrVersionNotFound),
		errors.Is(err, domain.ErrAliasNotFound),
		errors.Is(err, domain.ErrArtifactNotFound),
		errors.Is(err, domain.ErrGateDecisionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrRegistryConflict),
		errors.Is(err, domain.ErrVersionInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidModelName),
		errors.Is(err, domain.ErrInvalidVersion),
		errors.Is(err, domain.ErrInvalidAliasName),
		errors.Is(err, domain.ErrConfigInvalid),
		errors.Is(err, domain.ErrMetricComputation),
		errors.Is(err, domain.ErrArtifactMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Gate failures block the operation but are expected outcomes
	case errors.Is(err, domain.ErrGateNotPassed):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
