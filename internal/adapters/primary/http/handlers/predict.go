package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"model-pipeline/internal/core/domain"
	"model-pipeline/internal/model"
)

type predictRequest struct {
	Rows []map[string]interface{} `json:"rows" binding:"required"`
}

type prediction struct {
	Probability float64 `json:"probability"`
	Prediction  int     `json:"prediction"`
}

type predictResponse struct {
	Model       string       `json:"model"`
	Alias       string       `json:"alias"`
	Version     int          `json:"version"`
	Predictions []prediction `json:"predictions"`
}

// Predict scores request rows with the artifact of the version currently
// bound to the requested alias (champion by default).
func (h *Handler) Predict(c *gin.Context) {
	modelName := c.Param("name")
	alias := c.DefaultQuery("alias", domain.AliasChampion)

	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must contain a rows array"})
		return
	}
	if len(req.Rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rows must not be empty"})
		return
	}

	v, err := h.promotion.Resolve(c.Request.Context(), modelName, alias)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	data, err := h.artifacts.Get(c.Request.Context(), v.ArtifactURI)
	if err != nil {
		log.WithError(err).WithField("uri", v.ArtifactURI).Error("artifact fetch failed")
		mapDomainError(c, domain.ErrArtifactNotFound)
		return
	}
	artifact, err := model.DecodeArtifact(data)
	if err != nil {
		log.WithError(err).WithField("uri", v.ArtifactURI).Error("artifact decode failed")
		mapDomainError(c, domain.ErrArtifactNotFound)
		return
	}

	resp := predictResponse{
		Model:       modelName,
		Alias:       alias,
		Version:     v.Version,
		Predictions: make([]prediction, 0, len(req.Rows)),
	}
	for i, raw := range req.Rows {
		row, err := encodeRow(raw, artifact)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "row": i})
			return
		}
		p := artifact.Score(row)
		resp.Predictions = append(resp.Predictions, prediction{
			Probability: p,
			Prediction:  boolToInt(p >= 0.5),
		})
	}

	predictionsTotal.WithLabelValues(modelName, alias).Add(float64(len(resp.Predictions)))
	c.JSON(http.StatusOK, resp)
}

// encodeRow projects a JSON object onto the artifact's feature order,
// applying the categorical encoders the model was trained with. Unseen
// categories encode to -1, matching evaluation-time behavior.
func encodeRow(raw map[string]interface{}, a *model.Artifact) ([]float64, error) {
	row := make([]float64, len(a.FeatureNames))
	for j, name := range a.FeatureNames {
		value, ok := raw[name]
		if !ok {
			return nil, &missingFeatureError{name}
		}
		switch v := value.(type) {
		case float64:
			row[j] = v
		case bool:
			if v {
				row[j] = 1
			}
		case string:
			if table, ok := a.Encoders[name]; ok {
				if code, ok := table[v]; ok {
					row[j] = code
				} else {
					row[j] = -1
				}
			} else {
				return nil, &missingFeatureError{name}
			}
		default:
			return nil, &missingFeatureError{name}
		}
	}
	return row, nil
}

type missingFeatureError struct {
	feature string
}

func (e *missingFeatureError) Error() string {
	return "feature " + e.feature + " is missing or has an unsupported type"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
