package handlers

import (
	"net/http"

	"github.com/mkadlec/facegallery/internal/identity"
)

// ClustersHandler serves unknown-face review clusters.
type ClustersHandler struct {
	engine *identity.Engine
}

// NewClustersHandler creates a new clusters handler.
func NewClustersHandler(engine *identity.Engine) *ClustersHandler {
	return &ClustersHandler{engine: engine}
}

// ClustersResponse lists the current review clusters.
type ClustersResponse struct {
	Clusters []identity.Cluster `json:"clusters"`
	Count    int                `json:"count"`
}

// List recomputes and returns clusters of similar unknown faces.
func (h *ClustersHandler) List(w http.ResponseWriter, r *http.Request) {
	clusters := h.engine.ClusterUnknown()
	respondJSON(w, http.StatusOK, ClustersResponse{
		Clusters: clusters,
		Count:    len(clusters),
	})
}
