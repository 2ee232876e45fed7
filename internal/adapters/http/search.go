package httpadapter

import (
	"net/http"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

type searchRequest struct {
	Query     string   `json:"query"`
	MinScore  *float64 `json:"min_score"`
	MaxChunks *int     `json:"max_chunks"`
}

type searchResponse struct {
	Items   []domain.EvidenceItem `json:"items"`
	Context string                `json:"context"`
	Sources []string              `json:"sources"`
	Status  domain.EvidenceStatus `json:"status"`
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}

	minScore := rt.cfg.ThresholdMinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	maxChunks := rt.cfg.ThresholdMaxHits
	if req.MaxChunks != nil {
		maxChunks = *req.MaxChunks
	}

	bundle := rt.svc.Search.RetrieveWithThreshold(r.Context(), req.Query, minScore, maxChunks)
	if bundle.Status == domain.EvidenceFailed && r.Context().Err() == nil {
		writeError(w, r, domain.WrapError(domain.ErrTemporary, "search documents", bundle.Err))
		return
	}

	resp := searchResponse{
		Items:   bundle.Items,
		Context: bundle.Context,
		Sources: bundle.Sources,
		Status:  bundle.Status,
	}
	if resp.Items == nil {
		resp.Items = []domain.EvidenceItem{}
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}
