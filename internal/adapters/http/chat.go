package httpadapter

import (
	"net/http"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

type chatRequest struct {
	Message         string `json:"message"`
	ThreadID        string `json:"thread_id"`
	DocumentID      string `json:"document_id"`
	EnableWebSearch *bool  `json:"enable_web_search"`
}

// webSearchEnabled treats an omitted flag as on.
func (r chatRequest) webSearchEnabled() bool {
	return r.EnableWebSearch == nil || *r.EnableWebSearch
}

func (rt *Router) submitChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}

	resp, err := rt.svc.Chat.Submit(r.Context(), domain.ChatRequest{
		Message:         req.Message,
		ThreadID:        req.ThreadID,
		DocumentID:      req.DocumentID,
		EnableWebSearch: req.webSearchEnabled(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
