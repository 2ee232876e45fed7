package httpadapter

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

type titleRequest struct {
	Title string `json:"title"`
}

type pageParams struct {
	Skip  *int
	Limit *int
}

// bindPage reads optional skip/limit query parameters. Zero values let the
// thread service apply its defaults.
func bindPage(r *http.Request) (skip, limit int, err error) {
	var params pageParams
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "skip", query, &params.Skip); err != nil {
		return 0, 0, domain.WrapError(domain.ErrInvalidInput, "bind skip", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit); err != nil {
		return 0, 0, domain.WrapError(domain.ErrInvalidInput, "bind limit", err)
	}
	if params.Skip != nil {
		skip = *params.Skip
	}
	if params.Limit != nil {
		limit = *params.Limit
	}
	return skip, limit, nil
}

func (rt *Router) listThreads(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := bindPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := rt.svc.Threads.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (rt *Router) createThread(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	thread, err := rt.svc.Threads.Create(r.Context(), req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, thread)
}

func (rt *Router) renameThread(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	thread, err := rt.svc.Threads.Rename(r.Context(), mux.Vars(r)["id"], req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (rt *Router) deleteThread(w http.ResponseWriter, r *http.Request) {
	removed, err := rt.svc.Threads.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_messages": removed})
}

func (rt *Router) listThreadMessages(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := bindPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := rt.svc.Threads.Messages(r.Context(), mux.Vars(r)["id"], skip, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
