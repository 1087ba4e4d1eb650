package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openshelf/critique/pkg/access"
	"github.com/openshelf/critique/pkg/catalog"
	"github.com/openshelf/critique/pkg/httputil"
)

// TitleHandlers handles title HTTP requests
type TitleHandlers struct {
	store *catalog.Store
}

// NewTitleHandlers creates a new TitleHandlers
func NewTitleHandlers(store *catalog.Store) *TitleHandlers {
	return &TitleHandlers{store: store}
}

// RegisterRoutes registers title routes
func (h *TitleHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/titles", h.ListTitles).Methods("GET")
	router.HandleFunc("/titles", h.CreateTitle).Methods("POST")
	router.HandleFunc("/titles/{title_id}", h.GetTitle).Methods("GET")
	router.HandleFunc("/titles/{title_id}", h.UpdateTitle).Methods("PATCH")
	router.HandleFunc("/titles/{title_id}", h.DeleteTitle).Methods("DELETE")
	router.HandleFunc("/titles/{title_id}", replaceDisabled(access.ResourceTitle)).Methods("PUT")
}

// ListTitles returns a filtered page of titles
func (h *TitleHandlers) ListTitles(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceTitle, access.ActionList) {
		return
	}
	limit, offset, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	year, err := httputil.ParseQueryInt(r, "year", 0)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	filter := catalog.TitleFilter{
		CategorySlug: httputil.ParseQueryString(r, "category", ""),
		GenreSlug:    httputil.ParseQueryString(r, "genre", ""),
		Name:         httputil.ParseQueryString(r, "name", ""),
		Year:         year,
	}

	titles, total, err := h.store.ListTitles(r.Context(), filter, limit, offset)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteList(w, total, titles)
}

// CreateTitle creates a new title
func (h *TitleHandlers) CreateTitle(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceTitle, access.ActionCreate) {
		return
	}
	var in catalog.TitleInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	t, err := h.store.CreateTitle(r.Context(), &in)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, t)
}

// GetTitle retrieves a title with its rating, category and genres
func (h *TitleHandlers) GetTitle(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceTitle, access.ActionRetrieve) {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "title_id")
	if !ok {
		return
	}
	t, err := h.store.GetTitle(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, t)
}

// UpdateTitle applies a partial update to a title
func (h *TitleHandlers) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceTitle, access.ActionUpdate) {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "title_id")
	if !ok {
		return
	}
	var p catalog.TitlePatch
	if !httputil.ParseJSONOrError(w, r, &p) {
		return
	}
	t, err := h.store.UpdateTitle(r.Context(), id, &p)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, t)
}

// DeleteTitle removes a title and everything under it
func (h *TitleHandlers) DeleteTitle(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceTitle, access.ActionDelete) {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "title_id")
	if !ok {
		return
	}
	if err := h.store.DeleteTitle(r.Context(), id); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
