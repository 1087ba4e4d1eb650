package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openshelf/critique/pkg/access"
	"github.com/openshelf/critique/pkg/catalog"
	"github.com/openshelf/critique/pkg/httputil"
)

// CatalogHandlers handles category and genre HTTP requests
type CatalogHandlers struct {
	store *catalog.Store
}

// NewCatalogHandlers creates a new CatalogHandlers
func NewCatalogHandlers(store *catalog.Store) *CatalogHandlers {
	return &CatalogHandlers{store: store}
}

// RegisterRoutes registers category and genre routes
func (h *CatalogHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/categories", h.ListCategories).Methods("GET")
	router.HandleFunc("/categories", h.CreateCategory).Methods("POST")
	router.HandleFunc("/categories/{slug}", h.GetCategory).Methods("GET")
	router.HandleFunc("/categories/{slug}", h.UpdateCategory).Methods("PATCH")
	router.HandleFunc("/categories/{slug}", h.DeleteCategory).Methods("DELETE")
	router.HandleFunc("/categories/{slug}", replaceDisabled(access.ResourceCategory)).Methods("PUT")

	router.HandleFunc("/genres", h.ListGenres).Methods("GET")
	router.HandleFunc("/genres", h.CreateGenre).Methods("POST")
	router.HandleFunc("/genres/{slug}", h.GetGenre).Methods("GET")
	router.HandleFunc("/genres/{slug}", h.UpdateGenre).Methods("PATCH")
	router.HandleFunc("/genres/{slug}", h.DeleteGenre).Methods("DELETE")
	router.HandleFunc("/genres/{slug}", replaceDisabled(access.ResourceGenre)).Methods("PUT")
}

// ListCategories returns a searchable page of categories
func (h *CatalogHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceCategory, access.ActionList) {
		return
	}
	limit, offset, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	cats, total, err := h.store.ListCategories(r.Context(), httputil.ParseQueryString(r, "search", ""), limit, offset)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteList(w, total, cats)
}

// CreateCategory creates a new category
func (h *CatalogHandlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceCategory, access.ActionCreate) {
		return
	}
	var c catalog.Category
	if !httputil.ParseJSONOrError(w, r, &c) {
		return
	}
	if err := h.store.CreateCategory(r.Context(), &c); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, c)
}

// GetCategory retrieves a category by slug
func (h *CatalogHandlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceCategory, access.ActionRetrieve) {
		return
	}
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	c, err := h.store.GetCategory(r.Context(), slug)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, c)
}

// UpdateCategory applies a partial update to a category
func (h *CatalogHandlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceCategory, access.ActionUpdate) {
		return
	}
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	var p catalog.ClassifierPatch
	if !httputil.ParseJSONOrError(w, r, &p) {
		return
	}
	c, err := h.store.UpdateCategory(r.Context(), slug, &p)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, c)
}

// DeleteCategory removes a category
func (h *CatalogHandlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceCategory, access.ActionDelete) {
		return
	}
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	if err := h.store.DeleteCategory(r.Context(), slug); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListGenres returns a searchable page of genres
func (h *CatalogHandlers) ListGenres(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceGenre, access.ActionList) {
		return
	}
	limit, offset, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	genres, total, err := h.store.ListGenres(r.Context(), httputil.ParseQueryString(r, "search", ""), limit, offset)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteList(w, total, genres)
}

// CreateGenre creates a new genre
func (h *CatalogHandlers) CreateGenre(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceGenre, access.ActionCreate) {
		return
	}
	var g catalog.Genre
	if !httputil.ParseJSONOrError(w, r, &g) {
		return
	}
	if err := h.store.CreateGenre(r.Context(), &g); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, g)
}

// GetGenre retrieves a genre by slug
func (h *CatalogHandlers) GetGenre(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceGenre, access.ActionRetrieve) {
		return
	}
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	g, err := h.store.GetGenre(r.Context(), slug)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, g)
}

// UpdateGenre applies a partial update to a genre
func (h *CatalogHandlers) UpdateGenre(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceGenre, access.ActionUpdate) {
		return
	}
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	var p catalog.ClassifierPatch
	if !httputil.ParseJSONOrError(w, r, &p) {
		return
	}
	g, err := h.store.UpdateGenre(r.Context(), slug, &p)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, g)
}

// DeleteGenre removes a genre
func (h *CatalogHandlers) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceGenre, access.ActionDelete) {
		return
	}
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}
	if err := h.store.DeleteGenre(r.Context(), slug); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
