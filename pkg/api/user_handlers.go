package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openshelf/critique/pkg/access"
	"github.com/openshelf/critique/pkg/accounts"
	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/middleware"
)

// UserHandlers handles the admin user-management surface and the /users/me
// self-service surface.
type UserHandlers struct {
	store *accounts.Store
}

// NewUserHandlers creates a new UserHandlers
func NewUserHandlers(store *accounts.Store) *UserHandlers {
	return &UserHandlers{store: store}
}

// RegisterRoutes registers user routes. The /users/me routes are registered
// before the {username} routes so "me" never resolves as a username.
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/me", h.GetSelf).Methods("GET")
	router.HandleFunc("/users/me", h.UpdateSelf).Methods("PATCH")
	router.HandleFunc("/users/me", replaceDisabled(access.ResourceOwnAccount)).Methods("PUT")
	router.HandleFunc("/users/me", h.DeleteSelf).Methods("DELETE")

	router.HandleFunc("/users", h.ListUsers).Methods("GET")
	router.HandleFunc("/users", h.CreateUser).Methods("POST")
	router.HandleFunc("/users/{username}", h.GetUser).Methods("GET")
	router.HandleFunc("/users/{username}", h.UpdateUser).Methods("PATCH")
	router.HandleFunc("/users/{username}", h.DeleteUser).Methods("DELETE")
	router.HandleFunc("/users/{username}", replaceDisabled(access.ResourceAccount)).Methods("PUT")
}

// ListUsers returns a page of accounts, optionally filtered by exact username
func (h *UserHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceAccount, access.ActionList) {
		return
	}
	limit, offset, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	list, total, err := h.store.List(r.Context(), httputil.ParseQueryString(r, "search", ""), limit, offset)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteList(w, total, list)
}

// CreateUser creates an account with an explicit role
func (h *UserHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceAccount, access.ActionCreate) {
		return
	}
	var a accounts.Account
	if !httputil.ParseJSONOrError(w, r, &a) {
		return
	}

	if err := accounts.ValidateUsername(a.Username); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if err := accounts.ValidateEmail(a.Email); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if a.Role != "" {
		if err := accounts.ValidateRole(a.Role); err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
	}

	if err := h.store.Create(r.Context(), &a); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, a)
}

// GetUser retrieves an account by username
func (h *UserHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceAccount, access.ActionRetrieve) {
		return
	}
	username, ok := httputil.ParsePathStringOrError(w, r, "username")
	if !ok {
		return
	}
	a, err := h.store.GetByUsername(r.Context(), username)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, a)
}

// UpdateUser applies a partial update, role changes included
func (h *UserHandlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceAccount, access.ActionUpdate) {
		return
	}
	username, ok := httputil.ParsePathStringOrError(w, r, "username")
	if !ok {
		return
	}
	var p accounts.Patch
	if !httputil.ParseJSONOrError(w, r, &p) {
		return
	}
	a, err := h.store.Update(r.Context(), username, &p)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, a)
}

// DeleteUser removes an account
func (h *UserHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceAccount, access.ActionDelete) {
		return
	}
	username, ok := httputil.ParsePathStringOrError(w, r, "username")
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), username); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// GetSelf returns the caller's own account
func (h *UserHandlers) GetSelf(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceOwnAccount, access.ActionRetrieve) {
		return
	}
	caller := middleware.Caller(r)
	a, err := h.store.GetByID(r.Context(), caller.ID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, a)
}

// UpdateSelf applies a partial update to the caller's own account. The role
// field is read-only on this surface, whatever the caller's privileges.
func (h *UserHandlers) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceOwnAccount, access.ActionUpdate) {
		return
	}
	var p accounts.Patch
	if !httputil.ParseJSONOrError(w, r, &p) {
		return
	}
	p.Role = nil

	caller := middleware.Caller(r)
	a, err := h.store.Update(r.Context(), caller.Username, &p)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, a)
}

// DeleteSelf is not offered; the matrix reports it as unsupported
func (h *UserHandlers) DeleteSelf(w http.ResponseWriter, r *http.Request) {
	httputil.WriteDecision(w, access.Evaluate(middleware.Caller(r), access.ResourceOwnAccount, access.ActionDelete, nil))
}
