package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openshelf/critique/pkg/access"
	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/middleware"
	"github.com/openshelf/critique/pkg/reviews"
)

// ReviewHandlers handles review and comment HTTP requests, both nested under
// their title.
type ReviewHandlers struct {
	store *reviews.Store
}

// NewReviewHandlers creates a new ReviewHandlers
func NewReviewHandlers(store *reviews.Store) *ReviewHandlers {
	return &ReviewHandlers{store: store}
}

// RegisterRoutes registers review and comment routes
func (h *ReviewHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/titles/{title_id}/reviews", h.ListReviews).Methods("GET")
	router.HandleFunc("/titles/{title_id}/reviews", h.CreateReview).Methods("POST")
	router.HandleFunc("/titles/{title_id}/reviews/{review_id}", h.GetReview).Methods("GET")
	router.HandleFunc("/titles/{title_id}/reviews/{review_id}", h.UpdateReview).Methods("PATCH")
	router.HandleFunc("/titles/{title_id}/reviews/{review_id}", h.DeleteReview).Methods("DELETE")
	router.HandleFunc("/titles/{title_id}/reviews/{review_id}", replaceDisabled(access.ResourceReview)).Methods("PUT")

	router.HandleFunc("/titles/{title_id}/reviews/{review_id}/comments", h.ListComments).Methods("GET")
	router.HandleFunc("/titles/{title_id}/reviews/{review_id}/comments", h.CreateComment).Methods("POST")
	router.HandleFunc("/titles/{title_id}/reviews/{review_id}/comments/{comment_id}", h.GetComment).Methods("GET")
	router.HandleFunc("/titles/{title_id}/reviews/{review_id}/comments/{comment_id}", h.UpdateComment).Methods("PATCH")
	router.HandleFunc("/titles/{title_id}/reviews/{review_id}/comments/{comment_id}", h.DeleteComment).Methods("DELETE")
	router.HandleFunc("/titles/{title_id}/reviews/{review_id}/comments/{comment_id}", replaceDisabled(access.ResourceComment)).Methods("PUT")
}

func parseReviewPath(w http.ResponseWriter, r *http.Request) (titleID, reviewID int64, ok bool) {
	titleID, ok = httputil.ParsePathInt64OrError(w, r, "title_id")
	if !ok {
		return 0, 0, false
	}
	reviewID, ok = httputil.ParsePathInt64OrError(w, r, "review_id")
	if !ok {
		return 0, 0, false
	}
	return titleID, reviewID, true
}

// ListReviews returns a page of the title's reviews
func (h *ReviewHandlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceReview, access.ActionList) {
		return
	}
	titleID, ok := httputil.ParsePathInt64OrError(w, r, "title_id")
	if !ok {
		return
	}
	limit, offset, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	list, total, err := h.store.ListReviews(r.Context(), titleID, limit, offset)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteList(w, total, list)
}

type reviewRequest struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// CreateReview creates the caller's review of the title
func (h *ReviewHandlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceReview, access.ActionCreate) {
		return
	}
	titleID, ok := httputil.ParsePathInt64OrError(w, r, "title_id")
	if !ok {
		return
	}
	var req reviewRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	caller := middleware.Caller(r)
	review, err := h.store.CreateReview(r.Context(), titleID, caller.ID, req.Text, req.Score)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, review)
}

// GetReview retrieves a review under its title
func (h *ReviewHandlers) GetReview(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceReview, access.ActionRetrieve) {
		return
	}
	titleID, reviewID, ok := parseReviewPath(w, r)
	if !ok {
		return
	}
	review, err := h.store.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, review)
}

// UpdateReview applies a partial update to a review. Only the author, a
// moderator or an admin may edit.
func (h *ReviewHandlers) UpdateReview(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceReview, access.ActionUpdate) {
		return
	}
	titleID, reviewID, ok := parseReviewPath(w, r)
	if !ok {
		return
	}

	review, err := h.store.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if !authorizeObject(w, r, access.ResourceReview, access.ActionUpdate, review) {
		return
	}

	var p reviews.ReviewPatch
	if !httputil.ParseJSONOrError(w, r, &p) {
		return
	}
	updated, err := h.store.UpdateReview(r.Context(), titleID, reviewID, &p)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

// DeleteReview removes a review along with its comments
func (h *ReviewHandlers) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceReview, access.ActionDelete) {
		return
	}
	titleID, reviewID, ok := parseReviewPath(w, r)
	if !ok {
		return
	}

	review, err := h.store.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if !authorizeObject(w, r, access.ResourceReview, access.ActionDelete, review) {
		return
	}

	if err := h.store.DeleteReview(r.Context(), titleID, reviewID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func parseCommentPath(w http.ResponseWriter, r *http.Request) (titleID, reviewID, commentID int64, ok bool) {
	titleID, reviewID, ok = parseReviewPath(w, r)
	if !ok {
		return 0, 0, 0, false
	}
	commentID, ok = httputil.ParsePathInt64OrError(w, r, "comment_id")
	if !ok {
		return 0, 0, 0, false
	}
	return titleID, reviewID, commentID, true
}

// ListComments returns a page of the review's comments
func (h *ReviewHandlers) ListComments(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceComment, access.ActionList) {
		return
	}
	titleID, reviewID, ok := parseReviewPath(w, r)
	if !ok {
		return
	}
	limit, offset, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	list, total, err := h.store.ListComments(r.Context(), titleID, reviewID, limit, offset)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteList(w, total, list)
}

type commentRequest struct {
	Text string `json:"text"`
}

// CreateComment creates a comment under a review
func (h *ReviewHandlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceComment, access.ActionCreate) {
		return
	}
	titleID, reviewID, ok := parseReviewPath(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	caller := middleware.Caller(r)
	comment, err := h.store.CreateComment(r.Context(), titleID, reviewID, caller.ID, req.Text)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, comment)
}

// GetComment retrieves a comment under its review
func (h *ReviewHandlers) GetComment(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceComment, access.ActionRetrieve) {
		return
	}
	titleID, reviewID, commentID, ok := parseCommentPath(w, r)
	if !ok {
		return
	}
	comment, err := h.store.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, comment)
}

// UpdateComment replaces a comment's text. Only the author, a moderator or an
// admin may edit.
func (h *ReviewHandlers) UpdateComment(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceComment, access.ActionUpdate) {
		return
	}
	titleID, reviewID, commentID, ok := parseCommentPath(w, r)
	if !ok {
		return
	}

	comment, err := h.store.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if !authorizeObject(w, r, access.ResourceComment, access.ActionUpdate, comment) {
		return
	}

	var req commentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	updated, err := h.store.UpdateComment(r.Context(), titleID, reviewID, commentID, req.Text)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

// DeleteComment removes a comment
func (h *ReviewHandlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ResourceComment, access.ActionDelete) {
		return
	}
	titleID, reviewID, commentID, ok := parseCommentPath(w, r)
	if !ok {
		return
	}

	comment, err := h.store.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if !authorizeObject(w, r, access.ResourceComment, access.ActionDelete, comment) {
		return
	}

	if err := h.store.DeleteComment(r.Context(), titleID, reviewID, commentID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
