package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/devtube/internal/platform/api"
	"github.com/example/devtube/internal/platform/auth"
	"github.com/example/devtube/internal/platform/httpserver"
	"github.com/example/devtube/services/comments/internal/domain"
	"github.com/example/devtube/services/comments/internal/moderation"
	"github.com/example/devtube/services/comments/internal/service"
)

const maxBodyBytes = 1 << 16

type submitRequest struct {
	Content     string  `json:"content"`
	ParentID    *string `json:"parent_id,omitempty"`
	IsAnonymous bool    `json:"is_anonymous"`
}

type reactRequest struct {
	Kind string `json:"kind"`
}

type flagRequest struct {
	Reason string `json:"reason"`
}

type listResponse struct {
	Comments []moderation.CommentView `json:"comments"`
}

type flaggedResponse struct {
	Comments []moderation.FlaggedView `json:"comments"`
}

// Mount registers the comment routes on r.
func Mount(r chi.Router, svc *service.Service, verifier auth.JWTVerifier) {
	r.With(auth.OptionalUser(verifier)).Get("/v1/videos/{video_id}/comments", ListComments(svc))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/videos/{video_id}/comments", SubmitComment(svc))
		r.Delete("/v1/comments/{comment_id}", DeleteComment(svc))
		r.Post("/v1/comments/{comment_id}/reactions", ReactComment(svc))
		r.Post("/v1/comments/{comment_id}/flag", FlagComment(svc))
		r.Put("/v1/comments/{comment_id}/pin", PinComment(svc, true))
		r.Delete("/v1/comments/{comment_id}/pin", PinComment(svc, false))

		r.With(auth.RequireAdmin).Delete("/v1/comments/{comment_id}/flag", UnflagComment(svc))
		r.With(auth.RequireAdmin).Get("/v1/admin/comments/flagged", ListFlagged(svc))
	})
}

func callerFromRequest(r *http.Request) domain.Caller {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		return domain.Caller{}
	}
	role, _ := auth.RoleFromContext(r.Context())
	return domain.Caller{ID: userID, Role: domain.Role(auth.NormalizeRole(role))}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
		return false
	}
	return true
}

// writeError maps service errors onto the JSON error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		api.BadRequest(w, "VALIDATION_FAILED", verr.Error(), rid, map[string]any{verr.Field: verr.Reason})
	case errors.Is(err, domain.ErrValidation):
		api.BadRequest(w, "VALIDATION_FAILED", err.Error(), rid, nil)
	case errors.Is(err, domain.ErrParentDeleted):
		api.Conflict(w, "PARENT_DELETED", "parent comment is being deleted", rid, nil)
	case errors.Is(err, domain.ErrInvalidParent):
		api.BadRequest(w, "INVALID_PARENT", "parent comment does not exist on this video", rid, nil)
	case errors.Is(err, domain.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "not found", rid)
	case errors.Is(err, domain.ErrPermissionDenied):
		api.Forbidden(w, "FORBIDDEN", "permission denied", rid)
	case errors.Is(err, domain.ErrUnauthenticated):
		api.Unauthorized(w, "UNAUTHENTICATED", "authentication required", rid)
	case errors.Is(err, domain.ErrUnavailable), errors.Is(err, domain.ErrReactionConflict):
		api.Unavailable(w, "RETRYABLE", "temporarily unavailable, retry", rid, 1)
	default:
		api.Internal(w, rid)
	}
}

// ListComments handles GET /v1/videos/{video_id}/comments
func ListComments(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := strings.TrimSpace(chi.URLParam(r, "video_id"))
		views, err := svc.List(r.Context(), callerFromRequest(r), videoID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, listResponse{Comments: views})
	}
}

// SubmitComment handles POST /v1/videos/{video_id}/comments
func SubmitComment(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		view, err := svc.Submit(r.Context(), callerFromRequest(r), service.SubmitInput{
			VideoID:     chi.URLParam(r, "video_id"),
			Content:     req.Content,
			ParentID:    req.ParentID,
			IsAnonymous: req.IsAnonymous,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, view)
	}
}

// DeleteComment handles DELETE /v1/comments/{comment_id}
func DeleteComment(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := svc.Delete(r.Context(), callerFromRequest(r), chi.URLParam(r, "comment_id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReactComment handles POST /v1/comments/{comment_id}/reactions
func ReactComment(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reactRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		counts, err := svc.React(r.Context(), callerFromRequest(r), chi.URLParam(r, "comment_id"), req.Kind)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, counts)
	}
}

// FlagComment handles POST /v1/comments/{comment_id}/flag
func FlagComment(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req flagRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.Flag(r.Context(), callerFromRequest(r), chi.URLParam(r, "comment_id"), req.Reason); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UnflagComment handles DELETE /v1/comments/{comment_id}/flag
func UnflagComment(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Unflag(r.Context(), callerFromRequest(r), chi.URLParam(r, "comment_id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PinComment handles PUT and DELETE /v1/comments/{comment_id}/pin
func PinComment(svc *service.Service, pinned bool) http.HandlerFunc {
	op := svc.Unpin
	if pinned {
		op = svc.Pin
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(r.Context(), callerFromRequest(r), chi.URLParam(r, "comment_id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListFlagged handles GET /v1/admin/comments/flagged
func ListFlagged(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		queue, err := svc.ListFlagged(r.Context(), callerFromRequest(r), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, flaggedResponse{Comments: queue})
	}
}
