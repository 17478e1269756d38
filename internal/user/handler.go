package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/reelhost/service/internal/middleware"
	"github.com/reelhost/service/internal/response"
)

// VideoCounter reports how many videos a user owns.
type VideoCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

// Profile is the caller's account together with their library size.
type Profile struct {
	*User
	VideoCount int `json:"videoCount" example:"3"`
}

// Handler holds HTTP handlers for user-related endpoints.
type Handler struct {
	svc    *Service
	videos VideoCounter
	logger *slog.Logger
}

// NewHandler creates a new user Handler.
func NewHandler(svc *Service, videos VideoCounter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, videos: videos, logger: logger}
}

// GetMe godoc
//
//	@Summary		Get current user
//	@Description	Returns the authenticated user and how many videos they own.
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=Profile}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	u, err := h.svc.GetByID(r.Context(), userID)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "user not found")
			return
		}
		h.logger.Error("get user failed", "user_id", userID, "error", err)
		response.InternalError(w)
		return
	}

	count, err := h.videos.CountByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("count videos failed", "user_id", userID, "error", err)
		response.InternalError(w)
		return
	}

	response.OK(w, Profile{User: u, VideoCount: count})
}
