package thumbnail

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/reelhost/service/internal/response"
	"github.com/reelhost/service/internal/video"
)

// Handler holds HTTP handlers for thumbnail endpoints.
type Handler struct {
	svc       *Service
	jwtSecret string
	logger    *slog.Logger
}

// NewHandler creates a new thumbnail Handler.
func NewHandler(svc *Service, jwtSecret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, jwtSecret: jwtSecret, logger: logger}
}

// Upload godoc
//
//	@Summary		Upload thumbnail
//	@Description	Attach a JPEG or PNG (max 10 MiB) to a video you own.
//	@Tags			thumbnails
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			videoID		path		string	true	"Video ID"
//	@Param			thumbnail	formData	file	true	"Image file"
//	@Success		200			{object}	response.Envelope{data=video.Video}
//	@Failure		400			{object}	response.Envelope
//	@Failure		401			{object}	response.Envelope
//	@Failure		403			{object}	response.Envelope
//	@Failure		404			{object}	response.Envelope
//	@Failure		413			{object}	response.Envelope
//	@Failure		415			{object}	response.Envelope
//	@Router			/videos/{videoID}/thumbnail [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	up, err := video.ReadUpload(w, r, h.jwtSecret, "thumbnail", h.svc.MaxSize())
	if err != nil {
		video.WriteError(w, r, h.logger, err)
		return
	}
	defer up.Close()

	v, err := h.svc.Upload(r.Context(), UploadInput{
		VideoID:     up.VideoID,
		UserID:      up.UserID,
		File:        up.File,
		Size:        up.Header.Size,
		ContentType: up.Header.Header.Get("Content-Type"),
	})
	if err != nil {
		video.WriteError(w, r, h.logger, err)
		return
	}
	response.OK(w, v)
}

// Get godoc
//
//	@Summary		Get cached thumbnail
//	@Description	Serves a thumbnail kept in memory mode.
//	@Tags			thumbnails
//	@Produce		image/jpeg,image/png
//	@Param			videoID	path	string	true	"Video ID"
//	@Success		200
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/thumbnails/{videoID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	videoID, err := video.ParseVideoID(r)
	if err != nil {
		video.WriteError(w, r, h.logger, err)
		return
	}

	img, ok := h.svc.Cache().Get(videoID)
	if !ok {
		response.NotFound(w, "thumbnail not found")
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
