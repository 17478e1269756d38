package video

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/reelhost/service/internal/middleware"
	"github.com/reelhost/service/internal/response"
	"github.com/reelhost/service/internal/validate"
)

// multipartOverhead is the allowance for multipart framing on top of the file size ceiling.
const multipartOverhead = 1 << 20

// Handler holds HTTP handlers for video endpoints.
type Handler struct {
	svc       *Service
	uploader  *Uploader
	jwtSecret string
	logger    *slog.Logger
}

// NewHandler creates a new video Handler.
func NewHandler(svc *Service, uploader *Uploader, jwtSecret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, uploader: uploader, jwtSecret: jwtSecret, logger: logger}
}

type createVideoRequest struct {
	Title       string `json:"title"       validate:"required,max=200"  example:"Trip to the coast"`
	Description string `json:"description" validate:"max=5000"          example:"Drone footage"`
}

// Create godoc
//
//	@Summary		Create video
//	@Description	Create a draft video record. Upload the media afterwards.
//	@Tags			videos
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		createVideoRequest	true	"Video details"
//	@Success		201		{object}	response.Envelope{data=Video}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/videos [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	v, err := h.svc.Create(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.Created(w, v)
}

// List godoc
//
//	@Summary		List videos
//	@Description	Returns the caller's videos, newest first, with playable URLs.
//	@Tags			videos
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]Video}
//	@Failure		401	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/videos [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	vs, err := h.svc.List(r.Context(), userID)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.OK(w, vs)
}

// Get godoc
//
//	@Summary		Get video
//	@Tags			videos
//	@Produce		json
//	@Security		BearerAuth
//	@Param			videoID	path		string	true	"Video ID"
//	@Success		200		{object}	response.Envelope{data=Video}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/videos/{videoID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	videoID, err := ParseVideoID(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	v, err := h.svc.Get(r.Context(), userID, videoID)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.OK(w, v)
}

// Delete godoc
//
//	@Summary		Delete video
//	@Description	Deletes the record and its stored assets.
//	@Tags			videos
//	@Security		BearerAuth
//	@Param			videoID	path	string	true	"Video ID"
//	@Success		204
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/videos/{videoID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	videoID, err := ParseVideoID(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, videoID); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.NoContent(w)
}

// UploadVideo godoc
//
//	@Summary		Upload video file
//	@Description	Upload an MP4 (max 1 GiB) for a video you own. The file is remuxed for fast start and stored under its orientation.
//	@Tags			videos
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			videoID	path		string	true	"Video ID"
//	@Param			video	formData	file	true	"MP4 file"
//	@Success		200		{object}	response.Envelope{data=Video}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		415		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/videos/{videoID}/video [post]
func (h *Handler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	up, err := ReadUpload(w, r, h.jwtSecret, "video", h.uploader.MaxSize())
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	defer up.Close()

	v, err := h.uploader.Upload(r.Context(), UploadInput{
		VideoID:     up.VideoID,
		UserID:      up.UserID,
		File:        up.File,
		Size:        up.Header.Size,
		ContentType: up.Header.Header.Get("Content-Type"),
	})
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	response.OK(w, v)
}

// ParseVideoID reads and validates the {videoID} path parameter.
func ParseVideoID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "videoID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: malformed video id", ErrInvalidRequest)
	}
	return id.String(), nil
}

// Upload is a parsed multipart upload request.
type Upload struct {
	VideoID string
	UserID  string
	File    multipart.File
	Header  *multipart.FileHeader

	form *multipart.Form
}

// Close releases the file and any temporary files the multipart reader created.
func (u *Upload) Close() {
	u.File.Close()
	if u.form != nil {
		_ = u.form.RemoveAll()
	}
}

// ReadUpload checks, in order, the video id, the bearer token, the presence
// of the file field and its size. Nothing is written to staging here.
func ReadUpload(w http.ResponseWriter, r *http.Request, jwtSecret, field string, maxSize int64) (*Upload, error) {
	videoID, err := ParseVideoID(r)
	if err != nil {
		return nil, err
	}
	userID, err := middleware.ParseBearer(r, jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	file, header, err := r.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrPayloadTooLarge
		}
		return nil, fmt.Errorf("%w: missing %q file", ErrInvalidRequest, field)
	}
	up := &Upload{VideoID: videoID, UserID: userID, File: file, Header: header, form: r.MultipartForm}
	if header.Size > maxSize {
		up.Close()
		return nil, ErrPayloadTooLarge
	}
	return up, nil
}

// WriteError maps domain errors to HTTP statuses. Anything unrecognised is
// logged and reported as a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrUnauthenticated):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "you do not own this video")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "video not found")
	case errors.Is(err, ErrPayloadTooLarge):
		response.PayloadTooLarge(w, "file exceeds the upload limit")
	case errors.Is(err, ErrUnsupportedMediaType):
		response.UnsupportedMediaType(w, err.Error())
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		response.InternalError(w)
	}
}
