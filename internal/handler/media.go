package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
)

type MediaService interface {
	UploadCover(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error)
	PresignCover(ctx context.Context, req *model.PresignCoverRequest) (*model.PresignCoverResponse, error)
}

type MediaHandler struct {
	mediaService MediaService
}

func NewMediaHandler(mediaService MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// UploadCover handles POST /api/media/covers
// Expects multipart form field "file". Returns the public URL of the resized cover.
func (h *MediaHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if h.mediaService == nil {
		writeServiceError(w, r, model.ErrMediaDisabled, "upload cover")
		return
	}

	// Leave headroom for multipart boundaries on top of the file limit.
	r.Body = http.MaxBytesReader(w, r.Body, model.MaxCoverSizeBytes+1<<20)
	if err := r.ParseMultipartForm(model.MaxCoverSizeBytes); err != nil {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Cover exceeds 8MB limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	res, err := h.mediaService.UploadCover(r.Context(), file, header)
	if err != nil {
		writeServiceError(w, r, err, "upload cover")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// PresignCover handles POST /api/media/covers/presign
// Returns a presigned URL for uploading a cover directly to R2.
func (h *MediaHandler) PresignCover(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if h.mediaService == nil {
		writeServiceError(w, r, model.ErrMediaDisabled, "create upload URL")
		return
	}

	var req model.PresignCoverRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.ContentType = strings.TrimSpace(req.ContentType)
	if req.ContentType == "" {
		httputil.WriteBadRequest(w, "content_type is required")
		return
	}

	res, err := h.mediaService.PresignCover(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "create upload URL")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
