package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dscnitrourkela/project-zucchini/internal/api/respond"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/uploads"
	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
)

type UploadService interface {
	Upload(ctx context.Context, filename, declaredType string, content io.Reader) (*uploads.Result, error)
	MaxBytes() int64
}

type UploadsHandler struct {
	Service UploadService
	Env     string
}

func NewUploadsHandler(service UploadService, env string) *UploadsHandler {
	return &UploadsHandler{Service: service, Env: env}
}

// multipartMemory is how much of the form is buffered before spilling to disk.
const multipartMemory = 1 << 20

// Upload stores the multipart "file" field on the media host.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, err := identity(r); err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.UploadsTotal.WithLabelValues("rejected").Inc()
			respond.Error(w, r, uploads.ErrTooLarge, h.Env)
			return
		}
		respond.Error(w, r, respond.BadRequest("Expected a multipart form", err), h.Env)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, r, respond.BadRequest("No file provided", err), h.Env)
		return
	}
	defer file.Close()

	if header.Size > h.Service.MaxBytes() {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		respond.Error(w, r, uploads.ErrTooLarge, h.Env)
		return
	}

	result, err := h.Service.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, uploads.ErrTooLarge) || errors.Is(err, uploads.ErrUnsupportedType) || errors.Is(err, uploads.ErrEmptyFile) {
			metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		} else {
			metrics.UploadsTotal.WithLabelValues("error").Inc()
		}
		respond.Error(w, r, err, h.Env)
		return
	}

	metrics.UploadsTotal.WithLabelValues("stored").Inc()
	metrics.UploadBytes.Observe(float64(header.Size))
	respond.OK(w, result)
}
