package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dscnitrourkela/project-zucchini/internal/apperr"
	"github.com/dscnitrourkela/project-zucchini/internal/media/cloudinary"
)

// DefaultMaxBytes caps a single upload at 5 MiB.
const DefaultMaxBytes int64 = 5 << 20

var (
	ErrEmptyFile       = apperr.New(apperr.KindInvalid, "File is empty")
	ErrTooLarge        = apperr.New(apperr.KindTooLarge, "File exceeds the upload size limit")
	ErrUnsupportedType = apperr.New(apperr.KindInvalid, "Unsupported file type")
	ErrNotConfigured   = apperr.New(apperr.KindUnavailable, "Uploads are not configured")
)

var allowedTypeList = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

// errUnsupported matches ErrUnsupportedType and lists the allowed types.
var errUnsupported = ErrUnsupportedType.WithDetails(map[string]any{"allowed": allowedTypeList})

// AllowedTypes is the MIME allow-list for id cards and documents.
var AllowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// Host stores files and returns their public location.
type Host interface {
	Configured() bool
	Upload(ctx context.Context, folder, filename, contentType string, content io.Reader) (*cloudinary.UploadResult, error)
}

// Result is returned to the client after a successful upload.
type Result struct {
	URL          string `json:"url"`
	PublicID     string `json:"publicId"`
	Format       string `json:"format"`
	ResourceType string `json:"resourceType"`
}

type Service struct {
	host     Host
	folder   string
	maxBytes int64
	logger   zerolog.Logger
}

func NewService(host Host, folder string, maxBytes int64, logger zerolog.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{
		host:     host,
		folder:   folder,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "uploads").Logger(),
	}
}

// MaxBytes is the largest accepted file.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload checks the declared and sniffed type of content against the
// allow-list and forwards it to the media host.
func (s *Service) Upload(ctx context.Context, filename, declaredType string, content io.Reader) (*Result, error) {
	if s.host == nil || !s.host.Configured() {
		return nil, ErrNotConfigured
	}

	declared := normalizeType(declaredType)
	if declared != "" && !AllowedTypes[declared] {
		return nil, fmt.Errorf("%w: %s", errUnsupported, declared)
	}

	// Read one byte past the limit to detect oversize input without
	// trusting any declared length.
	data, err := io.ReadAll(io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	sniffed := normalizeType(http.DetectContentType(data))
	if !AllowedTypes[sniffed] {
		return nil, fmt.Errorf("%w: %s", errUnsupported, sniffed)
	}
	if declared != "" && declared != sniffed {
		return nil, fmt.Errorf("%w: declared %s but content is %s", errUnsupported, declared, sniffed)
	}

	res, err := s.host.Upload(ctx, s.folder, filename, sniffed, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("public_id", res.PublicID).Str("type", sniffed).Int("bytes", len(data)).Msg("file uploaded")
	return &Result{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		Format:       res.Format,
		ResourceType: res.ResourceType,
	}, nil
}

func normalizeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}
