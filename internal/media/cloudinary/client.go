package cloudinary

import (
	"context"
	"fmt"
	"io"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/dscnitrourkela/project-zucchini/internal/apperr"
	"github.com/dscnitrourkela/project-zucchini/internal/telemetry"
)

// DefaultRateLimit for outbound uploads
const DefaultRateLimit = rate.Limit(10)

var ErrUpload = apperr.New(apperr.KindUpstream, "Upload failed")

// UploadResult is the subset of the upload response callers need.
type UploadResult struct {
	SecureURL    string
	PublicID     string
	Format       string
	ResourceType string
	Bytes        int64
}

// Uploader is the upload API of the Cloudinary SDK.
type Uploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// Client uploads files to a Cloudinary cloud through the SDK, which signs
// each request with the API secret.
type Client struct {
	uploads    Uploader
	configured bool
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithUploader replaces the SDK upload API.
func WithUploader(u Uploader) Option {
	return func(c *Client) {
		if u != nil {
			c.uploads = u
			c.configured = true
		}
	}
}

func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient builds a client for cloudName. Missing credentials leave the
// client unconfigured rather than failing, so the API can run without uploads.
func NewClient(cloudName, apiKey, apiSecret string, opts ...Option) (*Client, error) {
	client := &Client{limiter: rate.NewLimiter(DefaultRateLimit, 2)}
	if cloudName != "" && apiKey != "" && apiSecret != "" {
		sdk, err := cld.NewFromParams(cloudName, apiKey, apiSecret)
		if err != nil {
			return nil, fmt.Errorf("init cloudinary: %w", err)
		}
		client.uploads = &sdk.Upload
		client.configured = true
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.configured
}

// Upload sends one file to folder. The resource type is detected by the host.
func (c *Client) Upload(ctx context.Context, folder, filename, contentType string, content io.Reader) (_ *UploadResult, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "cloudinary.upload",
		attribute.String("upload.folder", folder),
		attribute.String("upload.filename", filename),
		attribute.String("upload.content_type", contentType),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if !c.Configured() {
		return nil, fmt.Errorf("%w: media host not configured", ErrUpload)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	res, err := c.uploads.Upload(ctx, content, uploader.UploadParams{Folder: folder})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	// The SDK reports API failures in the result body with a nil error.
	if res == nil {
		return nil, fmt.Errorf("%w: empty response", ErrUpload)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpload, res.Error.Message)
	}

	return &UploadResult{
		SecureURL:    res.SecureURL,
		PublicID:     res.PublicID,
		Format:       res.Format,
		ResourceType: res.ResourceType,
		Bytes:        int64(res.Bytes),
	}, nil
}
