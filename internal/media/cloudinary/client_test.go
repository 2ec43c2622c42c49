package cloudinary

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	params  uploader.UploadParams
	content string
	result  *uploader.UploadResult
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.params = params
	if r, ok := file.(io.Reader); ok {
		b, _ := io.ReadAll(r)
		f.content = string(b)
	}
	return f.result, f.err
}

func TestClient_Upload_Success(t *testing.T) {
	fake := &fakeUploader{result: &uploader.UploadResult{
		SecureURL:    "https://res.cloudinary.com/demo/image/upload/v1/nitrutsav-2026/abc.png",
		PublicID:     "nitrutsav-2026/abc",
		Format:       "png",
		ResourceType: "image",
		Bytes:        9,
	}}

	client, err := NewClient("", "", "", WithUploader(fake))
	require.NoError(t, err)
	require.True(t, client.Configured())

	result, err := client.Upload(context.Background(), "nitrutsav-2026", "id.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "nitrutsav-2026", fake.params.Folder)
	require.Equal(t, "png-bytes", fake.content)
	require.Equal(t, "nitrutsav-2026/abc", result.PublicID)
	require.Equal(t, "png", result.Format)
	require.Equal(t, "image", result.ResourceType)
	require.Equal(t, int64(9), result.Bytes)
	require.True(t, strings.HasPrefix(result.SecureURL, "https://"))
}

func TestClient_Upload_HostErrorInBody(t *testing.T) {
	fake := &fakeUploader{result: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid Signature"}}}
	client, err := NewClient("", "", "", WithUploader(fake))
	require.NoError(t, err)

	_, err = client.Upload(context.Background(), "f", "a.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.ErrorIs(t, err, ErrUpload)
	require.ErrorContains(t, err, "Invalid Signature")
}

func TestClient_Upload_TransportError(t *testing.T) {
	fake := &fakeUploader{err: errors.New("connection reset")}
	client, err := NewClient("", "", "", WithUploader(fake))
	require.NoError(t, err)

	_, err = client.Upload(context.Background(), "f", "a.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.ErrorIs(t, err, ErrUpload)
}

func TestClient_Upload_NotConfigured(t *testing.T) {
	client, err := NewClient("", "", "")
	require.NoError(t, err)
	require.False(t, client.Configured())

	_, err = client.Upload(context.Background(), "f", "a.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.ErrorIs(t, err, ErrUpload)
}

func TestNewClient_WithCredentials(t *testing.T) {
	client, err := NewClient("demo", "key-1", "secret")
	require.NoError(t, err)
	require.True(t, client.Configured())
}
