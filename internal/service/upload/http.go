package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/chating-app/chating/client/internal/service/api"
)

// HTTPUploader posts a multipart form (field "file") to {base}/upload.
type HTTPUploader struct {
	client *api.Client
}

// NewHTTPUploader 创建HTTP上传器
func NewHTTPUploader(client *api.Client) *HTTPUploader {
	return &HTTPUploader{client: client}
}

// Upload streams body to the backend and returns the URL it reports.
func (u *HTTPUploader) Upload(ctx context.Context, name string, body io.Reader) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, body)
		}
		if err == nil {
			err = form.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := u.client.NewRequest(ctx, http.MethodPost, pr, "upload")
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrMissingURL
		}
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if strings.TrimSpace(payload.URL) == "" {
		return "", ErrMissingURL
	}
	return payload.URL, nil
}
