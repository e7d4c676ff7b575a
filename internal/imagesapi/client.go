package imagesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jo-hoe/imagegallery/internal/gallery"
)

const imagesPath = "/api/images"

// StatusError is returned for any non-2xx response; callers only distinguish success from failure.
type StatusError struct {
	Method     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.Method, imagesPath, e.StatusCode)
}

// Client talks to the image collection endpoint of the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// CreateImage issues exactly one POST; there are no retries.
func (c *Client) CreateImage(ctx context.Context, record gallery.ImageRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode image record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+imagesPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post image: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: http.MethodPost, StatusCode: resp.StatusCode}
	}
	return nil
}

type listResponse struct {
	Data []gallery.ImageRecord `json:"data"`
}

// ListImages fetches the image collection shown on the gallery page.
func (c *Client) ListImages(ctx context.Context) ([]gallery.ImageRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+imagesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: http.MethodGet, StatusCode: resp.StatusCode}
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode image list: %w", err)
	}
	return list.Data, nil
}
