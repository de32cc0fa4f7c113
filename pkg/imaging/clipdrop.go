package imaging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultClipdropBaseURL = "https://clipdrop-api.co"

// ClipdropClient calls the ClipDrop image APIs (text-to-image and
// background removal). Both endpoints take multipart form data and answer
// with raw PNG bytes.
type ClipdropClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClipdropClient constructs a client with the provided API key.
// baseURL may be empty to use the public endpoint.
func NewClipdropClient(apiKey, baseURL string) (*ClipdropClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("clipdrop api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultClipdropBaseURL
	}
	return &ClipdropClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// TextToImage generates a PNG from a prompt.
func (c *ClipdropClient) TextToImage(ctx context.Context, prompt string) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("prompt", prompt); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}
	return c.doImage(ctx, "/text-to-image/v1", form.FormDataContentType(), &body)
}

// RemoveBackground strips the background from the supplied image file.
func (c *ClipdropClient) RemoveBackground(ctx context.Context, r io.Reader, filename string) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image_file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, err
	}
	return c.doImage(ctx, "/remove-background/v1", form.FormDataContentType(), &body)
}

func (c *ClipdropClient) doImage(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clipdrop request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// ClipDrop error bodies carry the useful detail; surface them as-is.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(bytes.TrimSpace(detail)) > 0 {
			return nil, fmt.Errorf("clipdrop api error: %s", strings.TrimSpace(string(detail)))
		}
		return nil, fmt.Errorf("clipdrop api error: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("clipdrop read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image from clipdrop api")
	}
	return data, nil
}
