package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// TransformClient uploads an image to a hosted media pipeline together with
// a named transformation. The provider applies the transform and hosts the
// result, so the upload response already carries the final artifact URL.
type TransformClient struct {
	uploadURL  string
	apiKey     string
	httpClient *http.Client
}

// NewTransformClient constructs a hosted-transform client.
// uploadURL is the provider's upload endpoint.
func NewTransformClient(uploadURL, apiKey string) (*TransformClient, error) {
	uploadURL = strings.TrimSpace(uploadURL)
	if uploadURL == "" {
		return nil, fmt.Errorf("transform upload URL required")
	}
	return &TransformClient{
		uploadURL:  uploadURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// RemoveObject uploads the image with a generative-removal transformation
// naming the target object and returns the hosted result URL.
func (c *TransformClient) RemoveObject(ctx context.Context, r io.Reader, filename, object string) (string, error) {
	transformation := "gen_remove:prompt_" + strings.TrimSpace(object)
	return c.upload(ctx, r, filename, transformation)
}

func (c *TransformClient) upload(ctx context.Context, r io.Reader, filename, transformation string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if err := form.WriteField("transformation", transformation); err != nil {
		return "", err
	}
	if err := form.WriteField("resource_type", "image"); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp transformErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("transform api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("transform api error: %s", resp.Status)
	}

	var uploadResp transformUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("transform decode: %w", err)
	}
	url := strings.TrimSpace(uploadResp.SecureURL)
	if url == "" {
		return "", fmt.Errorf("transform api returned no result URL")
	}
	return url, nil
}

type transformUploadResponse struct {
	SecureURL string `json:"secure_url"`
}

type transformErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
