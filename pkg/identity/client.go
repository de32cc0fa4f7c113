package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quickgen/pkg/domain"
)

// Client calls the external identity provider over HTTP. The provider owns
// the user record, the subscription plan and the free-usage counter; none of
// it is cached here.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// APIError represents an identity provider error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs an identity provider client. secretKey authenticates
// server-side metadata writes.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  strings.TrimSpace(secretKey),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Me resolves the caller behind an access token: subject ID, plan and the
// current free-usage count.
func (c *Client) Me(token string) (domain.User, error) {
	var resp meResponse
	if err := c.doJSON(http.MethodGet, "/v1/me", "Bearer "+token, nil, &resp); err != nil {
		return domain.User{}, err
	}
	plan := domain.Plan(strings.TrimSpace(resp.Plan))
	if plan == "" {
		plan = domain.PlanFree
	}
	return domain.User{
		ID:        resp.ID,
		Plan:      plan,
		FreeUsage: resp.PrivateMetadata.FreeUsage,
	}, nil
}

// SetFreeUsage writes the free-usage counter into the user's private
// metadata. Requires the server secret key.
func (c *Client) SetFreeUsage(userID string, freeUsage int) error {
	payload := metadataUpdateRequest{}
	payload.PrivateMetadata.FreeUsage = freeUsage
	path := fmt.Sprintf("/v1/users/%s/metadata", userID)
	return c.doJSON(http.MethodPatch, path, "Bearer "+c.secretKey, payload, nil)
}

func (c *Client) doJSON(method, path, authorization string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

type meResponse struct {
	ID              string `json:"id"`
	Plan            string `json:"plan"`
	PrivateMetadata struct {
		FreeUsage int `json:"freeUsage"`
	} `json:"privateMetadata"`
}

type metadataUpdateRequest struct {
	PrivateMetadata struct {
		FreeUsage int `json:"freeUsage"`
	} `json:"privateMetadata"`
}
