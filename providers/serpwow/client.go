// Package serpwow is a minimal client for the SerpWow/ValueSERP destinations API.
package serpwow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/picklr-io/serp2snow/internal/ir"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.valueserp.com"

// Client talks to the destinations API with one API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// APIError is a non-2xx response. Message is the API's own explanation when
// it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("serpwow API returned status %d", e.StatusCode)
	}
	return e.Message
}

type requestInfo struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type destinationRequest struct {
	Name              string `json:"name"`
	Type              string `json:"type"`
	Enabled           bool   `json:"enabled"`
	S3AccessKeyID     string `json:"s3_access_key_id"`
	S3SecretAccessKey string `json:"s3_secret_access_key"`
	S3BucketName      string `json:"s3_bucket_name"`
}

type destinationResponse struct {
	RequestInfo requestInfo `json:"request_info"`
	Destination struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"destination"`
}

// Account is the subset of the account endpoint used to test an API key.
type Account struct {
	RequestInfo requestInfo `json:"request_info"`
	AccountInfo struct {
		Name             string `json:"name"`
		Plan             string `json:"plan"`
		CreditsRemaining int    `json:"credits_remaining"`
	} `json:"account_info"`
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// DestinationOptions describes an S3 destination for search results.
type DestinationOptions struct {
	Name            string
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
}

// CreateDestination registers an enabled S3 destination.
func (c *Client) CreateDestination(ctx context.Context, opts DestinationOptions) (*ir.Destination, error) {
	body := destinationRequest{
		Name:              opts.Name,
		Type:              "s3",
		Enabled:           true,
		S3AccessKeyID:     opts.AccessKeyID,
		S3SecretAccessKey: opts.SecretAccessKey,
		S3BucketName:      opts.BucketName,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/destinations", body)
	if err != nil {
		return nil, err
	}

	var resp destinationResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", opts.Name, err)
	}
	if resp.Destination.ID == "" {
		return nil, fmt.Errorf("create destination %s: response carried no destination id", opts.Name)
	}

	return &ir.Destination{Name: opts.Name, ID: resp.Destination.ID}, nil
}

// GetAccount fetches account details; it fails when the API key is invalid.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/account", nil)
	if err != nil {
		return nil, err
	}

	var acct Account
	if err := c.do(req, &acct); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path + "?" + url.Values{"api_key": {c.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var failed struct {
			RequestInfo requestInfo `json:"request_info"`
		}
		if json.Unmarshal(body, &failed) == nil {
			apiErr.Message = failed.RequestInfo.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
