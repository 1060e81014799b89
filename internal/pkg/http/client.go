package http

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/piresc/navieta/internal/pkg/logger"
)

const (
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 15 * time.Second

	// APIKeyIDHeader carries the NCP API gateway key id.
	APIKeyIDHeader = "x-ncp-apigw-api-key-id"
	// APIKeyHeader carries the NCP API gateway key.
	APIKeyHeader = "x-ncp-apigw-api-key"
)

// KeyPairClient is an HTTP client that attaches an NCP API key-id/key pair
// to every request. It does no retrying and no response interpretation;
// classification of outcomes belongs to the caller.
type KeyPairClient struct {
	client   *nethttp.Client
	apiKeyID string
	apiKey   string
	baseURL  string
}

// NewKeyPairClient creates a client for the given API root.
func NewKeyPairClient(baseURL, apiKeyID, apiKey string, timeout time.Duration) *KeyPairClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &KeyPairClient{
		client: &nethttp.Client{
			Timeout: timeout,
		},
		apiKeyID: apiKeyID,
		apiKey:   apiKey,
		baseURL:  baseURL,
	}
}

// Get performs a GET request against endpoint with the given query parameters.
// The caller owns the response body.
func (c *KeyPairClient) Get(ctx context.Context, endpoint string, params url.Values) (*nethttp.Response, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKeyID != "" {
		req.Header.Set(APIKeyIDHeader, c.apiKeyID)
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	logger.Debug("Making HTTP request",
		logger.String("method", nethttp.MethodGet),
		logger.String("endpoint", endpoint),
		logger.Bool("has_credentials", c.apiKeyID != "" && c.apiKey != ""))

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error("HTTP request failed",
			logger.String("endpoint", endpoint),
			logger.Err(err))
		return nil, fmt.Errorf("request failed: %w", err)
	}

	logger.Debug("HTTP request completed",
		logger.String("endpoint", endpoint),
		logger.Int("status_code", resp.StatusCode))

	return resp, nil
}
