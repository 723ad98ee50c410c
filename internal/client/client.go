package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/kelsos/coinfolio/internal/config"
	"github.com/kelsos/coinfolio/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const apiKeyHeader = "x-cg-demo-api-key"

// APIClient handles all HTTP communication with the market-data API
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAPIClient creates a new API client with the given configuration
func NewAPIClient(cfg *config.Config) *APIClient {
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	return &APIClient{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		limiter: rate.NewLimiter(perSecond, 5),
	}
}

// BuildURL constructs a full URL for the given endpoint
func (c *APIClient) BuildURL(endpoint string) string {
	return c.baseURL + endpoint
}

// Get makes a GET request to the specified endpoint and decodes the JSON body into result
func (c *APIClient) Get(ctx context.Context, endpoint string, result interface{}) error {
	return c.request(ctx, http.MethodGet, endpoint, result)
}

// request is the core HTTP request method
func (c *APIClient) request(ctx context.Context, method, endpoint string, result interface{}) error {
	url := c.BuildURL(endpoint)

	if err := c.limiter.Wait(ctx); err != nil {
		return &FetchError{URL: url, Err: err}
	}

	start := time.Now()
	logger.Debug("Starting %s request to %s", method, url)

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		elapsed := time.Since(start)
		logger.Error("Request to %s failed after %v: %v", url, elapsed, err)
		return &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	logger.Debug("Request to %s completed in %v with status %d", url, elapsed, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error("%s: HTTP error %d", url, resp.StatusCode)
		return &FetchError{URL: url, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			logger.Error("%s: Error decoding response: %v", url, err)
			return &FetchError{URL: url, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
		}
	}

	return nil
}

// Ping checks if the API is reachable
func (c *APIClient) Ping(ctx context.Context) error {
	return c.request(ctx, http.MethodGet, "/ping", nil)
}

// BuildURLWithParams properly builds a URL with query parameters
func BuildURLWithParams(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}

	// Parse the endpoint to check for existing query parameters
	parts := strings.SplitN(endpoint, "?", 2)
	baseURL := parts[0]

	values := url.Values{}
	if len(parts) > 1 {
		existingParams, _ := url.ParseQuery(parts[1])
		values = existingParams
	}

	for key, value := range params {
		values.Set(key, value)
	}

	if len(values) > 0 {
		return baseURL + "?" + values.Encode()
	}
	return baseURL
}
