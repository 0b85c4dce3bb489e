// Package fetch retrieves remote PDF documents. Retrieval semantics are
// deliberately minimal: one timed GET per item, no retries, no caching.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdfmill/pdfmill/internal/config"
	"github.com/pdfmill/pdfmill/internal/utils/httpclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// MaxRedirects caps redirect chains; signed links commonly bounce once or twice
const MaxRedirects = 10

// Client fetches PDF bytes over HTTP with size and rate limits
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	maxBody    int64
}

// NewClient creates a fetch client from the given configuration. The
// underlying HTTP client honours the standard proxy environment variables.
func NewClient(cfg *config.Config) *Client {
	userAgent := cfg.UserAgent

	httpClient := httpclient.NewHTTPClientWithProxy(cfg.FetchTimeout.Std(), nil)
	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= MaxRedirects {
			return fmt.Errorf("too many redirects")
		}
		// Preserve User-Agent across redirects
		req.Header.Set("User-Agent", userAgent)
		return nil
	}

	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.FetchRateLimit), 1),
		userAgent:  userAgent,
		maxBody:    cfg.MaxFetchSize,
	}
}

// FetchPDF performs a single GET and returns the response bytes along with
// the reported Content-Type. A Content-Type that doesn't look like a PDF is
// logged but not fatal -- plenty of servers misreport signed download links.
func (c *Client) FetchPDF(ctx context.Context, logger *logrus.Logger, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported URL scheme: %q (only http and https are supported)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, "", fmt.Errorf("URL must be absolute: %s", rawURL)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limiter interrupted: %w", err)
	}

	logger.WithField("url", rawURL).Debug("Fetching remote PDF")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/pdf,application/octet-stream;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close response body")
		}
	}()

	logger.WithFields(logrus.Fields{
		"url":            rawURL,
		"status_code":    resp.StatusCode,
		"content_type":   resp.Header.Get("Content-Type"),
		"content_length": resp.Header.Get("Content-Length"),
	}).Debug("Received HTTP response")

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, resp.Status)
	}

	// Read one byte past the cap so truncation is detectable
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, "", fmt.Errorf("response exceeds maximum fetch size of %d bytes", c.maxBody)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "pdf") {
		logger.WithFields(logrus.Fields{
			"url":          rawURL,
			"content_type": contentType,
		}).Debug("Content-Type does not indicate PDF, continuing anyway")
	}

	logger.WithFields(logrus.Fields{
		"url":       rawURL,
		"body_size": len(body),
	}).Debug("Successfully fetched remote PDF")

	return body, contentType, nil
}
