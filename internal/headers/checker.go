package headers

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hakim/reconx/internal/models"
)

// CheckerConfig configures the HTTP client used for header checks
type CheckerConfig struct {
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
	// RequestsPerSecond paces outgoing requests; zero disables pacing.
	RequestsPerSecond float64
}

// Checker fetches URLs and analyzes their response headers
type Checker struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// NewChecker builds a Checker. Redirects are followed by the default client
// policy.
func NewChecker(cfg CheckerConfig) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicit opt-out for lab targets
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Checker{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
		limiter:   limiter,
	}
}

// Check performs a GET against url and returns the header finding
func (c *Checker) Check(ctx context.Context, url string) (models.HeaderFinding, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.HeaderFinding{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.HeaderFinding{}, fmt.Errorf("building request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.HeaderFinding{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	return Analyze(resp.Header).Finding(resp.StatusCode), nil
}
