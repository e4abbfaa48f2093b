// Package brasilapi provides a client for the BrasilAPI bank catalog
package brasilapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

const (
	DefaultBaseURL   = "https://brasilapi.com.br/api"
	DefaultTimeout   = 5 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// Compile-time interface check
var _ interfaces.BankCatalogClient = (*Client)(nil)

// Client fetches the COMPE bank list from BrasilAPI
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new BrasilAPI client. The endpoint is public.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// bankEntry is one element of /banks/v1. Code is null for institutions
// without a COMPE number.
type bankEntry struct {
	ISPB     string `json:"ispb"`
	Name     string `json:"name"`
	Code     *int   `json:"code"`
	FullName string `json:"fullName"`
}

// ListBanks returns every bank that carries a COMPE code, with the code
// zero-padded to three digits.
func (c *Client) ListBanks(ctx context.Context) ([]models.Bank, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/banks/v1", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error().Err(err).Dur("elapsed", elapsed).Msg("BrasilAPI request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("BrasilAPI non-OK response")
		return nil, fmt.Errorf("BrasilAPI error: status %d", resp.StatusCode)
	}

	var entries []bankEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	banks := make([]models.Bank, 0, len(entries))
	for _, e := range entries {
		if e.Code == nil || *e.Code <= 0 {
			continue
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			name = strings.TrimSpace(e.FullName)
		}
		if name == "" {
			continue
		}
		banks = append(banks, models.Bank{
			Code:     PadCode(strconv.Itoa(*e.Code)),
			ISPB:     e.ISPB,
			Name:     name,
			FullName: strings.TrimSpace(e.FullName),
		})
	}

	c.logger.Debug().Int("banks", len(banks)).Dur("elapsed", elapsed).Msg("BrasilAPI bank list fetched")
	return banks, nil
}

// PadCode left-pads a numeric code to three digits.
func PadCode(code string) string {
	for len(code) < 3 {
		code = "0" + code
	}
	return code
}
