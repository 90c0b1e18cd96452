// Package blockscout provides a client for the Blockscout v2 smart-contract
// verification API.
package blockscout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single verification request
const DefaultTimeout = 60 * time.Second

// maxBodyBytes caps how much of an explorer response is read
const maxBodyBytes = 1 << 20

// Errors returned by VerifyFlattened
var (
	ErrTransport = errors.New("transport error")
	ErrRejected  = errors.New("verification rejected")
)

// RejectedError is returned when the explorer answers with a non-200 status
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", ErrRejected, e.StatusCode, Preview(e.Body, 500))
}

// Unwrap lets errors.Is match ErrRejected
func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// Client is a Blockscout API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the request timeout on the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(client *Client) {
		if l != nil {
			client.logger = l
		}
	}
}

// New creates a new Blockscout client for the explorer at baseURL
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the explorer base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// VerifyFlattened submits flattened source for the contract at address.
// A single attempt is made. Any HTTP 200 is accepted; the body only decides
// between OutcomeVerified and OutcomeSubmitted.
func (c *Client) VerifyFlattened(ctx context.Context, address string, req FlattenedRequest) (*Response, error) {
	if req.Libraries == nil {
		req.Libraries = map[string]string{}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	path := fmt.Sprintf("/api/v2/smart-contracts/%s/verification/via/flattened-code", url.PathEscape(address))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	c.logger.Debug("submitting verification",
		"request_id", requestID,
		"url", httpReq.URL.String(),
		"contract", req.ContractName,
		"source_bytes", len(req.SourceCode),
		"authenticated", c.apiKey != "",
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("verification request failed",
			"request_id", requestID,
			"duration", time.Since(start).String(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	c.logger.Debug("verification response",
		"request_id", requestID,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Outcome:    ClassifyBody(string(body)),
		RequestID:  requestID,
	}, nil
}

// ClassifyBody reports OutcomeVerified when the body mentions success,
// OutcomeSubmitted otherwise.
func ClassifyBody(body string) Outcome {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "successfully") || strings.Contains(lower, "verified") {
		return OutcomeVerified
	}
	return OutcomeSubmitted
}

// Preview truncates s to at most n characters for display
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
