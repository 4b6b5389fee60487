// Package remote implements liveness detectors backed by an external
// detection service over HTTP. One Client serves all step kinds; ForKind
// binds it to a single kind for the orchestrator.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"facelive/internal/liveness"
)

const defaultTimeout = 5 * time.Second

// Client talks to the detection service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New constructs a Client for the detection service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.Parse(trimmed); err != nil || trimmed == "" {
		return nil, fmt.Errorf("invalid detector base URL %q", baseURL)
	}

	c := &Client{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ForKind returns a liveness.Detector bound to one step kind.
func (c *Client) ForKind(kind liveness.StepKind) liveness.Detector {
	return &kindDetector{client: c, kind: kind}
}

type kindDetector struct {
	client *Client
	kind   liveness.StepKind
}

func (d *kindDetector) Verify(ctx context.Context, challenge *liveness.Challenge, capture liveness.Capture) (liveness.Verdict, error) {
	return d.client.verify(ctx, d.kind, challenge, capture)
}

type verifyRequest struct {
	Kind      string            `json:"kind"`
	Media     string            `json:"media,omitempty"`
	MediaType string            `json:"media_type,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`

	// ExpectedAnswer lets the service judge challenge/response kinds. It
	// travels only server-to-service, never to the client under test.
	ExpectedAnswer string `json:"expected_answer,omitempty"`
}

type verifyResponse struct {
	Passed     bool           `json:"passed"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (c *Client) verify(ctx context.Context, kind liveness.StepKind, challenge *liveness.Challenge, capture liveness.Capture) (liveness.Verdict, error) {
	payload := verifyRequest{
		Kind:      string(kind),
		MediaType: capture.MediaType,
		Meta:      capture.Meta,
	}
	if len(capture.Media) > 0 {
		payload.Media = base64.StdEncoding.EncodeToString(capture.Media)
	}
	if challenge != nil {
		payload.ExpectedAnswer = challenge.ExpectedAnswer
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return liveness.Verdict{}, fmt.Errorf("encode verify request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/verify/%s", c.baseURL, url.PathEscape(string(kind)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return liveness.Verdict{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return liveness.Verdict{}, fmt.Errorf("detector request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return liveness.Verdict{}, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return liveness.Verdict{}, fmt.Errorf("decode verify response: %w", err)
	}

	return liveness.Verdict{
		Passed:     out.Passed,
		Confidence: out.Confidence,
		Metadata:   out.Metadata,
	}, nil
}
