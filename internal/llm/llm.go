// Package llm is a client for OpenAI-compatible chat-completion APIs such as Groq.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crimson-sun/healthguard/internal/connector/httpclient"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2000
)

// ErrUnavailable is returned when no API key is configured.
var ErrUnavailable = errors.New("llm: generator unavailable")

// Generator produces a completion for a system prompt and user content.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Option configures a Client.
type Option func(*Client)

// WithModel sets the model name. Default: llama-3.1-8b-instant.
func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

// WithTemperature sets the sampling temperature. Default: 0.3.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

// WithMaxTokens sets the completion token limit. Default: 2000.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithRateLimit caps requests per second. A non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPOptions passes options through to the underlying HTTP client.
func WithHTTPOptions(opts ...httpclient.Option) Option {
	return func(c *Client) { c.httpOpts = append(c.httpOpts, opts...) }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client calls POST {baseURL}/chat/completions with bearer auth.
type Client struct {
	http        *httpclient.Client
	httpOpts    []httpclient.Option
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

var _ Generator = (*Client)(nil)

// New creates a Client. An empty apiKey yields a client whose Generate
// always returns ErrUnavailable.
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:      apiKey,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = httpclient.New(baseURL, apiKey, c.httpOpts...)
	return c
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool { return c.apiKey != "" }

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Generate returns the content of the first completion choice.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm: rate limit: %w", err)
		}
	}

	start := time.Now()
	req := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	var resp chatResponse
	if err := c.http.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: chat completion: no choices")
	}
	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(resp.Choices[0].Message.Content)),
	)
	return resp.Choices[0].Message.Content, nil
}
