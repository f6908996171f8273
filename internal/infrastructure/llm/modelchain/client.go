package modelchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/panjf2000/ants/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/mzaitsev/policy-assistant/internal/core/domain"
	"github.com/mzaitsev/policy-assistant/internal/infrastructure/resilience"
)

// AttemptRecorder receives the outcome of every endpoint attempt.
type AttemptRecorder interface {
	RecordModelAttempt(endpoint, outcome string)
}

// Client calls an ordered chain of model endpoints. Each endpoint gets
// exactly one attempt per query, bounded by its own timeout; a failed or
// timed-out attempt advances to the next endpoint. Only when the whole
// chain is exhausted does the call fail, with ErrModelUnavailable.
type Client struct {
	chain         []endpointClient
	breakers      *resilience.BreakerSet
	pool          *ants.Pool
	contextBudget int
	metrics       AttemptRecorder
}

type endpointClient struct {
	endpoint Endpoint
	api      *openai.Client
}

type Options struct {
	// Breakers guards each endpoint with its own circuit breaker. Optional.
	Breakers *resilience.BreakerSet
	// MaxConcurrent caps simultaneous outbound model calls. Zero or
	// negative disables the bound.
	MaxConcurrent int
	// ContextBudget limits the total bytes of candidate excerpts included
	// in one prompt. Zero disables the bound.
	ContextBudget int
	Metrics       AttemptRecorder
}

func New(endpoints []Endpoint, options Options) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("modelchain: at least one endpoint is required")
	}

	chain := make([]endpointClient, 0, len(endpoints))
	for _, endpoint := range endpoints {
		cfg := openai.DefaultConfig(endpoint.APIKey)
		cfg.BaseURL = endpoint.BaseURL
		chain = append(chain, endpointClient{
			endpoint: endpoint,
			api:      openai.NewClientWithConfig(cfg),
		})
	}

	var pool *ants.Pool
	if options.MaxConcurrent > 0 {
		p, err := ants.NewPool(options.MaxConcurrent)
		if err != nil {
			return nil, fmt.Errorf("modelchain: create worker pool: %w", err)
		}
		pool = p
	}

	return &Client{
		chain:         chain,
		breakers:      options.Breakers,
		pool:          pool,
		contextBudget: options.ContextBudget,
		metrics:       options.Metrics,
	}, nil
}

func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Release()
	}
}

// Invoke runs the endpoint chain for one query. When a concurrency bound is
// configured the call waits for a pool slot before going outbound.
func (c *Client) Invoke(ctx context.Context, query string, candidates []domain.Candidate) (string, error) {
	if c.pool == nil {
		return c.invoke(ctx, query, candidates)
	}

	type outcome struct {
		raw string
		err error
	}
	done := make(chan outcome, 1)
	if err := c.pool.Submit(func() {
		raw, err := c.invoke(ctx, query, candidates)
		done <- outcome{raw: raw, err: err}
	}); err != nil {
		return "", domain.WrapError(domain.ErrModelUnavailable, "invoke model", err)
	}
	result := <-done
	return result.raw, result.err
}

func (c *Client) invoke(ctx context.Context, query string, candidates []domain.Candidate) (string, error) {
	prompt := buildUserPrompt(query, candidates, c.contextBudget)

	var lastErr error
	for _, tier := range c.chain {
		raw, err := c.attempt(ctx, tier, prompt)
		if err == nil {
			c.recordAttempt(tier.endpoint.Name, "success")
			return raw, nil
		}

		class := classifyFailure(err)
		c.recordAttempt(tier.endpoint.Name, class)
		slog.Warn("model_endpoint_failed",
			"endpoint", tier.endpoint.Name,
			"class", class,
			"error", err,
		)
		lastErr = err
	}

	return "", domain.WrapError(domain.ErrModelUnavailable, "invoke model", lastErr)
}

func (c *Client) attempt(ctx context.Context, tier endpointClient, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, tier.endpoint.Timeout)
	defer cancel()

	var raw string
	call := func() error {
		response, err := tier.api.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
			Model: tier.endpoint.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: answerSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0,
		})
		if err != nil {
			return err
		}
		if len(response.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		raw = response.Choices[0].Message.Content
		return nil
	}

	var err error
	if c.breakers != nil {
		err = c.breakers.Execute(tier.endpoint.Name, call)
	} else {
		err = call()
	}
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (c *Client) recordAttempt(endpoint, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordModelAttempt(endpoint, outcome)
	}
}

// classifyFailure buckets an endpoint failure for logging and metrics:
// timeout, http_status, circuit_open or connection.
func classifyFailure(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case resilience.IsCircuitOpen(err):
		return "circuit_open"
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return "http_status"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode > 0 {
			return "http_status"
		}
		return "connection"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "connection"
	}
	return "connection"
}
