package llm

import (
	"context"
	"time"

	"github.com/sqlscout/sqlscout/internal/errors"
	"github.com/sqlscout/sqlscout/internal/logging"
)

// ChainConfig configures the fallback chain behavior
type ChainConfig struct {
	RetryAttempts int           `json:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay"`
	Timeout       time.Duration `json:"timeout"`
}

// DefaultChainConfig returns a sensible default configuration
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		RetryAttempts: 2,
		RetryDelay:    2 * time.Second,
		Timeout:       2 * time.Minute,
	}
}

// Chain tries an ordered list of gateways with per-gateway retries. The last
// gateway in the chain is expected to be infallible (e.g. a StaticGateway)
// when the caller cannot tolerate transport failure.
type Chain struct {
	gateways []Gateway
	config   ChainConfig
}

// NewChain creates a fallback chain over the given gateways
func NewChain(config ChainConfig, gateways ...Gateway) *Chain {
	return &Chain{
		gateways: gateways,
		config:   config,
	}
}

// Chat tries each gateway in order until one answers
func (c *Chain) Chat(ctx context.Context, prompt string) (string, error) {
	if len(c.gateways) == 0 {
		return "", errors.New(errors.ErrTypeLLM, "no gateways configured")
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)

		defer cancel()
	}

	var lastErr error

	for i, gateway := range c.gateways {
		response, err := c.tryGateway(ctx, gateway, prompt)
		if err == nil {
			return response, nil
		}

		lastErr = err

		logging.Warnf("gateway %d failed: %v", i, err)

		if ctx.Err() != nil {
			break
		}
	}

	return "", errors.Wrap(lastErr, errors.ErrTypeLLM, "all gateways failed")
}

// tryGateway attempts one gateway with retries
func (c *Chain) tryGateway(ctx context.Context, gateway Gateway, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		response, err := gateway.Chat(ctx, prompt)
		if err == nil {
			return response, nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			break
		}
	}

	return "", errors.Wrapf(
		lastErr,
		errors.ErrTypeLLM,
		"gateway failed after %d attempts",
		c.config.RetryAttempts+1,
	)
}
