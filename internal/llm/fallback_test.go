package llm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGateway fails a fixed number of times before succeeding
type countingGateway struct {
	failures int
	calls    int
	response string
}

func (g *countingGateway) Chat(_ context.Context, _ string) (string, error) {
	g.calls++

	if g.calls <= g.failures {
		return "", fmt.Errorf("transient failure %d", g.calls)
	}

	return g.response, nil
}

func fastChainConfig() ChainConfig {
	return ChainConfig{
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		Timeout:       time.Second,
	}
}

func TestChainFirstGatewayWins(t *testing.T) {
	first := &countingGateway{response: "first"}
	second := &countingGateway{response: "second"}

	chain := NewChain(fastChainConfig(), first, second)

	response, err := chain.Chat(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "first", response)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestChainRetriesBeforeFallingOver(t *testing.T) {
	first := &countingGateway{failures: 10}
	second := &countingGateway{response: "second"}

	chain := NewChain(fastChainConfig(), first, second)

	response, err := chain.Chat(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "second", response)

	// RetryAttempts retries plus the initial call
	assert.Equal(t, 3, first.calls)
}

func TestChainRecoversWithinRetries(t *testing.T) {
	flaky := &countingGateway{failures: 2, response: "eventually"}

	chain := NewChain(fastChainConfig(), flaky)

	response, err := chain.Chat(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "eventually", response)
	assert.Equal(t, 3, flaky.calls)
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(fastChainConfig(), &countingGateway{failures: 10}, &countingGateway{failures: 10})

	_, err := chain.Chat(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestChainNoGateways(t *testing.T) {
	chain := NewChain(fastChainConfig())

	_, err := chain.Chat(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestChainStaticTerminal(t *testing.T) {
	chain := NewChain(
		fastChainConfig(),
		&countingGateway{failures: 10},
		&StaticGateway{Response: `[{"type": "stop_action"}]`},
	)

	response, err := chain.Chat(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, `[{"type": "stop_action"}]`, response)
}

func TestChainRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := &countingGateway{failures: 10}
	chain := NewChain(fastChainConfig(), slow)

	_, err := chain.Chat(ctx, "prompt")
	require.Error(t, err)

	// The canceled context stops the retry loop after the first attempt.
	assert.LessOrEqual(t, slow.calls, 1)
}
