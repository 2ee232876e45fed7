package resilience

import "time"

// Operation keys for outbound calls. Each key gets its own circuit, so one
// failing dependency does not open the breaker for the others.
const (
	OpOpenAIChat   = "openai_chat"
	OpTavilySearch = "tavily_search"
	OpNATSPublish  = "nats_publish"
	OpAPIRequest   = "gchat_api"

	ollamaOpPrefix = "ollama_"
	qdrantOpPrefix = "qdrant_"
)

func OllamaOp(name string) string { return ollamaOpPrefix + name }

func QdrantOp(name string) string { return qdrantOpPrefix + name }

// Config controls retry and circuit breaking for outbound adapter calls.
// RetryMaxAttempts of 1 means a single attempt with no retry.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32

	// SingleAttemptOps run once regardless of RetryMaxAttempts. Web search is
	// in the default set; a failed lookup only degrades the prompt.
	SingleAttemptOps map[string]bool
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    1,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,

		SingleAttemptOps: map[string]bool{OpTavilySearch: true},
	}
}

func (c Config) maxAttempts(operation string) int {
	if c.SingleAttemptOps[operation] {
		return 1
	}
	return c.RetryMaxAttempts
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	if out.SingleAttemptOps == nil {
		out.SingleAttemptOps = def.SingleAttemptOps
	}

	return out
}
