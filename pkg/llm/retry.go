package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig controls RetryingProvider. Attempts counts the first call.
type RetryConfig struct {
	Attempts    uint64
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// AttemptTimeout bounds each call to the wrapped provider; an attempt that runs out
	// of time is retried. Zero leaves attempts bounded only by the caller's context.
	AttemptTimeout time.Duration
	// OnRetry is called before each backoff sleep; attempt starts at 1.
	OnRetry func(attempt uint64, err error)
}

// DefaultRetryConfig gives 3 attempts with 1s, 2s, 4s backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:    3,
		BaseBackoff: time.Second,
		MaxBackoff:  4 * time.Second,
	}
}

// RetryingProvider retries transient failures of the wrapped provider.
type RetryingProvider struct {
	inner LLMProvider
	cfg   RetryConfig
}

var _ LLMProvider = (*RetryingProvider)(nil)

func NewRetryingProvider(inner LLMProvider, cfg RetryConfig) *RetryingProvider {
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.BaseBackoff {
		cfg.MaxBackoff = cfg.BaseBackoff
	}
	return &RetryingProvider{inner: inner, cfg: cfg}
}

func (p *RetryingProvider) backoff() retry.Backoff {
	b := retry.NewExponential(p.cfg.BaseBackoff)
	b = retry.WithCappedDuration(p.cfg.MaxBackoff, b)
	return retry.WithMaxRetries(p.cfg.Attempts-1, b)
}

func (p *RetryingProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	var out string
	var attempt uint64
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		res, err := p.attempt(ctx, history, options)
		if err != nil {
			// the caller's context ending stops the loop; an attempt deadline does not
			if ctx.Err() == nil && IsTransient(err) {
				if p.cfg.OnRetry != nil && attempt < p.cfg.Attempts {
					p.cfg.OnRetry(attempt, err)
				}
				return retry.RetryableError(err)
			}
			return err
		}
		out = res
		return nil
	})
	return out, err
}

func (p *RetryingProvider) attempt(ctx context.Context, history []Message, options []Option) (string, error) {
	if p.cfg.AttemptTimeout <= 0 {
		return p.inner.Chat(ctx, history, options...)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
	defer cancel()
	return p.inner.Chat(attemptCtx, history, options...)
}

func (p *RetryingProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return p.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, options...)
}

// IsTransient reports whether err is worth retrying: network failures, per-attempt
// timeouts, 429 and 5xx responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
