package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	errs  []error
	calls int
}

func (s *scriptedProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return "", s.errs[s.calls-1]
	}
	return "ok", nil
}

func (s *scriptedProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return s.Chat(ctx, nil, options...)
}

func fastRetry() RetryConfig {
	return RetryConfig{Attempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func TestRetryingProvider_RecoversFromTransientFailures(t *testing.T) {
	inner := &scriptedProvider{errs: []error{
		&StatusError{Provider: "test", StatusCode: http.StatusServiceUnavailable},
		&StatusError{Provider: "test", StatusCode: http.StatusTooManyRequests},
	}}
	var retries []uint64
	cfg := fastRetry()
	cfg.OnRetry = func(attempt uint64, err error) { retries = append(retries, attempt) }

	out, err := NewRetryingProvider(inner, cfg).Chat(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []uint64{1, 2}, retries)
}

func TestRetryingProvider_GivesUpAfterThreeAttempts(t *testing.T) {
	transient := &StatusError{Provider: "test", StatusCode: http.StatusBadGateway}
	inner := &scriptedProvider{errs: []error{transient, transient, transient, transient}}

	_, err := NewRetryingProvider(inner, fastRetry()).Chat(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
	var statusErr *StatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestRetryingProvider_DoesNotRetryPermanentFailures(t *testing.T) {
	inner := &scriptedProvider{errs: []error{&StatusError{Provider: "test", StatusCode: http.StatusBadRequest}}}

	_, err := NewRetryingProvider(inner, fastRetry()).Chat(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingProvider_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inner := &scriptedProvider{errs: []error{context.Canceled}}

	_, err := NewRetryingProvider(inner, fastRetry()).Chat(ctx, nil)

	require.Error(t, err)
	assert.LessOrEqual(t, inner.calls, 1)
}

// hangingProvider blocks its first `hang` calls until the attempt context ends.
type hangingProvider struct {
	hang  int
	calls int
}

func (h *hangingProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	h.calls++
	if h.calls <= h.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "ok", nil
}

func (h *hangingProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return h.Chat(ctx, nil, options...)
}

func TestRetryingProvider_RetriesAttemptThatTimesOut(t *testing.T) {
	inner := &hangingProvider{hang: 1}
	cfg := fastRetry()
	cfg.AttemptTimeout = 20 * time.Millisecond
	completer := NewCompleter(NewRetryingProvider(inner, cfg))

	out, err := completer.Complete(context.Background(), "system", "質問", CompletionOptions{MaxTokens: 100})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryingProvider_CallerDeadlineStopsRetries(t *testing.T) {
	inner := &hangingProvider{hang: 3}
	cfg := fastRetry()
	cfg.AttemptTimeout = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewRetryingProvider(inner, cfg).Chat(ctx, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, inner.calls)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(&StatusError{StatusCode: 500}))
	assert.False(t, IsTransient(&StatusError{StatusCode: 401}))
	assert.False(t, IsTransient(errors.New("unmarshal response")))
	assert.False(t, IsTransient(nil))
}
