package resilience

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func always(error) bool { return true }

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *time.Time) {
	clock := time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: threshold,
		SuccessThreshold: 1,
		Cooldown:         cooldown,
	})
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	fail := func() error { return errUpstream }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(fail, always), errUpstream)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil }, always)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	fail := func() error { return errUpstream }
	ok := func() error { return nil }

	_ = cb.Execute(fail, always)
	require.NoError(t, cb.Execute(ok, always))
	_ = cb.Execute(fail, always)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_IgnoresUncountedErrors(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	notFound := errors.New("not found")

	err := cb.Execute(func() error { return notFound }, func(err error) bool { return err != notFound })
	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)

	var transitions []CircuitState
	cb.OnStateChange(func(name string, from, to CircuitState) {
		assert.Equal(t, "test", name)
		transitions = append(transitions, to)
	})

	_ = cb.Execute(func() error { return errUpstream }, always)
	require.Equal(t, CircuitOpen, cb.State())

	// A failed probe reopens the circuit.
	*clock = clock.Add(time.Minute)
	_ = cb.Execute(func() error { return errUpstream }, always)
	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }, always), ErrCircuitOpen)

	// A successful probe closes it.
	*clock = clock.Add(time.Minute)
	require.NoError(t, cb.Execute(func() error { return nil }, always))
	assert.Equal(t, CircuitClosed, cb.State())

	assert.Equal(t, []CircuitState{CircuitOpen, CircuitHalfOpen, CircuitOpen, CircuitHalfOpen, CircuitClosed}, transitions)
}

func TestCircuitBreaker_HalfOpenAdmitsOneCaller(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)
	_ = cb.Execute(func() error { return errUpstream }, always)
	require.Equal(t, CircuitOpen, cb.State())
	*clock = clock.Add(time.Minute)

	var admitted int32
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(func() error {
			atomic.AddInt32(&admitted, 1)
			close(entered)
			<-release
			return nil
		}, always)
	}()
	<-entered

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { atomic.AddInt32(&admitted, 1); return nil }, always)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, CircuitHalfOpen, cb.State())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&admitted))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_StaleResultsIgnoredWhileHalfOpen(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)

	// A slow call admitted while closed finishes after the circuit opened
	// and the cooldown elapsed.
	require.NoError(t, cb.Execute(func() error {
		_ = cb.Execute(func() error { return errUpstream }, always)
		*clock = clock.Add(time.Minute)
		probe, err := cb.allowRequest()
		require.NoError(t, err)
		require.True(t, probe)
		return nil
	}, always))

	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }, always), ErrCircuitOpen)

	cb.recordSuccess(true)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_DisabledAndNil(t *testing.T) {
	cb, _ := newTestBreaker(0, time.Minute)
	for i := 0; i < 10; i++ {
		_ = cb.Execute(func() error { return errUpstream }, always)
	}
	assert.Equal(t, CircuitClosed, cb.State())

	var none *CircuitBreaker
	assert.NoError(t, none.Execute(func() error { return nil }, always))
}
