package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail() error { return errBoom }
func pass() error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 2, Cooldown: time.Minute})

	require.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, StateClosed, b.State())
	require.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := New(Config{FailureThreshold: 2})

	_ = b.Execute(fail)
	require.NoError(t, b.Execute(pass))
	_ = b.Execute(fail)

	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var transitions []string
	b := New(Config{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		OnStateChange:    func(from, to State) { transitions = append(transitions, from.String()+">"+to.String()) },
	})
	b.now = func() time.Time { return now }

	_ = b.Execute(fail)
	now = now.Add(2 * time.Minute)

	require.NoError(t, b.Execute(pass))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New(Config{FailureThreshold: 3, Cooldown: time.Minute})
	b.now = func() time.Time { return now }

	for range 3 {
		_ = b.Execute(fail)
	}
	now = now.Add(time.Minute)

	require.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_IgnoredErrors(t *testing.T) {
	b := New(Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, errBoom) },
	})

	require.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, StateClosed, b.State())
}
