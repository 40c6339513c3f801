package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	minBackoff = 30 * time.Second
	maxBackoff = 10 * time.Minute
	multiplier = 2.0
)

func TestBackoffInitial(t *testing.T) {
	b := New(minBackoff, maxBackoff, multiplier)
	duration := b.Next()

	assert.GreaterOrEqual(t, duration, minBackoff-minBackoff/10)
	assert.LessOrEqual(t, duration, minBackoff+minBackoff/10)
	assert.Equal(t, 1, b.Attempts())
}

func TestBackoffMaximum(t *testing.T) {
	b := New(minBackoff, maxBackoff, multiplier)

	var duration time.Duration
	for i := 0; i < 20; i++ {
		duration = b.Next()
	}

	assert.LessOrEqual(t, duration, maxBackoff+maxBackoff/10)
	assert.GreaterOrEqual(t, duration, maxBackoff-maxBackoff/10)
}

func TestBackoffReset(t *testing.T) {
	b := New(minBackoff, maxBackoff, multiplier)
	for i := 0; i < 5; i++ {
		b.Next()
	}

	b.Reset()
	assert.Equal(t, 0, b.Attempts())

	duration := b.Next()
	assert.LessOrEqual(t, duration, minBackoff+minBackoff/10)
}

func TestBackoffProgression(t *testing.T) {
	b := New(time.Second, time.Minute, multiplier)

	expectations := []struct {
		minExpected time.Duration
		maxExpected time.Duration
	}{
		{900 * time.Millisecond, 1100 * time.Millisecond},
		{1800 * time.Millisecond, 2200 * time.Millisecond},
		{3600 * time.Millisecond, 4400 * time.Millisecond},
		{7200 * time.Millisecond, 8800 * time.Millisecond},
	}

	for i, exp := range expectations {
		duration := b.Next()
		assert.GreaterOrEqual(t, duration, exp.minExpected, "Iteration %d", i)
		assert.LessOrEqual(t, duration, exp.maxExpected, "Iteration %d", i)
	}
}
