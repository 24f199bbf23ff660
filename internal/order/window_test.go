package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindows_Partition(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	// Every age from 0 to 2h in 1s steps, plus the exact boundaries.
	for age := time.Duration(0); age <= 2*time.Hour; age += time.Second {
		createdAt := now.Add(-age)
		poll := InVerificationWindow(createdAt, now)
		reap := PastPaymentTimeout(createdAt, now)

		assert.False(t, poll && reap, "age %s eligible for both", age)

		switch {
		case age < VerificationGrace:
			assert.False(t, poll, "age %s", age)
			assert.False(t, reap, "age %s", age)
		case age < PaymentTimeout:
			assert.True(t, poll, "age %s", age)
		default:
			assert.True(t, reap, "age %s", age)
		}
	}
}

func TestWindows_Boundaries(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	assert.True(t, InVerificationWindow(now.Add(-5*time.Minute), now), "5m is inclusive")
	assert.False(t, InVerificationWindow(now.Add(-5*time.Minute+time.Nanosecond), now))
	assert.False(t, InVerificationWindow(now.Add(-30*time.Minute), now), "30m belongs to the reaper")
	assert.True(t, PastPaymentTimeout(now.Add(-30*time.Minute), now))
	assert.False(t, PastPaymentTimeout(now.Add(-30*time.Minute+time.Nanosecond), now))

	from, to := VerificationWindow(now)
	assert.Equal(t, ReapCutoff(now), from)
	assert.Equal(t, now.Add(-5*time.Minute), to)
}
