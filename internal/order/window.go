package order

import "time"

const (
	// VerificationGrace is how long a customer gets to pay before the poller
	// starts asking the gateway.
	VerificationGrace = 5 * time.Minute
	// PaymentTimeout is the hand-off point between the poller and the reaper.
	PaymentTimeout = 30 * time.Minute
)

// VerificationWindow returns the half-open creation window (from, to] polled
// for payment status.
func VerificationWindow(now time.Time) (from, to time.Time) {
	return now.Add(-PaymentTimeout), now.Add(-VerificationGrace)
}

// ReapCutoff returns the creation time at or before which an unpaid order expires.
func ReapCutoff(now time.Time) time.Time {
	return now.Add(-PaymentTimeout)
}

func InVerificationWindow(createdAt, now time.Time) bool {
	from, to := VerificationWindow(now)
	return createdAt.After(from) && !createdAt.After(to)
}

func PastPaymentTimeout(createdAt, now time.Time) bool {
	return !createdAt.After(ReapCutoff(now))
}
