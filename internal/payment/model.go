package payment

import "time"

type VerificationStatus string

const (
	VerificationSuccess   VerificationStatus = "success"
	VerificationFailed    VerificationStatus = "failed"
	VerificationAbandoned VerificationStatus = "abandoned"
	VerificationOngoing   VerificationStatus = "ongoing"
	VerificationPending   VerificationStatus = "pending"
)

// Verification is the provider's view of a transaction.
type Verification struct {
	Reference string
	Status    VerificationStatus
	Channel   string
	// Amount is in the minor currency unit (kobo).
	Amount   int64
	Currency string
	PaidAt   *time.Time
}

// IsTerminalFailure reports whether the customer can no longer complete the payment.
func (s VerificationStatus) IsTerminalFailure() bool {
	return s == VerificationFailed || s == VerificationAbandoned
}

// IsInFlight reports whether the provider has not decided yet.
func (s VerificationStatus) IsInFlight() bool {
	return s == VerificationOngoing || s == VerificationPending
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string     `json:"reference"`
		Status    string     `json:"status"`
		Amount    int64      `json:"amount"`
		Currency  string     `json:"currency"`
		Channel   string     `json:"channel"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}
