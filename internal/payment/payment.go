// internal/payment/payment.go
package payment

import "context"

// Gateway verifies a transaction with the payment provider.
type Gateway interface {
	Verify(ctx context.Context, reference string) (*Verification, error)
}
