package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderkeeper-be/internal/events"
	"orderkeeper-be/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) ListAwaitingVerification(ctx context.Context, now time.Time, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, now, limit)
	return nil, args.Error(1)
}

func (m *MockOrderService) ListExpired(ctx context.Context, now time.Time, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, now, limit)
	return nil, args.Error(1)
}

func (m *MockOrderService) MarkPaid(ctx context.Context, o *order.Order, channel string) (bool, error) {
	args := m.Called(ctx, o, channel)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderService) MarkFailed(ctx context.Context, o *order.Order, reason events.CancelReason) (bool, error) {
	args := m.Called(ctx, o, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderService) ConfirmByReference(ctx context.Context, reference, channel string) (*order.Order, bool, error) {
	args := m.Called(ctx, reference, channel)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*order.Order), args.Bool(1), args.Error(2)
}

func (m *MockOrderService) FailByReference(ctx context.Context, reference string) (*order.Order, bool, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*order.Order), args.Bool(1), args.Error(2)
}

const secret = "sk_test_secret"

func newRequest(t *testing.T, event, reference string, sign bool) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"data": map[string]any{
			"reference": reference,
			"status":    "success",
			"amount":    15500,
			"currency":  "NGN",
			"channel":   "card",
		},
	})
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/paystack", bytes.NewReader(body))
	if sign {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}
	return req
}

func TestHandler_PaystackWebhookHandler(t *testing.T) {
	t.Run("Success_ChargeSuccess", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewWebhookHandler(svc, secret)

		svc.On("ConfirmByReference", mock.Anything, "ref123", "card").
			Return(&order.Order{ID: 1, TotalAmount: 155}, true, nil)

		w := httptest.NewRecorder()
		h.PaystackWebhookHandler(w, newRequest(t, EventChargeSuccess, "ref123", true))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("Success_ChargeFailed", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewWebhookHandler(svc, secret)

		svc.On("FailByReference", mock.Anything, "ref123").Return(&order.Order{ID: 1}, true, nil)

		w := httptest.NewRecorder()
		h.PaystackWebhookHandler(w, newRequest(t, EventChargeFailed, "ref123", true))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("AlreadySettledIsOK", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewWebhookHandler(svc, secret)

		svc.On("ConfirmByReference", mock.Anything, "ref123", "card").
			Return(&order.Order{ID: 1}, false, nil)

		w := httptest.NewRecorder()
		h.PaystackWebhookHandler(w, newRequest(t, EventChargeSuccess, "ref123", true))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UnknownReference", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewWebhookHandler(svc, secret)

		svc.On("ConfirmByReference", mock.Anything, "missing", "card").Return(nil, false, order.ErrOrderNotFound)

		w := httptest.NewRecorder()
		h.PaystackWebhookHandler(w, newRequest(t, EventChargeSuccess, "missing", true))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ServiceError", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewWebhookHandler(svc, secret)

		svc.On("ConfirmByReference", mock.Anything, "ref123", "card").Return(nil, false, errors.New("db down"))

		w := httptest.NewRecorder()
		h.PaystackWebhookHandler(w, newRequest(t, EventChargeSuccess, "ref123", true))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("IgnoredEvent", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewWebhookHandler(svc, secret)

		w := httptest.NewRecorder()
		h.PaystackWebhookHandler(w, newRequest(t, "transfer.success", "ref123", true))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertNotCalled(t, "ConfirmByReference", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingSignature", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewWebhookHandler(svc, secret)

		w := httptest.NewRecorder()
		h.PaystackWebhookHandler(w, newRequest(t, EventChargeSuccess, "ref123", false))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "ConfirmByReference", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("TamperedBody", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewWebhookHandler(svc, secret)

		req := newRequest(t, EventChargeSuccess, "ref123", false)
		req.Header.Set(SignatureHeader, Sign(secret, []byte(`{"event":"charge.success"}`)))

		w := httptest.NewRecorder()
		h.PaystackWebhookHandler(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewWebhookHandler(svc, secret)

		body := []byte("{not json")
		req := httptest.NewRequest(http.MethodPost, "/webhook/paystack", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, Sign(secret, body))

		w := httptest.NewRecorder()
		h.PaystackWebhookHandler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVerifySignature(t *testing.T) {
	h := NewWebhookHandler(nil, secret)
	body := []byte(`{"event":"charge.success"}`)

	assert.NoError(t, h.verifySignature(body, Sign(secret, body)))
	assert.ErrorIs(t, h.verifySignature(body, "zz-not-hex"), ErrInvalidSignature)
	assert.ErrorIs(t, h.verifySignature(body, Sign("other", body)), ErrInvalidSignature)
	assert.ErrorIs(t, h.verifySignature(body, ""), ErrInvalidSignature)

	noSecret := NewWebhookHandler(nil, "")
	assert.ErrorIs(t, noSecret.verifySignature(body, Sign("", body)), ErrInvalidSignature)
}
