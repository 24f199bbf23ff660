package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"orderkeeper-be/internal/logger"
	"orderkeeper-be/internal/order"
	"orderkeeper-be/internal/payment"

	"go.uber.org/zap"
)

const (
	SignatureHeader = "x-paystack-signature"

	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"

	maxBodyBytes = 1 << 20
)

// WebhookPayload is the part of a Paystack event we act on.
type WebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Channel   string `json:"channel"`
	} `json:"data"`
}

// Handler settles orders from Paystack events through the same order service
// the poller uses, so both paths share one claim.
type Handler struct {
	OrderSvc order.Service
	secret   []byte
}

func NewWebhookHandler(orderSvc order.Service, secretKey string) *Handler {
	return &Handler{
		OrderSvc: orderSvc,
		secret:   []byte(secretKey),
	}
}

func (h *Handler) PaystackWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("layer", "webhook"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn("failed to read webhook body", zap.Error(err))
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.verifySignature(body, r.Header.Get(SignatureHeader)); err != nil {
		log.Warn("webhook rejected", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("invalid webhook payload", zap.Error(err))
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	ref := payload.Data.Reference
	log = log.With(
		zap.String("event", payload.Event),
		zap.String("reference", ref),
	)
	if ref == "" {
		log.Warn("webhook without reference ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	var (
		o       *order.Order
		changed bool
	)
	switch payload.Event {
	case EventChargeSuccess:
		o, changed, err = h.OrderSvc.ConfirmByReference(ctx, ref, payload.Data.Channel)
		if err == nil && changed {
			if expected := payment.ToMinorUnit(o.TotalAmount); expected != payload.Data.Amount {
				log.Warn("webhook amount differs from order total",
					zap.Int64("gateway_amount", payload.Data.Amount),
					zap.Int64("order_amount", expected),
				)
			}
		}
	case EventChargeFailed:
		_, changed, err = h.OrderSvc.FailByReference(ctx, ref)
	default:
		log.Debug("webhook event ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	if order.IsNotFound(err) {
		log.Warn("webhook for unknown order reference")
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		log.Error("failed to apply webhook", zap.Error(err))
		http.Error(w, "failed to update order", http.StatusInternalServerError)
		return
	}

	log.Info("webhook processed", zap.Bool("order_changed", changed))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

// verifySignature checks the hex HMAC-SHA512 of the raw body.
func (h *Handler) verifySignature(body []byte, signature string) error {
	if signature == "" || len(h.secret) == 0 {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha512.New, h.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the signature Paystack would send for body.
func Sign(secretKey string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
