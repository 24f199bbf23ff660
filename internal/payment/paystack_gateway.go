package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"orderkeeper-be/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultPaystackBaseURL = "https://api.paystack.co"

type paystackGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ----------------- Constructor -----------------

// NewPaystackGateway builds a Gateway. rps caps outgoing verify calls.
func NewPaystackGateway(secretKey, baseURL string, rps float64) Gateway {
	if secretKey == "" {
		logger.L().Warn("Paystack secret key is empty")
	}
	if baseURL == "" {
		baseURL = defaultPaystackBaseURL
	}
	if rps <= 0 {
		rps = 5
	}

	return &paystackGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// ----------------- Verify -----------------

func (p *paystackGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		zap.String("reference", reference),
	)

	if strings.TrimSpace(reference) == "" {
		return nil, ErrEmptyReference
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", p.baseURL, url.PathEscape(reference))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Error("Failed building request", zap.Error(err))
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Error("Request to Paystack failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return nil, fmt.Errorf("failed to read paystack response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		log.Warn("Transaction not found")
		return nil, ErrTransactionNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		log.Error("Paystack unavailable",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("%w: http %d", ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		log.Error("Paystack returned error",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("paystack error: %s", string(bodyBytes))
	}

	var res paystackVerifyResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("Failed decoding verify response", zap.Error(err))
		return nil, err
	}

	if !res.Status {
		log.Warn("Paystack rejected verification", zap.String("message", res.Message))
		return nil, fmt.Errorf("paystack error: %s", res.Message)
	}

	v := &Verification{
		Reference: res.Data.Reference,
		Status:    normalizeStatus(res.Data.Status),
		Channel:   res.Data.Channel,
		Amount:    res.Data.Amount,
		Currency:  res.Data.Currency,
		PaidAt:    res.Data.PaidAt,
	}

	log.Debug("Paystack verification fetched",
		zap.String("status", string(v.Status)),
		zap.String("channel", v.Channel),
		zap.Int64("amount", v.Amount),
	)

	return v, nil
}

// normalizeStatus folds Paystack's intermediate states into the five the
// reconciler understands. Unknown values pass through unchanged.
func normalizeStatus(raw string) VerificationStatus {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "success":
		return VerificationSuccess
	case "failed", "reversed":
		return VerificationFailed
	case "abandoned":
		return VerificationAbandoned
	case "ongoing", "processing", "queued":
		return VerificationOngoing
	case "pending":
		return VerificationPending
	default:
		return VerificationStatus(s)
	}
}
