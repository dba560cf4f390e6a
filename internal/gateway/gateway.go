package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gold-kart/internal/model"

	"github.com/rs/zerolog"
)

// RialPerToman converts the internal currency unit (Toman) into the
// gateway's smallest wire unit (Rial). The gateway contracts on Rial;
// every amount crosses this boundary exactly once.
const RialPerToman = 10

// Gateway statuses: 100 means authorized/verified, 101 means the
// transaction was already verified by a previous call.
const (
	codeOK              = 100
	codeAlreadyVerified = 101
)

// Gateway defines the payment gateway contract. Amounts are in Toman;
// the implementation converts to the wire unit.
type Gateway interface {
	// RequestAuthorization asks the gateway to authorize a payment of
	// the given amount and returns the authority token used to redirect
	// the customer and to correlate the asynchronous callback.
	RequestAuthorization(ctx context.Context, amount int64, callbackURL, description string) (string, error)

	// VerifyTransaction re-verifies a callback against the recorded
	// amount and authority token. verified reports the gateway's
	// verdict; err is non-nil only for transport failures, where no
	// verdict was obtained at all.
	VerifyTransaction(ctx context.Context, amount int64, authority string) (refCode string, verified bool, err error)
}

// Config holds HTTP gateway client configuration.
type Config struct {
	BaseURL    string
	MerchantID string
	Timeout    time.Duration
}

// httpGateway implements Gateway against the gateway's JSON-over-HTTP API.
type httpGateway struct {
	client     *http.Client
	baseURL    string
	merchantID string
	logger     zerolog.Logger
}

// NewHTTPGateway creates a gateway client with a bounded request timeout.
// A timeout is treated as a failure, never as implicit success.
func NewHTTPGateway(cfg Config, logger zerolog.Logger) Gateway {
	return &httpGateway{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		logger:     logger.With().Str("component", "payment-gateway").Logger(),
	}
}

type authorizationRequest struct {
	MerchantID  string `json:"merchant_id"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Description string `json:"description"`
}

type authorizationResponse struct {
	Data struct {
		Code      int    `json:"code"`
		Authority string `json:"authority"`
	} `json:"data"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

type verifyRequest struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

type verifyResponse struct {
	Data struct {
		Code  int    `json:"code"`
		RefID string `json:"ref_id"`
	} `json:"data"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

func (g *httpGateway) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error().Err(err).Str("path", path).Msg("gateway request failed")
		return model.ErrPaymentGateway
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Error().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("gateway returned non-OK status")
		return model.ErrPaymentGateway
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		g.logger.Error().Err(err).Str("path", path).Msg("failed to decode gateway response")
		return model.ErrPaymentGateway
	}

	return nil
}

// RequestAuthorization asks the gateway to authorize a payment.
func (g *httpGateway) RequestAuthorization(ctx context.Context, amount int64, callbackURL, description string) (string, error) {
	payload := authorizationRequest{
		MerchantID:  g.merchantID,
		Amount:      amount * RialPerToman,
		CallbackURL: callbackURL,
		Description: description,
	}

	var resp authorizationResponse
	if err := g.post(ctx, "/request.json", payload, &resp); err != nil {
		return "", err
	}

	if resp.Data.Code != codeOK || resp.Data.Authority == "" {
		g.logger.Warn().
			Int("code", resp.Data.Code).
			Msg("gateway declined authorization request")
		return "", model.ErrPaymentGateway
	}

	g.logger.Info().
		Int64("amount", amount).
		Str("authority", resp.Data.Authority).
		Msg("payment authorization obtained")

	return resp.Data.Authority, nil
}

// VerifyTransaction re-verifies a callback against the recorded amount
// and authority token. The callback's own fields are never trusted.
func (g *httpGateway) VerifyTransaction(ctx context.Context, amount int64, authority string) (string, bool, error) {
	payload := verifyRequest{
		MerchantID: g.merchantID,
		Amount:     amount * RialPerToman,
		Authority:  authority,
	}

	var resp verifyResponse
	if err := g.post(ctx, "/verify.json", payload, &resp); err != nil {
		return "", false, err
	}

	if resp.Data.Code != codeOK && resp.Data.Code != codeAlreadyVerified {
		g.logger.Warn().
			Int("code", resp.Data.Code).
			Str("authority", authority).
			Msg("gateway rejected transaction verification")
		return "", false, nil
	}

	g.logger.Info().
		Str("authority", authority).
		Str("ref_code", resp.Data.RefID).
		Msg("transaction verified")

	return resp.Data.RefID, true, nil
}
