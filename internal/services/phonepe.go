package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"healthcare_app_echo/internal/config"
)

const (
	payPath        = "/pg/v1/pay"
	statusPathBase = "/pg/v1/status"

	// GatewayCodeSuccess is the gateway's canonical success sentinel;
	// every other code maps to failure
	GatewayCodeSuccess = "PAYMENT_SUCCESS"
)

// PhonePeService talks to the PhonePe payment gateway. Every request is
// signed with an X-VERIFY digest; the exact string assembly is a hard
// interoperability requirement of the gateway protocol.
type PhonePeService struct {
	cfg    config.PhonePeConfig
	client *http.Client
}

func NewPhonePeService(cfg config.PhonePeConfig) *PhonePeService {
	return &PhonePeService{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// payRequest is the /pg/v1/pay payload. Amount is in minor currency units.
type payRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	MobileNumber          string            `json:"mobileNumber"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type payResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		InstrumentResponse    struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		State                 string `json:"state"`
		Amount                int64  `json:"amount"`
	} `json:"data"`
}

// InitiateResult carries the parsed outcome of a pay request
type InitiateResult struct {
	RedirectURL string
	RawResponse json.RawMessage
}

// StatusResult carries the gateway's authoritative view of a transaction
type StatusResult struct {
	Code                 string
	GatewayTransactionID string
	RawResponse          json.RawMessage
}

// verifyDigest assembles the X-VERIFY header value:
// sha256(input + saltKey) hex, suffixed with "###" and the salt key index.
func (s *PhonePeService) verifyDigest(input string) string {
	sum := sha256.Sum256([]byte(input + s.cfg.SaltKey))
	return hex.EncodeToString(sum[:]) + "###" + s.cfg.SaltIndex
}

// InitiatePayment submits a pay request for the given merchant transaction
// ID and amount in minor units, and returns the hosted-page redirect URL.
func (s *PhonePeService) InitiatePayment(ctx context.Context, merchantTransactionID string, amountMinor int64, redirectURL, callbackURL string) (*InitiateResult, error) {
	payload := payRequest{
		MerchantID:            s.cfg.MerchantID,
		MerchantTransactionID: merchantTransactionID,
		Amount:                amountMinor,
		RedirectURL:           redirectURL,
		RedirectMode:          "POST",
		CallbackURL:           callbackURL,
		MobileNumber:          "",
		PaymentInstrument:     paymentInstrument{Type: "PAY_PAGE"},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize pay request: %w", err)
	}
	base64Payload := base64.StdEncoding.EncodeToString(payloadBytes)

	body, err := json.Marshal(map[string]string{"request": base64Payload})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+payPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", s.verifyDigest(base64Payload+payPath))

	respBody, err := s.do(req)
	if err != nil {
		return nil, err
	}

	var parsed payResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse pay response: %w", ErrGatewayUnavailable)
	}

	redirect := parsed.Data.InstrumentResponse.RedirectInfo.URL
	if redirect == "" {
		return nil, fmt.Errorf("pay response missing redirect url (code %s): %w", parsed.Code, ErrGatewayUnavailable)
	}

	return &InitiateResult{RedirectURL: redirect, RawResponse: respBody}, nil
}

// CheckStatus queries the gateway for the authoritative status of a
// transaction. The returned code is the gateway's canonical status, e.g.
// PAYMENT_SUCCESS.
func (s *PhonePeService) CheckStatus(ctx context.Context, merchantTransactionID string) (*StatusResult, error) {
	path := fmt.Sprintf("%s/%s/%s", statusPathBase, s.cfg.MerchantID, merchantTransactionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-VERIFY", s.verifyDigest(path))
	req.Header.Set("X-MERCHANT-ID", s.cfg.MerchantID)

	respBody, err := s.do(req)
	if err != nil {
		return nil, err
	}

	var parsed statusResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", ErrGatewayUnavailable)
	}

	return &StatusResult{
		Code:                 parsed.Code,
		GatewayTransactionID: parsed.Data.TransactionID,
		RawResponse:          respBody,
	}, nil
}

// do executes the request and maps failures onto the error taxonomy.
// Transport errors and timeouts become ErrGatewayUnavailable because the
// gateway may still have processed the request; a non-2xx answer is a
// definitive ErrGatewayRejected. HTTP 429 is surfaced distinctly so callers
// can tell the user to back off.
func (s *PhonePeService) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %v: %w", err, ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %v: %w", err, ErrGatewayUnavailable)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway returned status %d: %w", resp.StatusCode, ErrGatewayRejected)
	}

	return body, nil
}
