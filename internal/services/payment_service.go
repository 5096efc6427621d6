package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"healthcare_app_echo/internal/config"
	"healthcare_app_echo/internal/models"
)

// initiationLockTTL bounds how long a concurrent initiation for the same
// appointment is blocked when the holder dies without releasing the lock
const initiationLockTTL = 30 * time.Second

// staleInitiatedCutoff is how long an INITIATED record may sit before the
// reconciliation sweep asks the gateway what actually happened to it
const staleInitiatedCutoff = 15 * time.Minute

type PaymentService struct {
	db      *gorm.DB
	cache   *RedisCache
	gateway *PhonePeService

	redirectURL string
	callbackURL string
	saltKey     string
}

func NewPaymentService(db *gorm.DB, cache *RedisCache, gateway *PhonePeService, cfg *config.Config) *PaymentService {
	return &PaymentService{
		db:          db,
		cache:       cache,
		gateway:     gateway,
		redirectURL: cfg.FrontendURL + "/payment-status",
		callbackURL: cfg.BackendURL + "/api/payment/callback",
		saltKey:     cfg.PhonePe.SaltKey,
	}
}

// InitiatePaymentInput is the validated request for starting a payment
type InitiatePaymentInput struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	DoctorID      uint    `json:"doctorId" validate:"required"`
	AppointmentID uint    `json:"appointmentId" validate:"required"`
	UserEmail     string  `json:"userEmail" validate:"required,email"`
}

// InitiatePaymentResult holds the outcome of a successful initiation
type InitiatePaymentResult struct {
	MerchantTransactionID string
	PaymentURL            string
}

// CallbackNotification is the gateway's asynchronous notification. Only
// MerchantTransactionID is trusted; the embedded status is informational
// and the authoritative status is always re-derived from the gateway.
type CallbackNotification struct {
	MerchantTransactionID string `json:"merchantTransactionId" validate:"required"`
	TransactionID         string `json:"transactionId"`
	Status                string `json:"status"`
	Checksum              string `json:"checksum"`
}

// NewMerchantTransactionID generates an unguessable, globally unique
// idempotency key for one payment attempt
func NewMerchantTransactionID() string {
	return fmt.Sprintf("TXN_%d_%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// InitiatePayment creates the payment record in INITIATED state, then asks
// the gateway for a hosted-page redirect URL. The record is written before
// the gateway call so a gateway-side success is never unrecorded locally.
func (s *PaymentService) InitiatePayment(ctx context.Context, userID uint, in InitiatePaymentInput) (*InitiatePaymentResult, error) {
	// The appointment lookup doubles as referential validation; amounts
	// and emails were already validated at the handler boundary.
	var appointment models.Appointment
	if err := s.db.WithContext(ctx).First(&appointment, in.AppointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	// Serialize concurrent initiations per appointment
	if s.cache != nil {
		lockKey := fmt.Sprintf("payment:initiate:%d", in.AppointmentID)
		acquired, err := s.cache.SetNX(ctx, lockKey, time.Now().Unix(), initiationLockTTL)
		if err == nil && !acquired {
			return nil, ErrPaymentInProgress
		}
		defer func() {
			_ = s.cache.Delete(ctx, lockKey)
		}()
	}

	merchantTransactionID := NewMerchantTransactionID()

	payment := models.Payment{
		UserID:                userID,
		AppointmentID:         in.AppointmentID,
		DoctorID:              in.DoctorID,
		UserEmail:             in.UserEmail,
		MerchantTransactionID: merchantTransactionID,
		Amount:                in.Amount,
		Status:                models.PaymentStatusInitiated,
	}
	if err := s.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}

	// Gateway contract: amount travels in minor currency units
	amountMinor := int64(math.Round(in.Amount * 100))

	result, err := s.gateway.InitiatePayment(ctx, merchantTransactionID, amountMinor, s.redirectURL, s.callbackURL)
	if err != nil {
		if errors.Is(err, ErrGatewayRejected) {
			// The gateway answered and refused; nothing to reconcile
			if terr := s.transition(ctx, merchantTransactionID, models.PaymentStatusFailed, nil, nil); terr != nil {
				log.Printf("Failed to mark payment %s as failed: %v", merchantTransactionID, terr)
			}
			return nil, err
		}
		// Rate limit, transport failure or timeout: the gateway may have
		// processed the request, so the record stays INITIATED and the
		// reconciliation sweep settles it against the status API
		return nil, err
	}

	if uerr := s.db.WithContext(ctx).Model(&payment).Update("payment_response", json.RawMessage(result.RawResponse)).Error; uerr != nil {
		log.Printf("Failed to store gateway response for %s: %v", merchantTransactionID, uerr)
	}

	return &InitiatePaymentResult{
		MerchantTransactionID: merchantTransactionID,
		PaymentURL:            result.RedirectURL,
	}, nil
}

// HandleCallback processes an at-least-once, possibly reordered gateway
// notification. The callback body is never trusted for status; the gateway
// is re-queried and the record updated idempotently. Re-delivering a
// callback for an already-terminal record is a no-op that still succeeds.
func (s *PaymentService) HandleCallback(ctx context.Context, notif CallbackNotification, rawPayload []byte) (models.PaymentStatus, error) {
	s.recordCallback(ctx, notif.MerchantTransactionID, rawPayload)

	// A keyed checksum, when the gateway attaches one, must verify before
	// any processing happens
	if notif.Checksum != "" {
		var payload map[string]interface{}
		if err := json.Unmarshal(rawPayload, &payload); err != nil || !VerifyChecksum(payload, s.saltKey) {
			return "", fmt.Errorf("callback checksum verification failed")
		}
	}

	var payment models.Payment
	err := s.db.WithContext(ctx).Where("merchant_transaction_id = ?", notif.MerchantTransactionID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrPaymentNotFound
		}
		return "", err
	}

	// Duplicate delivery for a settled record: acknowledge, change nothing
	if payment.Status.IsTerminal() {
		return payment.Status, nil
	}

	status, err := s.gateway.CheckStatus(ctx, notif.MerchantTransactionID)
	if err != nil {
		return "", err
	}

	newStatus := models.PaymentStatusFailed
	if status.Code == GatewayCodeSuccess {
		newStatus = models.PaymentStatusSuccess
	}

	var gatewayTxnID *string
	if status.GatewayTransactionID != "" {
		gatewayTxnID = &status.GatewayTransactionID
	}

	if err := s.transition(ctx, notif.MerchantTransactionID, newStatus, gatewayTxnID, status.RawResponse); err != nil {
		return "", err
	}

	return newStatus, nil
}

// transition applies a guarded status update: only records still in a
// non-terminal state are touched, so two racing callbacks cannot both win
// and a terminal state can never regress. Zero rows affected against an
// already-terminal record counts as idempotent success.
func (s *PaymentService) transition(ctx context.Context, merchantTransactionID string, status models.PaymentStatus, gatewayTxnID *string, rawResponse json.RawMessage) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if gatewayTxnID != nil {
		updates["gateway_transaction_id"] = *gatewayTxnID
	}
	if rawResponse != nil {
		updates["payment_response"] = rawResponse
	}

	res := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("merchant_transaction_id = ? AND status IN ?", merchantTransactionID, models.NonTerminalStatuses).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		var current models.Payment
		if err := s.db.WithContext(ctx).Where("merchant_transaction_id = ?", merchantTransactionID).First(&current).Error; err != nil {
			return ErrPaymentNotFound
		}
		if !current.Status.IsTerminal() {
			return fmt.Errorf("payment %s could not transition to %s", merchantTransactionID, status)
		}
		// Lost the race to another delivery; the record is settled
	}
	return nil
}

// CancelPayment moves a still-open payment to CANCELLED. It goes through
// the same guarded transition as callbacks, so a payment that settled in
// the meantime is left alone.
func (s *PaymentService) CancelPayment(ctx context.Context, merchantTransactionID string) error {
	return s.transition(ctx, merchantTransactionID, models.PaymentStatusCancelled, nil, nil)
}

// ReconcileStalePayments re-queries the gateway for INITIATED records older
// than the cutoff and settles them: PAYMENT_SUCCESS transitions to SUCCESS,
// a pending gateway state leaves the record alone, and anything else is
// cancelled. This is the out-of-band path through which CANCELLED is
// reachable.
func (s *PaymentService) ReconcileStalePayments(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-staleInitiatedCutoff)

	var stale []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.PaymentStatusInitiated, cutoff).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, payment := range stale {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}

		status, err := s.gateway.CheckStatus(ctx, payment.MerchantTransactionID)
		if err != nil {
			log.Printf("Reconcile: status check failed for %s: %v", payment.MerchantTransactionID, err)
			continue
		}

		switch status.Code {
		case GatewayCodeSuccess:
			var gatewayTxnID *string
			if status.GatewayTransactionID != "" {
				gatewayTxnID = &status.GatewayTransactionID
			}
			if err := s.transition(ctx, payment.MerchantTransactionID, models.PaymentStatusSuccess, gatewayTxnID, status.RawResponse); err != nil {
				log.Printf("Reconcile: transition failed for %s: %v", payment.MerchantTransactionID, err)
				continue
			}
		case "PAYMENT_PENDING":
			// Still in flight at the gateway; leave for the next sweep
			continue
		default:
			if err := s.CancelPayment(ctx, payment.MerchantTransactionID); err != nil {
				log.Printf("Reconcile: cancel failed for %s: %v", payment.MerchantTransactionID, err)
				continue
			}
		}
		settled++
	}

	return settled, nil
}

// recordCallback appends the raw payload to the callback audit log. Audit
// failures are logged, never fatal to callback processing.
func (s *PaymentService) recordCallback(ctx context.Context, merchantTransactionID string, rawPayload []byte) {
	history := models.PaymentCallbackHistory{
		MerchantTransactionID: merchantTransactionID,
		Metadata:              json.RawMessage(rawPayload),
	}

	var count int64
	s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("merchant_transaction_id = ?", merchantTransactionID).Count(&count)
	history.Matched = count > 0

	if err := s.db.WithContext(ctx).Create(&history).Error; err != nil {
		log.Printf("Failed to record payment callback for %s: %v", merchantTransactionID, err)
	}
}
