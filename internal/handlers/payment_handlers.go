package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"healthcare_app_echo/internal/services"
)

// PaymentHandler exposes the payment initiation and gateway callback
// endpoints over the orchestrator
type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Initiate starts a payment for an appointment and returns the gateway's
// hosted-page URL
func (h *PaymentHandler) Initiate(c echo.Context) error {
	var req services.InitiatePaymentInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	userID := getUintFromContext(c, "userID")

	result, err := h.paymentService.InitiatePayment(c.Request().Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRateLimited):
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"success": false,
				"message": "Please wait a moment before trying again",
			})
		case errors.Is(err, services.ErrAppointmentNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "Appointment not found")
		case errors.Is(err, services.ErrPaymentInProgress):
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"success": false,
				"message": "A payment for this appointment is already in progress",
			})
		default:
			log.Printf("Payment initiation failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"message": "Payment initiation failed",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"paymentUrl": result.PaymentURL,
	})
}

// Callback receives the gateway's server-to-server notification. The
// gateway redelivers on non-2xx responses, so even unknown transaction IDs
// are acknowledged with 200 after being logged for reconciliation.
func (h *PaymentHandler) Callback(c echo.Context) error {
	rawPayload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read callback body")
	}

	var notif services.CallbackNotification
	if err := json.Unmarshal(rawPayload, &notif); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if notif.MerchantTransactionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "merchantTransactionId is required")
	}

	status, err := h.paymentService.HandleCallback(c.Request().Context(), notif, rawPayload)
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			log.Printf("Callback for unknown merchant transaction %s", notif.MerchantTransactionID)
			return c.JSON(http.StatusOK, map[string]interface{}{
				"success": false,
				"message": "Unknown transaction",
			})
		}
		log.Printf("Payment callback processing failed for %s: %v", notif.MerchantTransactionID, err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to process payment callback",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Payment status updated successfully",
		"status":  status,
	})
}
