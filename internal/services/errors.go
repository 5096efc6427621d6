package services

import "errors"

var (
	// ErrRateLimited signals the gateway answered HTTP 429; the caller
	// should back off and retry
	ErrRateLimited = errors.New("gateway rate limited")

	// ErrGatewayRejected means the gateway answered and definitively
	// refused the request (a non-2xx response other than 429)
	ErrGatewayRejected = errors.New("gateway rejected request")

	// ErrGatewayUnavailable covers failures where the outcome is unknown:
	// transport errors, timeouts and unparseable responses. The gateway may
	// still have processed the request.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrPaymentNotFound means no payment record matches the merchant
	// transaction ID
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrAppointmentNotFound means the appointment referenced by a payment
	// request does not exist
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrPaymentInProgress means another initiation for the same
	// appointment currently holds the lock
	ErrPaymentInProgress = errors.New("payment initiation already in progress")
)
