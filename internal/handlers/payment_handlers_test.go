package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"healthcare_app_echo/internal/config"
	"healthcare_app_echo/internal/models"
	"healthcare_app_echo/internal/services"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Doctor{},
		&models.Appointment{},
		&models.Payment{},
		&models.PaymentCallbackHistory{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// newPaymentTestServer wires a PaymentHandler over a real orchestrator and a
// stub gateway whose pay endpoint answers with payStatus
func newPaymentTestServer(t *testing.T, db *gorm.DB, payStatus int, statusCode string) (*echo.Echo, *PaymentHandler) {
	t.Helper()

	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/pg/v1/pay":
			if payStatus != http.StatusOK {
				w.WriteHeader(payStatus)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"code":    "PAYMENT_INITIATED",
				"data": map[string]interface{}{
					"instrumentResponse": map[string]interface{}{
						"redirectInfo": map[string]interface{}{"url": "https://gw/pay/abc"},
					},
				},
			})
		case strings.HasPrefix(r.URL.Path, "/pg/v1/status/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"code":    statusCode,
				"data":    map[string]interface{}{"transactionId": "GW123"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(gw.Close)

	cfg := &config.Config{
		FrontendURL: "https://front",
		BackendURL:  "https://back",
		PhonePe: config.PhonePeConfig{
			MerchantID: "MERCHANT1",
			SaltKey:    "salt-key",
			SaltIndex:  "1",
			BaseURL:    gw.URL,
		},
	}
	paymentService := services.NewPaymentService(db, nil, services.NewPhonePeService(cfg.PhonePe), cfg)

	e := echo.New()
	e.Validator = NewRequestValidator()

	return e, NewPaymentHandler(paymentService)
}

func seedAppointment(t *testing.T, db *gorm.DB) models.Appointment {
	t.Helper()

	appointment := models.Appointment{
		UserID:      1,
		DoctorID:    1,
		UserName:    "Test Patient",
		UserEmail:   "u@x.com",
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Status:      models.AppointmentStatusBooked,
	}
	if err := db.Create(&appointment).Error; err != nil {
		t.Fatalf("failed to seed appointment: %v", err)
	}
	return appointment
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return body
}

func TestInitiateReturnsPaymentURL(t *testing.T) {
	db := testDB(t)
	e, handler := newPaymentTestServer(t, db, http.StatusOK, "PAYMENT_SUCCESS")
	appointment := seedAppointment(t, db)

	payload := fmt.Sprintf(`{"amount":500,"doctorId":1,"appointmentId":%d,"userEmail":"u@x.com"}`, appointment.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/payment/initiate", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uint(1))

	if err := handler.Initiate(c); err != nil {
		t.Fatalf("Initiate returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v; want true", body["success"])
	}
	if body["paymentUrl"] != "https://gw/pay/abc" {
		t.Errorf("paymentUrl = %v; want https://gw/pay/abc", body["paymentUrl"])
	}
}

func TestInitiateRateLimitedResponse(t *testing.T) {
	db := testDB(t)
	e, handler := newPaymentTestServer(t, db, http.StatusTooManyRequests, "PAYMENT_SUCCESS")
	appointment := seedAppointment(t, db)

	payload := fmt.Sprintf(`{"amount":500,"doctorId":1,"appointmentId":%d,"userEmail":"u@x.com"}`, appointment.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/payment/initiate", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", uint(1))

	if err := handler.Initiate(c); err != nil {
		t.Fatalf("Initiate returned error: %v", err)
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d; want 429", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Errorf("success = %v; want false", body["success"])
	}
	if body["message"] != "Please wait a moment before trying again" {
		t.Errorf("message = %q; want %q", body["message"], "Please wait a moment before trying again")
	}
}

func TestInitiateValidationErrors(t *testing.T) {
	db := testDB(t)
	e, handler := newPaymentTestServer(t, db, http.StatusOK, "PAYMENT_SUCCESS")

	tests := []struct {
		name    string
		payload string
	}{
		{"zero amount", `{"amount":0,"doctorId":1,"appointmentId":1,"userEmail":"u@x.com"}`},
		{"missing email", `{"amount":500,"doctorId":1,"appointmentId":1}`},
		{"bad email", `{"amount":500,"doctorId":1,"appointmentId":1,"userEmail":"not-an-email"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/payment/initiate", strings.NewReader(tt.payload))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.Set("userID", uint(1))

			err := handler.Initiate(c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusBadRequest {
				t.Errorf("error = %v; want HTTP 400", err)
			}
		})
	}

	// No record may be written for a rejected request
	var count int64
	db.Model(&models.Payment{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no payment records, got %d", count)
	}
}

func TestCallbackUnknownTransactionAcknowledged(t *testing.T) {
	db := testDB(t)
	e, handler := newPaymentTestServer(t, db, http.StatusOK, "PAYMENT_SUCCESS")

	payload := `{"merchantTransactionId":"TXN_unknown","status":"SUCCESS"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Callback returned error: %v", err)
	}

	// The gateway retries on non-2xx, so even an unknown ID gets a 200
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Errorf("success = %v; want false", body["success"])
	}
	if body["message"] != "Unknown transaction" {
		t.Errorf("message = %q; want %q", body["message"], "Unknown transaction")
	}
}

func TestCallbackUpdatesPayment(t *testing.T) {
	db := testDB(t)
	e, handler := newPaymentTestServer(t, db, http.StatusOK, "PAYMENT_SUCCESS")

	payment := models.Payment{
		MerchantTransactionID: "TXN_1_abc",
		UserEmail:             "u@x.com",
		Amount:                500,
		Status:                models.PaymentStatusInitiated,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("failed to seed payment: %v", err)
	}

	payload := `{"merchantTransactionId":"TXN_1_abc","transactionId":"GW123","status":"SUCCESS"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Callback(c); err != nil {
		t.Fatalf("Callback returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v; want true", body["success"])
	}
	if body["status"] != string(models.PaymentStatusSuccess) {
		t.Errorf("status = %v; want SUCCESS", body["status"])
	}

	var updated models.Payment
	db.Where("merchant_transaction_id = ?", "TXN_1_abc").First(&updated)
	if updated.Status != models.PaymentStatusSuccess {
		t.Errorf("record status = %s; want SUCCESS", updated.Status)
	}
}

func TestCallbackMissingTransactionID(t *testing.T) {
	db := testDB(t)
	e, handler := newPaymentTestServer(t, db, http.StatusOK, "PAYMENT_SUCCESS")

	req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Callback(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("error = %v; want HTTP 400", err)
	}
}
