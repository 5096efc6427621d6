package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"healthcare_app_echo/internal/models"
	"healthcare_app_echo/internal/services"
	"healthcare_app_echo/internal/tasks"
)

type AppointmentHandler struct {
	db           *gorm.DB
	emailService *services.EmailService
}

func NewAppointmentHandler(db *gorm.DB, emailService *services.EmailService) *AppointmentHandler {
	return &AppointmentHandler{db: db, emailService: emailService}
}

type bookAppointmentRequest struct {
	DoctorID  uint   `json:"doctorId" validate:"required"`
	UserName  string `json:"userName" validate:"required"`
	UserEmail string `json:"userEmail" validate:"required,email"`
	// Date in "2006-01-02", Time in "15:04"
	Date  string `json:"date" validate:"required"`
	Time  string `json:"time" validate:"required"`
	Notes string `json:"notes"`
}

// Book creates an appointment, emails a confirmation and schedules a
// reminder for the day before
func (h *AppointmentHandler) Book(c echo.Context) error {
	var req bookAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	scheduledAt, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, time.Local)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid date or time format")
	}
	if scheduledAt.Before(time.Now()) {
		return echo.NewHTTPError(http.StatusBadRequest, "Appointment time must be in the future")
	}

	var doctor models.Doctor
	if err := h.db.First(&doctor, req.DoctorID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Doctor not found")
	}

	appointment := models.Appointment{
		UserID:      getUintFromContext(c, "userID"),
		DoctorID:    doctor.ID,
		UserName:    req.UserName,
		UserEmail:   req.UserEmail,
		ScheduledAt: scheduledAt,
		Status:      models.AppointmentStatusBooked,
		Notes:       req.Notes,
	}
	if err := h.db.Create(&appointment).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to book appointment.")
	}

	if err := h.emailService.SendAppointmentConfirmation(&appointment, &doctor); err != nil {
		// The booking stands; delivery problems are an ops concern
		log.Printf("Failed to send confirmation email for appointment %d: %v", appointment.ID, err)
	}

	h.scheduleReminder(&appointment)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":     "Appointment booked successfully! Confirmation email sent.",
		"appointment": appointment,
	})
}

// List returns the caller's appointments, newest first
func (h *AppointmentHandler) List(c echo.Context) error {
	userID := getUintFromContext(c, "userID")

	var appointments []models.Appointment
	if err := h.db.Preload("Doctor").
		Where("user_id = ?", userID).
		Order("scheduled_at desc").
		Find(&appointments).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch appointments.")
	}

	return c.JSON(http.StatusOK, appointments)
}

// Cancel marks an appointment cancelled
func (h *AppointmentHandler) Cancel(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid appointment ID")
	}

	var appointment models.Appointment
	if err := h.db.First(&appointment, uint(id)).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Appointment not found.")
	}

	if appointment.UserID != getUintFromContext(c, "userID") {
		return echo.NewHTTPError(http.StatusForbidden, "You can only cancel your own appointments")
	}

	if err := h.db.Model(&appointment).Update("status", models.AppointmentStatusCancelled).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to cancel appointment.")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Appointment canceled successfully.",
	})
}

// scheduleReminder enqueues a reminder email for 24h before the slot.
// Near-term bookings skip the reminder rather than firing one immediately.
func (h *AppointmentHandler) scheduleReminder(appointment *models.Appointment) {
	due := appointment.ScheduledAt.Add(-24 * time.Hour)
	if due.Before(time.Now()) {
		return
	}

	args := tasks.AppointmentReminderArgs{AppointmentID: appointment.ID}
	task, err := tasks.BuildScheduledTask(tasks.TaskSendAppointmentReminder, args, due, nil, models.ScheduledTaskTypeOneTime, 3)
	if err != nil {
		log.Printf("Failed to build reminder task for appointment %d: %v", appointment.ID, err)
		return
	}
	if err := h.db.Create(task).Error; err != nil {
		log.Printf("Failed to schedule reminder for appointment %d: %v", appointment.ID, err)
	}
}
