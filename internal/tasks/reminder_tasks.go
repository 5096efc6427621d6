package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm"

	"healthcare_app_echo/internal/models"
)

// AppointmentReminderArgs defines the arguments for a reminder task
type AppointmentReminderArgs struct {
	AppointmentID uint `json:"appointment_id"`
}

// SendAppointmentReminderHandler returns the handler that emails a patient
// ahead of their appointment. Cancelled appointments are skipped quietly.
func SendAppointmentReminderHandler(deps Deps) TaskHandler {
	return func(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
		if deps.EmailService == nil {
			return nil, fmt.Errorf("email service not configured")
		}

		argsBytes, err := json.Marshal(task.Arguments)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal args: %w", err)
		}

		var args AppointmentReminderArgs
		if err := json.Unmarshal(argsBytes, &args); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
		if args.AppointmentID == 0 {
			return nil, fmt.Errorf("appointment_id not provided or invalid")
		}

		var appointment models.Appointment
		if err := db.Preload("Doctor").First(&appointment, args.AppointmentID).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch appointment: %w", err)
		}

		if appointment.Status == models.AppointmentStatusCancelled {
			log.Printf("[Task: %s] Appointment %d cancelled, skipping reminder", TaskSendAppointmentReminder, appointment.ID)
			return map[string]interface{}{"status": "skipped", "message": "Appointment cancelled"}, nil
		}

		if err := deps.EmailService.SendAppointmentReminder(&appointment, &appointment.Doctor); err != nil {
			return nil, fmt.Errorf("failed to send reminder: %w", err)
		}

		return map[string]interface{}{
			"status":         "success",
			"appointment_id": appointment.ID,
		}, nil
	}
}
