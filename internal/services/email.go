package services

import (
	"fmt"
	"net/smtp"

	"healthcare_app_echo/internal/config"
	"healthcare_app_echo/internal/models"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
	}
}

func (s *EmailService) SendEmail(to []string, subject, body string) error {
	if s.host == "" || s.port == "" || s.user == "" || s.password == "" {
		return fmt.Errorf("SMTP credentials not fully configured")
	}

	auth := smtp.PlainAuth("", s.user, s.password, s.host)

	message := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", to[0], subject, body))

	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := smtp.SendMail(addr, auth, s.from, to, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// SendOTP emails the registration OTP
func (s *EmailService) SendOTP(email, name, otp string) error {
	subject := "Thanks for Signing up in HealthCare - OTP Verification"
	body := fmt.Sprintf("<p>Hi %s, welcome to HealthCare! Your OTP is <strong>%s</strong>.</p>", name, otp)
	return s.SendEmail([]string{email}, subject, body)
}

// SendPasswordReset emails the reset link
func (s *EmailService) SendPasswordReset(email, resetLink string) error {
	subject := "Password Reset Request"
	body := fmt.Sprintf(`<p>Click <a href="%s">here</a> to reset your password. This link will expire in 15 minutes.</p>`, resetLink)
	return s.SendEmail([]string{email}, subject, body)
}

// SendAppointmentConfirmation emails the booking details to the patient
func (s *EmailService) SendAppointmentConfirmation(appointment *models.Appointment, doctor *models.Doctor) error {
	subject := "Appointment Confirmation"
	body := fmt.Sprintf(`
		<h2>Appointment Confirmation</h2>
		<p>Dear %s,</p>
		<p>Your appointment has been successfully booked with the following details:</p>
		<ul>
			<li><strong>Doctor:</strong> %s</li>
			<li><strong>Specialty:</strong> %s</li>
			<li><strong>Date:</strong> %s</li>
			<li><strong>Time:</strong> %s</li>
			<li><strong>Location:</strong> %s</li>
		</ul>
		<p>Please arrive 15 minutes before your scheduled appointment time.</p>
		<p>If you need to reschedule or cancel your appointment, please contact us at least 24 hours in advance.</p>
		<p>Best regards,<br>Healthcare App Team</p>`,
		appointment.UserName,
		doctor.Name,
		doctor.Specialty,
		appointment.ScheduledAt.Format("Monday, 2 January 2006"),
		appointment.ScheduledAt.Format("15:04"),
		doctor.Location,
	)
	return s.SendEmail([]string{appointment.UserEmail}, subject, body)
}

// SendAppointmentReminder emails a reminder ahead of the appointment
func (s *EmailService) SendAppointmentReminder(appointment *models.Appointment, doctor *models.Doctor) error {
	subject := "Appointment Reminder"
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder for your appointment with %s (%s) on %s at %s, %s.</p>
		<p>Best regards,<br>Healthcare App Team</p>`,
		appointment.UserName,
		doctor.Name,
		doctor.Specialty,
		appointment.ScheduledAt.Format("Monday, 2 January 2006"),
		appointment.ScheduledAt.Format("15:04"),
		doctor.Location,
	)
	return s.SendEmail([]string{appointment.UserEmail}, subject, body)
}
