package tasks

import "healthcare_app_echo/internal/services"

// Deps are the services task handlers need beyond the database. The worker
// builds them once from configuration; handlers never construct services
// from ambient state.
type Deps struct {
	PaymentService *services.PaymentService
	EmailService   *services.EmailService
}

// DefineTasks registers all available tasks against the given dependencies
func DefineTasks(deps Deps) {
	RegisterHandler(TaskReconcilePayments, ReconcilePaymentsHandler(deps))
	RegisterHandler(TaskSendAppointmentReminder, SendAppointmentReminderHandler(deps))
}
