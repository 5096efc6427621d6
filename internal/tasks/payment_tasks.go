package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"healthcare_app_echo/internal/models"
)

// ReconcileRecurrenceRule runs the sweep every 15 minutes
const ReconcileRecurrenceRule = "FREQ=MINUTELY;INTERVAL=15"

// ReconcilePaymentsHandler returns the handler for the recurring sweep over
// stale INITIATED payment records. Records whose gateway status settled
// while a callback was lost get their terminal state here instead.
func ReconcilePaymentsHandler(deps Deps) TaskHandler {
	return func(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
		if deps.PaymentService == nil {
			return nil, fmt.Errorf("payment service not configured")
		}

		settled, err := deps.PaymentService.ReconcileStalePayments(ctx)
		if err != nil {
			return map[string]interface{}{"settled": settled}, fmt.Errorf("reconcile sweep failed: %w", err)
		}

		if settled > 0 {
			log.Printf("[Task: %s] Settled %d stale payments", TaskReconcilePayments, settled)
		}

		return map[string]interface{}{
			"status":  "success",
			"settled": settled,
		}, nil
	}
}

// EnsureReconcileTask creates the recurring reconciliation task if it does
// not already exist. Called once at worker startup.
func EnsureReconcileTask(db *gorm.DB) error {
	var count int64
	err := db.Model(&models.ScheduledTask{}).
		Where("task_name = ? AND status IN ?", TaskReconcilePayments,
			[]models.ScheduledTaskStatus{models.ScheduledTaskStatusActive}).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rule := ReconcileRecurrenceRule
	task, err := BuildScheduledTask(TaskReconcilePayments, map[string]interface{}{}, time.Now(), &rule, models.ScheduledTaskTypeRecurring, 3)
	if err != nil {
		return err
	}
	return db.Create(task).Error
}
