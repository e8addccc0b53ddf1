package records

import (
	"context"

	"github.com/google/uuid"
)

type RecordRepository interface {
	// ListByPatient returns the patient's medical records ordered by
	// creation date ascending.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)
	// ListNotificationsByUser returns the health notifications keyed by the
	// patient's user id.
	ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]*HealthNotification, error)
}
