package records

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Ledger is the write side for medical records. The external blockchain API
// is the system of record; this service never writes records locally.
type Ledger interface {
	CreateRecord(ctx context.Context, patientID, recordType string, fields map[string]string) error
}

type Service struct {
	repo   RecordRepository
	ledger Ledger
}

func NewService(repo RecordRepository, ledger Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// ValidateFields checks that the record type is known and every required
// field for that type is present and non-empty. Extra fields are dropped so
// only the recognized set reaches the ledger.
func ValidateFields(recordType string, fields map[string]string) (map[string]string, error) {
	required, ok := requiredFields[recordType]
	if !ok {
		return nil, fmt.Errorf("unknown record type: %s", recordType)
	}
	out := make(map[string]string, len(required))
	for _, f := range required {
		v, ok := fields[f]
		if !ok || v == "" {
			return nil, fmt.Errorf("missing field %q for record type %s", f, recordType)
		}
		out[f] = v
	}
	return out, nil
}

// CreateRecord validates the field set and submits the record to the ledger.
// A ledger failure is returned as-is; the caller surfaces it as a retryable
// error and no retry is attempted here.
func (s *Service) CreateRecord(ctx context.Context, patientID uuid.UUID, recordType string, fields map[string]string) error {
	validated, err := ValidateFields(recordType, fields)
	if err != nil {
		return err
	}
	return s.ledger.CreateRecord(ctx, patientID.String(), recordType, validated)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]*HealthNotification, error) {
	return s.repo.ListNotificationsByUser(ctx, userID)
}
