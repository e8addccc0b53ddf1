package records

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, type, fields, created_date_utc
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY created_date_utc ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*MedicalRecord
	for rows.Next() {
		var rec MedicalRecord
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.Type, &rec.Fields, &rec.CreatedDateUTC); err != nil {
			return nil, err
		}
		rec.DisplayName = DisplayName(rec.Type)
		items = append(items, &rec)
	}
	return items, rows.Err()
}

func (r *recordRepoPG) ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]*HealthNotification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, disease, message, created_at
		FROM health_notifications
		WHERE patient_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*HealthNotification
	for rows.Next() {
		var n HealthNotification
		if err := rows.Scan(&n.ID, &n.PatientID, &n.Disease, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &n)
	}
	return items, rows.Err()
}
