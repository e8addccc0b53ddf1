package records

import (
	"time"

	"github.com/google/uuid"
)

// Record types accepted by the ledger.
const (
	TypePhysicalExam   = "PhysicalExam"
	TypeBloodWork      = "BloodWork"
	TypeBloodPressure  = "BloodPressure"
	TypeDiseaseHistory = "DiseaseHistory"
)

// displayNames maps record types to their human-readable form. Unknown types
// fall back to the raw type string.
var displayNames = map[string]string{
	TypePhysicalExam:   "Physical Exam",
	TypeBloodWork:      "Blood Work",
	TypeBloodPressure:  "Blood Pressure",
	TypeDiseaseHistory: "Disease History",
}

// requiredFields lists the field set each record type must carry.
var requiredFields = map[string][]string{
	TypePhysicalExam:   {"work_type", "residency_type", "height", "weight", "smoking_status"},
	TypeBloodPressure:  {"systolic_pressure", "diastolic_pressure"},
	TypeBloodWork:      {"glucose_level"},
	TypeDiseaseHistory: {"disease_type"},
}

// DisplayName returns the human-readable name for a record type.
func DisplayName(recordType string) string {
	if name, ok := displayNames[recordType]; ok {
		return name
	}
	return recordType
}

// MedicalRecord is the locally queryable view of a record whose system of
// record is the external ledger.
type MedicalRecord struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	Type           string            `db:"type" json:"type"`
	DisplayName    string            `json:"display_name"`
	Fields         map[string]string `db:"fields" json:"fields"`
	CreatedDateUTC time.Time         `db:"created_date_utc" json:"created_date_utc"`
}

// HealthNotification is a disease-risk alert raised for a patient. The
// upstream pipeline keys notifications by the patient's user id.
type HealthNotification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Disease   string    `db:"disease" json:"disease"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
