package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Patient is the clinical profile linked one-to-one to a user account.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Sex         string    `db:"sex" json:"sex"`
	EverMarried bool      `db:"ever_married" json:"ever_married"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

var validSexes = map[string]bool{
	"Male": true, "Female": true, "Other": true,
}

// Validate checks the profile fields a client can set.
func (p *Patient) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.DateOfBirth.IsZero() {
		return fmt.Errorf("date_of_birth is required")
	}
	if !validSexes[p.Sex] {
		return fmt.Errorf("invalid sex: %s", p.Sex)
	}
	return nil
}

// Age returns the patient's age in whole years at the given time.
func (p *Patient) Age(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	if now.YearDay() < p.DateOfBirth.YearDay() {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}
