package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medrec/medrec/internal/domain/identity"
	"github.com/medrec/medrec/internal/domain/records"
	"github.com/medrec/medrec/internal/platform/db"
)

// ErrNotFound is returned when a patient lookup misses.
var ErrNotFound = errors.New("patient not found")

type Service struct {
	repo    PatientRepository
	users   *identity.Service
	records *records.Service
	pool    *pgxpool.Pool // nil in tests; paired writes then run without a transaction
}

func NewService(repo PatientRepository, users *identity.Service, recs *records.Service, pool *pgxpool.Pool) *Service {
	return &Service{repo: repo, users: users, records: recs, pool: pool}
}

// RegisterInput carries everything needed to create a user account and its
// linked patient profile.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	DateOfBirth time.Time
	Sex         string
	EverMarried bool
}

// Register creates the user account (role defaulting to Patient) and the
// linked patient profile. Both writes run in one transaction: either both
// rows exist afterwards or neither does.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Patient, error) {
	p := &Patient{
		Name:        in.Name,
		DateOfBirth: in.DateOfBirth,
		Sex:         in.Sex,
		EverMarried: in.EverMarried,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(ctx context.Context) error {
		u, err := s.users.CreateUser(ctx, in.Name, in.Email, in.Password, nil)
		if err != nil {
			return err
		}
		p.UserID = u.ID
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Details is the assembled per-patient view: profile, linked account, the
// ledger-backed medical records, and any health notifications.
type Details struct {
	Patient       *Patient                      `json:"patient"`
	User          *identity.User                `json:"user"`
	Records       []*records.MedicalRecord      `json:"medical_records"`
	Notifications []*records.HealthNotification `json:"health_notifications"`
}

func (s *Service) GetDetails(ctx context.Context, id uuid.UUID) (*Details, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}

	u, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("get linked user: %w", err)
	}

	recs, err := s.records.ListByPatient(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	notifs, err := s.records.ListNotificationsByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return &Details{Patient: p, User: u, Records: recs, Notifications: notifs}, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateInput carries the editable profile fields. Name and email propagate
// to the linked user record.
type UpdateInput struct {
	Name        string
	Email       string
	DateOfBirth time.Time
	Sex         string
	EverMarried bool
}

// Update replaces the patient profile and the linked user's name and email.
// Both writes run in one transaction.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}

	p.Name = in.Name
	p.DateOfBirth = in.DateOfBirth
	p.Sex = in.Sex
	p.EverMarried = in.EverMarried
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.UpdateProfile(ctx, p.UserID, in.Name, in.Email); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update patient: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindPatientIDByUserID resolves the patient profile linked to a user.
// Satisfies identity.PatientLocator.
func (s *Service) FindPatientIDByUserID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// inTx runs fn inside a transaction carried on the context, so every repo
// call inside picks it up via db.TxFromContext. Without a pool (tests) fn
// runs directly.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	txCtx, tx, err := db.WithTx(ctx, s.pool)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(txCtx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
