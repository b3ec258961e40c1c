package careplan

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("care plan not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *CarePlan) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) Save(ctx context.Context, p *CarePlan) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*CarePlan, error) {
	var p CarePlan
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LatestForPatient returns the most recently created plan for the patient.
func (r *Repository) LatestForPatient(ctx context.Context, patientKey string) (*CarePlan, error) {
	var p CarePlan
	err := r.db.WithContext(ctx).
		Where("patient_key = ?", patientKey).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) AddProgress(ctx context.Context, e *ProgressEntry) error {
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(e).Error
}

// ProgressSince returns the plan's entries logged at or after since, oldest first.
func (r *Repository) ProgressSince(ctx context.Context, planID string, since time.Time) ([]ProgressEntry, error) {
	var entries []ProgressEntry
	err := r.db.WithContext(ctx).
		Where("care_plan_id = ? AND logged_at >= ?", planID, since).
		Order("logged_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
