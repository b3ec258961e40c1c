package careplan

import (
	"encoding/json"
	"fmt"
	"time"

	"carelink/internal/goal"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CarePlan is one analysed document for one patient.
type CarePlan struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	PatientKey       string         `gorm:"index;size:64;not null" json:"patient"`
	DocumentName     string         `gorm:"size:255" json:"document_name"`
	DocumentFormat   string         `gorm:"size:16" json:"document_format"`
	UsingFallback    bool           `json:"using_fallback"`
	SourceText       string         `gorm:"type:text" json:"-"`
	Goals            datatypes.JSON `json:"goals"`
	ClinicianSummary string         `gorm:"type:text" json:"clinician_summary"`
	PatientReminder  string         `gorm:"type:text" json:"patient_reminder"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

func (p *CarePlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// ApplyResult stores an extraction result on the plan.
func (p *CarePlan) ApplyResult(res goal.ExtractionResult) error {
	raw, err := json.Marshal(res.Goals)
	if err != nil {
		return fmt.Errorf("encode goals: %w", err)
	}
	p.Goals = datatypes.JSON(raw)
	p.ClinicianSummary = res.ClinicianSummary
	p.PatientReminder = res.PatientReminder
	return nil
}

// Result decodes the stored plan back into an extraction result.
func (p *CarePlan) Result() (goal.ExtractionResult, error) {
	res := goal.ExtractionResult{
		ClinicianSummary: p.ClinicianSummary,
		PatientReminder:  p.PatientReminder,
	}
	if len(p.Goals) > 0 {
		if err := json.Unmarshal(p.Goals, &res.Goals); err != nil {
			return goal.ExtractionResult{}, fmt.Errorf("decode goals: %w", err)
		}
	}
	return res, nil
}

// ProgressEntry is one logged progress value against a plan.
type ProgressEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CarePlanID string    `gorm:"index;size:36;not null" json:"care_plan_id"`
	Period     string    `gorm:"size:32;not null" json:"period"`
	Value      float64   `json:"value"`
	LoggedAt   time.Time `gorm:"index" json:"logged_at"`
}
