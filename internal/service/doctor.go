// Package service implements the doctor and patient workflows on top of the
// document, analysis, session and careplan packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"carelink/internal/analysis"
	"carelink/internal/careplan"
	"carelink/internal/document"
	"carelink/internal/goal"
	"carelink/internal/metrics"
	"carelink/internal/session"
)

// DocumentReader is satisfied by *document.Retriever.
type DocumentReader interface {
	Retrieve(ctx context.Context, src document.Source) (document.Result, error)
	Fetch(ctx context.Context, rawURL string) (document.Result, document.Source, error)
	Breaker() *document.CircuitBreaker
}

type DoctorService struct {
	docs     DocumentReader
	analyzer analysis.Analyzer
	plans    *careplan.Repository
	store    session.Store
	events   *EventLogger
	metrics  *metrics.Metrics
}

func NewDoctorService(docs DocumentReader, a analysis.Analyzer, plans *careplan.Repository, store session.Store, events *EventLogger, m *metrics.Metrics) *DoctorService {
	return &DoctorService{docs: docs, analyzer: a, plans: plans, store: store, events: events, metrics: m}
}

// UploadResult is what the doctor view shows after a document is processed.
type UploadResult struct {
	Plan          *careplan.CarePlan    `json:"plan"`
	Result        goal.ExtractionResult `json:"result"`
	Text          string                `json:"text"`
	UsingFallback bool                  `json:"using_fallback"`
}

func patientRequired(patientKey string) error {
	if strings.TrimSpace(patientKey) == "" {
		return &goal.ValidationError{Field: "patient", Reason: "must not be empty"}
	}
	return nil
}

// Upload reads an uploaded document, analyses it and makes the result the
// patient's current plan.
func (s *DoctorService) Upload(ctx context.Context, patientKey string, src document.Source) (*UploadResult, error) {
	if err := patientRequired(patientKey); err != nil {
		return nil, err
	}
	s.events.DocumentSelected(patientKey, src.Name, len(src.Data))

	text, err := s.docs.Retrieve(ctx, src)
	if err != nil {
		s.events.Error("retrieve", err, map[string]interface{}{"patient": patientKey, "document": src.Name})
		return nil, err
	}
	return s.apply(ctx, patientKey, src, text)
}

// Fetch downloads a document from rawURL and processes it like Upload.
func (s *DoctorService) Fetch(ctx context.Context, patientKey, rawURL string) (*UploadResult, error) {
	if err := patientRequired(patientKey); err != nil {
		return nil, err
	}
	text, src, err := s.docs.Fetch(ctx, rawURL)
	s.metrics.SetBreakerOpen(s.docs.Breaker().State() == document.StateOpen)
	if err != nil {
		s.events.Error("fetch", err, map[string]interface{}{"patient": patientKey, "url": rawURL})
		return nil, err
	}
	s.events.DocumentSelected(patientKey, src.Name, len(src.Data))
	return s.apply(ctx, patientKey, src, text)
}

func (s *DoctorService) apply(ctx context.Context, patientKey string, src document.Source, text document.Result) (*UploadResult, error) {
	s.metrics.DocumentProcessed(string(text.Format), text.UsingFallback)
	s.events.TextExtracted(patientKey, src.Name, string(text.Format), text.Chars, text.UsingFallback)

	res, err := s.analyze(ctx, patientKey, text.Text)
	if err != nil {
		return nil, err
	}

	plan := &careplan.CarePlan{
		PatientKey:     patientKey,
		DocumentName:   src.Name,
		DocumentFormat: string(text.Format),
		UsingFallback:  text.UsingFallback,
		SourceText:     text.Text,
	}
	if err := plan.ApplyResult(res); err != nil {
		return nil, err
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		s.events.Error("create plan", err, map[string]interface{}{"patient": patientKey})
		return nil, fmt.Errorf("save care plan: %w", err)
	}
	if err := s.store.SaveLatest(ctx, patientKey, res); err != nil {
		s.events.Error("save latest", err, map[string]interface{}{"patient": patientKey, "plan": plan.ID})
		return nil, fmt.Errorf("store latest result: %w", err)
	}
	s.events.GoalApplied(patientKey, plan.ID, res.PrimaryGoal())

	return &UploadResult{
		Plan:          plan,
		Result:        res,
		Text:          text.Text,
		UsingFallback: text.UsingFallback,
	}, nil
}

func (s *DoctorService) analyze(ctx context.Context, patientKey, text string) (goal.ExtractionResult, error) {
	start := time.Now()
	res, err := s.analyzer.ProcessText(ctx, text)
	s.metrics.ObserveAnalysis(time.Since(start), err)
	if err != nil {
		s.events.Error("analyze", err, map[string]interface{}{"patient": patientKey})
		return goal.ExtractionResult{}, fmt.Errorf("analyze text: %w", err)
	}
	s.events.ResultReceived(patientKey, res)
	return res, nil
}

// Plan returns a stored care plan with its decoded result.
func (s *DoctorService) Plan(ctx context.Context, planID string) (*careplan.CarePlan, goal.ExtractionResult, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, goal.ExtractionResult{}, err
	}
	res, err := plan.Result()
	if err != nil {
		return nil, goal.ExtractionResult{}, err
	}
	return plan, res, nil
}

// Reprocess re-runs analysis over a plan's stored text. The session copy is
// refreshed only when the plan is still the patient's latest.
func (s *DoctorService) Reprocess(ctx context.Context, planID string) (*UploadResult, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	res, err := s.analyze(ctx, plan.PatientKey, plan.SourceText)
	if err != nil {
		return nil, err
	}
	if err := plan.ApplyResult(res); err != nil {
		return nil, err
	}
	if err := s.plans.Save(ctx, plan); err != nil {
		return nil, fmt.Errorf("save care plan: %w", err)
	}

	latest, err := s.plans.LatestForPatient(ctx, plan.PatientKey)
	if err != nil && !errors.Is(err, careplan.ErrNotFound) {
		return nil, err
	}
	if latest != nil && latest.ID == plan.ID {
		if err := s.store.SaveLatest(ctx, plan.PatientKey, res); err != nil {
			return nil, fmt.Errorf("store latest result: %w", err)
		}
		s.events.GoalApplied(plan.PatientKey, plan.ID, res.PrimaryGoal())
	}

	return &UploadResult{
		Plan:          plan,
		Result:        res,
		Text:          plan.SourceText,
		UsingFallback: plan.UsingFallback,
	}, nil
}
