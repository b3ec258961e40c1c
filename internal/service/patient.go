package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"carelink/internal/careplan"
	"carelink/internal/config"
	"carelink/internal/goal"
	"carelink/internal/metrics"
	"carelink/internal/session"
)

// ErrNoPlan is returned when progress is logged before any plan exists.
var ErrNoPlan = errors.New("patient has no care plan")

// WeekWindow bounds which logged entries count towards the weekly report.
const WeekWindow = 7 * 24 * time.Hour

// DemoWeek is shown on the weekly view until real progress has been logged.
func DemoWeek() []goal.ProgressSample {
	return []goal.ProgressSample{
		{Period: "Mon", Value: 4200},
		{Period: "Tue", Value: 5100},
		{Period: "Wed", Value: 3800},
		{Period: "Thu", Value: 5500},
		{Period: "Fri", Value: 4900},
		{Period: "Sat", Value: 6200},
		{Period: "Sun", Value: 4700},
	}
}

// Dashboard is the patient view for one progress value.
type Dashboard struct {
	PlanID       string                  `json:"plan_id,omitempty"`
	Goal         goal.Goal               `json:"goal"`
	BaseReminder string                  `json:"base_reminder"`
	Snapshot     goal.EvaluationSnapshot `json:"snapshot"`
	Reminder     string                  `json:"reminder"`
}

// WeeklyView is a weekly report plus whether it was built from demo data.
type WeeklyView struct {
	goal.WeeklyReport
	Demo bool `json:"demo"`
}

type PatientService struct {
	plans      *careplan.Repository
	store      session.Store
	events     *EventLogger
	metrics    *metrics.Metrics
	sliderMax  float64
	sliderStep float64
	now        func() time.Time
}

func NewPatientService(plans *careplan.Repository, store session.Store, progress config.ProgressConfig, events *EventLogger, m *metrics.Metrics) *PatientService {
	return &PatientService{
		plans:      plans,
		store:      store,
		events:     events,
		metrics:    m,
		sliderMax:  progress.SliderMax,
		sliderStep: progress.SliderStep,
		now:        time.Now,
	}
}

// current returns the patient's latest result, rebuilding the session copy
// from the database when it has expired.
func (s *PatientService) current(ctx context.Context, patientKey string) (goal.ExtractionResult, *careplan.CarePlan, error) {
	res, stored, err := session.LatestOrDefault(ctx, s.store, patientKey)
	if err != nil {
		return goal.ExtractionResult{}, nil, err
	}

	plan, err := s.plans.LatestForPatient(ctx, patientKey)
	if errors.Is(err, careplan.ErrNotFound) {
		return res, nil, nil
	}
	if err != nil {
		return goal.ExtractionResult{}, nil, err
	}
	if !stored {
		if res, err = plan.Result(); err != nil {
			return goal.ExtractionResult{}, nil, err
		}
		if err := s.store.SaveLatest(ctx, patientKey, res); err != nil {
			return goal.ExtractionResult{}, nil, err
		}
	}
	return res, plan, nil
}

// Dashboard evaluates current against the patient's primary goal. The
// reminder is the plan reminder followed by the progress message, or the
// congratulation alone once the goal is met.
func (s *PatientService) Dashboard(ctx context.Context, patientKey string, current float64) (*Dashboard, error) {
	res, plan, err := s.current(ctx, patientKey)
	if err != nil {
		return nil, err
	}
	g := res.PrimaryGoal()
	snap, err := s.Evaluate(g, current)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Goal:         g,
		BaseReminder: res.PatientReminder,
		Snapshot:     snap,
	}
	if plan != nil {
		d.PlanID = plan.ID
	}
	if snap.MetGoal {
		d.Reminder = snap.Message
	} else {
		d.Reminder = res.PatientReminder + "\n\n" + snap.Message
	}
	return d, nil
}

// Evaluate wraps goal.Evaluate and records the outcome.
func (s *PatientService) Evaluate(g goal.Goal, current float64) (goal.EvaluationSnapshot, error) {
	snap, err := goal.Evaluate(g, current)
	if err != nil {
		return snap, err
	}
	s.metrics.Evaluation(snap.MetGoal)
	return snap, nil
}

// EvaluateWeek wraps goal.EvaluateWeek and records the outcome.
func (s *PatientService) EvaluateWeek(g goal.Goal, samples []goal.ProgressSample) (goal.WeeklyReport, error) {
	r, err := goal.EvaluateWeek(g, samples)
	if err != nil {
		return r, err
	}
	s.metrics.WeeklyReport(r.OnTrack)
	return r, nil
}

// LogProgress stores value for period against the patient's latest plan. An
// empty period defaults to today's short weekday name.
func (s *PatientService) LogProgress(ctx context.Context, patientKey, period string, value float64) (*careplan.ProgressEntry, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return nil, &goal.ValidationError{Field: "value", Reason: "must be a finite number >= 0"}
	}
	period = strings.TrimSpace(period)
	if period == "" {
		period = s.now().Weekday().String()[:3]
	}

	plan, err := s.plans.LatestForPatient(ctx, patientKey)
	if errors.Is(err, careplan.ErrNotFound) {
		return nil, ErrNoPlan
	}
	if err != nil {
		return nil, err
	}

	entry := &careplan.ProgressEntry{
		CarePlanID: plan.ID,
		Period:     period,
		Value:      value,
		LoggedAt:   s.now().UTC(),
	}
	if err := s.plans.AddProgress(ctx, entry); err != nil {
		s.events.Error("log progress", err, map[string]interface{}{"patient": patientKey, "plan": plan.ID})
		return nil, fmt.Errorf("save progress: %w", err)
	}
	s.metrics.ProgressLogged()
	s.events.ProgressLogged(patientKey, period, value)
	return entry, nil
}

// Weekly reports the last seven days of logged progress, one sample per
// period. Patients with nothing logged see the demo week.
func (s *PatientService) Weekly(ctx context.Context, patientKey string) (*WeeklyView, error) {
	res, plan, err := s.current(ctx, patientKey)
	if err != nil {
		return nil, err
	}

	var samples []goal.ProgressSample
	if plan != nil {
		entries, err := s.plans.ProgressSince(ctx, plan.ID, s.now().UTC().Add(-WeekWindow))
		if err != nil {
			return nil, err
		}
		samples = careplan.LatestPerPeriod(entries)
	}
	demo := len(samples) == 0
	if demo {
		samples = DemoWeek()
	}

	report, err := s.EvaluateWeek(res.PrimaryGoal(), samples)
	if err != nil {
		return nil, err
	}
	s.events.WeeklyReport(patientKey, report, demo)
	return &WeeklyView{WeeklyReport: report, Demo: demo}, nil
}

// ClampSlider snaps v to the progress slider: within [0, max] and rounded to
// the nearest step.
func (s *PatientService) ClampSlider(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if s.sliderMax > 0 && v > s.sliderMax {
		v = s.sliderMax
	}
	if s.sliderStep > 0 {
		v = math.Round(v/s.sliderStep) * s.sliderStep
		if s.sliderMax > 0 && v > s.sliderMax {
			v -= s.sliderStep
		}
	}
	return v
}
