package service

import (
	"github.com/rs/zerolog"

	"carelink/internal/goal"
)

// Care plan lifecycle events.
const (
	EventPDFSelected      = "PDF_SELECTED"
	EventTextExtracted    = "TEXT_EXTRACTED"
	EventAIResultReceived = "AI_RESULT_RECEIVED"
	EventGoalApplied      = "GOAL_APPLIED"
	EventProgressLogged   = "PROGRESS_LOGGED"
	EventWeeklyReport     = "WEEKLY_REPORT"
)

// EventLogger writes one structured line per lifecycle event so the flow from
// upload to dashboard can be followed per patient.
type EventLogger struct {
	log zerolog.Logger
}

func NewEventLogger(l zerolog.Logger) *EventLogger {
	return &EventLogger{log: l.With().Str("component", "careplan-events").Logger()}
}

func (e *EventLogger) event(name, patient string) *zerolog.Event {
	return e.log.Info().Str("event", name).Str("patient", patient)
}

func (e *EventLogger) DocumentSelected(patient, name string, size int) {
	e.event(EventPDFSelected, patient).Str("document", name).Int("bytes", size).Send()
}

func (e *EventLogger) TextExtracted(patient, name, format string, chars int, fallback bool) {
	e.event(EventTextExtracted, patient).
		Str("document", name).
		Str("format", format).
		Int("chars", chars).
		Bool("fallback", fallback).
		Send()
}

func (e *EventLogger) ResultReceived(patient string, res goal.ExtractionResult) {
	e.event(EventAIResultReceived, patient).Int("goals", len(res.Goals)).Send()
}

func (e *EventLogger) GoalApplied(patient, planID string, g goal.Goal) {
	e.event(EventGoalApplied, patient).
		Str("plan", planID).
		Str("type", g.Type).
		Int("target", g.Target).
		Str("frequency", string(g.Frequency)).
		Send()
}

func (e *EventLogger) ProgressLogged(patient, period string, value float64) {
	e.event(EventProgressLogged, patient).Str("period", period).Float64("value", value).Send()
}

func (e *EventLogger) WeeklyReport(patient string, r goal.WeeklyReport, demo bool) {
	e.event(EventWeeklyReport, patient).
		Int("met", r.PeriodsMet).
		Int("total", r.PeriodsTotal).
		Float64("average", r.Average).
		Bool("on_track", r.OnTrack).
		Bool("demo", demo).
		Send()
}

// Error logs a failed operation with its context fields.
func (e *EventLogger) Error(op string, err error, fields map[string]interface{}) {
	e.log.Error().Err(err).Str("op", op).Fields(fields).Msg("operation failed")
}
