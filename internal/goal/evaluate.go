package goal

import (
	"fmt"
	"math"
)

// On-track tier: at least 7 of every 10 periods must meet the goal, rounded
// up, so a seven-day week needs five.
const (
	onTrackNumerator   = 7
	onTrackDenominator = 10
)

const (
	LabelMet    = "Goal Met"
	LabelBehind = "Behind"

	MessageOnTrack      = "Patient is on track."
	MessageNeedsSupport = "Patient may need additional support."
)

// Evaluate compares a single progress value with the goal target. Negative
// values count as zero progress; NaN and infinities are rejected.
func Evaluate(g Goal, current float64) (EvaluationSnapshot, error) {
	if g.Target <= 0 {
		return EvaluationSnapshot{}, invalid("target", "must be positive, got %d", g.Target)
	}
	if math.IsNaN(current) || math.IsInf(current, 0) {
		return EvaluationSnapshot{}, invalid("current", "must be a finite number")
	}
	if current < 0 {
		current = 0
	}

	target := float64(g.Target)
	snap := EvaluationSnapshot{
		Ratio:   clamp(current/target, 0, 1),
		MetGoal: current >= target,
	}
	if !snap.MetGoal {
		// current < target here, so the floor fits in an int.
		snap.Remaining = g.Target - int(math.Floor(current))
	}
	snap.Message = progressMessage(g, snap)
	return snap, nil
}

// EvaluateWeek classifies every sample against the target, keeping input
// order, and rolls the period up into an average and an on-track tier. The
// average is the arithmetic mean truncated toward zero.
func EvaluateWeek(g Goal, samples []ProgressSample) (WeeklyReport, error) {
	if g.Target <= 0 {
		return WeeklyReport{}, invalid("target", "must be positive, got %d", g.Target)
	}
	if len(samples) == 0 {
		return WeeklyReport{}, invalid("samples", "at least one sample is required")
	}

	report := WeeklyReport{
		Goal:         g,
		PerPeriod:    make([]PeriodStatus, 0, len(samples)),
		PeriodsTotal: len(samples),
	}
	target := float64(g.Target)
	var sum float64
	for i, s := range samples {
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) || s.Value < 0 {
			return WeeklyReport{}, invalid("samples", "value at index %d (%s) must be a finite number >= 0", i, s.Period)
		}
		met := s.Value >= target
		label := LabelBehind
		if met {
			report.PeriodsMet++
			label = LabelMet
		}
		report.PerPeriod = append(report.PerPeriod, PeriodStatus{
			Period:  s.Period,
			Value:   s.Value,
			MetGoal: met,
			Label:   label,
		})
		sum += s.Value
	}

	report.Average = math.Trunc(sum / float64(len(samples)))
	report.OnTrack = OnTrack(report.PeriodsMet, report.PeriodsTotal)
	if report.OnTrack {
		report.OverallMessage = MessageOnTrack
	} else {
		report.OverallMessage = MessageNeedsSupport
	}
	return report, nil
}

// OnTrack reports whether met >= ceil(0.7 * total), evaluated in integers.
func OnTrack(met, total int) bool {
	if total <= 0 {
		return false
	}
	return met*onTrackDenominator >= total*onTrackNumerator
}

// RequiredPeriods is the smallest met count that puts total periods on track.
func RequiredPeriods(total int) int {
	return (total*onTrackNumerator + onTrackDenominator - 1) / onTrackDenominator
}

func progressMessage(g Goal, snap EvaluationSnapshot) string {
	if snap.MetGoal {
		return fmt.Sprintf("Great job! You've reached your %s goal of %d %s!", cadence(g.Frequency), g.Target, g.Type)
	}
	return fmt.Sprintf("You're %d %s away from your goal!", snap.Remaining, g.Type)
}

func cadence(f Frequency) string {
	if f == "" {
		return string(FrequencyDaily)
	}
	return string(f)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
