package goal

// Frequency is the cadence a goal target applies to.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Valid reports whether f is one of the known cadences.
func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// TypeSteps is the only category the heuristic extractor produces today.
const TypeSteps = "steps"

// Goal is a numeric target a patient is asked to meet, e.g. 5000 steps daily.
// Goals are plain values; two goals with the same fields are the same goal.
type Goal struct {
	Type      string    `json:"type" yaml:"type"`
	Target    int       `json:"target" yaml:"target"`
	Frequency Frequency `json:"frequency" yaml:"frequency"`
}

// DefaultGoal is used whenever no document has been analysed yet.
func DefaultGoal() Goal {
	return Goal{Type: TypeSteps, Target: DefaultStepTarget, Frequency: FrequencyDaily}
}

// ExtractionResult is everything the analysis step produces for one document.
type ExtractionResult struct {
	Goals            []Goal `json:"goals" yaml:"goals"`
	ClinicianSummary string `json:"clinician_summary" yaml:"clinician_summary"`
	PatientReminder  string `json:"patient_reminder" yaml:"patient_reminder"`
}

// PrimaryGoal returns the goal the patient dashboard tracks. A result without
// goals yields the default goal.
func (r ExtractionResult) PrimaryGoal() Goal {
	if len(r.Goals) == 0 {
		return DefaultGoal()
	}
	return r.Goals[0]
}

// ProgressSample is one logged value for a labelled period (usually a weekday).
type ProgressSample struct {
	Period string  `json:"period" yaml:"period"`
	Value  float64 `json:"value" yaml:"value"`
}

// EvaluationSnapshot is the instantaneous view of progress against a goal.
type EvaluationSnapshot struct {
	Ratio     float64 `json:"ratio" yaml:"ratio"`
	Remaining int     `json:"remaining" yaml:"remaining"`
	MetGoal   bool    `json:"met_goal" yaml:"met_goal"`
	Message   string  `json:"message" yaml:"message"`
}

// PeriodStatus is a ProgressSample classified against the goal target.
type PeriodStatus struct {
	Period  string  `json:"period" yaml:"period"`
	Value   float64 `json:"value" yaml:"value"`
	MetGoal bool    `json:"met_goal" yaml:"met_goal"`
	Label   string  `json:"label" yaml:"label"`
}

// WeeklyReport aggregates a sequence of samples against one goal.
type WeeklyReport struct {
	Goal           Goal           `json:"goal" yaml:"goal"`
	PerPeriod      []PeriodStatus `json:"per_period" yaml:"per_period"`
	Average        float64        `json:"average" yaml:"average"`
	PeriodsMet     int            `json:"periods_met" yaml:"periods_met"`
	PeriodsTotal   int            `json:"periods_total" yaml:"periods_total"`
	OnTrack        bool           `json:"on_track" yaml:"on_track"`
	OverallMessage string         `json:"overall_message" yaml:"overall_message"`
}
