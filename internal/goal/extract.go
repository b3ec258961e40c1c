package goal

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	// DefaultStepTarget is used when the text names no usable step count.
	DefaultStepTarget = 5000
	// MaxStepTarget bounds parsed targets; anything larger is treated as noise.
	MaxStepTarget = 10_000_000
)

var stepsPattern = regexp.MustCompile(`(?i)(\d+)\s*steps`)

// Extract turns free-form care plan text into a structured result. It never
// fails: text without a usable "<n> steps" phrase yields the default target.
func Extract(text string) ExtractionResult {
	target := ParseStepTarget(text)
	return ExtractionResult{
		Goals: []Goal{
			{Type: TypeSteps, Target: target, Frequency: FrequencyDaily},
		},
		ClinicianSummary: clinicianSummary(target),
		PatientReminder:  patientReminder(target),
	}
}

// ParseStepTarget returns the first "<n> steps" count in text, or
// DefaultStepTarget when there is none or it falls outside (0, MaxStepTarget].
func ParseStepTarget(text string) int {
	match := stepsPattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return DefaultStepTarget
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 || n > MaxStepTarget {
		return DefaultStepTarget
	}
	return n
}

func clinicianSummary(target int) string {
	return fmt.Sprintf("Patient should maintain an active lifestyle with a daily goal of %d steps. "+
		"Diet should focus on low sodium and high fiber intake. "+
		"Follow-up recommended in 4 weeks to assess progress.", target)
}

func patientReminder(target int) string {
	return fmt.Sprintf("Remember to reach your daily goal of %d steps! "+
		"Stay active and keep track of your progress.", target)
}
