package careplan

import "carelink/internal/goal"

// LatestPerPeriod collapses entries to one sample per period label, keeping
// the last value logged for each label. Periods appear in the order they
// were first logged.
func LatestPerPeriod(entries []ProgressEntry) []goal.ProgressSample {
	idx := make(map[string]int, len(entries))
	samples := make([]goal.ProgressSample, 0, len(entries))
	for _, e := range entries {
		if i, ok := idx[e.Period]; ok {
			samples[i].Value = e.Value
			continue
		}
		idx[e.Period] = len(samples)
		samples = append(samples, goal.ProgressSample{Period: e.Period, Value: e.Value})
	}
	return samples
}
