package goal

import "fmt"

// ToFHIR renders the goal as a FHIR R4 Goal resource. patientRef is a
// reference such as "Patient/123"; snap, when non-nil, sets achievementStatus.
func (g Goal) ToFHIR(id, patientRef string, snap *EvaluationSnapshot) map[string]interface{} {
	result := map[string]interface{}{
		"resourceType":    "Goal",
		"lifecycleStatus": "active",
		"description": map[string]interface{}{
			"text": fmt.Sprintf("%d %s %s", g.Target, g.Type, cadence(g.Frequency)),
		},
		"target": []map[string]interface{}{{
			"measure": map[string]interface{}{
				"coding": []map[string]string{{
					"system":  "http://loinc.org",
					"code":    loincCode(g.Type),
					"display": g.Type,
				}},
			},
			"detailQuantity": map[string]interface{}{
				"value": g.Target,
				"unit":  g.Type + "/" + periodUnit(g.Frequency),
			},
		}},
	}
	if id != "" {
		result["id"] = id
	}
	if patientRef != "" {
		result["subject"] = map[string]string{"reference": patientRef}
	}
	if snap != nil {
		code := "in-progress"
		if snap.MetGoal {
			code = "achieved"
		}
		result["achievementStatus"] = map[string]interface{}{
			"coding": []map[string]string{{
				"system": "http://terminology.hl7.org/CodeSystem/goal-achievement",
				"code":   code,
			}},
		}
	}
	return result
}

// 55423-8 is the LOINC code for "Number of steps in unspecified time Pedometer".
func loincCode(category string) string {
	if category == TypeSteps {
		return "55423-8"
	}
	return ""
}

func periodUnit(f Frequency) string {
	if f == FrequencyWeekly {
		return "wk"
	}
	return "d"
}
