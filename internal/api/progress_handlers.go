package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carelink/internal/goal"
	"carelink/internal/service"
)

// GET /dashboard?current=&patient=
func DashboardHandler(patients *service.PatientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		patient, ok := resolvePatient(c, c.Query("patient"))
		if !ok {
			return
		}
		current := 0.0
		if raw := c.Query("current"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errorJSON(c, http.StatusBadRequest, "current must be a number")
				return
			}
			current = v
		}
		d, err := patients.Dashboard(c.Request.Context(), patient, current)
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

type LogProgressRequest struct {
	Patient string   `json:"patient"`
	Period  string   `json:"period"`
	Value   *float64 `json:"value"`
}

// POST /progress
func LogProgressHandler(patients *service.PatientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LogProgressRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
			errorJSON(c, http.StatusBadRequest, "value is required")
			return
		}
		patient, ok := resolvePatient(c, req.Patient)
		if !ok {
			return
		}
		entry, err := patients.LogProgress(c.Request.Context(), patient, req.Period, *req.Value)
		if err != nil {
			serviceError(c, err)
			return
		}
		d, err := patients.Dashboard(c.Request.Context(), patient, entry.Value)
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"entry": entry, "dashboard": d})
	}
}

// GET /progress/weekly?patient=
func WeeklyHandler(patients *service.PatientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		patient, ok := resolvePatient(c, c.Query("patient"))
		if !ok {
			return
		}
		view, err := patients.Weekly(c.Request.Context(), patient)
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

type EvaluateRequest struct {
	Goal    goal.Goal `json:"goal"`
	Current *float64  `json:"current"`
}

// POST /evaluate  stateless single-value evaluation
func EvaluateHandler(patients *service.PatientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EvaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Current == nil {
			errorJSON(c, http.StatusBadRequest, "goal and current are required")
			return
		}
		snap, err := patients.Evaluate(withGoalDefaults(req.Goal), *req.Current)
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

type EvaluateWeekRequest struct {
	Goal    goal.Goal             `json:"goal"`
	Samples []goal.ProgressSample `json:"samples"`
}

// POST /evaluate/week  stateless weekly rollup
func EvaluateWeekHandler(patients *service.PatientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EvaluateWeekRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, "Invalid request")
			return
		}
		report, err := patients.EvaluateWeek(withGoalDefaults(req.Goal), req.Samples)
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func withGoalDefaults(g goal.Goal) goal.Goal {
	if g.Type == "" {
		g.Type = goal.TypeSteps
	}
	if g.Frequency == "" {
		g.Frequency = goal.FrequencyDaily
	}
	return g
}
