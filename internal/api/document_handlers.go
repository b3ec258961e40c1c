package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carelink/internal/config"
	"carelink/internal/document"
	"carelink/internal/service"
	"carelink/internal/user"
)

// resolvePatient returns the patient a request acts on. Patients always act
// on themselves; clinicians must name one.
func resolvePatient(c *gin.Context, requested string) (string, bool) {
	role, _ := c.Get("role")
	if role == string(user.RolePatient) {
		username, _ := c.Get("username")
		name, _ := username.(string)
		return name, name != ""
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		errorJSON(c, http.StatusBadRequest, "patient is required")
		return "", false
	}
	return requested, true
}

// POST /documents  multipart: file, patient
func UploadDocumentHandler(doctor *service.DoctorService, cfg config.DocumentsConfig) gin.HandlerFunc {
	maxBytes := int64(cfg.MaxSizeMB) << 20
	return func(c *gin.Context) {
		if maxBytes > 0 {
			// room for the multipart envelope
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)
		}
		patient, ok := resolvePatient(c, c.PostForm("patient"))
		if !ok {
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "file is required")
			return
		}
		if maxBytes > 0 && fh.Size > maxBytes {
			errorJSON(c, http.StatusRequestEntityTooLarge, document.ErrTooLarge.Error())
			return
		}
		f, err := fh.Open()
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "cannot read file")
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "cannot read file")
			return
		}

		out, err := doctor.Upload(c.Request.Context(), patient, document.Source{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

type FetchDocumentRequest struct {
	URL     string `json:"url"`
	Patient string `json:"patient"`
}

// POST /documents/fetch
func FetchDocumentHandler(doctor *service.DoctorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FetchDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
			errorJSON(c, http.StatusBadRequest, "url is required")
			return
		}
		patient, ok := resolvePatient(c, req.Patient)
		if !ok {
			return
		}
		out, err := doctor.Fetch(c.Request.Context(), patient, req.URL)
		if err != nil {
			errorJSON(c, statusFor(err, http.StatusBadGateway), err.Error())
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

// GET /plans/:id
func GetPlanHandler(doctor *service.DoctorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, res, err := doctor.Plan(c.Request.Context(), c.Param("id"))
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"plan": plan, "result": res})
	}
}

// GET /plans/:id/fhir
func PlanFHIRHandler(doctor *service.DoctorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, res, err := doctor.Plan(c.Request.Context(), c.Param("id"))
		if err != nil {
			serviceError(c, err)
			return
		}
		entries := make([]gin.H, 0, len(res.Goals))
		for i, g := range res.Goals {
			id := plan.ID
			if i > 0 {
				id = fmt.Sprintf("%s-%d", plan.ID, i+1)
			}
			entries = append(entries, gin.H{"resource": g.ToFHIR(id, "Patient/"+plan.PatientKey, nil)})
		}
		c.JSON(http.StatusOK, gin.H{
			"resourceType": "Bundle",
			"type":         "collection",
			"entry":        entries,
		})
	}
}

// POST /plans/:id/reprocess
func ReprocessPlanHandler(doctor *service.DoctorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := doctor.Reprocess(c.Request.Context(), c.Param("id"))
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
