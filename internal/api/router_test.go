package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"carelink/internal/service"
	"carelink/internal/user"
)

func TestSetupRouter_BasicRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/config", "/metrics"} {
		w := s.do("GET", path, "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s should return 200, got %d", path, w.Code)
		}
	}
	if w := s.do("GET", "/nope", "", nil); w.Code != http.StatusNotFound || !contains(w.Body.String(), "Not found") {
		t.Errorf("unknown route should return JSON 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSetupRouter_Subpath(t *testing.T) {
	s := newTestServer(t)
	s.deps.Config.Server.Subpath = "/api"
	r := SetupRouter(s.deps)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /api/health should return 200, got %d", w.Code)
	}
}

func multipartUpload(t *testing.T, patient, filename string, content []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if patient != "" {
		_ = mw.WriteField("patient", patient)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, token, patient, filename string, content []byte) *httptest.ResponseRecorder {
	body, ct := multipartUpload(t, patient, filename, content)
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestDoctorPatientFlow(t *testing.T) {
	s := newTestServer(t)
	doctor := s.login(t, "drsmith", user.RoleDoctor)
	patient := s.login(t, "pat", user.RolePatient)

	// patients cannot upload
	if w := s.upload(t, patient, "pat", "plan.txt", []byte("walk 7000 steps")); w.Code != http.StatusForbidden {
		t.Fatalf("patient upload should be 403, got %d", w.Code)
	}
	// doctors must name the patient
	if w := s.upload(t, doctor, "", "plan.txt", []byte("walk 7000 steps")); w.Code != http.StatusBadRequest {
		t.Fatalf("upload without patient should be 400, got %d", w.Code)
	}

	w := s.upload(t, doctor, "pat", "plan.txt", []byte("Patient should walk 7000 steps daily."))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload failed: %d %s", w.Code, w.Body.String())
	}
	var up service.UploadResult
	if err := json.Unmarshal(w.Body.Bytes(), &up); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if up.Result.PrimaryGoal().Target != 7000 || up.UsingFallback {
		t.Fatalf("unexpected upload result: %+v", up)
	}

	w = s.do("GET", "/dashboard?current=4200", patient, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard failed: %d %s", w.Code, w.Body.String())
	}
	var d service.Dashboard
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Goal.Target != 7000 || d.Snapshot.Remaining != 2800 || d.PlanID != up.Plan.ID {
		t.Errorf("unexpected dashboard: %+v", d)
	}
	if !contains(d.Reminder, "You're 2800 steps away from your goal!") {
		t.Errorf("reminder should include progress message, got %q", d.Reminder)
	}

	if w := s.do("GET", "/dashboard?current=abc", patient, nil); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric current should be 400, got %d", w.Code)
	}

	w = s.do("POST", "/progress", patient, gin.H{"period": "Mon", "value": 7100})
	if w.Code != http.StatusCreated || !contains(w.Body.String(), "Great job!") {
		t.Fatalf("log progress failed: %d %s", w.Code, w.Body.String())
	}
	if w := s.do("POST", "/progress", patient, gin.H{"period": "Tue"}); w.Code != http.StatusBadRequest {
		t.Errorf("progress without value should be 400, got %d", w.Code)
	}
	if w := s.do("POST", "/progress", patient, gin.H{"value": -3}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative progress should be 422, got %d", w.Code)
	}

	w = s.do("GET", "/progress/weekly", patient, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("weekly failed: %d %s", w.Code, w.Body.String())
	}
	var view service.WeeklyView
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.Demo || view.PeriodsTotal != 1 || view.PeriodsMet != 1 || !view.OnTrack {
		t.Errorf("unexpected weekly view: %+v", view)
	}

	// doctor views the same patient explicitly
	w = s.do("GET", "/progress/weekly?patient=pat", doctor, nil)
	if w.Code != http.StatusOK || !contains(w.Body.String(), `"periods_met":1`) {
		t.Errorf("doctor weekly view failed: %d %s", w.Code, w.Body.String())
	}

	w = s.do("GET", "/plans/"+up.Plan.ID, doctor, nil)
	if w.Code != http.StatusOK || !contains(w.Body.String(), `"target":7000`) {
		t.Errorf("get plan failed: %d %s", w.Code, w.Body.String())
	}
	w = s.do("GET", "/plans/"+up.Plan.ID+"/fhir", doctor, nil)
	if w.Code != http.StatusOK || !contains(w.Body.String(), `"resourceType":"Bundle"`) || !contains(w.Body.String(), "Patient/pat") {
		t.Errorf("fhir export failed: %d %s", w.Code, w.Body.String())
	}
	w = s.do("POST", "/plans/"+up.Plan.ID+"/reprocess", doctor, nil)
	if w.Code != http.StatusOK {
		t.Errorf("reprocess failed: %d %s", w.Code, w.Body.String())
	}
	if w := s.do("GET", "/plans/missing", doctor, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing plan should be 404, got %d", w.Code)
	}
	if w := s.do("GET", "/plans/"+up.Plan.ID, patient, nil); w.Code != http.StatusForbidden {
		t.Errorf("patients should not read plans directly, got %d", w.Code)
	}
}

func TestUpload_FallbackAndUnsupported(t *testing.T) {
	s := newTestServer(t)
	doctor := s.login(t, "drwho", user.RoleDoctor)

	w := s.upload(t, doctor, "amy", "scan.pdf", []byte("%PDF-1.4 broken"))
	if w.Code != http.StatusCreated || !contains(w.Body.String(), `"using_fallback":true`) {
		t.Fatalf("broken pdf should use fallback text: %d %s", w.Code, w.Body.String())
	}

	w = s.upload(t, doctor, "amy", "photo.bin", []byte{0x00, 0x01, 0x02})
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("binary upload should be 415, got %d: %s", w.Code, w.Body.String())
	}
}

func TestFetchDocument(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Goal: walk 6400 steps daily."))
	}))
	defer remote.Close()

	s := newTestServer(t)
	doctor := s.login(t, "drfetch", user.RoleDoctor)

	w := s.do("POST", "/documents/fetch", doctor, gin.H{"url": remote.URL + "/plan.txt", "patient": "rory"})
	if w.Code != http.StatusCreated || !contains(w.Body.String(), `"target":6400`) {
		t.Fatalf("fetch failed: %d %s", w.Code, w.Body.String())
	}
	if w := s.do("POST", "/documents/fetch", doctor, gin.H{"patient": "rory"}); w.Code != http.StatusBadRequest {
		t.Errorf("fetch without url should be 400, got %d", w.Code)
	}
	if w := s.do("POST", "/documents/fetch", doctor, gin.H{"url": "ftp://x/y", "patient": "rory"}); w.Code != http.StatusBadGateway {
		t.Errorf("bad scheme should be 502, got %d", w.Code)
	}
}

func TestEvaluateEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "anyone", user.RolePatient)

	w := s.do("POST", "/evaluate", token, gin.H{"goal": gin.H{"target": 5000}, "current": 4200})
	if w.Code != http.StatusOK || !contains(w.Body.String(), `"remaining":800`) {
		t.Errorf("evaluate failed: %d %s", w.Code, w.Body.String())
	}
	if w := s.do("POST", "/evaluate", token, gin.H{"goal": gin.H{"target": 0}, "current": 1}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero target should be 422, got %d", w.Code)
	}
	if w := s.do("POST", "/evaluate", token, gin.H{"goal": gin.H{"target": 10}}); w.Code != http.StatusBadRequest {
		t.Errorf("missing current should be 400, got %d", w.Code)
	}

	samples := []gin.H{
		{"period": "Mon", "value": 4200}, {"period": "Tue", "value": 5100}, {"period": "Wed", "value": 3800},
		{"period": "Thu", "value": 5500}, {"period": "Fri", "value": 4900}, {"period": "Sat", "value": 6200},
		{"period": "Sun", "value": 4700},
	}
	w = s.do("POST", "/evaluate/week", token, gin.H{"goal": gin.H{"target": 5000}, "samples": samples})
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate week failed: %d %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !contains(body, `"periods_met":3`) || !contains(body, `"average":4914`) || !contains(body, "additional support") {
		t.Errorf("unexpected weekly report: %s", body)
	}
	if w := s.do("POST", "/evaluate/week", token, gin.H{"goal": gin.H{"target": 5000}, "samples": []gin.H{}}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty samples should be 422, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/dashboard", "/progress/weekly", "/auth/me", "/users"} {
		if w := s.do("GET", path, "", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token should be 401, got %d", path, w.Code)
		}
	}
}
