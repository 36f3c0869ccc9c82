package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/audionhq/timbre/internal/models"
	"github.com/audionhq/timbre/internal/registry"
	"github.com/audionhq/timbre/internal/trainer"
)

const testSecret = "test-secret"

// newTestRouter builds a router over a fresh registry. The trainer's Spawn
// is a no-op so accepted jobs stay at their initial state.
func newTestRouter(t *testing.T) (http.Handler, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	tr := &trainer.Trainer{
		Registry: reg,
		Spawn:    func(fn func()) {},
	}
	router := NewRouter(StartOpts{
		Registry:   reg,
		Trainer:    tr,
		AuthSecret: testSecret,
	})
	return router, reg
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set(AuthHeader, testSecret)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return m
}

func seedJob(t *testing.T, reg *registry.Registry, id, status string) {
	t.Helper()
	err := reg.Create(models.Job{
		ID:          id,
		Status:      status,
		Progress:    0,
		Message:     "initializing training",
		VoiceFileID: "vf_1",
		StartedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("seed job %s: %v", id, err)
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/train"},
		{http.MethodGet, "/train/status/job_a"},
		{http.MethodGet, "/train/jobs"},
		{http.MethodDelete, "/train/jobs/job_a"},
	} {
		w := doRequest(t, router, tc.method, tc.path, "", false)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without auth: status = %d, want 401", tc.method, tc.path, w.Code)
		}
		if _, ok := decodeBody(t, w)["detail"]; !ok {
			t.Errorf("%s %s: missing detail in %s", tc.method, tc.path, w.Body.String())
		}
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/train/jobs", nil)
	req.Header.Set(AuthHeader, "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", w.Code)
	}
}

func TestTrain_Accepts(t *testing.T) {
	router, reg := newTestRouter(t)

	body := `{"voiceFileId":"vf_9","voiceFileUrl":"https://cdn.example.com/vf_9.mp3","userId":"u_1"}`
	w := doRequest(t, router, http.MethodPost, "/train", body, true)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	jobID, _ := resp["jobId"].(string)
	if !strings.HasPrefix(jobID, "job_") {
		t.Errorf("jobId = %q, want job_ prefix", jobID)
	}
	if resp["status"] != models.StatusTraining {
		t.Errorf("status = %v, want TRAINING", resp["status"])
	}

	stored, err := reg.Get(jobID)
	if err != nil {
		t.Fatalf("job not registered: %v", err)
	}
	if stored.VoiceFileID != "vf_9" {
		t.Errorf("stored voiceFileId = %q, want vf_9", stored.VoiceFileID)
	}
}

func TestTrain_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{
			name:   "missing url",
			body:   `{"voiceFileId":"vf_9"}`,
			detail: "voiceFileUrl is required",
		},
		{
			name:   "missing id",
			body:   `{"voiceFileUrl":"https://cdn.example.com/vf_9.mp3"}`,
			detail: "voiceFileId is required",
		},
		{
			name:   "malformed json",
			body:   `{"voiceFileId":`,
			detail: "invalid request body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, reg := newTestRouter(t)

			w := doRequest(t, router, http.MethodPost, "/train", tt.body, true)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", w.Code, w.Body.String())
			}
			if got := decodeBody(t, w)["detail"]; got != tt.detail {
				t.Errorf("detail = %v, want %q", got, tt.detail)
			}
			if reg.Len() != 0 {
				t.Errorf("rejected request registered %d job(s)", reg.Len())
			}
		})
	}
}

func TestStatus_Found(t *testing.T) {
	router, reg := newTestRouter(t)
	seedJob(t, reg, "job_a", models.StatusTraining)
	reg.Update("job_a", func(j *models.Job) {
		j.Progress = 55
		j.Message = "extracting voice features"
	})

	w := doRequest(t, router, http.MethodGet, "/train/status/job_a", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["jobId"] != "job_a" || resp["progress"] != float64(55) {
		t.Errorf("response = %v", resp)
	}
	if resp["message"] != "extracting voice features" {
		t.Errorf("message = %v", resp["message"])
	}
}

func TestStatus_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/train/status/job_missing", "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if _, ok := decodeBody(t, w)["detail"]; !ok {
		t.Errorf("missing detail in %s", w.Body.String())
	}
}

func TestListJobs(t *testing.T) {
	router, reg := newTestRouter(t)
	seedJob(t, reg, "job_a", models.StatusTraining)
	seedJob(t, reg, "job_b", models.StatusDone)

	w := doRequest(t, router, http.MethodGet, "/train/jobs", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["totalJobs"] != float64(2) {
		t.Errorf("totalJobs = %v, want 2", resp["totalJobs"])
	}
	jobs, ok := resp["jobs"].([]any)
	if !ok || len(jobs) != 2 {
		t.Fatalf("jobs = %v, want 2 entries", resp["jobs"])
	}
	entry := jobs[0].(map[string]any)
	for _, key := range []string{"jobId", "status", "progress", "voiceFileId", "startedAt"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("job summary missing key %q: %v", key, entry)
		}
	}
	if _, ok := entry["message"]; ok {
		t.Errorf("job summary carries full-status field: %v", entry)
	}
}

func TestListJobs_Empty(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/train/jobs", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["totalJobs"] != float64(0) {
		t.Errorf("totalJobs = %v, want 0", resp["totalJobs"])
	}
	if jobs, ok := resp["jobs"].([]any); !ok || len(jobs) != 0 {
		t.Errorf("jobs = %v, want empty array", resp["jobs"])
	}
}

func TestDeleteJob(t *testing.T) {
	router, reg := newTestRouter(t)
	seedJob(t, reg, "job_done", models.StatusDone)
	seedJob(t, reg, "job_live", models.StatusTraining)

	w := doRequest(t, router, http.MethodDelete, "/train/jobs/job_missing", "", true)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete missing: status = %d, want 404", w.Code)
	}

	w = doRequest(t, router, http.MethodDelete, "/train/jobs/job_live", "", true)
	if w.Code != http.StatusConflict {
		t.Errorf("delete running: status = %d, want 409", w.Code)
	}
	if _, err := reg.Get("job_live"); err != nil {
		t.Error("running job removed despite conflict")
	}

	w = doRequest(t, router, http.MethodDelete, "/train/jobs/job_done", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("delete terminal: status = %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if msg := decodeBody(t, w)["message"]; msg != "job job_done deleted successfully" {
		t.Errorf("message = %v", msg)
	}
	if _, err := reg.Get("job_done"); err == nil {
		t.Error("terminal job still present after delete")
	}
}
