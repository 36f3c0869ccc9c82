package archive

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/audionhq/timbre/internal/models"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(Opts{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "timbre.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return a
}

func terminalJob(id, status string, duration int) *models.Job {
	return &models.Job{
		ID:                      id,
		Status:                  status,
		VoiceFileID:             "vf_" + id,
		TrainingDurationSeconds: duration,
		StartedAt:               time.Now().Add(-time.Duration(duration) * time.Second),
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(Opts{Driver: "postgres"}); err == nil {
		t.Error("Open() with unknown driver: want error, got nil")
	}
}

func TestOpen_MySQLRequiresDSN(t *testing.T) {
	if _, err := Open(Opts{Driver: DriverMySQL}); err == nil {
		t.Error("Open() mysql without dsn: want error, got nil")
	}
}

func TestRecordAndSummarize(t *testing.T) {
	a := openTestArchive(t)
	since := time.Now().Add(-time.Hour)

	finished := time.Now()
	a.Record(terminalJob("a", models.StatusDone, 40), finished)
	a.Record(terminalJob("b", models.StatusDone, 60), finished)
	a.Record(terminalJob("c", models.StatusError, 0), finished)

	s, err := a.Summarize(since)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if s.Done != 2 {
		t.Errorf("Done = %d, want 2", s.Done)
	}
	if s.Failed != 1 {
		t.Errorf("Failed = %d, want 1", s.Failed)
	}
	if math.Abs(s.AvgDurationSecs-50) > 1e-6 {
		t.Errorf("AvgDurationSecs = %v, want 50", s.AvgDurationSecs)
	}
}

func TestSummarize_ExcludesOlderRows(t *testing.T) {
	a := openTestArchive(t)

	old := time.Now().Add(-48 * time.Hour)
	a.Record(terminalJob("old", models.StatusDone, 30), old)
	a.Record(terminalJob("new", models.StatusDone, 50), time.Now())

	s, err := a.Summarize(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if s.Done != 1 {
		t.Errorf("Done = %d, want 1 (old row included)", s.Done)
	}
	if math.Abs(s.AvgDurationSecs-50) > 1e-6 {
		t.Errorf("AvgDurationSecs = %v, want 50", s.AvgDurationSecs)
	}
}

func TestSummarize_Empty(t *testing.T) {
	a := openTestArchive(t)

	s, err := a.Summarize(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if s.Done != 0 || s.Failed != 0 || s.AvgDurationSecs != 0 {
		t.Errorf("Summarize() on empty archive = %+v, want zeros", s)
	}
}

func TestRecord_PreservesErrorDetail(t *testing.T) {
	a := openTestArchive(t)

	job := terminalJob("x", models.StatusError, 0)
	job.ErrorDetail = "failed to download audio file"
	a.Record(job, time.Now())

	var row models.Outcome
	if err := a.db.Where("job_id = ?", "x").First(&row).Error; err != nil {
		t.Fatalf("read outcome row: %v", err)
	}
	if row.ErrorDetail != "failed to download audio file" {
		t.Errorf("ErrorDetail = %q", row.ErrorDetail)
	}
	if row.Status != models.StatusError {
		t.Errorf("Status = %q, want ERROR", row.Status)
	}
}
