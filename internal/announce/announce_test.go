package announce

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/audionhq/timbre/internal/models"
)

// mockAdapter records sent events.
type mockAdapter struct {
	mu      sync.Mutex
	sent    []Event
	sendErr error
	closed  bool
}

func (m *mockAdapter) Send(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, ev)
	return nil
}

func (m *mockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockAdapter) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockAdapter) lastSent() Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func TestNew_SkipsNilAdapters(t *testing.T) {
	a := New(nil, &mockAdapter{}, nil)
	if !a.Enabled() {
		t.Error("Enabled() = false, want true")
	}

	empty := New(nil, nil)
	if empty.Enabled() {
		t.Error("Enabled() with only nil adapters = true, want false")
	}
}

func TestAnnouncer_Enabled_NilReceiver(t *testing.T) {
	var a *Announcer
	if a.Enabled() {
		t.Error("nil announcer Enabled() = true, want false")
	}
	// Close on nil must not panic.
	a.Close()
}

func TestJobFinished_FanOut(t *testing.T) {
	first := &mockAdapter{}
	second := &mockAdapter{}
	a := New(first, second)

	a.JobFinished(context.Background(), &models.Job{
		ID:     "job_ab12cd34ef56",
		Status: models.StatusDone,
	})

	if first.sentCount() != 1 || second.sentCount() != 1 {
		t.Errorf("sent counts = %d/%d, want 1/1", first.sentCount(), second.sentCount())
	}
}

func TestJobFinished_AdapterErrorDoesNotBlockOthers(t *testing.T) {
	failing := &mockAdapter{sendErr: fmt.Errorf("channel gone")}
	healthy := &mockAdapter{}
	a := New(failing, healthy)

	a.JobFinished(context.Background(), &models.Job{ID: "job_a", Status: models.StatusError})

	if healthy.sentCount() != 1 {
		t.Errorf("healthy adapter sent = %d, want 1", healthy.sentCount())
	}
}

func TestClose_ClosesAllAdapters(t *testing.T) {
	first := &mockAdapter{}
	second := &mockAdapter{}
	a := New(first, second)

	a.Close()
	if !first.closed || !second.closed {
		t.Errorf("closed = %v/%v, want true/true", first.closed, second.closed)
	}
}

func TestFormatJob_Done(t *testing.T) {
	job := &models.Job{
		ID:                      "job_ab12cd34ef56",
		Status:                  models.StatusDone,
		VoiceFileID:             "vf_9",
		ModelPath:               "s3://audion-models/models/vf_9/model.json.gz",
		PreviewURL:              "https://cdn.example.com/preview/vf_9/preview.wav",
		TrainingDurationSeconds: 42,
		StartedAt:               time.Now(),
	}

	ev := formatJob(job)
	if ev.Title != "Training done: job_ab12cd34ef56" {
		t.Errorf("Title = %q", ev.Title)
	}
	if ev.Severity != "success" || ev.Color != colorSuccess {
		t.Errorf("Severity/Color = %q/%q", ev.Severity, ev.Color)
	}
	if !strings.Contains(ev.Body, job.ModelPath) {
		t.Errorf("Body = %q, want model path", ev.Body)
	}

	var names []string
	for _, f := range ev.Fields {
		names = append(names, f.Name)
	}
	for _, want := range []string{"Voice file", "Started", "Duration", "Preview"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Fields missing %q: %v", want, names)
		}
	}
}

func TestFormatJob_Failed(t *testing.T) {
	job := &models.Job{
		ID:          "job_ab12cd34ef56",
		Status:      models.StatusError,
		VoiceFileID: "vf_9",
		ErrorDetail: "failed to download audio file",
		StartedAt:   time.Now(),
	}

	ev := formatJob(job)
	if ev.Title != "Training failed: job_ab12cd34ef56" {
		t.Errorf("Title = %q", ev.Title)
	}
	if ev.Severity != "error" || ev.Color != colorError {
		t.Errorf("Severity/Color = %q/%q", ev.Severity, ev.Color)
	}
	if ev.Body != "failed to download audio file" {
		t.Errorf("Body = %q", ev.Body)
	}
}

func TestFormatDigest(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	ev := FormatDigest(Summary{Done: 7, Failed: 0, AvgDurationSecs: 58.4}, at)
	if !strings.Contains(ev.Title, "2026-03-01") {
		t.Errorf("Title = %q, want date", ev.Title)
	}
	if ev.Severity != "success" {
		t.Errorf("Severity = %q, want success", ev.Severity)
	}
	if ev.Body != "7 trained, 0 failed" {
		t.Errorf("Body = %q", ev.Body)
	}
	found := false
	for _, f := range ev.Fields {
		if f.Name == "Avg duration" && f.Value == "58s" {
			found = true
		}
	}
	if !found {
		t.Errorf("Fields missing avg duration: %v", ev.Fields)
	}
}

func TestFormatDigest_WithFailures(t *testing.T) {
	ev := FormatDigest(Summary{Done: 2, Failed: 3}, time.Now())
	if ev.Severity != "error" || ev.Color != colorError {
		t.Errorf("Severity/Color = %q/%q, want error", ev.Severity, ev.Color)
	}
}

func TestFormatDigest_NoSuccesses_OmitsAvg(t *testing.T) {
	ev := FormatDigest(Summary{Done: 0, Failed: 2}, time.Now())
	for _, f := range ev.Fields {
		if f.Name == "Avg duration" {
			t.Errorf("Fields contain avg duration with zero successes: %v", ev.Fields)
		}
	}
}

func TestDigester_BadSchedule(t *testing.T) {
	d := &Digester{
		Announcer: New(&mockAdapter{}),
		Summarize: func(time.Time) (Summary, error) { return Summary{}, nil },
		Schedule:  "not a cron line",
	}
	if err := d.Run(context.Background()); err == nil {
		t.Error("Run() with bad schedule: want error, got nil")
	}
}

func TestDigester_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &Digester{
		Announcer: New(&mockAdapter{}),
		Summarize: func(time.Time) (Summary, error) { return Summary{}, nil },
		Schedule:  "* * * * *",
	}

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancel")
	}
}
