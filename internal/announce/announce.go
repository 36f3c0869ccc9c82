// Package announce posts operator-facing notifications about training
// activity to chat platforms (Slack, Discord). Announcements are
// best-effort and never influence job state; the signed callback in
// internal/callback remains the authoritative outcome channel.
package announce

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/audionhq/timbre/internal/models"
)

// Event is a training event formatted for display in chat.
type Event struct {
	Title    string  // headline, e.g. "Training done: job_ab12cd34ef56"
	Body     string  // detail text
	Severity string  // "success" or "error"
	Color    string  // sidebar color hint
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed alongside an event.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// Sidebar colors for event severities.
const (
	colorSuccess = "#36a64f"
	colorError   = "#d00000"
)

// Adapter is implemented per chat platform.
type Adapter interface {
	// Send delivers one event to the platform.
	Send(ctx context.Context, ev Event) error

	// Close releases the adapter's resources.
	Close() error
}

// Announcer fans events out to every configured adapter.
type Announcer struct {
	adapters []Adapter
}

// New creates an Announcer over the given adapters. nil adapters are
// skipped, so optional platforms can be passed unconditionally.
func New(adapters ...Adapter) *Announcer {
	a := &Announcer{}
	for _, ad := range adapters {
		if ad != nil {
			a.adapters = append(a.adapters, ad)
		}
	}
	return a
}

// Enabled reports whether any adapter is configured.
func (a *Announcer) Enabled() bool {
	return a != nil && len(a.adapters) > 0
}

// JobFinished announces a terminal job. Best-effort: per-adapter failures
// are logged, not returned.
func (a *Announcer) JobFinished(ctx context.Context, job *models.Job) {
	if !a.Enabled() {
		return
	}
	a.send(ctx, formatJob(job))
}

// Digest announces a periodic activity summary.
func (a *Announcer) Digest(ctx context.Context, ev Event) {
	if !a.Enabled() {
		return
	}
	a.send(ctx, ev)
}

// Close shuts down every adapter.
func (a *Announcer) Close() {
	if a == nil {
		return
	}
	for _, ad := range a.adapters {
		if err := ad.Close(); err != nil {
			log.Printf("announce: close adapter: %v", err)
		}
	}
}

func (a *Announcer) send(ctx context.Context, ev Event) {
	for _, ad := range a.adapters {
		if err := ad.Send(ctx, ev); err != nil {
			log.Printf("announce: send %q: %v", ev.Title, err)
		}
	}
}

// formatJob renders a terminal job as a chat event.
func formatJob(job *models.Job) Event {
	fields := []Field{
		{Name: "Voice file", Value: job.VoiceFileID, Short: true},
		{Name: "Started", Value: job.StartedAt.Format(time.RFC3339), Short: true},
	}

	if job.Status == models.StatusDone {
		fields = append(fields,
			Field{Name: "Duration", Value: fmt.Sprintf("%ds", job.TrainingDurationSeconds), Short: true},
			Field{Name: "Preview", Value: job.PreviewURL},
		)
		return Event{
			Title:    "Training done: " + job.ID,
			Body:     "Voice model published to " + job.ModelPath,
			Severity: "success",
			Color:    colorSuccess,
			Fields:   fields,
		}
	}

	return Event{
		Title:    "Training failed: " + job.ID,
		Body:     job.ErrorDetail,
		Severity: "error",
		Color:    colorError,
		Fields:   fields,
	}
}
