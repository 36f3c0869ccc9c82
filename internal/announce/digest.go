package announce

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// SummarizeFunc provides aggregated training activity since a point in
// time. archive.Summary converts to Summary directly.
type SummarizeFunc func(since time.Time) (Summary, error)

// Summary is the digest input.
type Summary struct {
	Done            int64
	Failed          int64
	AvgDurationSecs float64
}

// Digester posts a periodic training-activity summary on a cron schedule.
type Digester struct {
	Announcer *Announcer
	Summarize SummarizeFunc
	Schedule  string // 5-field cron expression, e.g. "0 9 * * *"
}

// Run fires digests until ctx is cancelled. Returns an error only for an
// unparsable schedule; delivery failures are absorbed by the announcer.
func (d *Digester) Run(ctx context.Context) error {
	sched, err := cronParser.Parse(d.Schedule)
	if err != nil {
		return fmt.Errorf("announce: digest schedule %q: %w", d.Schedule, err)
	}

	last := time.Now()
	for {
		next := sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		summary, err := d.Summarize(last)
		if err != nil {
			// Skip this period; the next fire covers the gap via `last`.
			continue
		}
		last = next

		if summary.Done == 0 && summary.Failed == 0 {
			continue
		}
		d.Announcer.Digest(ctx, FormatDigest(summary, next))
	}
}

// FormatDigest renders an activity summary as a chat event.
func FormatDigest(s Summary, at time.Time) Event {
	color := colorSuccess
	severity := "success"
	if s.Failed > 0 {
		color = colorError
		severity = "error"
	}
	body := fmt.Sprintf("%d trained, %d failed", s.Done, s.Failed)
	fields := []Field{
		{Name: "Trained", Value: fmt.Sprintf("%d", s.Done), Short: true},
		{Name: "Failed", Value: fmt.Sprintf("%d", s.Failed), Short: true},
	}
	if s.Done > 0 {
		fields = append(fields, Field{
			Name:  "Avg duration",
			Value: fmt.Sprintf("%.0fs", s.AvgDurationSecs),
			Short: true,
		})
	}
	return Event{
		Title:    "Training digest — " + at.Format("2006-01-02"),
		Body:     body,
		Severity: severity,
		Color:    color,
		Fields:   fields,
	}
}
