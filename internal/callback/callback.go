// Package callback delivers job-outcome notifications to the requesting
// backend. Delivery is fire-and-forget: one signed POST per terminal job,
// failures logged and swallowed. The job's own terminal state in the
// registry stays authoritative regardless of delivery.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/audionhq/timbre/internal/models"
)

// AuthHeader carries the shared secret on outbound callbacks, mirroring
// the header required on inbound requests.
const AuthHeader = "X-Auth"

// DefaultTimeout bounds a callback POST when none is configured.
const DefaultTimeout = 10 * time.Second

// DonePayload is the success callback body.
type DonePayload struct {
	ModelID                 string `json:"modelId"`
	Status                  string `json:"status"`
	ModelPath               string `json:"modelPath"`
	PreviewURL              string `json:"previewUrl"`
	TrainingDurationSeconds int    `json:"trainingDurationSeconds"`
	JobID                   string `json:"jobId"`
	ServerVersion           string `json:"aiServerVersion"`
}

// FailedPayload is the failure callback body.
type FailedPayload struct {
	ModelID      string `json:"modelId"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
	JobID        string `json:"jobId"`
}

// Dispatcher posts outcome callbacks to a single configured endpoint.
// A Dispatcher with an empty URL is a no-op.
type Dispatcher struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Version string

	// Client overrides the HTTP client, for tests.
	Client *http.Client
}

// JobDone reports a successful job.
func (d *Dispatcher) JobDone(ctx context.Context, job *models.Job) {
	d.post(ctx, job.ID, DonePayload{
		ModelID:                 job.VoiceFileID,
		Status:                  models.StatusDone,
		ModelPath:               job.ModelPath,
		PreviewURL:              job.PreviewURL,
		TrainingDurationSeconds: job.TrainingDurationSeconds,
		JobID:                   job.ID,
		ServerVersion:           d.Version,
	})
}

// JobFailed reports a failed job.
func (d *Dispatcher) JobFailed(ctx context.Context, job *models.Job) {
	d.post(ctx, job.ID, FailedPayload{
		ModelID:      job.VoiceFileID,
		Status:       models.StatusError,
		ErrorMessage: job.ErrorDetail,
		JobID:        job.ID,
	})
}

func (d *Dispatcher) post(ctx context.Context, jobID string, payload any) {
	if d.URL == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("callback: job %s: marshal payload: %v", jobID, err)
		return
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		log.Printf("callback: job %s: build request: %v", jobID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AuthHeader, d.Secret)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("callback: job %s: %v", jobID, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("callback: job %s: endpoint returned %s", jobID, resp.Status)
		return
	}
	log.Printf("callback: job %s: delivered (%s)", jobID, statusLabel(payload))
}

func statusLabel(payload any) string {
	switch p := payload.(type) {
	case DonePayload:
		return p.Status
	case FailedPayload:
		return p.Status
	default:
		return fmt.Sprintf("%T", payload)
	}
}
