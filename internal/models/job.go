// Package models defines the shared data types for Timbre.
package models

import "time"

// Job status constants. DONE and ERROR are terminal.
const (
	StatusTraining = "TRAINING"
	StatusDone     = "DONE"
	StatusError    = "ERROR"
)

// Job is one accepted voice-training request and its pipeline state.
// The registry holds the authoritative copy; workers mutate it through
// registry.Update so status and progress always change together.
type Job struct {
	ID               string    `json:"jobId"`
	Status           string    `json:"status"`
	Progress         int       `json:"progress"`
	Message          string    `json:"message"`
	VoiceFileID      string    `json:"voiceFileId"`
	UserID           string    `json:"userId,omitempty"`
	WalletAddress    string    `json:"walletAddress,omitempty"`
	OriginalFilename string    `json:"originalFilename,omitempty"`
	StartedAt        time.Time `json:"startedAt"`

	// Populated only on DONE.
	ModelPath               string `json:"modelPath,omitempty"`
	PreviewURL              string `json:"previewUrl,omitempty"`
	TrainingDurationSeconds int    `json:"trainingDurationSeconds,omitempty"`

	// Populated only on ERROR.
	ErrorDetail string `json:"errorDetail,omitempty"`
}

// IsTerminal reports whether the job reached a final state.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusDone || j.Status == StatusError
}

// JobSummary is the listing projection served by GET /train/jobs.
type JobSummary struct {
	ID          string    `json:"jobId"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	VoiceFileID string    `json:"voiceFileId"`
	StartedAt   time.Time `json:"startedAt"`
}

// Summary returns the listing projection for the job.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		ID:          j.ID,
		Status:      j.Status,
		Progress:    j.Progress,
		VoiceFileID: j.VoiceFileID,
		StartedAt:   j.StartedAt,
	}
}
