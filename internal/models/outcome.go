package models

import "time"

// Outcome is the archived record of a terminal job. Rows are written once
// when a job finishes and are never read back into the live registry; they
// exist for audit queries and activity digests.
type Outcome struct {
	ID                      uint      `gorm:"primaryKey;autoIncrement"`
	JobID                   string    `gorm:"size:32;index;not null"`
	VoiceFileID             string    `gorm:"size:64;index"`
	Status                  string    `gorm:"size:16;index"`
	ModelPath               string    `gorm:"size:255"`
	PreviewURL              string    `gorm:"size:255"`
	TrainingDurationSeconds int
	ErrorDetail             string    `gorm:"type:text"`
	StartedAt               time.Time
	FinishedAt              time.Time `gorm:"index"`
}

// OutcomeFromJob builds the archive row for a terminal job.
func OutcomeFromJob(j *Job, finished time.Time) Outcome {
	return Outcome{
		JobID:                   j.ID,
		VoiceFileID:             j.VoiceFileID,
		Status:                  j.Status,
		ModelPath:               j.ModelPath,
		PreviewURL:              j.PreviewURL,
		TrainingDurationSeconds: j.TrainingDurationSeconds,
		ErrorDetail:             j.ErrorDetail,
		StartedAt:               j.StartedAt,
		FinishedAt:              finished,
	}
}
