// Package trainer runs the voice-training pipeline, one goroutine per job.
//
// The trainer is the single writer for each job's registry record. Stages
// run in a fixed order; the first stage error aborts the rest and produces
// the job's one terminal ERROR write. Outcome delivery (callback, archive,
// chat announcements) happens after the terminal write and can never undo
// it.
package trainer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/audionhq/timbre/internal/announce"
	"github.com/audionhq/timbre/internal/archive"
	"github.com/audionhq/timbre/internal/callback"
	"github.com/audionhq/timbre/internal/models"
	"github.com/audionhq/timbre/internal/registry"
	"github.com/audionhq/timbre/internal/voice"
)

// Fetcher retrieves source audio into a working directory. Failed URLs are
// skipped, never fatal; the trainer fails the job when nothing arrives.
type Fetcher interface {
	Fetch(ctx context.Context, urls []string, dir string) ([]string, error)
}

// Normalizer converts sources to the canonical clip format, dropping
// unusable or too-short clips.
type Normalizer interface {
	Normalize(ctx context.Context, inputs []string, dir string) ([]string, error)
}

// Encoder computes one speaker embedding per clip. Errors only when no
// clip yields an embedding.
type Encoder interface {
	Embeddings(ctx context.Context, inputs []string, workDir string) ([]voice.Embedding, error)
}

// Synthesizer renders preview audio from a reference clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, refWav, outWav, text, language string) error
}

// Publisher uploads artifacts to object storage and resolves public URLs.
type Publisher interface {
	Upload(ctx context.Context, localPath, bucket, key string, public bool) (string, error)
	PublicURL(bucket, key string) string
}

// Request carries the acceptance fields for one training job.
type Request struct {
	VoiceFileID      string
	VoiceFileURL     string
	UserID           string
	WalletAddress    string
	OriginalFilename string
	Duration         float64
}

// Trainer executes training pipelines against a shared registry.
type Trainer struct {
	Registry    *registry.Registry
	Fetcher     Fetcher
	Normalizer  Normalizer
	Encoder     Encoder
	Synthesizer Synthesizer
	Publisher   Publisher

	Callback  *callback.Dispatcher
	Announcer *announce.Announcer
	Archive   *archive.Archive

	DataDir       string
	ModelsBucket  string
	PreviewBucket string
	PreviewText   string
	PreviewLang   string
	ModelVersion  string
	EncoderTag    string

	// Spawn launches the per-job task. Defaults to `go fn()`; it is the
	// one seam where admission control could be inserted.
	Spawn func(fn func())
}

// Accept registers a new job and starts its pipeline. It returns as soon
// as the record is visible in the registry.
func (t *Trainer) Accept(req Request) (models.Job, error) {
	job := models.Job{
		ID:               registry.NewJobID(),
		Status:           models.StatusTraining,
		Progress:         0,
		Message:          "initializing training",
		VoiceFileID:      req.VoiceFileID,
		UserID:           req.UserID,
		WalletAddress:    req.WalletAddress,
		OriginalFilename: req.OriginalFilename,
		StartedAt:        time.Now(),
	}
	if err := t.Registry.Create(job); err != nil {
		return models.Job{}, err
	}

	spawn := t.Spawn
	if spawn == nil {
		spawn = func(fn func()) { go fn() }
	}
	spawn(func() {
		t.Run(context.Background(), job.ID, req)
	})

	log.Printf("trainer: started job %s for voice file %s", job.ID, req.VoiceFileID)
	return job, nil
}

// dirs holds the per-job working directories, owned exclusively by the
// job's goroutine.
type dirs struct {
	raw, prep, out, model string
}

func (t *Trainer) jobDirs(voiceFileID string) (dirs, error) {
	d := dirs{
		raw:   filepath.Join(t.DataDir, "raw", voiceFileID),
		prep:  filepath.Join(t.DataDir, "prep", voiceFileID),
		out:   filepath.Join(t.DataDir, "out", voiceFileID),
		model: filepath.Join(t.DataDir, "models", voiceFileID),
	}
	for _, dir := range []string{d.raw, d.prep, d.out, d.model} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return dirs{}, fmt.Errorf("trainer: prepare %s: %w", dir, err)
		}
	}
	return d, nil
}

// Run executes the pipeline to a terminal state. It is exported for tests;
// production callers go through Accept.
func (t *Trainer) Run(ctx context.Context, jobID string, req Request) {
	start := time.Now()
	if j, err := t.Registry.Get(jobID); err == nil && !j.StartedAt.IsZero() {
		start = j.StartedAt
	}

	d, err := t.jobDirs(req.VoiceFileID)
	if err != nil {
		t.fail(ctx, jobID, err)
		return
	}

	t.progress(jobID, 5, "downloading audio file")
	sources, err := t.Fetcher.Fetch(ctx, []string{req.VoiceFileURL}, d.raw)
	if err == nil && len(sources) == 0 {
		err = fmt.Errorf("failed to download audio file")
	}
	if err != nil {
		t.fail(ctx, jobID, err)
		return
	}

	t.progress(jobID, 25, "preprocessing audio")
	clips, err := t.Normalizer.Normalize(ctx, sources, d.prep)
	if err == nil && len(clips) == 0 {
		err = fmt.Errorf("no usable audio after preprocessing")
	}
	if err != nil {
		t.fail(ctx, jobID, err)
		return
	}

	t.progress(jobID, 55, "extracting voice features")
	embs, err := t.Encoder.Embeddings(ctx, clips, d.out)
	if err != nil {
		t.fail(ctx, jobID, err)
		return
	}
	emb, err := voice.MeanUnit(embs)
	if err != nil {
		t.fail(ctx, jobID, err)
		return
	}

	t.progress(jobID, 65, "saving voice model")
	artifactPath, err := voice.WriteArtifact(emb, d.model, t.ModelVersion, t.EncoderTag)
	if err != nil {
		t.fail(ctx, jobID, err)
		return
	}

	t.progress(jobID, 80, "generating preview")
	previewPath := filepath.Join(d.out, "preview.wav")
	if err := t.Synthesizer.Synthesize(ctx, clips[0], previewPath, t.PreviewText, t.PreviewLang); err != nil {
		t.fail(ctx, jobID, err)
		return
	}

	t.progress(jobID, 92, "uploading to cloud")
	modelKey := fmt.Sprintf("models/%s/%s", req.VoiceFileID, voice.ArtifactName)
	modelRef, err := t.Publisher.Upload(ctx, artifactPath, t.ModelsBucket, modelKey, false)
	if err != nil {
		t.fail(ctx, jobID, err)
		return
	}
	previewKey := fmt.Sprintf("preview/%s/preview.wav", req.VoiceFileID)
	if _, err := t.Publisher.Upload(ctx, previewPath, t.PreviewBucket, previewKey, true); err != nil {
		t.fail(ctx, jobID, err)
		return
	}
	previewURL := t.Publisher.PublicURL(t.PreviewBucket, previewKey)

	duration := int(time.Since(start).Seconds())
	finished := time.Now()

	var done models.Job
	uerr := t.Registry.Update(jobID, func(j *models.Job) {
		j.Status = models.StatusDone
		j.Progress = 100
		j.Message = "training completed successfully"
		j.ModelPath = modelRef
		j.PreviewURL = previewURL
		j.TrainingDurationSeconds = duration
		done = *j
	})
	if uerr != nil {
		log.Printf("trainer: job %s: record completion: %v", jobID, uerr)
		return
	}

	t.deliver(ctx, &done, finished)
}

// progress records a stage checkpoint. Status stays TRAINING; progress and
// message change together under the registry lock.
func (t *Trainer) progress(jobID string, pct int, message string) {
	err := t.Registry.Update(jobID, func(j *models.Job) {
		j.Progress = pct
		j.Message = message
	})
	if err != nil {
		log.Printf("trainer: job %s: progress update: %v", jobID, err)
	}
}

// fail records the job's single terminal ERROR write and delivers the
// outcome.
func (t *Trainer) fail(ctx context.Context, jobID string, cause error) {
	msg := cause.Error()
	log.Printf("trainer: job %s: training failed: %s", jobID, msg)

	finished := time.Now()
	var failed models.Job
	err := t.Registry.Update(jobID, func(j *models.Job) {
		j.Status = models.StatusError
		j.Progress = 0
		j.Message = "Training failed: " + msg
		j.ErrorDetail = msg
		failed = *j
	})
	if err != nil {
		log.Printf("trainer: job %s: record failure: %v", jobID, err)
		return
	}

	t.deliver(ctx, &failed, finished)
}

// deliver fans the terminal outcome out to the callback endpoint, the
// archive, and chat announcements. All three are best-effort.
func (t *Trainer) deliver(ctx context.Context, job *models.Job, finished time.Time) {
	if t.Callback != nil {
		if job.Status == models.StatusDone {
			t.Callback.JobDone(ctx, job)
		} else {
			t.Callback.JobFailed(ctx, job)
		}
	}
	if t.Archive != nil {
		t.Archive.Record(job, finished)
	}
	if t.Announcer != nil {
		t.Announcer.JobFinished(ctx, job)
	}
}
