// Package registry implements the in-memory job store.
//
// The registry is the only mutable state shared between the HTTP layer and
// the per-job worker goroutines. Every method copies job values across the
// lock boundary, so callers never observe a partially written record.
package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/audionhq/timbre/internal/models"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	ErrNotFound = errors.New("registry: job not found")
	ErrInFlight = errors.New("registry: job is still training")
)

// Registry is a concurrency-safe map of job ID to job record.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{jobs: make(map[string]*models.Job)}
}

// NewJobID generates a fresh job identifier in job_xxxxxxxxxxxx format
// (12 hex chars of a random UUID).
func NewJobID() string {
	id := uuid.New()
	return "job_" + hex.EncodeToString(id[:6])
}

// Create inserts a new job record. The job is visible to readers the
// moment Create returns.
func (r *Registry) Create(job models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("registry: create: job ID is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("registry: create: duplicate job ID %s", job.ID)
	}
	j := job
	r.jobs[job.ID] = &j
	return nil
}

// Get returns a copy of the job record.
func (r *Registry) Get(id string) (models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return *j, nil
}

// Update applies mutate to the job under the write lock. Status, progress,
// and message changes made by a single mutate call are observed together
// or not at all.
func (r *Registry) Update(id string, mutate func(*models.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	mutate(j)
	return nil
}

// List returns copies of all job records in map iteration order.
func (r *Registry) List() []models.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, *j)
	}
	return out
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Delete removes a terminal job. Deleting a job that is still training
// fails with ErrInFlight.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !j.IsTerminal() {
		return ErrInFlight
	}
	delete(r.jobs, id)
	return nil
}
