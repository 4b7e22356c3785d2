package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AnTengye/brdlayout/model"
)

// JobStore is an in-memory registry of pipeline jobs. Nothing survives a restart.
type JobStore struct {
	jobs    map[string]*model.Job
	mu      sync.RWMutex
	maxJobs int // Maximum jobs to keep, 0 = unlimited
	onEvict func(id string)
}

func NewJobStore(maxJobs int) *JobStore {
	if maxJobs < 0 {
		maxJobs = 0
	}
	slog.Info("job store initialized", "max_jobs", maxJobs)
	return &JobStore{
		jobs:    make(map[string]*model.Job),
		maxJobs: maxJobs,
	}
}

// SetEvictHandler registers fn to run, outside the store lock, for every job
// dropped to stay within maxJobs. Call it before the store is shared.
func (s *JobStore) SetEvictHandler(fn func(id string)) {
	s.onEvict = fn
}

func (s *JobStore) Save(job *model.Job) {
	s.mu.Lock()
	job.UpdatedAt = time.Now()
	s.jobs[job.ID] = job
	evicted := s.evictIfNeeded()
	s.mu.Unlock()

	if s.onEvict != nil {
		for _, id := range evicted {
			s.onEvict(id)
		}
	}
}

// Get returns a copy of the job so callers can read it while the pipeline keeps writing.
func (s *JobStore) Get(id string) *model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	return cloneJob(job)
}

// Has reports whether the job is still registered.
func (s *JobStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.jobs[id]
	return ok
}

// List returns copies of all jobs, newest first.
func (s *JobStore) List() []*model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, cloneJob(j))
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})
	return result
}

func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *JobStore) UpdateStatus(id, status string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = status
		j.ErrorMsg = errMsg
		j.UpdatedAt = time.Now()
	}
}

// SetLayouts replaces the job's layouts with placeholders for each segment.
func (s *JobStore) SetLayouts(id string, layouts []model.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Layouts = append([]model.Layout(nil), layouts...)
		j.UpdatedAt = time.Now()
	}
}

// UpdateLayout stores the processed layout at its 1-based index.
func (s *JobStore) UpdateLayout(id string, layout model.Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return
	}
	if i := layout.Index - 1; i >= 0 && i < len(j.Layouts) {
		j.Layouts[i] = layout
		j.UpdatedAt = time.Now()
	}
}

// Count returns the number of jobs in the store
func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// evictIfNeeded drops the oldest jobs beyond maxJobs and returns their IDs.
// Must be called with lock held
func (s *JobStore) evictIfNeeded() []string {
	if s.maxJobs <= 0 || len(s.jobs) <= s.maxJobs {
		return nil
	}

	jobs := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})

	var evicted []string
	for _, j := range jobs[:len(jobs)-s.maxJobs] {
		slog.Info("evicting old job", "job_id", j.ID, "created_at", j.CreatedAt)
		delete(s.jobs, j.ID)
		evicted = append(evicted, j.ID)
	}
	return evicted
}

func cloneJob(j *model.Job) *model.Job {
	c := *j
	c.Layouts = append([]model.Layout(nil), j.Layouts...)
	return &c
}
