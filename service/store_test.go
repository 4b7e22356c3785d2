package service

import (
	"testing"
	"time"

	"github.com/AnTengye/brdlayout/model"
)

func TestJobStoreSaveAndGet(t *testing.T) {
	store := NewJobStore(100)

	store.Save(&model.Job{
		ID:        "job-1",
		Filename:  "brd.pdf",
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	})

	retrieved := store.Get("job-1")
	if retrieved == nil {
		t.Fatal("Expected to retrieve job")
	}
	if retrieved.Filename != "brd.pdf" {
		t.Errorf("Expected filename brd.pdf, got %s", retrieved.Filename)
	}
	if retrieved.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set on save")
	}

	if store.Get("non-existent") != nil {
		t.Error("Expected nil for non-existent job")
	}
}

func TestJobStoreGetReturnsCopy(t *testing.T) {
	store := NewJobStore(0)
	store.Save(&model.Job{ID: "job-1", CreatedAt: time.Now()})
	store.SetLayouts("job-1", []model.Layout{{Index: 1, Segment: "A"}})

	snapshot := store.Get("job-1")
	snapshot.Layouts[0].Segment = "mutated"
	snapshot.Status = model.StatusFailed

	fresh := store.Get("job-1")
	if fresh.Layouts[0].Segment != "A" {
		t.Errorf("Expected stored layout untouched, got %q", fresh.Layouts[0].Segment)
	}
	if fresh.Status == model.StatusFailed {
		t.Error("Expected stored status untouched")
	}
}

func TestJobStoreListNewestFirst(t *testing.T) {
	store := NewJobStore(0)
	base := time.Now()
	store.Save(&model.Job{ID: "old", CreatedAt: base.Add(-time.Hour)})
	store.Save(&model.Job{ID: "new", CreatedAt: base})
	store.Save(&model.Job{ID: "mid", CreatedAt: base.Add(-time.Minute)})

	jobs := store.List()
	if len(jobs) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "new" || jobs[1].ID != "mid" || jobs[2].ID != "old" {
		t.Errorf("Unexpected order %s %s %s", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}
}

func TestJobStoreDelete(t *testing.T) {
	store := NewJobStore(0)
	store.Save(&model.Job{ID: "delete-me", CreatedAt: time.Now()})
	if !store.Has("delete-me") {
		t.Fatal("Expected saved job to be registered")
	}

	store.Delete("delete-me")
	if store.Has("delete-me") || store.Get("delete-me") != nil {
		t.Error("Expected job to be deleted")
	}

	// deleting twice is a no-op
	store.Delete("delete-me")
}

func TestJobStoreUpdateStatus(t *testing.T) {
	store := NewJobStore(0)
	store.Save(&model.Job{ID: "job-1", Status: model.StatusPending, CreatedAt: time.Now()})

	store.UpdateStatus("job-1", model.StatusFailed, "decode error")
	job := store.Get("job-1")
	if job.Status != model.StatusFailed || job.ErrorMsg != "decode error" {
		t.Errorf("Unexpected job state %+v", job)
	}

	// unknown IDs are ignored
	store.UpdateStatus("missing", model.StatusCompleted, "")
}

func TestJobStoreUpdateLayout(t *testing.T) {
	store := NewJobStore(0)
	store.Save(&model.Job{ID: "job-1", CreatedAt: time.Now()})
	store.SetLayouts("job-1", []model.Layout{{Index: 1}, {Index: 2}})

	store.UpdateLayout("job-1", model.Layout{Index: 2, Prompt: "ops dashboard"})
	store.UpdateLayout("job-1", model.Layout{Index: 5, Prompt: "out of range"})

	job := store.Get("job-1")
	if job.Layouts[1].Prompt != "ops dashboard" {
		t.Errorf("Expected layout 2 updated, got %+v", job.Layouts[1])
	}
	if len(job.Layouts) != 2 {
		t.Errorf("Expected 2 layouts, got %d", len(job.Layouts))
	}
}

func TestJobStoreEviction(t *testing.T) {
	store := NewJobStore(2)
	base := time.Now()

	store.Save(&model.Job{ID: "1", CreatedAt: base.Add(-3 * time.Minute)})
	store.Save(&model.Job{ID: "2", CreatedAt: base.Add(-2 * time.Minute)})
	store.Save(&model.Job{ID: "3", CreatedAt: base.Add(-1 * time.Minute)})

	if store.Count() != 2 {
		t.Errorf("Expected 2 jobs after eviction, got %d", store.Count())
	}
	if store.Get("1") != nil {
		t.Error("Expected oldest job to be evicted")
	}
	if store.Get("3") == nil {
		t.Error("Expected newest job to be kept")
	}
}

func TestJobStoreEvictHandler(t *testing.T) {
	store := NewJobStore(1)
	base := time.Now()

	var evicted []string
	store.SetEvictHandler(func(id string) {
		// Runs outside the lock, so reading the store must not deadlock.
		if store.Has(id) {
			t.Errorf("Evicted job %s still registered", id)
		}
		evicted = append(evicted, id)
	})

	store.Save(&model.Job{ID: "old", CreatedAt: base.Add(-time.Minute)})
	if len(evicted) != 0 {
		t.Fatalf("Nothing should be evicted yet, got %v", evicted)
	}

	store.Save(&model.Job{ID: "new", CreatedAt: base})
	if len(evicted) != 1 || evicted[0] != "old" {
		t.Errorf("Expected old to be evicted, got %v", evicted)
	}
}

func TestJobStoreUnlimited(t *testing.T) {
	store := NewJobStore(-1)
	for i := 0; i < 50; i++ {
		store.Save(&model.Job{ID: string(rune('a' + i)), CreatedAt: time.Now()})
	}
	if store.Count() != 50 {
		t.Errorf("Expected 50 jobs, got %d", store.Count())
	}
}
