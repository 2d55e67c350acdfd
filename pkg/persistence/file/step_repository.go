package file

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
)

// StepRepository stores execution steps as JSON documents under
// <root>/steps/<executionID>. Step files are prefixed with their creation
// index so a directory listing preserves template order.
type StepRepository struct {
	root string
	mu   *sync.RWMutex
}

func (r *StepRepository) dir(executionID string) string {
	return filepath.Join(r.root, "steps", executionID)
}

func (r *StepRepository) path(step *models.ExecutionStep) string {
	return filepath.Join(r.dir(step.ExecutionID), step.ID+".json")
}

func (r *StepRepository) CreateBatch(_ context.Context, steps []*models.ExecutionStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, step := range steps {
		err := writeJSON(r.path(step), step)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *StepRepository) ListByExecution(_ context.Context, executionID string) ([]*models.ExecutionStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listLocked(executionID)
}

func (r *StepRepository) listLocked(executionID string) ([]*models.ExecutionStep, error) {
	paths, err := listJSONFiles(r.dir(executionID))
	if err != nil {
		return nil, err
	}

	steps := make([]*models.ExecutionStep, 0, len(paths))

	for _, path := range paths {
		var step models.ExecutionStep

		found, err := readJSON(path, &step)
		if err != nil {
			return nil, err
		}

		if found {
			steps = append(steps, &step)
		}
	}

	// Step ids are created with an ordinal prefix, so lexical order is
	// template order.
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].ID < steps[j].ID
	})

	return steps, nil
}

func (r *StepRepository) UpdateStatus(_ context.Context, step *models.ExecutionStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(r.path(step), step)
}

func (r *StepRepository) MarkPendingSkipped(_ context.Context, executionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps, err := r.listLocked(executionID)
	if err != nil {
		return 0, err
	}

	var skipped int64

	for _, step := range steps {
		if step.Status != models.StepStatusPending {
			continue
		}

		step.Status = models.StepStatusSkipped

		err = writeJSON(r.path(step), step)
		if err != nil {
			return skipped, err
		}

		skipped++
	}

	return skipped, nil
}

var _ persistence.StepRepository = (*StepRepository)(nil)
