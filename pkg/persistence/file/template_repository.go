package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
)

// TemplateRepository stores workflow templates as JSON documents under
// <root>/templates.
type TemplateRepository struct {
	root string
	mu   *sync.RWMutex
}

func (r *TemplateRepository) dir() string {
	return filepath.Join(r.root, "templates")
}

func (r *TemplateRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *TemplateRepository) Save(_ context.Context, template *models.WorkflowTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(r.path(template.ID), template)
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.getLocked(id)
}

func (r *TemplateRepository) getLocked(id string) (*models.WorkflowTemplate, error) {
	var template models.WorkflowTemplate

	found, err := readJSON(r.path(id), &template)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrTemplateNotFound
	}

	return &template, nil
}

func (r *TemplateRepository) all() ([]*models.WorkflowTemplate, error) {
	paths, err := listJSONFiles(r.dir())
	if err != nil {
		return nil, err
	}

	templates := make([]*models.WorkflowTemplate, 0, len(paths))

	for _, path := range paths {
		var template models.WorkflowTemplate

		found, err := readJSON(path, &template)
		if err != nil {
			return nil, err
		}

		if found {
			templates = append(templates, &template)
		}
	}

	return templates, nil
}

func (r *TemplateRepository) List(_ context.Context, opts persistence.ListTemplatesOptions) (*persistence.ListTemplatesResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	templates, err := r.all()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowTemplate, 0, len(templates))

	for _, template := range templates {
		if opts.Category != "" && template.Category != opts.Category {
			continue
		}

		if opts.TriggerType != nil && template.TriggerType != *opts.TriggerType {
			continue
		}

		if opts.IsActive != nil && template.IsActive != *opts.IsActive {
			continue
		}

		filtered = append(filtered, template)
	}

	// Popular templates first; name as a stable tie-breaker.
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].UsageCount != filtered[j].UsageCount {
			return filtered[i].UsageCount > filtered[j].UsageCount
		}

		return filtered[i].Name < filtered[j].Name
	})

	total := int64(len(filtered))

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	offset := opts.Offset
	if offset > len(filtered) {
		offset = len(filtered)
	}

	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return &persistence.ListTemplatesResult{
		Templates:   filtered[offset:end],
		TotalCount:  total,
		HasNextPage: int64(end) < total,
	}, nil
}

func (r *TemplateRepository) ListActiveByTriggerType(_ context.Context, triggerType models.TriggerType) ([]*models.WorkflowTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	templates, err := r.all()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowTemplate, 0, len(templates))

	for _, template := range templates {
		if template.IsActive && template.TriggerType == triggerType {
			matched = append(matched, template)
		}
	}

	return matched, nil
}

func (r *TemplateRepository) IncrementUsageCount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	template, err := r.getLocked(id)
	if err != nil {
		return err
	}

	template.UsageCount++

	return writeJSON(r.path(id), template)
}

func (r *TemplateRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(id))
	if os.IsNotExist(err) {
		return persistence.ErrTemplateNotFound
	}

	return err
}
