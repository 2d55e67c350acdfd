// Package file provides file-based persistence for local development and
// tests. Each entity is one JSON document under the root directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vetsuite/vetflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root          string
	templateRepo  *TemplateRepository
	executionRepo *ExecutionRepository
	stepRepo      *StepRepository
	webhookRepo   *WebhookRepository
}

// NewPersistence creates a file persistence rooted at root. A "file://"
// prefix is stripped for compatibility with database-url style flags.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	lock := &sync.RWMutex{}

	return &Persistence{
		root:          cleanRoot,
		templateRepo:  &TemplateRepository{root: cleanRoot, mu: lock},
		executionRepo: &ExecutionRepository{root: cleanRoot, mu: lock},
		stepRepo:      &StepRepository{root: cleanRoot, mu: lock},
		webhookRepo:   &WebhookRepository{root: cleanRoot, mu: lock},
	}
}

func (fp *Persistence) TemplateRepository() persistence.TemplateRepository {
	return fp.templateRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) StepRepository() persistence.StepRepository {
	return fp.stepRepo
}

func (fp *Persistence) WebhookRepository() persistence.WebhookRepository {
	return fp.webhookRepo
}

func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// writeJSON marshals v to path, creating parent directories as needed.
func writeJSON(path string, v any) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return true, nil
}

func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	return paths, nil
}
