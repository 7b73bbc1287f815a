package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"sasu-tax/internal/errors"
)

// unassignedDir holds calculations without a company
const unassignedDir = "_unassigned"

// FileStore keeps one JSON document per calculation, grouped by company directory
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		return nil, errors.New(errors.TypeConfig, "storage directory is required for the file backend")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Storage("failed to create storage directory", err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) companyDir(companyID string) string {
	if companyID == "" {
		return filepath.Join(s.basePath, unassignedDir)
	}
	return filepath.Join(s.basePath, filepath.Base(filepath.Clean("/"+companyID)))
}

func (s *FileStore) Save(ctx context.Context, calc *StoredCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if calc.ID == "" {
		calc.ID = uuid.New().String()
	} else if _, err := uuid.Parse(calc.ID); err != nil {
		return errors.InvalidInput("calculation ID must be a UUID, got %q", calc.ID)
	}
	if calc.CreatedAt.IsZero() {
		calc.CreatedAt = time.Now().UTC()
	}
	if calc.UpdatedAt.IsZero() {
		calc.UpdatedAt = calc.CreatedAt
	}

	return s.write(calc)
}

// write stores the document in its company directory; callers hold the write lock
func (s *FileStore) write(calc *StoredCalculation) error {
	dir := s.companyDir(calc.CompanyID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Storage("failed to create company directory", err)
	}

	data, err := json.MarshalIndent(calc, "", "  ")
	if err != nil {
		return errors.Storage("failed to marshal calculation", err)
	}

	if err := os.WriteFile(filepath.Join(dir, calc.ID+".json"), data, 0644); err != nil {
		return errors.Storage("failed to write calculation", err)
	}
	return nil
}

// find locates a calculation file across company directories
func (s *FileStore) find(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", notFound(id)
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return "", errors.Storage("failed to read storage", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(s.basePath, entry.Name(), id+".json")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", notFound(id)
}

func readCalculation(path string) (*StoredCalculation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Storage("failed to read calculation", err)
	}
	var calc StoredCalculation
	if err := json.Unmarshal(data, &calc); err != nil {
		return nil, errors.Storage("failed to unmarshal calculation", err)
	}
	return &calc, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*StoredCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return readCalculation(path)
}

func (s *FileStore) List(ctx context.Context, filter *ListFilter) ([]*StoredCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root := s.basePath
	if filter != nil && filter.CompanyID != "" {
		root = s.companyDir(filter.CompanyID)
		if _, err := os.Stat(root); os.IsNotExist(err) {
			return []*StoredCalculation{}, nil
		}
	}

	var results []*StoredCalculation
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		calc, err := readCalculation(path)
		if err != nil {
			// Skip unreadable documents rather than failing the whole listing
			return nil
		}
		if filter.matches(calc) {
			results = append(results, calc)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage("failed to list calculations", err)
	}

	return sortAndPage(results, filter), nil
}

func (s *FileStore) Update(ctx context.Context, id string, update *CalculationUpdate) (*StoredCalculation, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.find(id)
	if err != nil {
		return nil, err
	}
	calc, err := readCalculation(path)
	if err != nil {
		return nil, err
	}

	update.apply(calc, time.Now().UTC())
	if err := s.write(calc); err != nil {
		return nil, err
	}
	return calc, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.find(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return errors.Storage("failed to delete calculation", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
