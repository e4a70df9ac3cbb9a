// Package store keeps analysis results as JSON snapshots on disk so reports
// can be regenerated without re-running the comparison.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kamilpajak/redline/pkg/models"
)

// ErrNotFound is returned when no snapshot exists for an ID.
var ErrNotFound = errors.New("analysis not found")

const snapshotExt = ".json"

// Store is a directory of <id>.json snapshots. It is safe for concurrent use.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// New opens dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid analysis id %q", id)
	}
	return filepath.Join(s.dir, id+snapshotExt), nil
}

// Save writes a snapshot, replacing any previous one with the same ID.
func (s *Store) Save(_ context.Context, r *models.AnalysisResult) error {
	p, err := s.path(r.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Get loads a snapshot. Risk level and counts are re-derived from the changes.
func (s *Store) Get(_ context.Context, id string) (*models.AnalysisResult, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	data, err := os.ReadFile(p)
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var r models.AnalysisResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", id, err)
	}
	return &r, nil
}

// ListParams filter and page List.
type ListParams struct {
	Limit  int
	Offset int
	Risk   *models.RiskLevel
}

// List returns snapshots ordered by creation time, newest first. Unreadable
// snapshots are skipped.
func (s *Store) List(ctx context.Context, params ListParams) ([]*models.AnalysisResult, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}

	s.mu.RLock()
	entries, err := os.ReadDir(s.dir)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	var results []*models.AnalysisResult
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		r, err := s.Get(ctx, strings.TrimSuffix(name, snapshotExt))
		if err != nil {
			continue
		}
		if params.Risk != nil && r.OverallRiskLevel != *params.Risk {
			continue
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if params.Offset >= len(results) {
		return nil, nil
	}
	results = results[params.Offset:]
	if len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

// Delete removes a snapshot.
func (s *Store) Delete(_ context.Context, id string) error {
	p, err := s.path(id)
	if err != nil {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
