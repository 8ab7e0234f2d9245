package testutil

import (
	"context"
	"sync"

	"github.com/vanderheijden86/netcover/pkg/model"
	"github.com/vanderheijden86/netcover/pkg/run"
)

// MemStore is an in-memory run.Store for tests. It records every
// artifact handed to it and is safe for concurrent use.
type MemStore struct {
	mu sync.Mutex

	Runs        []run.Record
	Statuses    []run.Status
	Paths       []run.PathRecord
	Attempts    []AttemptRecord
	Covered     map[string][][2][]int64
	Summaries   []run.Summary
	CovSummary  []run.CoverageSummary
	Validations []model.ValidationError
	Reviews     []run.ReviewFlag

	nextPathID int64
	pathIDs    map[string]int64 // runID|hash -> id
}

// AttemptRecord is one SaveAttempt call.
type AttemptRecord struct {
	RunID  string
	Status run.AttemptStatus
	Note   string
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		Covered: make(map[string][][2][]int64),
		pathIDs: make(map[string]int64),
	}
}

// CreateRun implements run.Store.
func (m *MemStore) CreateRun(_ context.Context, rec run.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Runs = append(m.Runs, rec)
	return nil
}

// UpdateRunStatus implements run.Store.
func (m *MemStore) UpdateRunStatus(_ context.Context, _ string, status run.Status, _ float64, _, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses = append(m.Statuses, status)
	return nil
}

// SavePath implements run.Store with (run id, hash) idempotency.
func (m *MemStore) SavePath(_ context.Context, rec run.PathRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.RunID + "|" + rec.Hash.String()
	if id, ok := m.pathIDs[key]; ok {
		return id, nil
	}
	m.nextPathID++
	m.pathIDs[key] = m.nextPathID
	m.Paths = append(m.Paths, rec)
	return m.nextPathID, nil
}

// SaveAttempt implements run.Store.
func (m *MemStore) SaveAttempt(_ context.Context, runID string, status run.AttemptStatus, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, AttemptRecord{RunID: runID, Status: status, Note: note})
	return nil
}

// SaveCoveredElements implements run.Store.
func (m *MemStore) SaveCoveredElements(_ context.Context, runID string, nodeIDs, linkIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Covered[runID] = append(m.Covered[runID], [2][]int64{nodeIDs, linkIDs})
	return nil
}

// SaveCoverageSummary implements run.Store.
func (m *MemStore) SaveCoverageSummary(_ context.Context, sum run.CoverageSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CovSummary = append(m.CovSummary, sum)
	return nil
}

// SaveValidationErrors implements run.Store.
func (m *MemStore) SaveValidationErrors(_ context.Context, errs []model.ValidationError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Validations = append(m.Validations, errs...)
	return nil
}

// SaveReviewFlag implements run.Store.
func (m *MemStore) SaveReviewFlag(_ context.Context, flag run.ReviewFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reviews = append(m.Reviews, flag)
	return nil
}

// SaveSummary implements run.Store.
func (m *MemStore) SaveSummary(_ context.Context, sum run.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Summaries = append(m.Summaries, sum)
	return nil
}

// LastSummary returns the most recent run summary, or nil.
func (m *MemStore) LastSummary() *run.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Summaries) == 0 {
		return nil
	}
	return &m.Summaries[len(m.Summaries)-1]
}
