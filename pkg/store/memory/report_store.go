package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storepulse/internal/model"
)

// ReportStore in-memory report snapshots
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]*model.Report
}

// NewReportStore creates an empty report store
func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[string]*model.Report)}
}

// Create stores a new report
func (s *ReportStore) Create(ctx context.Context, report *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ReportID]; exists {
		return fmt.Errorf("report %s already exists", report.ReportID)
	}
	s.reports[report.ReportID] = report.Clone()
	return nil
}

// Get returns a copy of the report
func (s *ReportStore) Get(ctx context.Context, reportID string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[reportID]
	if !ok {
		return nil, model.ErrReportNotFound
	}
	return r.Clone(), nil
}

// Transition CAS status change under the store lock
func (s *ReportStore) Transition(ctx context.Context, reportID string, from, to model.ReportStatus, at time.Time, apply func(*model.Report)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[reportID]
	if !ok {
		return model.ErrReportNotFound
	}
	next := r.Clone()
	if err := next.ApplyTransition(from, to, at, apply); err != nil {
		return err
	}
	s.reports[reportID] = next
	return nil
}

// ListFinishedBefore terminal reports finished before cutoff, oldest first
func (s *ReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Report
	for _, r := range s.reports {
		if finished, ok := r.FinishedAt(); ok && finished.Before(cutoff) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(*out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a report
func (s *ReportStore) Delete(ctx context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reports, reportID)
	return nil
}
