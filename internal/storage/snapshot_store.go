package storage

import (
	"sync"
	"time"

	"github.com/Makoshaa/kia/internal/models"
)

// SnapshotStore keeps the latest lead snapshot per dashboard in memory.
// Every refresh first takes a generation with Begin; only the newest
// generation may Apply or Fail, so a slow older refresh can never overwrite
// a newer result.
type SnapshotStore struct {
	mu      sync.RWMutex
	entries map[string]*snapshotEntry
	// generations are unique across dashboards, so a dropped and re-added
	// dashboard never reuses one
	next uint64
}

type snapshotEntry struct {
	begun    uint64
	snapshot models.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		entries: make(map[string]*snapshotEntry),
	}
}

func (s *SnapshotStore) entry(dashboardID string) *snapshotEntry {
	e, ok := s.entries[dashboardID]
	if !ok {
		e = &snapshotEntry{snapshot: models.Snapshot{DashboardID: dashboardID}}
		s.entries[dashboardID] = e
	}
	return e
}

// Begin reserves the next generation for dashboardID.
func (s *SnapshotStore) Begin(dashboardID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	e := s.entry(dashboardID)
	e.begun = s.next
	return e.begun
}

// Latest returns the most recently begun generation, 0 if none.
func (s *SnapshotStore) Latest(dashboardID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[dashboardID]; ok {
		return e.begun
	}
	return 0
}

// Apply replaces the snapshot when gen is still the latest begun generation.
// It reports whether the leads were stored.
func (s *SnapshotStore) Apply(dashboardID string, gen uint64, leads []models.Lead, report *models.DataQualityReport, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[dashboardID]
	if !ok || gen != e.begun {
		return false
	}

	stored := make([]models.Lead, len(leads))
	copy(stored, leads)
	e.snapshot = models.Snapshot{
		DashboardID: dashboardID,
		Generation:  gen,
		Leads:       stored,
		Report:      report,
		FetchedAt:   at,
	}
	return true
}

// Fail records err for the latest generation and keeps the previous leads.
func (s *SnapshotStore) Fail(dashboardID string, gen uint64, err error, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[dashboardID]
	if !ok || gen != e.begun || err == nil {
		return false
	}
	e.snapshot.LastError = err.Error()
	e.snapshot.ErrorAt = at
	return true
}

// Get returns a copy of the current snapshot. ok is false until a refresh
// has either applied leads or failed.
func (s *SnapshotStore) Get(dashboardID string) (models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[dashboardID]
	if !ok || (e.snapshot.Generation == 0 && e.snapshot.LastError == "") {
		return models.Snapshot{}, false
	}

	snapshot := e.snapshot
	snapshot.Leads = make([]models.Lead, len(e.snapshot.Leads))
	copy(snapshot.Leads, e.snapshot.Leads)
	return snapshot, true
}

// Drop forgets a dashboard. Refreshes still in flight for it are discarded.
func (s *SnapshotStore) Drop(dashboardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, dashboardID)
}

// IDs lists dashboards with a snapshot entry.
func (s *SnapshotStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}
