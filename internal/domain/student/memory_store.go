package student

import (
	"context"
	"sync"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
)

// TableUnavailable builds the error returned when a table cannot be read.
func TableUnavailable(table string, cause error) error {
	return shared.WrapError("student", "Load", shared.ErrTableUnavailable, table+" is unavailable", cause)
}

// MemoryStore is an in-memory Repository. It is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    []Profile
	marks       []MarksRecord
	enrollments []CourseEnrollment
	calendar    []CalendarEvent
	unavailable map[string]bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{unavailable: make(map[string]bool)}
}

// AddProfiles appends profile rows.
func (s *MemoryStore) AddProfiles(p ...Profile) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, p...)
	return s
}

// AddMarks appends mark rows.
func (s *MemoryStore) AddMarks(m ...MarksRecord) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = append(s.marks, m...)
	return s
}

// AddEnrollments appends enrollment rows.
func (s *MemoryStore) AddEnrollments(e ...CourseEnrollment) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollments = append(s.enrollments, e...)
	return s
}

// AddCalendar appends calendar rows.
func (s *MemoryStore) AddCalendar(e ...CalendarEvent) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendar = append(s.calendar, e...)
	return s
}

// SetUnavailable makes reads of a table fail as if its source were missing.
func (s *MemoryStore) SetUnavailable(table string, unavailable bool) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable[table] = unavailable
	return s
}

func (s *MemoryStore) GetProfile(ctx context.Context, reg RegistrationNumber) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable[TableProfiles] {
		return nil, TableUnavailable(TableProfiles, nil)
	}
	for _, p := range s.profiles {
		if p.RegistrationNumber == reg {
			found := p
			return &found, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (s *MemoryStore) ListMarks(ctx context.Context, reg RegistrationNumber) ([]MarksRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable[TableMarks] {
		return nil, TableUnavailable(TableMarks, nil)
	}
	return FilterMarks(reg, s.marks), nil
}

func (s *MemoryStore) ListEnrollments(ctx context.Context, reg RegistrationNumber) ([]CourseEnrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable[TableEnrollments] {
		return nil, TableUnavailable(TableEnrollments, nil)
	}
	out := make([]CourseEnrollment, 0)
	for _, e := range s.enrollments {
		if e.RegistrationNumber == reg {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListCalendar(ctx context.Context, limit int) ([]CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable[TableCalendar] {
		return nil, TableUnavailable(TableCalendar, nil)
	}
	n := len(s.calendar)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]CalendarEvent, n)
	copy(out, s.calendar[:n])
	return out, nil
}

func (s *MemoryStore) Tables(ctx context.Context) ([]Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := []Table{
		ProfilesTable(s.profiles),
		CalendarTable(s.calendar),
		MarksTable(s.marks),
		EnrollmentsTable(s.enrollments),
	}
	out := make([]Table, 0, len(all))
	for _, t := range all {
		if !s.unavailable[t.Name] {
			out = append(out, t)
		}
	}
	return out, nil
}

var _ Repository = (*MemoryStore)(nil)
