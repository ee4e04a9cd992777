package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Implementations live in infrastructure/persistence. Every call reflects the
// current contents of the backing source; nothing is cached between calls.
// ══════════════════════════════════════════════════════════════════════════════

// Repository is the read-only data access contract for academic records.
type Repository interface {
	// GetProfile returns the profile row of a student.
	// Returns shared.ErrStudentNotFound when no row matches and an error
	// wrapping shared.ErrTableUnavailable when the table cannot be read.
	GetProfile(ctx context.Context, reg RegistrationNumber) (*Profile, error)

	// ListMarks returns all mark rows of a student in table order.
	ListMarks(ctx context.Context, reg RegistrationNumber) ([]MarksRecord, error)

	// ListEnrollments returns all enrollment rows of a student in table order.
	ListEnrollments(ctx context.Context, reg RegistrationNumber) ([]CourseEnrollment, error)

	// ListCalendar returns the first limit calendar rows as stored.
	// A limit <= 0 returns every row.
	ListCalendar(ctx context.Context, limit int) ([]CalendarEvent, error)

	// Tables returns every table that could be loaded, header and rows included.
	// Credential columns are never part of the result.
	// Unreadable tables are skipped.
	Tables(ctx context.Context) ([]Table, error)
}
