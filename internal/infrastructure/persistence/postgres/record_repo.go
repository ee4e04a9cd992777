package postgres

import (
	"context"
	"log/slog"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// RecordRepository implements student.Repository for PostgreSQL.
// Query failures surface as shared.ErrTableUnavailable for the table that
// failed, the same way a missing CSV file does.
type RecordRepository struct {
	conn   *Connection
	logger *slog.Logger
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(conn *Connection, logger *slog.Logger) *RecordRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordRepository{conn: conn, logger: logger}
}

func (r *RecordRepository) unavailable(table string, err error) error {
	r.logger.Warn("record table unavailable", "table", table, "error", err)
	return student.TableUnavailable(table, err)
}

// GetProfile returns the first profile row with the registration number.
func (r *RecordRepository) GetProfile(ctx context.Context, reg student.RegistrationNumber) (*student.Profile, error) {
	query := `
		SELECT registration_number, name, email, department, year, cgpa,
			   skills, projects, pin_hash
		FROM student_profiles
		WHERE registration_number = $1
		ORDER BY position
		LIMIT 1
	`

	var p student.Profile
	var regNo string
	err := r.conn.QueryRow(ctx, query, reg.String()).Scan(
		&regNo, &p.Name, &p.Email, &p.Department, &p.Year, &p.CGPA,
		&p.Skills, &p.Projects, &p.PINHash,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, r.unavailable(student.TableProfiles, err)
	}
	p.RegistrationNumber = student.RegistrationNumber(regNo)
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Projects == nil {
		p.Projects = []string{}
	}
	return &p, nil
}

// ListMarks returns the marks of a student in stored order.
func (r *RecordRepository) ListMarks(ctx context.Context, reg student.RegistrationNumber) ([]student.MarksRecord, error) {
	query := `
		SELECT semester, subject, marks
		FROM subject_marks
		WHERE registration_number = $1
		ORDER BY position
	`

	rows, err := r.conn.Query(ctx, query, reg.String())
	if err != nil {
		return nil, r.unavailable(student.TableMarks, err)
	}
	defer rows.Close()

	out := make([]student.MarksRecord, 0)
	for rows.Next() {
		m := student.MarksRecord{RegistrationNumber: reg}
		if err := rows.Scan(&m.Semester, &m.Subject, &m.Marks); err != nil {
			return nil, r.unavailable(student.TableMarks, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable(student.TableMarks, err)
	}
	return out, nil
}

// ListEnrollments returns the enrollments of a student in stored order.
func (r *RecordRepository) ListEnrollments(ctx context.Context, reg student.RegistrationNumber) ([]student.CourseEnrollment, error) {
	query := `
		SELECT department, enrollment_year, expected_graduation
		FROM course_enrollments
		WHERE registration_number = $1
		ORDER BY position
	`

	rows, err := r.conn.Query(ctx, query, reg.String())
	if err != nil {
		return nil, r.unavailable(student.TableEnrollments, err)
	}
	defer rows.Close()

	out := make([]student.CourseEnrollment, 0)
	for rows.Next() {
		e := student.CourseEnrollment{RegistrationNumber: reg}
		if err := rows.Scan(&e.Department, &e.EnrollmentYear, &e.ExpectedGraduation); err != nil {
			return nil, r.unavailable(student.TableEnrollments, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable(student.TableEnrollments, err)
	}
	return out, nil
}

// ListCalendar returns the first limit calendar rows. A limit <= 0 returns all.
func (r *RecordRepository) ListCalendar(ctx context.Context, limit int) ([]student.CalendarEvent, error) {
	query := `
		SELECT event_name, event_date, description
		FROM academic_calendar
		ORDER BY position
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, r.unavailable(student.TableCalendar, err)
	}
	defer rows.Close()

	out := make([]student.CalendarEvent, 0)
	for rows.Next() {
		var e student.CalendarEvent
		if err := rows.Scan(&e.Name, &e.Date, &e.Description); err != nil {
			return nil, r.unavailable(student.TableCalendar, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable(student.TableCalendar, err)
	}
	return out, nil
}

// Tables rebuilds the tabular view of every readable table.
func (r *RecordRepository) Tables(ctx context.Context) ([]student.Table, error) {
	out := make([]student.Table, 0, len(student.AllTables))

	if profiles, err := r.allProfiles(ctx); err == nil {
		out = append(out, student.ProfilesTable(profiles))
	}
	if events, err := r.ListCalendar(ctx, 0); err == nil {
		out = append(out, student.CalendarTable(events))
	}
	if marks, err := r.allMarks(ctx); err == nil {
		out = append(out, student.MarksTable(marks))
	}
	if enrollments, err := r.allEnrollments(ctx); err == nil {
		out = append(out, student.EnrollmentsTable(enrollments))
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Full table scans
// ─────────────────────────────────────────────────────────────────────────────

func (r *RecordRepository) allProfiles(ctx context.Context) ([]student.Profile, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT registration_number, name, email, department, year, cgpa, skills, projects
		FROM student_profiles
		ORDER BY position
	`)
	if err != nil {
		return nil, r.unavailable(student.TableProfiles, err)
	}
	defer rows.Close()

	var out []student.Profile
	for rows.Next() {
		var p student.Profile
		var regNo string
		if err := rows.Scan(&regNo, &p.Name, &p.Email, &p.Department, &p.Year, &p.CGPA, &p.Skills, &p.Projects); err != nil {
			return nil, r.unavailable(student.TableProfiles, err)
		}
		p.RegistrationNumber = student.RegistrationNumber(regNo)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *RecordRepository) allMarks(ctx context.Context) ([]student.MarksRecord, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT registration_number, semester, subject, marks
		FROM subject_marks
		ORDER BY position
	`)
	if err != nil {
		return nil, r.unavailable(student.TableMarks, err)
	}
	defer rows.Close()

	var out []student.MarksRecord
	for rows.Next() {
		var m student.MarksRecord
		var regNo string
		if err := rows.Scan(&regNo, &m.Semester, &m.Subject, &m.Marks); err != nil {
			return nil, r.unavailable(student.TableMarks, err)
		}
		m.RegistrationNumber = student.RegistrationNumber(regNo)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *RecordRepository) allEnrollments(ctx context.Context) ([]student.CourseEnrollment, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT registration_number, department, enrollment_year, expected_graduation
		FROM course_enrollments
		ORDER BY position
	`)
	if err != nil {
		return nil, r.unavailable(student.TableEnrollments, err)
	}
	defer rows.Close()

	var out []student.CourseEnrollment
	for rows.Next() {
		var e student.CourseEnrollment
		var regNo string
		if err := rows.Scan(&regNo, &e.Department, &e.EnrollmentYear, &e.ExpectedGraduation); err != nil {
			return nil, r.unavailable(student.TableEnrollments, err)
		}
		e.RegistrationNumber = student.RegistrationNumber(regNo)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Name identifies the checker in health reports.
func (r *RecordRepository) Name() string {
	return "records"
}

// HealthCheck fails when the profiles table cannot be queried.
func (r *RecordRepository) HealthCheck(ctx context.Context) error {
	var n int
	if err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM student_profiles").Scan(&n); err != nil {
		return r.unavailable(student.TableProfiles, err)
	}
	return nil
}

var _ student.Repository = (*RecordRepository)(nil)
