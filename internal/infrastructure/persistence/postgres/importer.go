package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// TableReader supplies source tables to import. csvstore.Store implements it.
type TableReader interface {
	ReadTable(ctx context.Context, table string) (*student.Table, error)
}

// ImportResult holds the number of rows written per table.
type ImportResult map[string]int64

// Importer replaces the database contents with the tables of a reader.
type Importer struct {
	conn   *Connection
	logger *slog.Logger
}

// NewImporter creates a new Importer.
func NewImporter(conn *Connection, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{conn: conn, logger: logger}
}

// copySpec describes how one source table maps to its SQL table.
type copySpec struct {
	source  string
	target  string
	columns []string
	rows    func(student.Table) [][]any
}

var copySpecs = []copySpec{
	{
		source: student.TableProfiles,
		target: "student_profiles",
		columns: []string{
			"position", "registration_number", "name", "email", "department",
			"year", "cgpa", "skills", "projects", "pin_hash",
		},
		rows: profileRows,
	},
	{
		source:  student.TableCalendar,
		target:  "academic_calendar",
		columns: []string{"position", "event_name", "event_date", "description"},
		rows:    calendarRows,
	},
	{
		source:  student.TableMarks,
		target:  "subject_marks",
		columns: []string{"position", "registration_number", "semester", "subject", "marks"},
		rows:    markRows,
	},
	{
		source:  student.TableEnrollments,
		target:  "course_enrollments",
		columns: []string{"position", "registration_number", "department", "enrollment_year", "expected_graduation"},
		rows:    enrollmentRows,
	},
}

// Import reads every table first and then swaps all of them in one
// transaction. A table that cannot be read aborts the import before any
// write happens.
func (i *Importer) Import(ctx context.Context, reader TableReader) (ImportResult, error) {
	sources := make(map[string]student.Table, len(copySpecs))
	for _, spec := range copySpecs {
		t, err := reader.ReadTable(ctx, spec.source)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", spec.source, err)
		}
		sources[spec.source] = *t
	}

	result := make(ImportResult, len(copySpecs))
	err := i.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, spec := range copySpecs {
			if _, err := tx.Exec(ctx, "DELETE FROM "+spec.target); err != nil {
				return fmt.Errorf("clear %s: %w", spec.target, err)
			}
			n, err := tx.CopyFrom(ctx,
				pgx.Identifier{spec.target},
				spec.columns,
				pgx.CopyFromRows(spec.rows(sources[spec.source])),
			)
			if err != nil {
				return fmt.Errorf("copy %s: %w", spec.target, err)
			}
			result[spec.source] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for table, n := range result {
		i.logger.Info("table imported", "table", table, "rows", n)
	}
	return result, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row builders
// ─────────────────────────────────────────────────────────────────────────────

func profileRows(t student.Table) [][]any {
	profiles := student.DecodeProfiles(t)
	rows := make([][]any, 0, len(profiles))
	for n, p := range profiles {
		rows = append(rows, []any{
			n, p.RegistrationNumber.String(), p.Name, p.Email, p.Department,
			p.Year, p.CGPA, p.Skills, p.Projects, p.PINHash,
		})
	}
	return rows
}

func calendarRows(t student.Table) [][]any {
	events := student.DecodeCalendar(t)
	rows := make([][]any, 0, len(events))
	for n, e := range events {
		rows = append(rows, []any{n, e.Name, e.Date, e.Description})
	}
	return rows
}

// markRows drops rows DecodeMarks cannot parse, so positions stay dense.
func markRows(t student.Table) [][]any {
	marks := student.DecodeMarks(t)
	rows := make([][]any, 0, len(marks))
	for n, m := range marks {
		rows = append(rows, []any{n, m.RegistrationNumber.String(), m.Semester, m.Subject, m.Marks})
	}
	return rows
}

func enrollmentRows(t student.Table) [][]any {
	enrollments := student.DecodeEnrollments(t)
	rows := make([][]any, 0, len(enrollments))
	for n, e := range enrollments {
		rows = append(rows, []any{n, e.RegistrationNumber.String(), e.Department, e.EnrollmentYear, e.ExpectedGraduation})
	}
	return rows
}
