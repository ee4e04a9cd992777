package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one versioned schema change.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator with the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: Migrations(),
		tableName:  "schema_migrations",
	}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
// Returns the number applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName),
				mig.Version, mig.Name,
			)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		count++
	}
	return count, nil
}

// Status lists every migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Migrations returns the schema history in version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_record_tables", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "add_profile_pin_hash", UpSQL: migration002Up, DownSQL: migration002Down},
	}
}

// Row order of every table is kept in "position" so reads match file order.
const migration001Up = `
CREATE TABLE IF NOT EXISTS student_profiles (
    position INTEGER NOT NULL,
    registration_number TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    department TEXT NOT NULL DEFAULT '',
    year TEXT NOT NULL DEFAULT '',
    cgpa TEXT NOT NULL DEFAULT '',
    skills TEXT[] NOT NULL DEFAULT '{}',
    projects TEXT[] NOT NULL DEFAULT '{}',
    PRIMARY KEY (position)
);
CREATE INDEX IF NOT EXISTS idx_student_profiles_reg ON student_profiles(registration_number);

CREATE TABLE IF NOT EXISTS subject_marks (
    position INTEGER NOT NULL PRIMARY KEY,
    registration_number TEXT NOT NULL,
    semester INTEGER NOT NULL,
    subject TEXT NOT NULL,
    marks DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_subject_marks_reg ON subject_marks(registration_number);

CREATE TABLE IF NOT EXISTS course_enrollments (
    position INTEGER NOT NULL PRIMARY KEY,
    registration_number TEXT NOT NULL,
    department TEXT NOT NULL DEFAULT '',
    enrollment_year TEXT NOT NULL DEFAULT '',
    expected_graduation TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_course_enrollments_reg ON course_enrollments(registration_number);

CREATE TABLE IF NOT EXISTS academic_calendar (
    position INTEGER NOT NULL PRIMARY KEY,
    event_name TEXT NOT NULL,
    event_date TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT ''
);
`

const migration001Down = `
DROP TABLE IF EXISTS academic_calendar;
DROP TABLE IF EXISTS course_enrollments;
DROP TABLE IF EXISTS subject_marks;
DROP TABLE IF EXISTS student_profiles;
`

const migration002Up = `
ALTER TABLE student_profiles ADD COLUMN IF NOT EXISTS pin_hash TEXT NOT NULL DEFAULT '';
`

const migration002Down = `
ALTER TABLE student_profiles DROP COLUMN IF EXISTS pin_hash;
`
