// Package csvstore implements student.Repository over four CSV files.
// Files are read again on every call so edits show up without a restart.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// Config holds configuration for the Store.
type Config struct {
	// Dir contains the record files.
	Dir string

	// Files overrides file names per table identifier.
	Files map[string]string

	Logger *slog.Logger
}

// DefaultConfig returns a configuration reading from the working directory.
func DefaultConfig() Config {
	return Config{Dir: "."}
}

// Store reads academic records from CSV files.
type Store struct {
	dir    string
	files  map[string]string
	logger *slog.Logger
}

// New creates a Store.
func New(config Config) *Store {
	if config.Dir == "" {
		config.Dir = "."
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	files := make(map[string]string, len(student.AllTables))
	for _, name := range student.AllTables {
		files[name] = name
	}
	for table, file := range config.Files {
		if file != "" {
			files[table] = file
		}
	}

	return &Store{
		dir:    config.Dir,
		files:  files,
		logger: config.Logger,
	}
}

// Path returns the file path of a table.
func (s *Store) Path(table string) string {
	return filepath.Join(s.dir, s.files[table])
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) GetProfile(ctx context.Context, reg student.RegistrationNumber) (*student.Profile, error) {
	t, err := s.ReadTable(ctx, student.TableProfiles)
	if err != nil {
		return nil, err
	}
	for _, p := range student.DecodeProfiles(*t) {
		if p.RegistrationNumber == reg {
			found := p
			return &found, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (s *Store) ListMarks(ctx context.Context, reg student.RegistrationNumber) ([]student.MarksRecord, error) {
	t, err := s.ReadTable(ctx, student.TableMarks)
	if err != nil {
		return nil, err
	}
	return student.FilterMarks(reg, student.DecodeMarks(*t)), nil
}

func (s *Store) ListEnrollments(ctx context.Context, reg student.RegistrationNumber) ([]student.CourseEnrollment, error) {
	t, err := s.ReadTable(ctx, student.TableEnrollments)
	if err != nil {
		return nil, err
	}
	out := make([]student.CourseEnrollment, 0)
	for _, e := range student.DecodeEnrollments(*t) {
		if e.RegistrationNumber == reg {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListCalendar(ctx context.Context, limit int) ([]student.CalendarEvent, error) {
	t, err := s.ReadTable(ctx, student.TableCalendar)
	if err != nil {
		return nil, err
	}
	events := student.DecodeCalendar(*t)
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// Tables returns every readable table with credential columns removed.
func (s *Store) Tables(ctx context.Context) ([]student.Table, error) {
	out := make([]student.Table, 0, len(student.AllTables))
	for _, name := range student.AllTables {
		t, err := s.ReadTable(ctx, name)
		if err != nil {
			s.logger.Debug("table skipped", "table", name, "error", err)
			continue
		}
		out = append(out, t.Redacted())
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FILE ACCESS
// ══════════════════════════════════════════════════════════════════════════════

// ReadTable parses one table file. Any failure is reported as
// shared.ErrTableUnavailable.
func (s *Store) ReadTable(ctx context.Context, table string) (*student.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := s.files[table]; !ok {
		return nil, student.TableUnavailable(table, errors.New("unknown table"))
	}

	path := s.Path(table)
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("record file unavailable", "table", table, "path", path, "error", err)
		return nil, student.TableUnavailable(table, err)
	}
	defer f.Close()

	t, err := Parse(table, f)
	if err != nil {
		s.logger.Warn("record file unreadable", "table", table, "path", path, "error", err)
		return nil, student.TableUnavailable(table, err)
	}
	return t, nil
}

// Parse reads a CSV stream with a header row into a Table.
func Parse(name string, r io.Reader) (*student.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: missing header row", name)
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &student.Table{Name: name, Columns: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: read row: %w", name, err)
		}
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// DIAGNOSTICS
// ══════════════════════════════════════════════════════════════════════════════

// FileReport describes one record file.
type FileReport struct {
	Table   string `json:"table"`
	Path    string `json:"path"`
	Present bool   `json:"present"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Error   string `json:"error,omitempty"`
}

// OK reports whether the file exists, parses and has at least one row.
func (r FileReport) OK() bool {
	return r.Present && r.Error == "" && r.Rows > 0
}

// String renders the report the way the check-csv command prints it.
func (r FileReport) String() string {
	switch {
	case !r.Present:
		return fmt.Sprintf("File not found: %s", r.Path)
	case r.Error != "":
		return fmt.Sprintf("Error reading %s: %s", r.Path, r.Error)
	case r.Rows == 0:
		return fmt.Sprintf("File is empty: %s", r.Path)
	default:
		return fmt.Sprintf("Success! %s has %d rows and %d columns", r.Path, r.Rows, r.Columns)
	}
}

// Check inspects every record file.
func (s *Store) Check(ctx context.Context) []FileReport {
	reports := make([]FileReport, 0, len(student.AllTables))
	for _, name := range student.AllTables {
		r := FileReport{Table: name, Path: s.Path(name)}

		if _, err := os.Stat(r.Path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.Present = true
				r.Error = err.Error()
			}
			reports = append(reports, r)
			continue
		}
		r.Present = true

		t, err := s.ReadTable(ctx, name)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Rows = len(t.Rows)
			r.Columns = len(t.Columns)
		}
		reports = append(reports, r)
	}
	return reports
}

// Name identifies the checker in health reports.
func (s *Store) Name() string {
	return "records"
}

// HealthCheck fails when the profiles file cannot be read. Other tables only
// degrade single features.
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.ReadTable(ctx, student.TableProfiles)
	return err
}

var _ student.Repository = (*Store)(nil)
