package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// StudentContextBuilder serialises a student's records into the text block
// that precedes a generative prompt.
type StudentContextBuilder struct {
	repo student.Repository

	// IncludeCalendar appends the whole academic calendar.
	IncludeCalendar bool
}

// NewStudentContextBuilder creates a builder over repo.
func NewStudentContextBuilder(repo student.Repository, includeCalendar bool) *StudentContextBuilder {
	return &StudentContextBuilder{repo: repo, IncludeCalendar: includeCalendar}
}

// Build returns "Student Profile: {...}" style sections for every table that
// has rows for reg. Missing tables or rows are skipped, never reported.
func (b *StudentContextBuilder) Build(ctx context.Context, reg student.RegistrationNumber) (string, error) {
	var sb strings.Builder

	if reg.IsValid() {
		tables, err := b.repo.Tables(ctx)
		if err != nil {
			return "", fmt.Errorf("load tables: %w", err)
		}
		byName := make(map[string]student.Table, len(tables))
		for _, t := range tables {
			byName[t.Name] = t
		}

		if rows := studentRows(byName[student.TableProfiles], reg); len(rows) > 0 {
			if err := writeSection(&sb, "Student Profile", rows[0]); err != nil {
				return "", err
			}
		}
		if rows := studentRows(byName[student.TableMarks], reg); len(rows) > 0 {
			if err := writeSection(&sb, "Student Marks", rows); err != nil {
				return "", err
			}
		}
		if rows := studentRows(byName[student.TableEnrollments], reg); len(rows) > 0 {
			if err := writeSection(&sb, "Student Courses", rows); err != nil {
				return "", err
			}
		}
	}

	if b.IncludeCalendar {
		events, err := b.repo.ListCalendar(ctx, 0)
		if err != nil && !errors.Is(err, shared.ErrTableUnavailable) {
			return "", fmt.Errorf("load calendar: %w", err)
		}
		if len(events) > 0 {
			if err := writeSection(&sb, "Academic Calendar", student.CalendarTable(events).Records()); err != nil {
				return "", err
			}
		}
	}

	return sb.String(), nil
}

func studentRows(t student.Table, reg student.RegistrationNumber) []map[string]string {
	var out []map[string]string
	for _, rec := range t.Redacted().Records() {
		if rec[student.ColRegistrationNumber] == reg.String() {
			out = append(out, rec)
		}
	}
	return out
}

func writeSection(sb *strings.Builder, title string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", strings.ToLower(title), err)
	}
	fmt.Fprintf(sb, "%s: %s\n\n", title, data)
	return nil
}
