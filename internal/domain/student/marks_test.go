package student

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusPass, StatusFor(60))
	assert.Equal(t, StatusPass, StatusFor(99.5))
	assert.Equal(t, StatusFail, StatusFor(59.99))
	assert.Equal(t, StatusFail, StatusFor(0))
}

func TestLatestSemesterReport(t *testing.T) {
	marks := []MarksRecord{
		{RegistrationNumber: "R1", Semester: 1, Subject: "Physics", Marks: 90},
		{RegistrationNumber: "R1", Semester: 2, Subject: "Maths", Marks: 70},
		{RegistrationNumber: "R2", Semester: 3, Subject: "Maths", Marks: 10},
		{RegistrationNumber: "R1", Semester: 2, Subject: "Chemistry", Marks: 50},
	}

	report, ok := LatestSemesterReport("R1", marks)
	require.True(t, ok)
	assert.Equal(t, 2, report.Semester)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, "Maths", report.Entries[0].Subject)
	assert.Equal(t, "Chemistry", report.Entries[1].Subject)
	assert.InDelta(t, 60.0, report.Average, 1e-9)

	_, ok = LatestSemesterReport("R9", marks)
	assert.False(t, ok)
}

func TestDecodeMarks_SkipsNonNumericRows(t *testing.T) {
	table := Table{
		Name:    TableMarks,
		Columns: []string{ColRegistrationNumber, ColSemester, ColSubject, ColMarks},
		Rows: [][]string{
			{"R1", "2.0", "Maths", "75.5"},
			{"R1", "two", "Physics", "80"},
			{"R1", "2", "Biology", "n/a"},
		},
	}

	marks := DecodeMarks(table)
	require.Len(t, marks, 1)
	assert.Equal(t, 2, marks[0].Semester)
	assert.Equal(t, 75.5, marks[0].Marks)
}

func TestDecodeProfiles_MissingOptionalColumns(t *testing.T) {
	table := Table{
		Name:    TableProfiles,
		Columns: []string{ColRegistrationNumber, ColName, ColSkills},
		Rows:    [][]string{{"R1", "Asha", "Go, SQL ,"}},
	}

	profiles := DecodeProfiles(table)
	require.Len(t, profiles, 1)
	assert.Equal(t, RegistrationNumber("R1"), profiles[0].RegistrationNumber)
	assert.Equal(t, "", profiles[0].Email)
	assert.Equal(t, []string{"Go", "SQL"}, profiles[0].Skills)
	assert.Empty(t, profiles[0].Projects)
}

func TestTableValues(t *testing.T) {
	table := CalendarTable([]CalendarEvent{
		{Name: "Exam", Date: "2024-05-01"},
		{Name: "Project", Date: "2024-05-10"},
		{Name: "Viva", Date: "2024-05-20"},
		{Name: "Results", Date: "2024-06-01"},
	})

	assert.Equal(t, []string{"Exam", "Project", "Viva"}, table.Values(ColEventName, 3))
	assert.Nil(t, table.Values("Nope", 3))
}

func TestTableRedacted(t *testing.T) {
	table := Table{
		Name:    TableProfiles,
		Columns: []string{ColRegistrationNumber, "pin_hash", ColName},
		Rows: [][]string{
			{"R1", "$2a$10$hash", "Asha"},
			{"R2"},
		},
	}

	red := table.Redacted()
	assert.Equal(t, []string{ColRegistrationNumber, ColName}, red.Columns)
	assert.Equal(t, [][]string{{"R1", "Asha"}, {"R2"}}, red.Rows)
	assert.Nil(t, red.Values("pin_hash", 0))

	// The original is untouched.
	assert.Equal(t, "$2a$10$hash", table.Rows[0][1])

	plain := CalendarTable([]CalendarEvent{{Name: "Exam"}})
	assert.Equal(t, plain, plain.Redacted())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().
		AddProfiles(Profile{RegistrationNumber: "R1", Name: "Asha"}).
		AddCalendar(
			CalendarEvent{Name: "A"}, CalendarEvent{Name: "B"}, CalendarEvent{Name: "C"},
		)

	p, err := store.GetProfile(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", p.Name)

	_, err = store.GetProfile(ctx, "R2")
	assert.True(t, shared.IsNotFound(err))

	events, err := store.ListCalendar(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	store.SetUnavailable(TableCalendar, true)
	_, err = store.ListCalendar(ctx, 2)
	assert.ErrorIs(t, err, shared.ErrTableUnavailable)

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 3)
}
