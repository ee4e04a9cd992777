package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func seed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, student.TableProfiles,
		"\ufeffRegistration_Number,Name,Email,Department,Year,CGPA,Skills,Projects\n"+
			"R1,Asha Rao,asha@example.edu,CSE,3,8.7,\"Go,SQL\",Compiler\n"+
			"R2,Ben,ben@example.edu,ECE,2,7.1,,\n")
	writeFile(t, dir, student.TableMarks,
		"Registration_Number,Semester,Subject,Marks\n"+
			"R1,1,Maths,72\n"+
			"R1,2,Physics,58.5\n"+
			"R2,2,Physics,91\n")
	writeFile(t, dir, student.TableEnrollments,
		"Registration_Number,Department,Enrollment_Year,Expected_Graduation\n"+
			"R1,CSE,2021,2025\n")
	writeFile(t, dir, student.TableCalendar,
		"Event_Name,Date,Description\n"+
			"Midterm,2024-03-01,Hall A\n"+
			"\n"+
			"Project,2024-03-10,\n")
	return dir
}

func TestStore_Reads(t *testing.T) {
	ctx := context.Background()
	s := New(Config{Dir: seed(t)})

	p, err := s.GetProfile(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", p.Name)
	assert.Equal(t, []string{"Go", "SQL"}, p.Skills)
	assert.Equal(t, []string{"Compiler"}, p.Projects)

	_, err = s.GetProfile(ctx, "R9")
	assert.True(t, shared.IsNotFound(err))

	marks, err := s.ListMarks(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, 58.5, marks[1].Marks)

	enrollments, err := s.ListEnrollments(ctx, "R2")
	require.NoError(t, err)
	assert.Empty(t, enrollments)

	events, err := s.ListCalendar(ctx, 5)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Project", events[1].Name)
	assert.Empty(t, events[1].Description)
}

func TestStore_ReReadsOnEveryCall(t *testing.T) {
	ctx := context.Background()
	dir := seed(t)
	s := New(Config{Dir: dir})

	_, err := s.GetProfile(ctx, "R3")
	require.Error(t, err)

	f, err := os.OpenFile(filepath.Join(dir, student.TableProfiles), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("R3,Chen,,MECH,1,9.0,,\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	p, err := s.GetProfile(ctx, "R3")
	require.NoError(t, err)
	assert.Equal(t, "Chen", p.Name)
}

func TestStore_MissingFile(t *testing.T) {
	ctx := context.Background()
	dir := seed(t)
	require.NoError(t, os.Remove(filepath.Join(dir, student.TableMarks)))
	s := New(Config{Dir: dir})

	_, err := s.ListMarks(ctx, "R1")
	assert.ErrorIs(t, err, shared.ErrTableUnavailable)

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 3)

	reports := s.Check(ctx)
	require.Len(t, reports, 4)
	for _, r := range reports {
		if r.Table == student.TableMarks {
			assert.False(t, r.OK())
			assert.True(t, strings.HasPrefix(r.String(), "File not found:"))
		} else {
			assert.True(t, r.OK(), r.String())
		}
	}
}

func TestStore_CheckReportsCounts(t *testing.T) {
	s := New(Config{Dir: seed(t)})

	for _, r := range s.Check(context.Background()) {
		if r.Table == student.TableProfiles {
			assert.Equal(t, 2, r.Rows)
			assert.Equal(t, 8, r.Columns)
			assert.Contains(t, r.String(), "has 2 rows and 8 columns")
		}
	}
}

func TestStore_FileOverride(t *testing.T) {
	dir := seed(t)
	require.NoError(t, os.Rename(
		filepath.Join(dir, student.TableCalendar),
		filepath.Join(dir, "calendar.csv"),
	))
	s := New(Config{Dir: dir, Files: map[string]string{student.TableCalendar: "calendar.csv"}})

	events, err := s.ListCalendar(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := Parse("x.csv", strings.NewReader(""))
	assert.Error(t, err)

	tbl, err := Parse("x.csv", strings.NewReader("A,B\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tbl.Columns)
	assert.Empty(t, tbl.Rows)
}

func TestStore_HealthCheck(t *testing.T) {
	s := New(Config{Dir: t.TempDir()})
	assert.Error(t, s.HealthCheck(context.Background()))
	assert.Equal(t, "records", s.Name())
}

func TestStore_TablesOmitCredentials(t *testing.T) {
	ctx := context.Background()
	dir := seed(t)
	writeFile(t, dir, student.TableProfiles,
		"Registration_Number,Name,PIN_Hash\n"+
			"R1,Asha Rao,$2a$10$first\n"+
			"R2,Ben,$2a$10$second\n")
	s := New(Config{Dir: dir})

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	for _, table := range tables {
		assert.NotContains(t, table.Columns, student.ColPINHash, table.Name)
		for _, row := range table.Rows {
			assert.NotContains(t, strings.Join(row, ","), "$2a$", table.Name)
		}
	}

	// Login still sees the hash.
	p, err := s.GetProfile(ctx, "R2")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$second", p.PINHash)
}
