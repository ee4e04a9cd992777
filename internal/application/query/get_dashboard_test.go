package query

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

const reg = student.RegistrationNumber("R100")

func fixture() *student.MemoryStore {
	store := student.NewMemoryStore().
		AddProfiles(student.Profile{
			RegistrationNumber: reg,
			Name:               "Asha",
			Email:              "asha@example.edu",
			Skills:             []string{"Go", "SQL"},
			Projects:           []string{"Compiler"},
		}).
		AddMarks(
			student.MarksRecord{RegistrationNumber: reg, Semester: 1, Subject: "Maths", Marks: 40},
			student.MarksRecord{RegistrationNumber: reg, Semester: 2, Subject: "Physics", Marks: 75},
			student.MarksRecord{RegistrationNumber: "R200", Semester: 2, Subject: "Physics", Marks: 99},
		).
		AddEnrollments(student.CourseEnrollment{RegistrationNumber: reg, Department: "CSE", EnrollmentYear: "2022", ExpectedGraduation: "2026"})

	for i := 0; i < 7; i++ {
		store.AddCalendar(student.CalendarEvent{Name: strings.Repeat("E", i+1), Date: "2024-01-0" + string(rune('1'+i))})
	}
	return store
}

func TestGetDashboard(t *testing.T) {
	h := NewGetDashboardHandler(fixture(), nil, nil)

	dto, err := h.Handle(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, "Asha", dto.Profile.Name)
	assert.Equal(t, "asha@example.edu", dto.Profile.Email)
	assert.Equal(t, []string{"Go", "SQL"}, dto.Profile.Skills)
	assert.Len(t, dto.UpcomingTasks, 5)
	assert.Equal(t, "E", dto.UpcomingTasks[0].EventName)
	assert.Len(t, dto.Marks, 2)
	require.Len(t, dto.LatestMarks, 1)
	assert.Equal(t, LatestMarkDTO{Name: "Physics", Grade: 75, Status: "Pass"}, dto.LatestMarks[0])
	require.Len(t, dto.Courses, 1)
	assert.Equal(t, "CSE", dto.Courses[0].Department)
}

func TestGetDashboard_JSONKeys(t *testing.T) {
	h := NewGetDashboardHandler(fixture(), nil, nil)

	dto, err := h.Handle(context.Background(), reg)
	require.NoError(t, err)

	data, err := json.Marshal(dto)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"profile", "upcoming_tasks", "marks", "latest_marks", "courses"} {
		assert.Contains(t, raw, key)
	}
	task := raw["upcoming_tasks"].([]any)[0].(map[string]any)
	assert.Contains(t, task, "Event_Name")
}

func TestGetDashboard_SkillsHidden(t *testing.T) {
	h := NewGetDashboardHandler(fixture(), func(student.RegistrationNumber) bool { return false }, nil)

	dto, err := h.Handle(context.Background(), reg)
	require.NoError(t, err)
	assert.Empty(t, dto.Profile.Skills)
	assert.NotNil(t, dto.Profile.Skills)
}

func TestGetDashboard_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewGetDashboardHandler(fixture(), nil, nil).Handle(ctx, "NOPE")
	assert.Equal(t, "User profile not found", DashboardErrorMessage(err))

	store := fixture().SetUnavailable(student.TableProfiles, true)
	_, err = NewGetDashboardHandler(store, nil, nil).Handle(ctx, reg)
	assert.Equal(t, "Failed to load student data", DashboardErrorMessage(err))

	store = fixture().SetUnavailable(student.TableCalendar, true)
	_, err = NewGetDashboardHandler(store, nil, nil).Handle(ctx, reg)
	assert.ErrorIs(t, err, shared.ErrTableUnavailable)
	assert.Equal(t, "Failed to load tasks data", DashboardErrorMessage(err))
}

func TestGetDashboard_OptionalTablesDegrade(t *testing.T) {
	store := fixture().
		SetUnavailable(student.TableMarks, true).
		SetUnavailable(student.TableEnrollments, true)

	dto, err := NewGetDashboardHandler(store, nil, nil).Handle(context.Background(), reg)
	require.NoError(t, err)
	assert.Empty(t, dto.Marks)
	assert.Empty(t, dto.LatestMarks)
	assert.Empty(t, dto.Courses)
}

func TestStudentContextBuilder(t *testing.T) {
	b := NewStudentContextBuilder(fixture(), true)

	text, err := b.Build(context.Background(), reg)
	require.NoError(t, err)

	assert.Contains(t, text, `Student Profile: {`)
	assert.Contains(t, text, `"Name":"Asha"`)
	assert.Contains(t, text, `Student Marks: [`)
	assert.NotContains(t, text, `"99"`)
	assert.Contains(t, text, `Student Courses: [`)
	assert.Contains(t, text, `Academic Calendar: [`)

	text, err = NewStudentContextBuilder(fixture(), false).Build(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, text)
}
