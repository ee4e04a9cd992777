// Package query contains read operations.
package query

import (
	"context"
	"errors"
	"log/slog"

	"github.com/raizel-hub/academic-assistant/internal/application/assistant"
	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Collects everything the dashboard page shows for one student.
// ══════════════════════════════════════════════════════════════════════════════

// DashboardDTO is the JSON shape of the dashboard.
type DashboardDTO struct {
	Profile       ProfileDTO      `json:"profile"`
	UpcomingTasks []TaskDTO       `json:"upcoming_tasks"`
	Marks         []MarkDTO       `json:"marks"`
	LatestMarks   []LatestMarkDTO `json:"latest_marks"`
	Courses       []CourseDTO     `json:"courses"`
}

// ProfileDTO is the profile block of the dashboard.
type ProfileDTO struct {
	Name               string   `json:"name"`
	RegistrationNumber string   `json:"registration_number"`
	Email              string   `json:"email"`
	Department         string   `json:"department"`
	Year               string   `json:"year"`
	CGPA               string   `json:"cgpa"`
	Skills             []string `json:"skills"`
	Projects           []string `json:"projects"`
}

// TaskDTO keeps the calendar column names as keys.
type TaskDTO struct {
	EventName   string `json:"Event_Name"`
	Date        string `json:"Date"`
	Description string `json:"Description"`
}

// MarkDTO keeps the marks column names as keys.
type MarkDTO struct {
	RegistrationNumber string  `json:"Registration_Number"`
	Semester           int     `json:"Semester"`
	Subject            string  `json:"Subject"`
	Marks              float64 `json:"Marks"`
}

// LatestMarkDTO is one subject of the latest semester.
type LatestMarkDTO struct {
	Name   string  `json:"name"`
	Grade  float64 `json:"grade"`
	Status string  `json:"status"`
}

// CourseDTO keeps the enrollment column names as keys.
type CourseDTO struct {
	RegistrationNumber string `json:"Registration_Number"`
	Department         string `json:"Department"`
	EnrollmentYear     string `json:"Enrollment_Year"`
	ExpectedGraduation string `json:"Expected_Graduation"`
}

// GetDashboardHandler builds DashboardDTO values.
type GetDashboardHandler struct {
	repo       student.Repository
	showSkills func(student.RegistrationNumber) bool
	logger     *slog.Logger
}

// NewGetDashboardHandler creates a new handler. showSkills may be nil, which
// always includes skills and projects.
func NewGetDashboardHandler(
	repo student.Repository,
	showSkills func(student.RegistrationNumber) bool,
	logger *slog.Logger,
) *GetDashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetDashboardHandler{
		repo:       repo,
		showSkills: showSkills,
		logger:     logger,
	}
}

// Handle loads the dashboard of reg.
//
// Errors are shared.ErrProfilesUnavailable, shared.ErrCalendarUnavailable and
// shared.ErrProfileNotFound, whose messages are shown to the user as is.
// Unavailable marks or course tables produce empty lists.
func (h *GetDashboardHandler) Handle(ctx context.Context, reg student.RegistrationNumber) (*DashboardDTO, error) {
	profile, err := h.repo.GetProfile(ctx, reg)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrProfileNotFound
		}
		h.logger.Error("failed to load student data", "error", err)
		return nil, shared.ErrProfilesUnavailable
	}

	events, err := h.repo.ListCalendar(ctx, assistant.MaxUpcomingTasks)
	if err != nil {
		h.logger.Error("failed to load tasks data", "error", err)
		return nil, shared.ErrCalendarUnavailable
	}

	marks, err := h.repo.ListMarks(ctx, reg)
	if err != nil {
		h.logger.Warn("marks unavailable for dashboard", "error", err)
		marks = nil
	}

	enrollments, err := h.repo.ListEnrollments(ctx, reg)
	if err != nil {
		h.logger.Warn("courses unavailable for dashboard", "error", err)
		enrollments = nil
	}

	dto := &DashboardDTO{
		Profile: ProfileDTO{
			Name:               profile.Name,
			RegistrationNumber: profile.RegistrationNumber.String(),
			Email:              profile.Email,
			Department:         profile.Department,
			Year:               profile.Year,
			CGPA:               profile.CGPA,
			Skills:             []string{},
			Projects:           []string{},
		},
		UpcomingTasks: make([]TaskDTO, 0, len(events)),
		Marks:         make([]MarkDTO, 0, len(marks)),
		LatestMarks:   []LatestMarkDTO{},
		Courses:       make([]CourseDTO, 0, len(enrollments)),
	}

	if h.showSkills == nil || h.showSkills(reg) {
		dto.Profile.Skills = nonNil(profile.Skills)
		dto.Profile.Projects = nonNil(profile.Projects)
	}

	for _, e := range events {
		dto.UpcomingTasks = append(dto.UpcomingTasks, TaskDTO{
			EventName:   e.Name,
			Date:        e.Date,
			Description: e.Description,
		})
	}

	for _, m := range marks {
		dto.Marks = append(dto.Marks, MarkDTO{
			RegistrationNumber: m.RegistrationNumber.String(),
			Semester:           m.Semester,
			Subject:            m.Subject,
			Marks:              m.Marks,
		})
	}

	if report, ok := student.LatestSemesterReport(reg, marks); ok {
		for _, m := range report.Entries {
			dto.LatestMarks = append(dto.LatestMarks, LatestMarkDTO{
				Name:   m.Subject,
				Grade:  m.Marks,
				Status: string(student.StatusFor(m.Marks)),
			})
		}
	}

	for _, e := range enrollments {
		dto.Courses = append(dto.Courses, CourseDTO{
			RegistrationNumber: e.RegistrationNumber.String(),
			Department:         e.Department,
			EnrollmentYear:     e.EnrollmentYear,
			ExpectedGraduation: e.ExpectedGraduation,
		})
	}

	return dto, nil
}

// DashboardErrorMessage returns the user-facing text of a Handle error.
func DashboardErrorMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "Server error: " + err.Error()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
