package assistant

import (
	"fmt"
	"strings"

	"github.com/raizel-hub/academic-assistant/internal/domain/intent"
	"github.com/raizel-hub/academic-assistant/internal/domain/lookup"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// MaxUpcomingTasks is the number of calendar rows shown as upcoming tasks.
const MaxUpcomingTasks = 5

// Fixed reply sentences.
const (
	NoMarksReply   = "I couldn't find any marks data for you."
	NoCourseReply  = "I couldn't find any course data for you."
	NoTasksReply   = "I couldn't find any upcoming tasks."
	NoProfileReply = "I couldn't find your profile details."
	NotFoundReply  = "I couldn't find any information about that. Would you like to try a different search?"
)

// Composer renders record rows and lookup answers as chat replies.
// It holds no state.
type Composer struct{}

// Marks renders the latest semester of reg. Rows of other students are ignored.
func (Composer) Marks(reg student.RegistrationNumber, marks []student.MarksRecord) string {
	report, ok := student.LatestSemesterReport(reg, marks)
	if !ok {
		return NoMarksReply
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Here are your marks for semester %d:\n\n", report.Semester)
	for _, m := range report.Entries {
		fmt.Fprintf(&sb, "- %s: %s (%s)\n", m.Subject, student.FormatNumber(m.Marks), student.StatusFor(m.Marks))
	}
	fmt.Fprintf(&sb, "\nYour average marks: %.2f", report.Average)
	return sb.String()
}

// Course renders the first enrollment row.
func (Composer) Course(enrollments []student.CourseEnrollment) string {
	if len(enrollments) == 0 {
		return NoCourseReply
	}
	e := enrollments[0]

	var sb strings.Builder
	sb.WriteString("Here are your course details:\n\n")
	fmt.Fprintf(&sb, "- Department: %s\n", e.Department)
	fmt.Fprintf(&sb, "- Enrollment Year: %s\n", e.EnrollmentYear)
	fmt.Fprintf(&sb, "- Expected Graduation: %s\n", e.ExpectedGraduation)
	return sb.String()
}

// Tasks renders at most MaxUpcomingTasks calendar rows in stored order.
func (Composer) Tasks(events []student.CalendarEvent) string {
	if len(events) == 0 {
		return NoTasksReply
	}
	if len(events) > MaxUpcomingTasks {
		events = events[:MaxUpcomingTasks]
	}

	var sb strings.Builder
	sb.WriteString("Here are your upcoming tasks:\n\n")
	for _, e := range events {
		fmt.Fprintf(&sb, "- %s (Due: %s)\n", e.Name, e.Date)
		if e.Description != "" {
			fmt.Fprintf(&sb, "  Description: %s\n", e.Description)
		}
	}
	return sb.String()
}

// Profile renders the labeled profile lines.
func (Composer) Profile(p *student.Profile) string {
	if p == nil {
		return NoProfileReply
	}

	var sb strings.Builder
	sb.WriteString("Here are your profile details:\n\n")
	for _, f := range profileFields(p) {
		fmt.Fprintf(&sb, "- %s: %s\n", f.label, f.value)
	}
	return sb.String()
}

// Columns renders one line per matched column.
func (Composer) Columns(matches []intent.ColumnMatch) string {
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("In %s, %s data: %s",
			m.Table, strings.ToLower(m.Column), strings.Join(m.Samples, ", ")))
	}
	return strings.Join(lines, "\n")
}

// Answer renders an external lookup result.
func (Composer) Answer(a lookup.Answer) string {
	return fmt.Sprintf("According to %s, %s", a.Source, a.Text)
}

// ─────────────────────────────────────────────────────────────────────────────
// Profile lines
// ─────────────────────────────────────────────────────────────────────────────

type profileField struct {
	label string
	value string
	set   func(p *student.Profile, v string)
}

func profileFields(p *student.Profile) []profileField {
	return []profileField{
		{"Name", p.Name, func(p *student.Profile, v string) { p.Name = v }},
		{"Registration Number", p.RegistrationNumber.String(), func(p *student.Profile, v string) {
			p.RegistrationNumber = student.RegistrationNumber(v)
		}},
		{"Department", p.Department, func(p *student.Profile, v string) { p.Department = v }},
		{"Year", p.Year, func(p *student.Profile, v string) { p.Year = v }},
		{"CGPA", p.CGPA, func(p *student.Profile, v string) { p.CGPA = v }},
	}
}

// ParseProfileLines recovers the fields rendered by Composer.Profile.
// Returns false when text is not a profile reply.
func ParseProfileLines(text string) (student.Profile, bool) {
	var p student.Profile
	if !strings.HasPrefix(text, "Here are your profile details:") {
		return p, false
	}

	fields := profileFields(&p)
	byLabel := make(map[string]profileField, len(fields))
	for _, f := range fields {
		byLabel[f.label] = f
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimPrefix(line, "- ")
		label, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if f, ok := byLabel[label]; ok {
			f.set(&p, value)
		}
	}
	return p, true
}
