// Package student contains the read-only academic record model of the assistant.
// There are no external dependencies here.
package student

import (
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// RegistrationNumber identifies a student across all record tables.
// It is compared by plain string equality and never validated further.
type RegistrationNumber string

// IsValid reports whether the registration number is non-blank.
func (r RegistrationNumber) IsValid() bool {
	return strings.TrimSpace(string(r)) != ""
}

// String returns the registration number as stored.
func (r RegistrationNumber) String() string {
	return string(r)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Profile is one row of the student records table.
type Profile struct {
	// RegistrationNumber is the unique key of the student.
	RegistrationNumber RegistrationNumber

	// Name is the student's display name.
	Name string

	// Email is optional; older record files do not carry it.
	Email string

	// Department the student belongs to.
	Department string

	// Year of study as written in the records file.
	Year string

	// CGPA is the cumulative grade metric, kept verbatim.
	CGPA string

	// Skills and Projects come from comma-separated columns.
	Skills   []string
	Projects []string

	// PINHash is an optional bcrypt hash used by the PIN verifier.
	PINHash string
}

// CalendarEvent is one row of the academic calendar.
// Rows keep file order; "upcoming" means the first rows as stored.
type CalendarEvent struct {
	Name        string
	Date        string
	Description string
}

// MarksRecord is one subject mark of one student in one semester.
type MarksRecord struct {
	RegistrationNumber RegistrationNumber
	Semester           int
	Subject            string
	Marks              float64
}

// CourseEnrollment is one enrollment row of a student.
type CourseEnrollment struct {
	RegistrationNumber RegistrationNumber
	Department         string
	EnrollmentYear     string
	ExpectedGraduation string
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// SplitList splits a comma-separated column into trimmed, non-empty items.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FormatNumber renders a number the way the records files write it:
// integral values without a fractional part, others with the shortest form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
