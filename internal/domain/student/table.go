package student

import (
	"strconv"
	"strings"
)

// Table identifiers. They match the file names of the CSV record source so
// that column lookups can name the table the way operators know it.
const (
	TableProfiles    = "Students_Academic_Records.csv"
	TableCalendar    = "Academic_Calendar.csv"
	TableMarks       = "SubjectWise_Marks.csv"
	TableEnrollments = "Student_Course_Details.csv"
)

// Column names used by the record tables. Lookups are case-sensitive.
const (
	ColRegistrationNumber = "Registration_Number"
	ColName               = "Name"
	ColEmail              = "Email"
	ColDepartment         = "Department"
	ColYear               = "Year"
	ColCGPA               = "CGPA"
	ColSkills             = "Skills"
	ColProjects           = "Projects"
	ColPINHash            = "PIN_Hash"

	ColSemester = "Semester"
	ColSubject  = "Subject"
	ColMarks    = "Marks"

	ColEnrollmentYear     = "Enrollment_Year"
	ColExpectedGraduation = "Expected_Graduation"

	ColEventName   = "Event_Name"
	ColDate        = "Date"
	ColDescription = "Description"
)

// credentialColumns never leave the record store through a table view.
var credentialColumns = []string{ColPINHash}

// IsCredentialColumn reports whether a column holds login secrets. Header
// case is ignored so a hand-edited file cannot expose it.
func IsCredentialColumn(name string) bool {
	name = strings.TrimSpace(name)
	for _, c := range credentialColumns {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}

// AllTables lists the table identifiers in load order.
var AllTables = []string{TableProfiles, TableCalendar, TableMarks, TableEnrollments}

// Table is a header plus rows view of one record source table.
// Unknown columns are kept as-is.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of a column or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Values returns up to limit values of a column in row order.
// A limit <= 0 returns every value.
func (t Table) Values(column string, limit int) []string {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if limit > 0 && len(out) >= limit {
			break
		}
		if idx < len(row) {
			out = append(out, row[idx])
		} else {
			out = append(out, "")
		}
	}
	return out
}

// Redacted returns a copy of t without credential columns.
func (t Table) Redacted() Table {
	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !IsCredentialColumn(c) {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(t.Columns) {
		return t
	}

	out := Table{Name: t.Name, Columns: make([]string, 0, len(keep)), Rows: make([][]string, 0, len(t.Rows))}
	for _, i := range keep {
		out.Columns = append(out.Columns, t.Columns[i])
	}
	for _, row := range t.Rows {
		r := make([]string, 0, len(keep))
		for _, i := range keep {
			if i < len(row) {
				r = append(r, row[i])
			}
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// Records returns every row as a column name to value map.
func (t Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, t.record(row))
	}
	return out
}

func (t Table) record(row []string) map[string]string {
	rec := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		if i < len(row) {
			rec[c] = row[i]
		} else {
			rec[c] = ""
		}
	}
	return rec
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING
// ══════════════════════════════════════════════════════════════════════════════

// DecodeProfiles converts a profiles table into entities.
func DecodeProfiles(t Table) []Profile {
	out := make([]Profile, 0, len(t.Rows))
	for _, rec := range t.Records() {
		out = append(out, Profile{
			RegistrationNumber: RegistrationNumber(rec[ColRegistrationNumber]),
			Name:               rec[ColName],
			Email:              rec[ColEmail],
			Department:         rec[ColDepartment],
			Year:               rec[ColYear],
			CGPA:               rec[ColCGPA],
			Skills:             SplitList(rec[ColSkills]),
			Projects:           SplitList(rec[ColProjects]),
			PINHash:            rec[ColPINHash],
		})
	}
	return out
}

// DecodeMarks converts a marks table into entities.
// Rows whose semester or mark is not numeric are skipped.
func DecodeMarks(t Table) []MarksRecord {
	out := make([]MarksRecord, 0, len(t.Rows))
	for _, rec := range t.Records() {
		sem, err := parseSemester(rec[ColSemester])
		if err != nil {
			continue
		}
		mark, err := strconv.ParseFloat(strings.TrimSpace(rec[ColMarks]), 64)
		if err != nil {
			continue
		}
		out = append(out, MarksRecord{
			RegistrationNumber: RegistrationNumber(rec[ColRegistrationNumber]),
			Semester:           sem,
			Subject:            rec[ColSubject],
			Marks:              mark,
		})
	}
	return out
}

// DecodeEnrollments converts an enrollments table into entities.
func DecodeEnrollments(t Table) []CourseEnrollment {
	out := make([]CourseEnrollment, 0, len(t.Rows))
	for _, rec := range t.Records() {
		out = append(out, CourseEnrollment{
			RegistrationNumber: RegistrationNumber(rec[ColRegistrationNumber]),
			Department:         rec[ColDepartment],
			EnrollmentYear:     rec[ColEnrollmentYear],
			ExpectedGraduation: rec[ColExpectedGraduation],
		})
	}
	return out
}

// DecodeCalendar converts a calendar table into entities, keeping row order.
func DecodeCalendar(t Table) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(t.Rows))
	for _, rec := range t.Records() {
		out = append(out, CalendarEvent{
			Name:        rec[ColEventName],
			Date:        rec[ColDate],
			Description: rec[ColDescription],
		})
	}
	return out
}

// parseSemester accepts "3" as well as "3.0", which spreadsheet exports produce.
func parseSemester(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENCODING
// ══════════════════════════════════════════════════════════════════════════════

// ProfilesTable builds the profiles table from entities.
func ProfilesTable(profiles []Profile) Table {
	t := Table{
		Name: TableProfiles,
		Columns: []string{
			ColRegistrationNumber, ColName, ColEmail, ColDepartment,
			ColYear, ColCGPA, ColSkills, ColProjects,
		},
	}
	for _, p := range profiles {
		t.Rows = append(t.Rows, []string{
			p.RegistrationNumber.String(), p.Name, p.Email, p.Department,
			p.Year, p.CGPA, strings.Join(p.Skills, ","), strings.Join(p.Projects, ","),
		})
	}
	return t
}

// MarksTable builds the marks table from entities.
func MarksTable(marks []MarksRecord) Table {
	t := Table{
		Name:    TableMarks,
		Columns: []string{ColRegistrationNumber, ColSemester, ColSubject, ColMarks},
	}
	for _, m := range marks {
		t.Rows = append(t.Rows, []string{
			m.RegistrationNumber.String(), strconv.Itoa(m.Semester), m.Subject, FormatNumber(m.Marks),
		})
	}
	return t
}

// EnrollmentsTable builds the enrollments table from entities.
func EnrollmentsTable(enrollments []CourseEnrollment) Table {
	t := Table{
		Name:    TableEnrollments,
		Columns: []string{ColRegistrationNumber, ColDepartment, ColEnrollmentYear, ColExpectedGraduation},
	}
	for _, e := range enrollments {
		t.Rows = append(t.Rows, []string{
			e.RegistrationNumber.String(), e.Department, e.EnrollmentYear, e.ExpectedGraduation,
		})
	}
	return t
}

// CalendarTable builds the calendar table from entities.
func CalendarTable(events []CalendarEvent) Table {
	t := Table{
		Name:    TableCalendar,
		Columns: []string{ColEventName, ColDate, ColDescription},
	}
	for _, e := range events {
		t.Rows = append(t.Rows, []string{e.Name, e.Date, e.Description})
	}
	return t
}
