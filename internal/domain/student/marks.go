package student

// PassThreshold is the lowest mark that counts as a pass.
const PassThreshold = 60.0

// GradeStatus is the pass/fail verdict of a single mark.
type GradeStatus string

const (
	StatusPass GradeStatus = "Pass"
	StatusFail GradeStatus = "Fail"
)

// StatusFor returns Pass for marks at or above PassThreshold.
func StatusFor(mark float64) GradeStatus {
	if mark >= PassThreshold {
		return StatusPass
	}
	return StatusFail
}

// SemesterReport holds the rows of one semester of one student.
type SemesterReport struct {
	Semester int
	Entries  []MarksRecord
	Average  float64
}

// LatestSemesterReport filters marks to reg, picks the highest semester and
// averages it. Returns false when the student has no marks.
func LatestSemesterReport(reg RegistrationNumber, marks []MarksRecord) (*SemesterReport, bool) {
	own := FilterMarks(reg, marks)
	if len(own) == 0 {
		return nil, false
	}

	latest := own[0].Semester
	for _, m := range own[1:] {
		if m.Semester > latest {
			latest = m.Semester
		}
	}

	report := &SemesterReport{Semester: latest}
	for _, m := range own {
		if m.Semester == latest {
			report.Entries = append(report.Entries, m)
		}
	}
	report.Average = AverageMarks(report.Entries)
	return report, true
}

// FilterMarks keeps the rows of reg in their original order.
func FilterMarks(reg RegistrationNumber, marks []MarksRecord) []MarksRecord {
	out := make([]MarksRecord, 0, len(marks))
	for _, m := range marks {
		if m.RegistrationNumber == reg {
			out = append(out, m)
		}
	}
	return out
}

// AverageMarks is the unweighted mean, 0 for no rows.
func AverageMarks(marks []MarksRecord) float64 {
	if len(marks) == 0 {
		return 0
	}
	var sum float64
	for _, m := range marks {
		sum += m.Marks
	}
	return sum / float64(len(marks))
}
