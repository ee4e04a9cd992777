// Package student contains the academic record model used by the assistant.
//
// The package defines:
//
//   - Entities: Profile, MarksRecord, CourseEnrollment, CalendarEvent
//   - Value objects: RegistrationNumber, GradeStatus
//   - Tables: a column-addressable view of a record source, used for
//     column lookups and for building generative prompts
//   - Repository: the read-only access contract implemented in
//     infrastructure/persistence
//
// # Records
//
// A record source holds four tables: student profiles, subject marks,
// course enrollments and the academic calendar. Rows are matched by
// RegistrationNumber using plain string equality.
//
//	profile, err := repo.GetProfile(ctx, "RA2111003010001")
//	marks, err := repo.ListMarks(ctx, profile.RegistrationNumber)
//	report, ok := LatestSemesterReport(profile.RegistrationNumber, marks)
//
// # Grades
//
// A mark passes when it is at least PassThreshold. Averages are the
// unweighted mean of the latest semester only.
//
// MemoryStore is an in-memory Repository for tests and local runs.
package student
