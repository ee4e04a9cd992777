// Package intent classifies a chat utterance into the handler that answers it.
package intent

import (
	"context"

	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// Intent is the closed set of answer categories.
type Intent string

const (
	Greeting       Intent = "greeting"
	Farewell       Intent = "farewell"
	MarksQuery     Intent = "marks"
	CourseQuery    Intent = "course"
	TasksQuery     Intent = "tasks"
	ProfileQuery   Intent = "profile"
	ColumnLookup   Intent = "column_lookup"
	InternetSearch Intent = "internet_search"
	Fallback       Intent = "fallback"
)

// IsValid reports whether i belongs to the closed set.
func (i Intent) IsValid() bool {
	switch i {
	case Greeting, Farewell, MarksQuery, CourseQuery, TasksQuery,
		ProfileQuery, ColumnLookup, InternetSearch, Fallback:
		return true
	}
	return false
}

// IsRecordQuery reports whether answering i needs the student's records.
func (i Intent) IsRecordQuery() bool {
	switch i {
	case MarksQuery, CourseQuery, TasksQuery, ProfileQuery:
		return true
	}
	return false
}

// ColumnMatch is one table column whose name matched the utterance.
type ColumnMatch struct {
	Table   string
	Column  string
	Samples []string
}

// Decision is the result of classifying one utterance.
type Decision struct {
	Intent Intent

	// Keyword is the trigger that selected the intent, empty for Fallback.
	Keyword string

	// Query is the search text for InternetSearch.
	Query string

	// Reply is the canned text for Greeting and Farewell.
	Reply string

	// Columns holds the matches for ColumnLookup.
	Columns []ColumnMatch
}

// ColumnSource exposes the loaded record tables for column lookups.
type ColumnSource interface {
	Tables(ctx context.Context) ([]student.Table, error)
}
