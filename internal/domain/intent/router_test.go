package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

type stubColumns struct {
	tables []student.Table
	err    error
}

func (s stubColumns) Tables(context.Context) ([]student.Table, error) {
	return s.tables, s.err
}

func TestClassify_Priority(t *testing.T) {
	r := NewRouter(RouterConfig{})
	ctx := context.Background()

	tests := []struct {
		text    string
		intent  Intent
		keyword string
	}{
		{"Hi, what are my grades", MarksQuery, "grades"},
		{"show my MARKS", MarksQuery, "marks"},
		{"which subjects am I taking", CourseQuery, "subjects"},
		{"any upcoming deadlines?", TasksQuery, "deadlines"},
		{"show my profile", ProfileQuery, "profile"},
		{"tell me about me", ProfileQuery, "about me"},
		{"search for black holes", InternetSearch, "search"},
		{"hello there", Greeting, "hello"},
		{"how are you doing", Greeting, "how are you"},
		{"goodbye", Farewell, "goodbye"},
		{"ok bye", Farewell, "bye"},
		{"qwerty", Fallback, ""},
		{"   ", Fallback, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d := r.Classify(ctx, tt.text)
			assert.Equal(t, tt.intent, d.Intent)
			assert.Equal(t, tt.keyword, d.Keyword)
		})
	}
}

func TestClassify_MarksBeatsCourseAndTasks(t *testing.T) {
	r := NewRouter(RouterConfig{})

	d := r.Classify(context.Background(), "my upcoming marks in all subjects")
	assert.Equal(t, MarksQuery, d.Intent)
}

func TestClassify_SearchQueryIsRemainder(t *testing.T) {
	r := NewRouter(RouterConfig{})
	ctx := context.Background()

	d := r.Classify(ctx, "Can you search Quantum Computing")
	require.Equal(t, InternetSearch, d.Intent)
	assert.Equal(t, "Quantum Computing", d.Query)

	d = r.Classify(ctx, "what is photosynthesis")
	require.Equal(t, InternetSearch, d.Intent)
	assert.Equal(t, "what is", d.Keyword)
	assert.Equal(t, "photosynthesis", d.Query)

	// "find" comes before "what is" in keyword order
	d = r.Classify(ctx, "what is the way to find Alan Turing")
	require.Equal(t, InternetSearch, d.Intent)
	assert.Equal(t, "find", d.Keyword)
	assert.Equal(t, "Alan Turing", d.Query)
}

func TestClassify_CannedReply(t *testing.T) {
	r := NewRouter(RouterConfig{})

	d := r.Classify(context.Background(), "Hello")
	assert.Equal(t, "Hello! I'm Raizel, your AI assistant. How can I help you today?", d.Reply)

	d = r.Classify(context.Background(), "zzz")
	assert.Equal(t, "I'm not sure about that. Would you like me to search the internet for more information?", d.Reply)
	assert.Equal(t, d.Reply, r.DefaultReply())
}

func TestClassify_ColumnLookup(t *testing.T) {
	source := stubColumns{tables: []student.Table{
		student.ProfilesTable([]student.Profile{
			{RegistrationNumber: "R1", Name: "Asha", CGPA: "9.1"},
			{RegistrationNumber: "R2", Name: "Ben", CGPA: "8.4"},
			{RegistrationNumber: "R3", Name: "Chen", CGPA: "7.9"},
			{RegistrationNumber: "R4", Name: "Dev", CGPA: "6.5"},
		}),
	}}
	r := NewRouter(RouterConfig{Columns: source})

	d := r.Classify(context.Background(), "student cgpa")
	require.Equal(t, ColumnLookup, d.Intent)
	require.Len(t, d.Columns, 1)
	assert.Equal(t, student.TableProfiles, d.Columns[0].Table)
	assert.Equal(t, "CGPA", d.Columns[0].Column)
	assert.Equal(t, []string{"9.1", "8.4", "7.9"}, d.Columns[0].Samples)
}

func TestClassify_ColumnLookupSkipsCredentials(t *testing.T) {
	source := stubColumns{tables: []student.Table{{
		Name:    student.TableProfiles,
		Columns: []string{student.ColRegistrationNumber, student.ColName, "Pin_Hash"},
		Rows:    [][]string{{"R1", "Asha", "$2a$10$first"}, {"R2", "Ben", "$2a$10$second"}},
	}}}
	r := NewRouter(RouterConfig{Columns: source})

	d := r.Classify(context.Background(), "student pin hash")
	assert.NotEqual(t, ColumnLookup, d.Intent)
	assert.Empty(t, d.Columns)
}

func TestClassify_ColumnLookupNeedsRecordKeyword(t *testing.T) {
	source := stubColumns{tables: []student.Table{
		student.ProfilesTable(nil),
	}}
	r := NewRouter(RouterConfig{Columns: source})

	d := r.Classify(context.Background(), "cgpa")
	assert.Equal(t, Fallback, d.Intent)
}

func TestClassify_ColumnLookupDisabled(t *testing.T) {
	source := stubColumns{tables: []student.Table{student.ProfilesTable(nil)}}
	r := NewRouter(RouterConfig{
		Columns: source,
		Enabled: func(i Intent) bool { return i != ColumnLookup },
	})

	d := r.Classify(context.Background(), "student cgpa")
	assert.Equal(t, Fallback, d.Intent)
}

func TestClassify_ColumnSourceErrorFallsThrough(t *testing.T) {
	r := NewRouter(RouterConfig{Columns: stubColumns{err: errors.New("disk gone")}})

	d := r.Classify(context.Background(), "student cgpa, find it")
	assert.Equal(t, InternetSearch, d.Intent)
}

func TestClassify_SearchDisabled(t *testing.T) {
	r := NewRouter(RouterConfig{
		Enabled: func(i Intent) bool { return i != InternetSearch },
	})

	d := r.Classify(context.Background(), "search hello world")
	assert.Equal(t, Greeting, d.Intent)
}

func TestParsePhraseBook(t *testing.T) {
	_, err := ParsePhraseBook([]byte("phrases:\n  - phrase: yo\n    intent: marks\n    reply: x\ndefault: d\n"))
	assert.Error(t, err)

	_, err = ParsePhraseBook([]byte("phrases: []\n"))
	assert.Error(t, err)

	book, err := ParsePhraseBook([]byte("phrases:\n  - phrase: yo\n    intent: greeting\n    reply: sup\ndefault: d\n"))
	require.NoError(t, err)
	assert.Len(t, book.Phrases, 1)

	assert.Len(t, DefaultPhraseBook().Phrases, 7)
}
