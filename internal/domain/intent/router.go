package intent

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYWORD SETS
// ══════════════════════════════════════════════════════════════════════════════

var (
	marksKeywords   = []string{"marks", "grades", "performance", "score", "result"}
	courseKeywords  = []string{"courses", "subjects", "classes", "department"}
	tasksKeywords   = []string{"tasks", "assignments", "deadlines", "upcoming", "schedule"}
	profileKeywords = []string{"profile", "info", "details", "about me", "who am i"}

	recordKeywords = []string{
		"student", "academic", "marks", "grades", "course",
		"subject", "calendar", "record", "performance",
	}

	searchKeywords = []string{
		"search", "find", "look up", "what is", "who is",
		"tell me about", "explain", "define", "meaning of",
	}
)

// stopWords are ignored when matching utterance tokens against column names.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true, "were": true,
	"what": true, "who": true, "how": true, "when": true, "where": true, "why": true,
	"which": true, "this": true, "that": true, "these": true, "those": true,
	"with": true, "from": true, "into": true, "about": true, "show": true,
	"tell": true, "give": true, "list": true, "all": true, "any": true,
	"can": true, "you": true, "your": true, "our": true, "their": true,
	"please": true, "some": true, "data": true, "does": true, "have": true,
	"has": true, "had": true, "will": true, "would": true, "should": true,
}

const columnSampleSize = 3

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig holds configuration for the Router.
type RouterConfig struct {
	// Columns enables ColumnLookup when set.
	Columns ColumnSource

	// Phrases is the canned-reply table. Defaults to the embedded one.
	Phrases *PhraseBook

	// Enabled gates optional intents (ColumnLookup, InternetSearch).
	// Nil enables everything.
	Enabled func(Intent) bool

	Logger *slog.Logger
}

// rule is one step of the ordered classification.
type rule struct {
	intent Intent
	match  func(ctx context.Context, text, lower string) (Decision, bool)
}

// Router classifies utterances by ordered keyword rules. The first rule that
// matches wins; ties are resolved by rule order, never by scoring.
type Router struct {
	columns ColumnSource
	phrases *PhraseBook
	enabled func(Intent) bool
	logger  *slog.Logger
	rules   []rule
}

// NewRouter creates a Router.
func NewRouter(config RouterConfig) *Router {
	if config.Phrases == nil {
		config.Phrases = DefaultPhraseBook()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	r := &Router{
		columns: config.Columns,
		phrases: config.Phrases,
		enabled: config.Enabled,
		logger:  config.Logger,
	}

	r.rules = []rule{
		{intent: MarksQuery, match: keywordRule(MarksQuery, marksKeywords)},
		{intent: CourseQuery, match: keywordRule(CourseQuery, courseKeywords)},
		{intent: TasksQuery, match: keywordRule(TasksQuery, tasksKeywords)},
		{intent: ProfileQuery, match: keywordRule(ProfileQuery, profileKeywords)},
		{intent: ColumnLookup, match: r.matchColumns},
		{intent: InternetSearch, match: matchSearch},
		{intent: Greeting, match: r.matchPhrase},
	}
	return r
}

// DefaultReply is the fallback sentence of the phrase table.
func (r *Router) DefaultReply() string {
	return r.phrases.Default
}

// Classify picks the intent of an utterance. It never fails; anything that
// matches no rule is Fallback.
func (r *Router) Classify(ctx context.Context, utterance string) Decision {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return Decision{Intent: Fallback, Reply: r.phrases.Default}
	}
	lower := strings.ToLower(text)

	for _, rl := range r.rules {
		if !r.isEnabled(rl.intent) {
			continue
		}
		if d, ok := rl.match(ctx, text, lower); ok {
			r.logger.Debug("utterance classified",
				"intent", d.Intent,
				"keyword", d.Keyword,
			)
			return d
		}
	}

	return Decision{Intent: Fallback, Reply: r.phrases.Default}
}

func (r *Router) isEnabled(i Intent) bool {
	switch i {
	case ColumnLookup:
		if r.columns == nil {
			return false
		}
	case InternetSearch:
	default:
		return true
	}
	return r.enabled == nil || r.enabled(i)
}

// ─────────────────────────────────────────────────────────────────────────────
// Rules
// ─────────────────────────────────────────────────────────────────────────────

func keywordRule(i Intent, keywords []string) func(context.Context, string, string) (Decision, bool) {
	return func(_ context.Context, _, lower string) (Decision, bool) {
		if kw, ok := firstContained(lower, keywords); ok {
			return Decision{Intent: i, Keyword: kw}, true
		}
		return Decision{}, false
	}
}

func matchSearch(_ context.Context, text, lower string) (Decision, bool) {
	kw, ok := firstContained(lower, searchKeywords)
	if !ok {
		return Decision{}, false
	}
	return Decision{
		Intent:  InternetSearch,
		Keyword: kw,
		Query:   remainderAfter(text, lower, kw),
	}, true
}

func (r *Router) matchPhrase(_ context.Context, _, lower string) (Decision, bool) {
	for _, p := range r.phrases.Phrases {
		if strings.Contains(lower, strings.ToLower(p.Phrase)) {
			return Decision{Intent: p.Intent, Keyword: p.Phrase, Reply: p.Reply}, true
		}
	}
	return Decision{}, false
}

func (r *Router) matchColumns(ctx context.Context, _, lower string) (Decision, bool) {
	kw, ok := firstContained(lower, recordKeywords)
	if !ok {
		return Decision{}, false
	}

	tokens := contentTokens(lower)
	if len(tokens) == 0 {
		return Decision{}, false
	}

	tables, err := r.columns.Tables(ctx)
	if err != nil {
		r.logger.Warn("column lookup skipped", "error", err)
		return Decision{}, false
	}

	var matches []ColumnMatch
	for _, t := range tables {
		for _, col := range t.Columns {
			if student.IsCredentialColumn(col) {
				continue
			}
			name := strings.ToLower(col)
			for _, tok := range tokens {
				if strings.Contains(name, tok) {
					matches = append(matches, ColumnMatch{
						Table:   t.Name,
						Column:  col,
						Samples: t.Values(col, columnSampleSize),
					})
					break
				}
			}
		}
	}
	if len(matches) == 0 {
		return Decision{}, false
	}
	return Decision{Intent: ColumnLookup, Keyword: kw, Columns: matches}, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// firstContained returns the first keyword, in list order, contained in lower.
func firstContained(lower string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// remainderAfter returns the text after the last occurrence of kw, trimmed.
// The original casing is kept when lowering did not change byte offsets.
func remainderAfter(text, lower, kw string) string {
	idx := strings.LastIndex(lower, kw)
	if idx < 0 {
		return ""
	}
	end := idx + len(kw)
	if len(text) == len(lower) {
		return strings.TrimSpace(text[end:])
	}
	return strings.TrimSpace(lower[end:])
}

// contentTokens splits lower into words of at least three letters that are
// not stop words.
func contentTokens(lower string) []string {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
