package intent

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed phrases.yaml
var defaultPhrasesYAML []byte

// Phrase maps a trigger phrase to a canned reply.
type Phrase struct {
	Phrase string `yaml:"phrase"`
	Intent Intent `yaml:"intent"`
	Reply  string `yaml:"reply"`
}

// PhraseBook is the ordered canned-reply table plus the default reply.
type PhraseBook struct {
	Phrases []Phrase `yaml:"phrases"`
	Default string   `yaml:"default"`
}

// ParsePhraseBook decodes a YAML phrase table.
func ParsePhraseBook(data []byte) (*PhraseBook, error) {
	var book PhraseBook
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("decode phrases: %w", err)
	}

	for i, p := range book.Phrases {
		if p.Phrase == "" {
			return nil, fmt.Errorf("phrase %d: empty trigger", i)
		}
		if p.Intent != Greeting && p.Intent != Farewell {
			return nil, fmt.Errorf("phrase %q: unsupported intent %q", p.Phrase, p.Intent)
		}
	}
	if book.Default == "" {
		return nil, fmt.Errorf("phrases: default reply is required")
	}
	return &book, nil
}

// DefaultPhraseBook returns the built-in phrase table.
func DefaultPhraseBook() *PhraseBook {
	book, err := ParsePhraseBook(defaultPhrasesYAML)
	if err != nil {
		panic(err)
	}
	return book
}
