package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FeatureFlags manages feature toggles with percentage rollout per student.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// subject (registration number) -> feature -> enabled
	subjectOverrides map[string]map[string]bool
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Enabled     bool   `yaml:"enabled"`

	// Rollout percentage (0-100). Students are bucketed by a hash of their
	// registration number.
	RolloutPercent int `yaml:"rollout_percent"`
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	Subject string // registration number, empty for anonymous callers
	IsAdmin bool
}

// Predefined feature flag names.
const (
	FeatureInternetSearch     = "assistant.internet_search"     // Wikipedia / web search answers
	FeatureColumnLookup       = "assistant.column_lookup"       // "student ... <column>" lookups
	FeatureGenerativeFallback = "assistant.generative_fallback" // Gemini answers for unknown intents
	FeatureVoiceTranscription = "voice.transcription"           // voice messages
	FeatureVoiceReplies       = "voice.replies"                 // spoken replies
	FeatureDashboardSkills    = "dashboard.skills"              // skills and projects on the dashboard
)

// LoadFeatureFlags creates feature flags with defaults, then applies the
// optional YAML file named by FEATURES_FILE and FEATURE_<NAME> variables.
func LoadFeatureFlags() (*FeatureFlags, error) {
	ff := NewFeatureFlags()

	if path := os.Getenv("FEATURES_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read features file: %w", err)
		}
		if err := ff.applyYAML(data); err != nil {
			return nil, err
		}
	}

	ff.loadFromEnvironment()
	return ff, nil
}

// NewFeatureFlags returns flags with their default values only.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		subjectOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureInternetSearch] = &Feature{
		Name:           FeatureInternetSearch,
		Description:    "Answer general questions from Wikipedia and web search",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureColumnLookup] = &Feature{
		Name:           FeatureColumnLookup,
		Description:    "Answer questions naming a record column with sample values",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Off until a Gemini key is provisioned.
	ff.features[FeatureGenerativeFallback] = &Feature{
		Name:           FeatureGenerativeFallback,
		Description:    "Ask the generative model when no intent matches",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureVoiceTranscription] = &Feature{
		Name:           FeatureVoiceTranscription,
		Description:    "Accept voice messages",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureVoiceReplies] = &Feature{
		Name:           FeatureVoiceReplies,
		Description:    "Attach synthesized audio to voice replies",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureDashboardSkills] = &Feature{
		Name:           FeatureDashboardSkills,
		Description:    "Show skills and projects on the dashboard",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// applyYAML merges a list of features into the known ones.
// Unknown names are an error so typos don't silently do nothing.
func (ff *FeatureFlags) applyYAML(data []byte) error {
	var doc struct {
		Features []Feature `yaml:"features"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse features file: %w", err)
	}

	for _, f := range doc.Features {
		feature, ok := ff.features[f.Name]
		if !ok {
			return fmt.Errorf("features file: %w: %q", ErrFeatureNotFound, f.Name)
		}
		if f.RolloutPercent < 0 || f.RolloutPercent > 100 {
			return fmt.Errorf("features file: %q: %w", f.Name, ErrInvalidRolloutPercent)
		}
		feature.Enabled = f.Enabled
		feature.RolloutPercent = f.RolloutPercent
		if f.Enabled && f.RolloutPercent == 0 {
			feature.RolloutPercent = 100
		}
		if f.Description != "" {
			feature.Description = f.Description
		}
	}
	return nil
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_ASSISTANT_GENERATIVE_FALLBACK=true
// Example: FEATURE_VOICE_REPLIES=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "voice.replies" -> "FEATURE_VOICE_REPLIES"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.Subject != "" {
		if overrides, ok := ff.subjectOverrides[ctx.Subject]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.Subject != "" {
		return isInRollout(ctx.Subject, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// EnabledFor is IsEnabled for a plain subject.
func (ff *FeatureFlags) EnabledFor(featureName, subject string) bool {
	return ff.IsEnabled(featureName, &FeatureContext{Subject: subject})
}

// Gate returns a predicate over subjects for one feature.
func (ff *FeatureFlags) Gate(featureName string) func(subject string) bool {
	return func(subject string) bool {
		return ff.EnabledFor(featureName, subject)
	}
}

// isInRollout determines if a subject is in the rollout percentage.
// The bucket is stable for a subject+feature pair.
func isInRollout(subject, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(subject))
	return int(h.Sum32()%100) < percent
}

// SetSubjectOverride sets a feature override for one student.
func (ff *FeatureFlags) SetSubjectOverride(subject, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.subjectOverrides[subject]; !ok {
		ff.subjectOverrides[subject] = make(map[string]bool)
	}
	ff.subjectOverrides[subject][featureName] = enabled
}

// ClearSubjectOverrides removes all overrides for a student.
func (ff *FeatureFlags) ClearSubjectOverrides(subject string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.subjectOverrides, subject)
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
