package ai

import (
	"context"
	"fmt"
	"strings"
)

// Moment is one occurrence of the target character reported by an engine.
type Moment struct {
	Action          string  `json:"action"`
	StartTimestamp  float64 `json:"start_timestamp"`
	EndTimestamp    float64 `json:"end_timestamp"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// Engine is the pluggable capability that performs visual character
// matching. One implementation exists per analysis backend.
type Engine interface {
	// FindCharacterMoments analyzes the video at videoPath for every
	// distinct appearance of the character shown in the reference image at
	// screenshotPath.
	FindCharacterMoments(ctx context.Context, videoPath, screenshotPath, characterName string) ([]Moment, error)

	// Close releases any client resources held by the engine.
	Close() error
}

// Config carries everything an engine constructor may need. Engines ignore
// fields that do not apply to them.
type Config struct {
	GeminiAPIKey    string
	GeminiModelName string
}

// Constructor builds one engine variant. Construction fails fast on bad
// configuration so a misconfigured engine never reaches the worker pool.
type Constructor func(cfg Config) (Engine, error)

var registry = map[string]Constructor{
	"gemini": NewGeminiEngine,
	"vector": newVectorEngine, // reserved for embedding-based search
}

// New selects an engine by its configured name. Unknown names are a
// configuration error at startup, never a silent default.
func New(name string, cfg Config) (Engine, error) {
	ctor, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported AI engine: %q", name)
	}
	return ctor(cfg)
}

func newVectorEngine(cfg Config) (Engine, error) {
	return nil, fmt.Errorf("vector engine is not yet implemented")
}
