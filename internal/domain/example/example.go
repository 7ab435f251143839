package example

import (
	"fmt"
	"strings"
)

// Metadata is the descriptive part of an example record.
type Metadata struct {
	Repository            string
	Title                 string
	Summary               string
	Complexity            string
	Language              string
	FeatureTags           []string
	FeaturesToDemonstrate []string
	TargetUsers           []string
	FolderName            *string
	SourceCode            *string
}

// Example is an immutable corpus record with its precomputed embedding.
type Example struct {
	id     string
	meta   Metadata
	vector []float32
}

// New validates and creates an Example.
// Required: id and the five descriptive strings. Vector shape is checked by the corpus loader,
// which knows the configured dimension.
func New(id string, meta Metadata, vector []float32) (Example, error) {
	if strings.TrimSpace(id) == "" {
		return Example{}, fmt.Errorf("id is required")
	}
	required := []struct{ name, value string }{
		{"repository", meta.Repository},
		{"title", meta.Title},
		{"summary", meta.Summary},
		{"complexity", meta.Complexity},
		{"language", meta.Language},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return Example{}, fmt.Errorf("%s is required", f.name)
		}
	}
	if len(vector) == 0 {
		return Example{}, fmt.Errorf("vector is required")
	}

	meta.FeatureTags = cloneStrings(meta.FeatureTags)
	meta.FeaturesToDemonstrate = cloneStrings(meta.FeaturesToDemonstrate)
	meta.TargetUsers = cloneStrings(meta.TargetUsers)

	vec := make([]float32, len(vector))
	copy(vec, vector)

	return Example{id: id, meta: meta, vector: vec}, nil
}

// ID returns the unique example identifier.
func (e *Example) ID() string { return e.id }

// Metadata returns the descriptive fields.
func (e *Example) Metadata() Metadata { return e.meta }

// Vector returns the stored embedding. Callers must not modify it.
func (e *Example) Vector() []float32 { return e.vector }

// EmbeddingText renders the text the corpus generator embedded for this example.
// Re-embedding it with the query embedder must reproduce Vector().
func (e *Example) EmbeddingText() string {
	m := e.meta
	var parts []string

	parts = append(parts, "Title: "+m.Title)
	parts = append(parts, "Description: "+m.Summary)
	if len(m.FeatureTags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(m.FeatureTags, ", "))
	}
	if len(m.FeaturesToDemonstrate) > 0 {
		parts = append(parts, "Features: "+strings.Join(m.FeaturesToDemonstrate, ", "))
	}
	parts = append(parts, "Complexity: "+m.Complexity)
	if len(m.TargetUsers) > 0 {
		parts = append(parts, "Target Users: "+strings.Join(m.TargetUsers, ", "))
	}
	parts = append(parts, "Language: "+m.Language)

	return strings.Join(parts, ". ")
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
