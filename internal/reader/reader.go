package reader

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/kompaudit/audit-planner/internal/store/model"
)

// Snippet is one extract of artifact content relevant to a rule item.
type Snippet struct {
	Source  string
	Content string
}

// Evidence is everything a reader could gather for one artifact/rule pair.
// Conflicting is set when different parts of the artifact point at opposite
// conclusions and a judge should not be trusted alone.
type Evidence struct {
	Snippets    []Snippet
	Conflicting bool
}

// Empty reports whether nothing relevant was found.
func (e Evidence) Empty() bool {
	return len(e.Snippets) == 0
}

// Text renders the evidence as a single block suitable for a judge prompt,
// capped at limit characters. A non-positive limit means no cap.
func (e Evidence) Text(limit int) string {
	var out string
	for _, s := range e.Snippets {
		block := fmt.Sprintf("--- %s ---\n%s\n", s.Source, s.Content)
		if limit > 0 && len(out)+len(block) > limit {
			remaining := limit - len(out)
			for remaining > 0 && !utf8.RuneStart(block[remaining]) {
				remaining--
			}
			if remaining > 0 {
				out += block[:remaining]
			}
			break
		}
		out += block
	}
	return out
}

// Reader extracts the evidence for a rule item from one artifact.
type Reader interface {
	Read(ctx context.Context, artifact *model.Artifact, item *model.RuleItem) (Evidence, error)
}

// Registry routes artifacts to the reader registered for their kind.
type Registry struct {
	readers map[model.ArtifactKind]Reader
}

func NewRegistry() *Registry {
	return &Registry{readers: make(map[model.ArtifactKind]Reader)}
}

func (r *Registry) Register(kind model.ArtifactKind, reader Reader) {
	r.readers[kind] = reader
}

// Read dispatches to the reader for the artifact's kind.
func (r *Registry) Read(ctx context.Context, artifact *model.Artifact, item *model.RuleItem) (Evidence, error) {
	reader, ok := r.readers[artifact.Kind]
	if !ok {
		return Evidence{}, fmt.Errorf("no reader registered for artifact kind %q", artifact.Kind)
	}
	return reader.Read(ctx, artifact, item)
}
