// Package resolve turns raw lookup responses into the tagged outcome the
// conversation engine switches on.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/guysoft/wikiread/internal/wiki"
)

// Kind tags a classification outcome.
type Kind int

const (
	// KindNotFound means the query matched nothing.
	KindNotFound Kind = iota
	// KindExact means the query resolved to exactly one article.
	KindExact
	// KindDisambiguation means the query matched several articles.
	KindDisambiguation
	// KindSuggestion means the original query matched nothing but a
	// corrected spelling did. Produced by the engine's fallback, never by
	// a single classification pass.
	KindSuggestion
)

// String returns a human-readable kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindExact:
		return "exact"
	case KindDisambiguation:
		return "disambiguation"
	case KindSuggestion:
		return "suggestion"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the result of classifying one query.
type Outcome struct {
	Kind Kind
	// Title is the resolved article title for KindExact, or the corrected
	// query for KindSuggestion.
	Title string
	// Options holds candidate titles for KindDisambiguation, and for a
	// KindSuggestion whose corrected query was itself ambiguous.
	Options []string
}

// IsEmpty reports whether the outcome carries no articles at all.
func (o Outcome) IsEmpty() bool {
	return o.Kind == KindNotFound
}

// SummaryLookup is the slice of the lookup collaborator classification
// needs.
type SummaryLookup interface {
	Summary(ctx context.Context, query string) (string, error)
}

// Classifier maps lookup responses onto outcomes.
type Classifier struct {
	lookup SummaryLookup
}

// NewClassifier creates a classifier over the given lookup collaborator.
func NewClassifier(lookup SummaryLookup) (*Classifier, error) {
	if lookup == nil {
		return nil, fmt.Errorf("lookup is required")
	}
	return &Classifier{lookup: lookup}, nil
}

// Classify performs a single summary lookup for query and tags the result.
// A malformed or unmatched query is KindNotFound; a disambiguation
// condition carries its options; anything that produced a summary is
// KindExact. Lookup transport failures are returned as errors, not
// outcomes.
func (c *Classifier) Classify(ctx context.Context, query string) (Outcome, error) {
	_, err := c.lookup.Summary(ctx, query)
	if err == nil {
		return Outcome{Kind: KindExact, Title: query}, nil
	}

	if de, ok := wiki.AsDisambiguation(err); ok {
		return Outcome{Kind: KindDisambiguation, Options: de.Options}, nil
	}
	if errors.Is(err, wiki.ErrPageNotFound) || errors.Is(err, wiki.ErrInvalidQuery) {
		return Outcome{Kind: KindNotFound}, nil
	}

	return Outcome{}, fmt.Errorf("classification lookup failed: %w", err)
}
