package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/guysoft/wikiread/internal/wiki"
)

// fakeLookup scripts Summary responses per query.
type fakeLookup struct {
	errs  map[string]error
	calls int
}

func (f *fakeLookup) Summary(_ context.Context, query string) (string, error) {
	f.calls++
	if err, ok := f.errs[query]; ok {
		return "", err
	}
	return "a summary", nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		lookupErr   error
		wantKind    Kind
		wantTitle   string
		wantOptions []string
		wantErr     bool
	}{
		{
			name:      "summary returned means exact",
			query:     "Python (programming language)",
			wantKind:  KindExact,
			wantTitle: "Python (programming language)",
		},
		{
			name:  "disambiguation carries options",
			query: "Mercury",
			lookupErr: &wiki.DisambiguationError{
				Title:   "Mercury",
				Options: []string{"Mercury (planet)", "Mercury (element)"},
			},
			wantKind:    KindDisambiguation,
			wantOptions: []string{"Mercury (planet)", "Mercury (element)"},
		},
		{
			name:      "missing page means not found",
			query:     "xyzzyqqq123",
			lookupErr: wiki.ErrPageNotFound,
			wantKind:  KindNotFound,
		},
		{
			name:      "invalid query means not found",
			query:     "",
			lookupErr: wiki.ErrInvalidQuery,
			wantKind:  KindNotFound,
		},
		{
			name:      "wrapped not-found unwraps",
			query:     "gone",
			lookupErr: fmt.Errorf("wrapped: %w", wiki.ErrPageNotFound),
			wantKind:  KindNotFound,
		},
		{
			name:      "transport failure propagates as error",
			query:     "Python",
			lookupErr: errors.New("connection reset"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{errs: map[string]error{}}
			if tt.lookupErr != nil {
				lookup.errs[tt.query] = tt.lookupErr
			}

			classifier, err := NewClassifier(lookup)
			if err != nil {
				t.Fatalf("NewClassifier() error = %v", err)
			}

			outcome, err := classifier.Classify(context.Background(), tt.query)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if outcome.Kind != tt.wantKind {
				t.Errorf("Classify() kind = %s, want %s", outcome.Kind, tt.wantKind)
			}
			if outcome.Title != tt.wantTitle {
				t.Errorf("Classify() title = %q, want %q", outcome.Title, tt.wantTitle)
			}
			if len(outcome.Options) != len(tt.wantOptions) {
				t.Fatalf("Classify() options = %v, want %v", outcome.Options, tt.wantOptions)
			}
			for i, opt := range tt.wantOptions {
				if outcome.Options[i] != opt {
					t.Errorf("Classify() option[%d] = %q, want %q", i, outcome.Options[i], opt)
				}
			}

			if lookup.calls != 1 {
				t.Errorf("Classify() made %d lookup calls, want exactly 1", lookup.calls)
			}
		})
	}
}

func TestNewClassifierRequiresLookup(t *testing.T) {
	if _, err := NewClassifier(nil); err == nil {
		t.Error("NewClassifier(nil) did not fail")
	}
}
