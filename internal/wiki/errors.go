package wiki

import (
	"errors"
	"fmt"
)

// ErrPageNotFound indicates the query matched no article.
var ErrPageNotFound = errors.New("wikipedia page not found")

// ErrInvalidQuery indicates the query was empty or otherwise unusable
// before any lookup was attempted.
var ErrInvalidQuery = errors.New("invalid wikipedia query")

// DisambiguationError is returned when a query resolves to a
// disambiguation page instead of a single article. Options holds the
// alternative titles in the order the API listed them.
type DisambiguationError struct {
	Title   string
	Options []string
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("%q is a disambiguation page with %d options", e.Title, len(e.Options))
}

// AsDisambiguation unwraps err into a DisambiguationError if it is one.
func AsDisambiguation(err error) (*DisambiguationError, bool) {
	var de *DisambiguationError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
