package hub

import (
	"errors"
	"fmt"
)

// ErrEmptyIdea is returned when a plan is requested for blank idea text.
var ErrEmptyIdea = errors.New("idea text is required")

// ErrNoFetcher is recorded when a plan item names a provider that has no
// registered fetcher.
var ErrNoFetcher = errors.New("no fetcher registered for provider")

// FetchError wraps a provider failure with the plan item that caused it.
type FetchError struct {
	Source  Source
	Purpose string
	Query   string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s fetch failed for %q: %v", e.Source, e.Purpose, e.Query, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
