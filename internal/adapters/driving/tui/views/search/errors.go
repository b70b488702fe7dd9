package search

import "errors"

// ErrNoSearcher indicates that the view was built without a searcher.
var ErrNoSearcher = errors.New("search: searcher is required")
