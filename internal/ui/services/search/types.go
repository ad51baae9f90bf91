package search

import "deskglue/internal/domain"

// State holds search state
type State struct {
	Query   string
	Status  domain.SearchStatus
	Results []domain.SearchResult // only set in StatusResults
	Message string                // only set in StatusError
}
