package selection

import "deskglue/internal/domain"

// State holds selection state
type State struct {
	Selected *domain.SearchResult // at most one
}
