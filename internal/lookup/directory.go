package lookup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"deskglue/internal/domain"
)

// ErrCustomerNotFound is returned by Details for an unknown id
var ErrCustomerNotFound = errors.New("customer not found")

// Directory is an in-memory customer backend
type Directory struct {
	mu        sync.RWMutex
	customers []domain.Customer
	limit     int
	clock     clockwork.Clock
}

type directoryFile struct {
	Customers []domain.Customer `yaml:"customers"`
}

// NewDirectory creates a directory over the given customers
func NewDirectory(customers []domain.Customer, limit int) *Directory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	cs := make([]domain.Customer, len(customers))
	copy(cs, customers)
	return &Directory{customers: cs, limit: limit, clock: clockwork.NewRealClock()}
}

// SetClock replaces the clock that decides "today" for the AMC report
func (d *Directory) SetClock(clock clockwork.Clock) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = clock
}

// LoadDirectory reads customers from a YAML file with a top-level "customers" list
func LoadDirectory(path string, limit int) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read customers file: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse customers file: %w", err)
	}

	for i, c := range file.Customers {
		if c.Name == "" {
			return nil, fmt.Errorf("customer %d in %s has no name", i, path)
		}
	}

	return NewDirectory(file.Customers, limit), nil
}

// Add inserts or replaces a customer by name
func (d *Directory) Add(c domain.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.customers {
		if d.customers[i].Name == c.Name {
			d.customers[i] = c
			return
		}
	}
	d.customers = append(d.customers, c)
}

// Len returns the number of customers
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.customers)
}

// Search returns customers where every word of the query appears somewhere in
// code, name, address, place or phone numbers. Newest modified first.
func (d *Directory) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	var matched []domain.Customer
	for _, c := range d.customers {
		if err := ctx.Err(); err != nil {
			d.mu.RUnlock()
			return nil, err
		}
		if matchesAll(strings.ToLower(c.SearchText()), words) {
			matched = append(matched, c)
		}
	}
	d.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Modified.Equal(matched[j].Modified) {
			return matched[i].Modified.After(matched[j].Modified)
		}
		return matched[i].CustomerName < matched[j].CustomerName
	})

	if len(matched) > d.limit {
		matched = matched[:d.limit]
	}

	results := make([]domain.SearchResult, 0, len(matched))
	for _, c := range matched {
		results = append(results, c.AsSearchResult())
	}
	return results, nil
}

// Details returns the full record for a customer name
func (d *Directory) Details(ctx context.Context, id string) (*domain.Customer, error) {
	if id == "" {
		return nil, fmt.Errorf("customer name is required")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.customers {
		if c.Name == id {
			found := c
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, ErrCustomerNotFound)
}

func matchesAll(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}
