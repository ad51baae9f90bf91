package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"deskglue/internal/domain"
	"deskglue/internal/eventbus"
	"deskglue/internal/lookup"
	"deskglue/internal/ui/services/selection"
)

// DefaultDebounce is the quiet period before a lookup is issued
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Debounce time.Duration
	Clock    clockwork.Clock
	Bus      eventbus.EventBus
	Logger   *zap.Logger
}

// Service is a debounced single-selection search widget.
//
// Every query change bumps a sequence number. A scheduled or in-flight lookup
// only applies its outcome if its sequence number is still the latest, so the
// state always reflects the most recent query regardless of response order.
type Service struct {
	mu        sync.Mutex
	id        string
	state     *State
	lookup    lookup.Func
	selection *selection.Service
	bus       eventbus.EventBus
	log       *zap.Logger
	clock     clockwork.Clock
	debounce  time.Duration

	seq      uint64 // latest scheduled request
	revision uint64
	timer    clockwork.Timer
	cancel   context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// NewService creates a new search widget instance backed by fn
func NewService(fn lookup.Func, opts Options) *Service {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.Nop()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	id := uuid.NewString()
	return &Service{
		id:        id,
		state:     &State{Status: domain.StatusIdle},
		lookup:    fn,
		selection: selection.NewService(opts.Bus, id),
		bus:       opts.Bus,
		log:       opts.Logger.Named("search").With(zap.String("widget", id)),
		clock:     opts.Clock,
		debounce:  opts.Debounce,
	}
}

// ID identifies this widget instance in published events
func (s *Service) ID() string {
	return s.id
}

// OnQueryChange records a new query and (re)schedules the lookup
func (s *Service) OnQueryChange(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.state.Query = text
	s.seq++
	seq := s.seq
	s.stopPendingLocked()

	s.state.Results = nil
	s.state.Message = ""

	if strings.TrimSpace(text) == "" {
		s.state.Status = domain.StatusIdle
		s.selection.Clear()
		s.publishLocked()
		return
	}

	s.state.Status = domain.StatusLoading
	s.wg.Add(1)
	s.timer = s.clock.AfterFunc(s.debounce, func() {
		defer s.wg.Done()
		s.issue(seq, text)
	})
	s.publishLocked()
}

// issue runs the lookup for seq if nothing newer was scheduled meanwhile
func (s *Service) issue(seq uint64, query string) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.cancel = cancel
	s.timer = nil
	s.bus.Publish(domain.LookupIssuedEvent{WidgetID: s.id, Seq: seq, Query: query})
	s.mu.Unlock()

	results, err := s.runLookup(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		s.log.Debug("discarding superseded lookup",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", s.seq),
			zap.String("query", query))
		return
	}
	s.cancel = nil

	switch {
	case err != nil:
		lerr := &domain.LookupError{Query: query, Err: err}
		s.log.Warn("lookup failed", zap.Error(lerr))
		s.state.Status = domain.StatusError
		s.state.Message = lerr.Message()
		s.selection.Clear()
	case len(results) == 0:
		s.state.Status = domain.StatusEmpty
		s.selection.Clear()
	default:
		s.state.Status = domain.StatusResults
		s.state.Results = copyResults(results)
		s.selection.Retain(s.state.Results)
	}
	s.publishLocked()
}

// runLookup calls the backend, turning a panic into an error
func (s *Service) runLookup(ctx context.Context, query string) (results []domain.SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lookup panicked: %v", r)
		}
	}()
	return s.lookup(ctx, query)
}

// Select sets the selection to a result in the current result list
func (s *Service) Select(resultID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrClosed
	}
	if s.state.Status != domain.StatusResults {
		return fmt.Errorf("select %q while %s: %w", resultID, s.state.Status, domain.ErrInvalidSelection)
	}
	if err := s.selection.Select(s.state.Results, resultID); err != nil {
		return err
	}
	s.publishLocked()
	return nil
}

// Confirm returns the current selection or domain.ErrNoSelection
func (s *Service) Confirm() (domain.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.SearchResult{}, domain.ErrClosed
	}
	return s.selection.Confirm()
}

// Snapshot returns a copy of the current state
func (s *Service) Snapshot() domain.SearchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels any pending or in-flight lookup and waits for its goroutine
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopPendingLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Service) stopPendingLocked() {
	if s.timer != nil {
		if s.timer.Stop() {
			// the callback will never run
			s.wg.Done()
		}
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Service) publishLocked() {
	s.revision++
	s.bus.Publish(domain.SearchStateChangedEvent{Snapshot: s.snapshotLocked()})
}

func (s *Service) snapshotLocked() domain.SearchSnapshot {
	snap := domain.SearchSnapshot{
		WidgetID: s.id,
		Revision: s.revision,
		Query:    s.state.Query,
		Status:   s.state.Status,
		Results:  copyResults(s.state.Results),
		Message:  s.state.Message,
	}
	if r, ok := s.selection.Current(); ok {
		snap.Selected = &r
	}
	return snap
}

func copyResults(in []domain.SearchResult) []domain.SearchResult {
	if in == nil {
		return nil
	}
	out := make([]domain.SearchResult, len(in))
	copy(out, in)
	return out
}
