package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"deskglue/internal/domain"
	"deskglue/internal/eventbus"
	"deskglue/internal/lookup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	waitFor = time.Second
	tick    = 2 * time.Millisecond
)

// fakeBackend records every query it receives
type fakeBackend struct {
	mu      sync.Mutex
	queries []string
	respond func(ctx context.Context, query string) ([]domain.SearchResult, error)
}

func (f *fakeBackend) lookup(ctx context.Context, query string) ([]domain.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return nil, nil
	}
	return respond(ctx, query)
}

func (f *fakeBackend) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	copy(out, f.queries)
	return out
}

func rows(ids ...string) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.SearchResult{ID: id, DisplayName: "name " + id})
	}
	return out
}

func newTestService(t *testing.T, fn lookup.Func) (*Service, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	svc := NewService(fn, Options{Clock: clock})
	t.Cleanup(svc.Close)
	return svc, clock
}

func waitStatus(t *testing.T, svc *Service, status domain.SearchStatus) domain.SearchSnapshot {
	t.Helper()
	var snap domain.SearchSnapshot
	require.Eventually(t, func() bool {
		snap = svc.Snapshot()
		return snap.Status == status
	}, waitFor, tick, "expected status %s", status)
	return snap
}

func TestRapidQueriesIssueOneLookupWithLastValue(t *testing.T) {
	backend := &fakeBackend{}
	svc, clock := newTestService(t, backend.lookup)

	for _, q := range []string{"j", "jo", "joh", "john"} {
		svc.OnQueryChange(q)
		clock.Advance(DefaultDebounce - time.Millisecond)
	}
	assert.Empty(t, backend.calls(), "no lookup before the quiet period")
	assert.Equal(t, domain.StatusLoading, svc.Snapshot().Status)

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return len(backend.calls()) == 1 }, waitFor, tick)

	clock.Advance(10 * DefaultDebounce)
	assert.Never(t, func() bool { return len(backend.calls()) > 1 }, 50*time.Millisecond, tick)
	assert.Equal(t, []string{"john"}, backend.calls())
}

func TestBlankQueryNeverLooksUp(t *testing.T) {
	backend := &fakeBackend{}
	svc, clock := newTestService(t, backend.lookup)

	for _, q := range []string{"", "   ", "\t\n"} {
		svc.OnQueryChange(q)
		assert.Equal(t, domain.StatusIdle, svc.Snapshot().Status)
	}
	clock.Advance(10 * DefaultDebounce)

	assert.Never(t, func() bool { return len(backend.calls()) > 0 }, 50*time.Millisecond, tick)
	assert.Equal(t, domain.StatusIdle, svc.Snapshot().Status)
}

func TestClearingQueryCancelsScheduledLookup(t *testing.T) {
	backend := &fakeBackend{}
	svc, clock := newTestService(t, backend.lookup)

	svc.OnQueryChange("joh")
	svc.OnQueryChange("")
	clock.Advance(10 * DefaultDebounce)

	assert.Never(t, func() bool { return len(backend.calls()) > 0 }, 50*time.Millisecond, tick)
	assert.Equal(t, domain.StatusIdle, svc.Snapshot().Status)
}

func TestSupersededLookupResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{
		respond: func(ctx context.Context, query string) ([]domain.SearchResult, error) {
			if query == "a" {
				<-release // resolves late, ignoring cancellation
				return rows("stale-1", "stale-2"), nil
			}
			return rows("fresh"), nil
		},
	}
	svc, clock := newTestService(t, backend.lookup)

	svc.OnQueryChange("a")
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return len(backend.calls()) == 1 }, waitFor, tick)

	svc.OnQueryChange("ab")
	clock.Advance(DefaultDebounce)
	snap := waitStatus(t, svc, domain.StatusResults)
	assert.Equal(t, rows("fresh"), snap.Results)

	close(release)
	assert.Never(t, func() bool {
		s := svc.Snapshot()
		return len(s.Results) != 1 || s.Results[0].ID != "fresh"
	}, 50*time.Millisecond, tick)
	assert.Equal(t, "ab", svc.Snapshot().Query)
}

func TestClearedQueryDiscardsInFlightResult(t *testing.T) {
	started := make(chan struct{})
	backend := &fakeBackend{
		respond: func(ctx context.Context, query string) ([]domain.SearchResult, error) {
			close(started)
			<-ctx.Done()
			return rows("late"), nil
		},
	}
	svc, clock := newTestService(t, backend.lookup)

	svc.OnQueryChange("joh")
	clock.Advance(DefaultDebounce)
	<-started

	svc.OnQueryChange(" ")
	assert.Never(t, func() bool { return svc.Snapshot().Status != domain.StatusIdle }, 50*time.Millisecond, tick)
}

func TestSearchSelectConfirmScenario(t *testing.T) {
	dir := lookup.NewDirectory([]domain.Customer{
		{Name: "CUST-001", CustomerName: "John Traders", Modified: time.Unix(200, 0)},
		{Name: "CUST-002", CustomerName: "Johnson Pharma", Modified: time.Unix(100, 0)},
		{Name: "CUST-003", CustomerName: "Mary Stores"},
	}, 0)
	svc, clock := newTestService(t, lookup.SearchFunc(dir))

	svc.OnQueryChange("joh")
	clock.Advance(500 * time.Millisecond)
	snap := waitStatus(t, svc, domain.StatusResults)
	require.Len(t, snap.Results, 2)

	first := snap.Results[0]
	require.NoError(t, svc.Select(first.ID))
	got, err := svc.Confirm()
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "CUST-001", got.ID)
}

func TestConfirmBeforeSelect(t *testing.T) {
	svc, _ := newTestService(t, (&fakeBackend{}).lookup)

	_, err := svc.Confirm()
	assert.ErrorIs(t, err, domain.ErrNoSelection)
}

func TestSelectInvalidID(t *testing.T) {
	backend := &fakeBackend{
		respond: func(context.Context, string) ([]domain.SearchResult, error) { return rows("1", "2"), nil },
	}
	svc, clock := newTestService(t, backend.lookup)

	assert.ErrorIs(t, svc.Select("1"), domain.ErrInvalidSelection, "no results yet")

	svc.OnQueryChange("x")
	assert.ErrorIs(t, svc.Select("1"), domain.ErrInvalidSelection, "still loading")

	clock.Advance(DefaultDebounce)
	waitStatus(t, svc, domain.StatusResults)
	assert.ErrorIs(t, svc.Select("3"), domain.ErrInvalidSelection)
	assert.Nil(t, svc.Snapshot().Selected)
}

func TestSelectionKeptWhenStillPresent(t *testing.T) {
	var mu sync.Mutex
	next := rows("1", "2")
	backend := &fakeBackend{
		respond: func(context.Context, string) ([]domain.SearchResult, error) {
			mu.Lock()
			defer mu.Unlock()
			return next, nil
		},
	}
	svc, clock := newTestService(t, backend.lookup)

	svc.OnQueryChange("jo")
	clock.Advance(DefaultDebounce)
	waitStatus(t, svc, domain.StatusResults)
	require.NoError(t, svc.Select("2"))

	mu.Lock()
	next = rows("2", "3")
	mu.Unlock()
	svc.OnQueryChange("joh")
	assert.Equal(t, "2", svc.Snapshot().Selected.ID, "selection survives Loading")
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return len(backend.calls()) == 2 }, waitFor, tick)
	snap := waitStatus(t, svc, domain.StatusResults)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "2", snap.Selected.ID)

	mu.Lock()
	next = rows("4")
	mu.Unlock()
	svc.OnQueryChange("john")
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return len(backend.calls()) == 3 }, waitFor, tick)
	require.Eventually(t, func() bool {
		s := svc.Snapshot()
		return s.Status == domain.StatusResults && s.Selected == nil
	}, waitFor, tick)
}

func TestEmptyResults(t *testing.T) {
	backend := &fakeBackend{
		respond: func(context.Context, string) ([]domain.SearchResult, error) { return nil, nil },
	}
	svc, clock := newTestService(t, backend.lookup)

	svc.OnQueryChange("zzz")
	clock.Advance(DefaultDebounce)
	snap := waitStatus(t, svc, domain.StatusEmpty)
	assert.Empty(t, snap.Results)
}

func TestLookupFailureSurfacesMessage(t *testing.T) {
	backend := &fakeBackend{
		respond: func(context.Context, string) ([]domain.SearchResult, error) {
			return nil, errors.New("server returned 500: timeout")
		},
	}
	svc, clock := newTestService(t, backend.lookup)

	svc.OnQueryChange("joh")
	clock.Advance(DefaultDebounce)
	snap := waitStatus(t, svc, domain.StatusError)
	assert.Equal(t, "server returned 500: timeout", snap.Message)

	svc.OnQueryChange("")
	assert.Equal(t, domain.StatusIdle, svc.Snapshot().Status)
	assert.Empty(t, svc.Snapshot().Message)
}

func TestLookupPanicBecomesError(t *testing.T) {
	backend := &fakeBackend{
		respond: func(context.Context, string) ([]domain.SearchResult, error) { panic("nil map") },
	}
	svc, clock := newTestService(t, backend.lookup)

	svc.OnQueryChange("joh")
	clock.Advance(DefaultDebounce)
	snap := waitStatus(t, svc, domain.StatusError)
	assert.Contains(t, snap.Message, "nil map")
}

func TestCloseStopsPendingLookup(t *testing.T) {
	backend := &fakeBackend{}
	clock := clockwork.NewFakeClock()
	svc := NewService(backend.lookup, Options{Clock: clock})

	svc.OnQueryChange("joh")
	svc.Close()
	svc.Close()
	clock.Advance(10 * DefaultDebounce)

	assert.Never(t, func() bool { return len(backend.calls()) > 0 }, 50*time.Millisecond, tick)
	svc.OnQueryChange("again")
	_, err := svc.Confirm()
	assert.ErrorIs(t, err, domain.ErrClosed)
}

func TestCloseCancelsInFlightLookup(t *testing.T) {
	started := make(chan struct{})
	backend := &fakeBackend{
		respond: func(ctx context.Context, query string) ([]domain.SearchResult, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	clock := clockwork.NewFakeClock()
	svc := NewService(backend.lookup, Options{Clock: clock})

	svc.OnQueryChange("joh")
	clock.Advance(DefaultDebounce)
	<-started

	done := make(chan struct{})
	go func() {
		svc.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Close did not return")
	}
}

func TestEventsArePublished(t *testing.T) {
	bus := eventbus.New(nil)
	defer bus.Close()

	var mu sync.Mutex
	var issued []eventbus.LookupIssuedEvent
	var confirmed []eventbus.SelectionConfirmedEvent
	bus.Subscribe(eventbus.EventLookupIssued, func(e eventbus.DomainEvent) {
		mu.Lock()
		defer mu.Unlock()
		issued = append(issued, e.(eventbus.LookupIssuedEvent))
	})
	bus.Subscribe(eventbus.EventSelectionConfirmed, func(e eventbus.DomainEvent) {
		mu.Lock()
		defer mu.Unlock()
		confirmed = append(confirmed, e.(eventbus.SelectionConfirmedEvent))
	})

	backend := &fakeBackend{
		respond: func(context.Context, string) ([]domain.SearchResult, error) { return rows("1"), nil },
	}
	clock := clockwork.NewFakeClock()
	svc := NewService(backend.lookup, Options{Clock: clock, Bus: bus})
	defer svc.Close()

	svc.OnQueryChange("jo")
	svc.OnQueryChange("joh")
	clock.Advance(DefaultDebounce)
	waitStatus(t, svc, domain.StatusResults)
	require.NoError(t, svc.Select("1"))
	_, err := svc.Confirm()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(issued) == 1 && len(confirmed) == 1
	}, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "joh", issued[0].Query)
	assert.Equal(t, uint64(2), issued[0].Seq)
	assert.Equal(t, svc.ID(), confirmed[0].WidgetID)
	assert.Equal(t, "1", confirmed[0].Result.ID)
}

func TestRevisionIncreasesWithEveryTransition(t *testing.T) {
	svc, _ := newTestService(t, (&fakeBackend{}).lookup)

	before := svc.Snapshot().Revision
	svc.OnQueryChange("a")
	mid := svc.Snapshot().Revision
	svc.OnQueryChange("")
	after := svc.Snapshot().Revision

	assert.Less(t, before, mid)
	assert.Less(t, mid, after)
}
