package visibility

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"deskglue/internal/domain"
	"deskglue/internal/eventbus"
	"deskglue/internal/host"
)

// DefaultPollInterval is how often the controlling field is re-read
const DefaultPollInterval = 250 * time.Millisecond

var (
	// ErrNotConfigured is returned when evaluating before Configure
	ErrNotConfigured = errors.New("visibility controller not configured")
	// ErrRunning is returned when reconfiguring a started controller
	ErrRunning = errors.New("visibility controller is running")
)

// Options configures a Controller. Zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration
	Clock        clockwork.Clock
	Bus          eventbus.EventBus
	Logger       *zap.Logger
}

// Controller keeps dependent field visibility in line with a controlling field.
//
// Host change notifications are not trusted to cover every write, so a
// started controller also polls the controlling field. Both paths end in
// Reconcile, and Evaluate only touches fields whose applied state differs from
// the target, so redundant calls have no side effects.
type Controller struct {
	// lifecycle serialises Configure, Start and Stop; it is taken before mu
	lifecycle sync.Mutex

	mu       sync.Mutex
	env      host.Environment
	rules    *RuleSet
	field    string
	applied  map[string]bool // dependent field -> visible, as last applied
	lastSeen *string         // last controlling value read from the host
	missing  bool

	bus      eventbus.EventBus
	log      *zap.Logger
	clock    clockwork.Clock
	interval time.Duration

	running     bool
	unsubscribe func()
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewController creates an unconfigured controller for env
func NewController(env host.Environment, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
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
	return &Controller{
		env:      env,
		bus:      opts.Bus,
		log:      opts.Logger.Named("visibility"),
		clock:    opts.Clock,
		interval: opts.PollInterval,
	}
}

// Configure installs the rule set and controlling field. Applied state is
// forgotten, so the next evaluation sets every dependent field explicitly.
func (c *Controller) Configure(rules []domain.FieldVisibilityRule, controllingField string, extra ...string) error {
	if controllingField == "" {
		return errors.New("controlling field is required")
	}
	rs, err := NewRuleSet(rules, extra...)
	if err != nil {
		return err
	}
	if rs.Has(controllingField) {
		return fmt.Errorf("controlling field %q cannot depend on itself", controllingField)
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrRunning
	}
	c.rules = rs
	c.field = controllingField
	c.applied = make(map[string]bool, len(rs.universe))
	c.lastSeen = nil
	c.missing = false
	return nil
}

// ControllingField returns the configured controlling field
func (c *Controller) ControllingField() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.field
}

// Rules returns the configured rule set, or nil
func (c *Controller) Rules() *RuleSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rules
}

// Evaluate applies the visible set for value and returns it.
// Fields already in their target state are left alone. A field going from
// visible to hidden has its value cleared.
func (c *Controller) Evaluate(value string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evaluateLocked(value)
}

func (c *Controller) evaluateLocked(value string) ([]string, error) {
	if c.rules == nil {
		return nil, ErrNotConfigured
	}

	var (
		errs                   error
		shown, hidden, cleared []string
	)
	for _, f := range c.rules.universe {
		want := c.rules.IsVisible(value, f)
		had, known := c.applied[f]
		if known && had == want {
			continue
		}

		if want {
			if err := c.env.Show(f); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			c.applied[f] = true
			shown = append(shown, f)
			continue
		}

		if err := c.env.Hide(f); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		hidden = append(hidden, f)
		// the field only counts as hidden once its value is gone, so a failed
		// clear is retried by the next evaluation
		if v, ok := c.env.Value(f); ok && v != "" {
			if err := c.env.SetValue(f, ""); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			cleared = append(cleared, f)
		}
		c.applied[f] = false
	}

	visible := c.rules.VisibleFields(value)
	if len(shown)+len(hidden) > 0 {
		c.log.Debug("visibility changed",
			zap.String("field", c.field),
			zap.String("value", value),
			zap.Strings("shown", shown),
			zap.Strings("hidden", hidden),
			zap.Strings("cleared", cleared))
		c.bus.Publish(domain.FieldVisibilityChangedEvent{
			ControllingField: c.field,
			Value:            value,
			Visible:          visible,
			Shown:            shown,
			Hidden:           hidden,
			Cleared:          cleared,
		})
	}
	if errs != nil {
		c.log.Warn("visibility partially applied", zap.String("value", value), zap.Error(errs))
		c.bus.Publish(domain.ErrorEvent{
			Message: fmt.Sprintf("Filters for %q only partly applied: %v", value, errs),
			Err:     errs,
		})
	}
	return visible, errs
}

// Reconcile reads the controlling field from the host and evaluates it.
// A missing controlling field is logged and leaves dependents unchanged.
func (c *Controller) Reconcile() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rules == nil {
		return ErrNotConfigured
	}
	value, ok := c.env.Value(c.field)
	if !ok {
		c.noteMissingLocked()
		return nil
	}
	return c.observeLocked(value)
}

func (c *Controller) observeLocked(value string) error {
	c.missing = false
	c.lastSeen = &value
	_, err := c.evaluateLocked(value)
	return err
}

func (c *Controller) noteMissingLocked() {
	if !c.missing {
		c.log.Warn("controlling field missing, keeping current visibility", zap.String("field", c.field))
	}
	c.missing = true
}

// poll reconciles only when the controlling value moved since last seen
func (c *Controller) poll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rules == nil {
		return
	}
	value, ok := c.env.Value(c.field)
	if !ok {
		c.noteMissingLocked()
		return
	}
	if c.lastSeen != nil && *c.lastSeen == value && !c.missing {
		return
	}
	c.log.Debug("poll detected change", zap.String("field", c.field), zap.String("value", value))
	_ = c.observeLocked(value)
}

// Visible returns the dependent fields currently applied as visible
func (c *Controller) Visible() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for f, v := range c.applied {
		if v {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// Start subscribes to the controlling field, reconciles once and starts the
// poll loop. It does not block. Call Stop to release the subscription and loop.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	if c.rules == nil {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	field := c.field
	c.mu.Unlock()

	// hosts may call back from inside Subscribe, so mu must not be held here
	unsubscribe := c.env.Subscribe(field, func(string) {
		if err := c.Reconcile(); err != nil {
			c.log.Warn("reconcile on change failed", zap.Error(err))
		}
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribe = unsubscribe
	if value, ok := c.env.Value(c.field); ok {
		if err := c.observeLocked(value); err != nil {
			c.log.Warn("initial reconcile failed", zap.Error(err))
		}
	} else {
		c.noteMissingLocked()
	}

	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.run(ctx, c.clock.NewTicker(c.interval), c.stopCh, c.doneCh)
	return nil
}

// Stop cancels the poll loop and the change subscription. Safe to call more than once.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	stopCh, doneCh := c.stopCh, c.doneCh
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	close(stopCh)
	<-doneCh
}

func (c *Controller) run(ctx context.Context, ticker clockwork.Ticker, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.Chan():
			c.poll()
		}
	}
}
