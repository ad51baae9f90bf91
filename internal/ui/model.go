package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"deskglue/internal/config"
	"deskglue/internal/domain"
	"deskglue/internal/eventbus"
	"deskglue/internal/host"
	"deskglue/internal/lookup"
	"deskglue/internal/ui/services/search"
	"deskglue/internal/ui/services/visibility"
	"deskglue/internal/ui/views"
)

// Filter panel fields that are not driven by configuration
const (
	FieldCustomer = "customer_name"
	FieldMonth    = "expiry_month"
	FieldYear     = "expiry_year"
)

var months = []string{
	"", "January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Options configures a Model. Zero values fall back to defaults.
type Options struct {
	Logger *zap.Logger
	Clock  clockwork.Clock
}

type panelField struct {
	name        string
	label       string
	placeholder string
	options     []string // values cycled with ←/→; nil means search or free text
}

// searchPopup is one open instance of the customer search widget
type searchPopup struct {
	svc        *search.Service
	input      textinput.Model
	spinner    spinner.Model
	spinning   bool
	snap       domain.SearchSnapshot
	cursor     int
	validation string
}

// reportState is the last AMC report run from the panel
type reportState struct {
	table   table.Model
	filters domain.ReportFilters
	rows    int
	seq     uint64
	shown   bool
	loading bool
}

// Model represents the UI state
type Model struct {
	bus        eventbus.EventBus
	config     *config.Config
	backend    lookup.Backend
	log        *zap.Logger
	clock      clockwork.Clock
	form       *host.MemoryForm
	controller *visibility.Controller

	fields  []panelField
	focus   string
	popup   *searchPopup
	details *domain.Customer
	report  reportState

	statusMessage string
	statusIsError bool

	width         int
	height        int
	help          help.Model
	panelKeys     panelKeys
	popupKeys     popupKeys
	styles        *views.Styles
	renderer      *views.Renderer
	popupRenderer *views.PopupRenderer
	helpRenderer  *HelpRenderer
	inPagerMode   bool

	// Program reference for terminal management
	program *tea.Program
}

// NewModel creates the filter panel model. The visibility controller is
// configured here and started by Start.
func NewModel(cfg *config.Config, bus eventbus.EventBus, backend lookup.Backend, opts Options) (*Model, error) {
	if bus == nil {
		bus = eventbus.Nop()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	form := host.NewMemoryForm(bus)
	controller := visibility.NewController(form, visibility.Options{
		PollInterval: cfg.Visibility.PollInterval.Std(),
		Clock:        opts.Clock,
		Bus:          bus,
		Logger:       opts.Logger,
	})
	controlling := cfg.Visibility.ControllingField
	if err := controller.Configure(cfg.Visibility.FieldRules(), controlling); err != nil {
		return nil, fmt.Errorf("configure filter visibility: %w", err)
	}

	styles := views.NewStyles()
	m := &Model{
		bus:           bus,
		config:        cfg,
		backend:       backend,
		log:           opts.Logger.Named("ui"),
		clock:         opts.Clock,
		form:          form,
		controller:    controller,
		help:          help.New(),
		panelKeys:     newPanelKeys(),
		popupKeys:     newPopupKeys(),
		styles:        styles,
		renderer:      views.NewRenderer(styles),
		popupRenderer: views.NewPopupRenderer(styles),
		focus:         FieldCustomer,
		report:        reportState{table: views.NewReportTable(styles)},
	}

	statuses := controller.Rules().Values()
	m.fields = append(m.fields,
		panelField{name: FieldCustomer, label: "Customer", placeholder: "press enter to search"},
		panelField{name: controlling, label: fieldLabel(controlling), placeholder: "-", options: statuses},
	)
	for _, dep := range controller.Rules().Fields() {
		m.fields = append(m.fields, panelField{
			name:        dep,
			label:       fieldLabel(dep),
			placeholder: "any",
			options:     m.optionsFor(dep),
		})
	}
	m.helpRenderer = NewHelpRenderer(statuses)

	initial := ""
	if len(statuses) > 0 {
		initial = statuses[0]
	}
	for _, f := range m.fields {
		value := ""
		if f.name == controlling {
			value = initial
		}
		form.Define(f.name, value, true)
	}
	return m, nil
}

func (m *Model) optionsFor(field string) []string {
	switch field {
	case FieldMonth:
		return months
	case FieldYear:
		year := m.clock.Now().Year()
		opts := []string{""}
		for y := year - 1; y <= year+3; y++ {
			opts = append(opts, strconv.Itoa(y))
		}
		return opts
	default:
		return nil
	}
}

// fieldLabel turns expiry_month into "Expiry Month"
func fieldLabel(name string) string {
	if name == "amc_status" {
		return "AMC Status"
	}
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Start begins visibility reconciliation for the filter panel
func (m *Model) Start(ctx context.Context) error {
	return m.controller.Start(ctx)
}

// Close releases the popup and the visibility controller
func (m *Model) Close() {
	m.closePopup()
	m.controller.Stop()
}

// Form exposes the in-memory host form backing the panel
func (m *Model) Form() *host.MemoryForm {
	return m.form
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.report.table.SetWidth(msg.Width - 4)
		if h := msg.Height - 20; h >= 3 {
			m.report.table.SetHeight(h)
		}
		return m, nil

	case tea.KeyMsg:
		if m.popup != nil {
			return m, m.updatePopup(msg)
		}
		return m, m.updatePanel(msg)

	case EventMsg:
		return m, m.handleEvent(msg.Event)

	case spinner.TickMsg:
		if m.popup == nil || m.popup.snap.Status != domain.StatusLoading {
			if m.popup != nil {
				m.popup.spinning = false
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.popup.spinner, cmd = m.popup.spinner.Update(msg)
		return m, cmd

	case detailsMsg:
		if current, _ := m.form.Value(FieldCustomer); current != msg.id {
			return m, nil
		}
		if msg.err != nil {
			m.log.Warn("customer details failed", zap.String("customer", msg.id), zap.Error(msg.err))
			return m, m.setStatus(fmt.Sprintf("Could not load %s: %v", msg.id, msg.err), true)
		}
		m.details = msg.customer
		return m, nil

	case reportMsg:
		if msg.seq != m.report.seq {
			return m, nil
		}
		m.report.loading = false
		if msg.err != nil {
			m.log.Warn("amc report failed", zap.Error(msg.err))
			m.report.shown = false
			return m, m.setStatus("Report failed: "+msg.err.Error(), true)
		}
		m.report.filters = msg.filters
		m.report.rows = len(msg.rows)
		m.report.table.SetRows(views.ReportRows(msg.rows))
		m.report.table.GotoTop()
		return m, nil

	case helpPagerMsg:
		if msg.err != nil {
			m.log.Warn("help pager failed", zap.Error(msg.err))
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case pauseRenderingMsg:
		m.inPagerMode = true
		return m, nil

	case resumeRenderingMsg:
		m.inPagerMode = false
		return m, nil

	case clearStatusMsg:
		m.statusMessage = ""
		m.statusIsError = false
		return m, nil
	}

	if m.popup != nil {
		var cmd tea.Cmd
		m.popup.input, cmd = m.popup.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updatePanel(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.panelKeys.Quit):
		return tea.Quit
	case key.Matches(msg, m.panelKeys.Help):
		if m.program == nil {
			m.help.ShowAll = !m.help.ShowAll
			return nil
		}
		return m.fetchHelpPager(m.helpRenderer.RenderHelpContent())
	case key.Matches(msg, m.panelKeys.Up):
		m.moveFocus(-1)
	case key.Matches(msg, m.panelKeys.Down):
		m.moveFocus(1)
	case key.Matches(msg, m.panelKeys.Prev):
		return m.cycleFocused(-1)
	case key.Matches(msg, m.panelKeys.Next):
		return m.cycleFocused(1)
	case key.Matches(msg, m.panelKeys.Search):
		return m.openPopup()
	case key.Matches(msg, m.panelKeys.Clear):
		return m.clearFocused()
	case key.Matches(msg, m.panelKeys.Silent):
		return m.assignStatusSilently()
	case key.Matches(msg, m.panelKeys.Report):
		return m.runReport()
	}
	return nil
}

// visibleFields returns the panel fields the host currently shows
func (m *Model) visibleFields() []panelField {
	out := make([]panelField, 0, len(m.fields))
	for _, f := range m.fields {
		if m.form.IsVisible(f.name) {
			out = append(out, f)
		}
	}
	return out
}

func (m *Model) moveFocus(delta int) {
	visible := m.visibleFields()
	if len(visible) == 0 {
		return
	}
	idx := 0
	for i, f := range visible {
		if f.name == m.focus {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(visible)) % len(visible)
	m.focus = visible[idx].name
}

func (m *Model) focusedField() (panelField, bool) {
	for _, f := range m.fields {
		if f.name == m.focus {
			return f, true
		}
	}
	return panelField{}, false
}

func (m *Model) cycleFocused(delta int) tea.Cmd {
	f, ok := m.focusedField()
	if !ok || len(f.options) == 0 {
		return nil
	}
	current, _ := m.form.Value(f.name)
	next := cycle(f.options, current, delta)
	if err := m.form.SetValue(f.name, next); err != nil {
		return m.setStatus(err.Error(), true)
	}
	return nil
}

func (m *Model) clearFocused() tea.Cmd {
	f, ok := m.focusedField()
	if !ok {
		return nil
	}
	value := ""
	if f.name == m.controller.ControllingField() && len(f.options) > 0 {
		value = f.options[0]
	}
	if f.name == FieldCustomer {
		m.details = nil
	}
	if err := m.form.SetValue(f.name, value); err != nil {
		return m.setStatus(err.Error(), true)
	}
	return nil
}

// assignStatusSilently moves the controlling field to its next value through
// a write that does not notify subscribers
func (m *Model) assignStatusSilently() tea.Cmd {
	field := m.controller.ControllingField()
	statuses := m.controller.Rules().Values()
	if len(statuses) == 0 {
		return nil
	}
	current, _ := m.form.Value(field)
	next := cycle(statuses, current, 1)
	if err := m.form.Assign(field, next); err != nil {
		return m.setStatus(err.Error(), true)
	}
	return m.setStatus(fmt.Sprintf("%s set to %q without a change event", fieldLabel(field), next), false)
}

func cycle(options []string, current string, delta int) string {
	idx := -1
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	if idx < 0 && delta < 0 {
		idx = 0
	}
	idx = (idx + delta + len(options)) % len(options)
	return options[idx]
}

func (m *Model) openPopup() tea.Cmd {
	m.closePopup()

	svc := search.NewService(lookup.SearchFunc(m.backend), search.Options{
		Debounce: m.config.Search.Debounce.Std(),
		Clock:    m.clock,
		Bus:      m.bus,
		Logger:   m.log,
	})

	input := textinput.New()
	input.Prompt = "Search: "
	input.Placeholder = "code, name, place or phone"
	input.CharLimit = 100
	input.Width = 40
	focusCmd := input.Focus()

	m.popup = &searchPopup{
		svc:     svc,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		snap:    svc.Snapshot(),
	}
	return focusCmd
}

func (m *Model) closePopup() {
	if m.popup == nil {
		return
	}
	m.popup.svc.Close()
	m.popup = nil
}

func (m *Model) updatePopup(msg tea.KeyMsg) tea.Cmd {
	p := m.popup
	switch {
	case key.Matches(msg, m.popupKeys.Close):
		m.closePopup()
		return nil
	case key.Matches(msg, m.popupKeys.Up):
		return m.moveSelection(-1)
	case key.Matches(msg, m.popupKeys.Down):
		return m.moveSelection(1)
	case key.Matches(msg, m.popupKeys.Confirm):
		return m.confirmSelection()
	}

	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() == before {
		return cmd
	}
	p.validation = ""
	p.svc.OnQueryChange(p.input.Value())
	return tea.Batch(cmd, m.applySnapshot(p.svc.Snapshot()))
}

func (m *Model) moveSelection(delta int) tea.Cmd {
	p := m.popup
	if p.snap.Status != domain.StatusResults || len(p.snap.Results) == 0 {
		return nil
	}
	cursor := p.cursor
	if p.snap.Selected != nil {
		cursor += delta
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(p.snap.Results) {
		cursor = len(p.snap.Results) - 1
	}

	if err := p.svc.Select(p.snap.Results[cursor].ID); err != nil {
		// results were replaced under us; the next snapshot fixes the list
		m.log.Debug("select failed", zap.Error(err))
		return nil
	}
	p.cursor = cursor
	p.validation = ""
	return m.applySnapshot(p.svc.Snapshot())
}

func (m *Model) confirmSelection() tea.Cmd {
	p := m.popup
	result, err := p.svc.Confirm()
	if errors.Is(err, domain.ErrNoSelection) {
		p.validation = views.MsgNoSelection
		return nil
	}
	if err != nil {
		return m.setStatus(err.Error(), true)
	}

	m.closePopup()
	m.details = nil
	if err := m.form.SetValue(FieldCustomer, result.ID); err != nil {
		return m.setStatus(err.Error(), true)
	}
	m.focus = FieldCustomer
	return tea.Batch(
		m.fetchDetails(result.ID),
		m.setStatus("Customer: "+result.DisplayName, false),
	)
}

// applySnapshot installs a newer snapshot of the open popup
func (m *Model) applySnapshot(snap domain.SearchSnapshot) tea.Cmd {
	p := m.popup
	if p == nil || snap.WidgetID != p.svc.ID() || snap.Revision <= p.snap.Revision {
		return nil
	}
	p.snap = snap

	p.cursor = 0
	if snap.Selected != nil {
		for i, r := range snap.Results {
			if r.ID == snap.Selected.ID {
				p.cursor = i
				break
			}
		}
	}

	if snap.Status == domain.StatusLoading && !p.spinning {
		p.spinning = true
		return p.spinner.Tick
	}
	return nil
}

// handleEvent processes domain events forwarded from the bus
func (m *Model) handleEvent(event eventbus.DomainEvent) tea.Cmd {
	switch e := event.(type) {
	case eventbus.SearchStateChangedEvent:
		return m.applySnapshot(e.Snapshot)
	case eventbus.FieldVisibilityChangedEvent:
		if !m.form.IsVisible(m.focus) {
			m.focus = e.ControllingField
		}
	case eventbus.FieldValueChangedEvent:
		if e.Field == FieldCustomer && e.Value == "" {
			m.details = nil
		}
	case eventbus.ErrorEvent:
		return m.setStatus(e.Message, true)
	}
	return nil
}

// fetchDetails loads the full record for a confirmed customer
func (m *Model) fetchDetails(id string) tea.Cmd {
	backend := m.backend
	timeout := m.config.Backend.Timeout.Std()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		customer, err := backend.Details(ctx, id)
		return detailsMsg{id: id, customer: customer, err: err}
	}
}

// ReportFilters reads the AMC report filters from the panel. Hidden fields
// never contribute a condition.
func (m *Model) ReportFilters() domain.ReportFilters {
	read := func(field string) string {
		if !m.form.IsVisible(field) {
			return ""
		}
		v, _ := m.form.Value(field)
		return v
	}
	return domain.ReportFilters{
		Customer:    read(FieldCustomer),
		AMCStatus:   read(m.controller.ControllingField()),
		ExpiryMonth: read(FieldMonth),
		ExpiryYear:  read(FieldYear),
	}
}

// runReport queries the backend with the current panel filters. Only the
// newest run is displayed.
func (m *Model) runReport() tea.Cmd {
	filters := m.ReportFilters()
	m.report.seq++
	m.report.shown = true
	m.report.loading = true
	m.report.filters = filters

	seq := m.report.seq
	backend := m.backend
	timeout := m.config.Backend.Timeout.Std()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rows, err := backend.AMCReport(ctx, filters)
		return reportMsg{seq: seq, filters: filters, rows: rows, err: err}
	}
}

// fetchHelpPager returns a command that shows help using ov pager
func (m *Model) fetchHelpPager(helpContent string) tea.Cmd {
	program := m.program
	return func() tea.Msg {
		program.Send(pauseRenderingMsg{})
		err := NewHelpOps(program).ShowHelpInPager(helpContent)
		program.Send(resumeRenderingMsg{})
		return helpPagerMsg{err: err}
	}
}

func (m *Model) setStatus(text string, isError bool) tea.Cmd {
	m.statusMessage = text
	m.statusIsError = isError
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

// View renders the UI
func (m *Model) View() string {
	if m.inPagerMode {
		return ""
	}

	controlling := m.controller.ControllingField()
	var rows []views.FieldView
	for _, f := range m.visibleFields() {
		value, _ := m.form.Value(f.name)
		row := views.FieldView{
			Name:        f.name,
			Label:       f.label,
			Value:       value,
			Placeholder: f.placeholder,
			Focused:     f.name == m.focus,
		}
		if f.name == controlling {
			row.Color = views.StatusColor(value)
		}
		rows = append(rows, row)
	}

	var b strings.Builder
	b.WriteString(m.renderer.RenderPanel("AMC Report Filters", rows))
	if m.details != nil {
		b.WriteString("\n")
		b.WriteString(m.renderer.RenderDetails(m.details, m.width-4))
	}
	if m.report.shown {
		b.WriteString("\n\n")
		b.WriteString(m.renderer.RenderReport(views.ReportView{
			Table:   m.report.table.View(),
			Rows:    m.report.rows,
			Filters: m.report.filters,
			Loading: m.report.loading,
			Stale:   !m.report.loading && m.ReportFilters() != m.report.filters,
		}))
	}
	if m.statusMessage != "" {
		style := m.styles.Status
		if m.statusIsError {
			style = m.styles.StatusError.MarginTop(1)
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.statusMessage))
	}
	b.WriteString("\n")
	if m.popup != nil {
		b.WriteString(m.styles.Help.Render(m.help.View(m.popupKeys)))
	} else {
		b.WriteString(m.styles.Help.Render(m.help.View(m.panelKeys)))
	}
	main := m.styles.Main.Render(b.String())

	if m.popup == nil {
		return main
	}

	maxRows := 10
	if m.height > 0 && m.height-14 < maxRows {
		maxRows = m.height - 14
	}
	body := m.renderer.RenderSearch(views.SearchView{
		Input:      m.popup.input.View(),
		Spinner:    m.popup.spinner.View(),
		Snapshot:   m.popup.snap,
		Cursor:     m.popup.cursor,
		Validation: m.popup.validation,
		MaxRows:    maxRows,
	})
	return m.popupRenderer.RenderPopupOverlay(main, body, m.height, m.width)
}
