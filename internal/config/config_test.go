package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskglue/internal/domain"
	"deskglue/internal/eventbus"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500*time.Millisecond, cfg.Search.Debounce.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Visibility.PollInterval.Std())
	assert.Equal(t, "amc_status", cfg.Visibility.ControllingField)
	assert.Equal(t, []domain.FieldVisibilityRule{
		{ControllingValue: "All", VisibleFields: []string{}},
		{ControllingValue: "AMC Expired", VisibleFields: []string{}},
		{ControllingValue: "Upcoming Expiry", VisibleFields: []string{"expiry_month", "expiry_year"}},
	}, cfg.Visibility.FieldRules())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cs := NewConfigService(filepath.Join(t.TempDir(), "none.toml"))

	cfg, err := cs.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cs := NewConfigService(path)

	cfg := DefaultConfig()
	cfg.Search.Debounce = Duration(300 * time.Millisecond)
	cfg.Backend = BackendConfig{
		Kind:      BackendFrappe,
		BaseURL:   "https://helpdesk.example.com",
		APIKey:    "key",
		APISecret: "secret",
		Timeout:   Duration(5 * time.Second),
	}
	require.NoError(t, cs.Save(cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "300ms")

	loaded, err := cs.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
[search]
debounce = "1s"

[[visibility.rules]]
value = "Open"
visible = ["due_date"]
`), 0600))

	cfg, err := NewConfigService(path).Load()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Search.Debounce.Std())
	assert.Equal(t, 20, cfg.Search.ResultLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Visibility.PollInterval.Std())
	assert.Equal(t, []Rule{{Value: "Open", Visible: []string{"due_date"}}}, cfg.Visibility.Rules)
	assert.Equal(t, BackendDirectory, cfg.Backend.Kind)
	assert.Equal(t, "customers.yaml", cfg.Backend.CustomersFile)
	assert.Equal(t, "file", cfg.Logging.Output)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"syntax":         "[search\ndebounce = 1",
		"bad duration":   "[search]\ndebounce = \"soon\"",
		"duplicate rule": "[[visibility.rules]]\nvalue = \"All\"\n[[visibility.rules]]\nvalue = \"All\"",
		"unknown kind":   "[backend]\nkind = \"ldap\"",
		"frappe no url":  "[backend]\nkind = \"frappe\"",
		"negative poll":  "[visibility]\npoll_interval = \"-1s\"",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(content), 0600))

			_, err := NewConfigService(path).Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadFromPathNotFound(t *testing.T) {
	cs := NewConfigService("")

	_, err := cs.LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "config file not found")
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.Debounce = 0

	err := NewConfigService(filepath.Join(t.TempDir(), "c.toml")).Save(cfg)
	assert.Error(t, err)
}

func TestConfigEvents(t *testing.T) {
	bus := eventbus.New(nil)
	defer bus.Close()

	got := make(chan eventbus.DomainEvent, 2)
	bus.Subscribe(eventbus.EventConfigLoaded, func(e eventbus.DomainEvent) { got <- e })
	bus.Subscribe(eventbus.EventConfigSaved, func(e eventbus.DomainEvent) { got <- e })

	path := filepath.Join(t.TempDir(), "c.toml")
	cs := NewConfigServiceWithBus(path, bus)
	cfg, err := cs.Load()
	require.NoError(t, err)
	require.NoError(t, cs.Save(cfg))

	for _, want := range []eventbus.DomainEvent{
		eventbus.ConfigLoadedEvent{Path: path},
		eventbus.ConfigSavedEvent{Path: path},
	} {
		select {
		case e := <-got:
			assert.Equal(t, want, e)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want.Type())
		}
	}
}
