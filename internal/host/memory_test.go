package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskglue/internal/domain"
)

func TestMemoryFormSetValueNotifies(t *testing.T) {
	form := NewMemoryForm(nil)
	form.Define("amc_status", "All", true)

	var seen []string
	form.Subscribe("amc_status", func(v string) { seen = append(seen, v) })

	require.NoError(t, form.SetValue("amc_status", "Upcoming Expiry"))
	v, ok := form.Value("amc_status")
	require.True(t, ok)
	assert.Equal(t, "Upcoming Expiry", v)
	assert.Equal(t, []string{"Upcoming Expiry"}, seen)
}

func TestMemoryFormAssignIsSilent(t *testing.T) {
	form := NewMemoryForm(nil)
	form.Define("amc_status", "All", true)

	called := false
	form.Subscribe("amc_status", func(string) { called = true })

	require.NoError(t, form.Assign("amc_status", "AMC Expired"))
	v, _ := form.Value("amc_status")
	assert.Equal(t, "AMC Expired", v)
	assert.False(t, called)
}

func TestMemoryFormUnknownField(t *testing.T) {
	form := NewMemoryForm(nil)

	_, ok := form.Value("missing")
	assert.False(t, ok)
	assert.ErrorIs(t, form.SetValue("missing", "x"), domain.ErrUnknownField)
	assert.ErrorIs(t, form.Hide("missing"), domain.ErrUnknownField)
}

func TestMemoryFormUnsubscribe(t *testing.T) {
	form := NewMemoryForm(nil)
	form.Define("f", "", true)

	calls := 0
	unsubscribe := form.Subscribe("f", func(string) { calls++ })
	form.Subscribe("f", func(string) {})
	require.Equal(t, 2, form.SubscriberCount("f"))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, form.SubscriberCount("f"))

	require.NoError(t, form.SetValue("f", "x"))
	assert.Equal(t, 0, calls)
}

func TestMemoryFormVisibility(t *testing.T) {
	form := NewMemoryForm(nil)
	form.Define("expiry_month", "", false)
	form.Define("expiry_year", "", false)
	form.Define("amc_status", "All", true)

	require.NoError(t, form.Show("expiry_year"))
	assert.Equal(t, []string{"amc_status", "expiry_year"}, form.VisibleFields())
	assert.Equal(t, []string{"expiry_month", "expiry_year", "amc_status"}, form.Fields())

	form.Remove("expiry_year")
	assert.False(t, form.IsVisible("expiry_year"))
	assert.Equal(t, []string{"expiry_month", "amc_status"}, form.Fields())
}
