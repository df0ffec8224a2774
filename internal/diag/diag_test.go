package diag

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Navezjt/master-me/internal/conf"
)

func TestInitDisabledIsNoOp(t *testing.T) {
	settings := &conf.Settings{}
	settings.Diag.Enabled = false

	require.NoError(t, Init(settings, "test"))
	assert.False(t, initialized.Load())
}

func TestInitRequiresDSN(t *testing.T) {
	settings := &conf.Settings{}
	settings.Diag.Enabled = true
	settings.Diag.DSN = ""

	require.NoError(t, Init(settings, "test"))
	assert.False(t, initialized.Load())
}

func TestScrubEventStripsHostDetails(t *testing.T) {
	event := &sentry.Event{
		ServerName: "studio-box",
		User:       sentry.User{ID: "someone"},
		Contexts: map[string]sentry.Context{
			"device": {"name": "studio-box"},
			"trace":  {},
		},
	}

	scrubbed := scrubEvent(event, nil)

	require.NotNil(t, scrubbed)
	assert.Empty(t, scrubbed.ServerName)
	assert.True(t, scrubbed.User.IsEmpty())
	assert.NotContains(t, scrubbed.Contexts, "device")
	assert.Contains(t, scrubbed.Contexts, "trace")
}

func TestInstanceIDStable(t *testing.T) {
	first := instanceID()
	second := instanceID()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}
