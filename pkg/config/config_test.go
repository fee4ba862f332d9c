package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults_Validate(t *testing.T) {
	c := Defaults()
	require.NoError(t, c.Validate())
	assert.Equal(t, time.Second, c.Beacon.Interval())
	assert.Equal(t, 30*time.Second, c.Requests.Timeout())
	assert.Equal(t, 10*time.Minute, c.Requests.SilenceDuration())
	assert.Equal(t, 500*time.Millisecond, c.Party.ReconnectBroadcastDelay())
	assert.Equal(t, []string{ItemBeaconBand}, c.StarterItems())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
beacon:
  update_interval_seconds: 2
  health_data_mode: ALWAYS
map_pings:
  max_per_window: 4
items:
  wayfindercompass:
    give_on_first_join: true
  heroscallstone:
    enabled: false
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.0, c.Beacon.UpdateIntervalSeconds)
	assert.Equal(t, HealthDataAlways, c.Beacon.HealthDataMode)
	assert.Equal(t, 4, c.MapPings.MaxPerWindow)
	assert.Equal(t, 10.0, c.MapPings.WindowSeconds)
	assert.True(t, c.MapPings.Enabled)

	assert.True(t, c.ItemEnabled(ItemWayfinderCompass))
	assert.False(t, c.ItemEnabled(ItemHerosCallStone))
	assert.True(t, c.ItemEnabled(ItemBeaconBand))
	assert.False(t, c.ItemEnabled("mystery"))
	assert.ElementsMatch(t, []string{ItemWayfinderCompass, ItemBeaconBand}, c.StarterItems())
}

func TestLoad_ClampsInterval(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{name: "too small", in: "0.1", want: MinBeaconIntervalSeconds},
		{name: "too large", in: "60", want: MaxBeaconIntervalSeconds},
		{name: "in range", in: "3.5", want: 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(writeConfig(t, "beacon:\n  update_interval_seconds: "+tt.in+"\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Beacon.UpdateIntervalSeconds)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown health mode", body: "beacon:\n  health_data_mode: sometimes\n"},
		{name: "party of one", body: "party:\n  max_size: 1\n"},
		{name: "bad codec", body: "network:\n  payload_codec: xml\n"},
		{name: "firebase without project", body: "auth:\n  provider: firebase\n"},
		{name: "zero timeout", body: "requests:\n  timeout_seconds: 0\n"},
		{name: "malformed yaml", body: "beacon: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BUDDYBEACON_DATABASE_URL", "sqlite://beacon.db")
	t.Setenv("BUDDYBEACON_FIREBASE_PROJECT_ID", "proj")

	c := Defaults()
	c.ApplyEnv()
	assert.Equal(t, "sqlite://beacon.db", c.DatabaseURL)
	assert.Equal(t, "proj", c.Auth.FirebaseProjectID)
}
