package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	MinBeaconIntervalSeconds = 0.5
	MaxBeaconIntervalSeconds = 10.0
)

// Vitals policies accepted by beacon.health_data_mode.
const (
	HealthDataAlways   = "always"
	HealthDataOnChange = "on_change"
	HealthDataNever    = "never"
)

// Payload codecs accepted by network.payload_codec.
const (
	CodecJSON = "json"
	CodecCBOR = "cbor"
)

// Auth providers accepted by auth.provider.
const (
	AuthProviderTrusted  = "trusted"
	AuthProviderFirebase = "firebase"
)

// Token item codes.
const (
	ItemWayfinderCompass = "wayfindercompass"
	ItemHerosCallStone   = "heroscallstone"
	ItemBeaconBand       = "beaconband"
)

type Config struct {
	LogLevel    string                `yaml:"log_level"`
	DatabaseURL string                `yaml:"database_url"`
	Network     NetworkConfig         `yaml:"network"`
	Auth        AuthConfig            `yaml:"auth"`
	Beacon      BeaconConfig          `yaml:"beacon"`
	MapPings    LimiterConfig         `yaml:"map_pings"`
	Chat        LimiterConfig         `yaml:"chat"`
	Requests    RequestConfig         `yaml:"requests"`
	Party       PartyConfig           `yaml:"party"`
	Items       map[string]ItemConfig `yaml:"items"`
}

type NetworkConfig struct {
	WSPort               int     `yaml:"ws_port"`
	TCPPort              int     `yaml:"tcp_port"`
	APIPort              int     `yaml:"api_port"`
	PayloadCodec         string  `yaml:"payload_codec"`
	InboundRatePerSecond float64 `yaml:"inbound_rate_per_second"`
	InboundBurst         int     `yaml:"inbound_burst"`
	GameLoopIntervalMs   int     `yaml:"game_loop_interval_ms"`
}

type AuthConfig struct {
	Provider             string   `yaml:"provider"`
	FirebaseProjectID    string   `yaml:"firebase_project_id"`
	FirebaseAPIKey       string   `yaml:"firebase_api_key"`
	FirebaseCheckRevoked bool     `yaml:"firebase_check_revoked"`
	// AdminUIDs may use the admin API. Empty allows any verified token.
	AdminUIDs            []string `yaml:"admin_uids"`
}

type BeaconConfig struct {
	UpdateIntervalSeconds     float64 `yaml:"update_interval_seconds"`
	MaxGroupSize              int     `yaml:"max_group_size"`
	PositionChangeThreshold   float64 `yaml:"position_change_threshold"`
	HealthDataMode            string  `yaml:"health_data_mode"`
	HealthChangeThreshold     float64 `yaml:"health_change_threshold"`
	SaturationChangeThreshold float64 `yaml:"saturation_change_threshold"`
	EnableDistanceLOD         bool    `yaml:"enable_distance_lod"`
	LODNearDistance           float64 `yaml:"lod_near_distance"`
	LODMidDistance            float64 `yaml:"lod_mid_distance"`
}

// LimiterConfig configures a feature gated by a sliding window limiter.
type LimiterConfig struct {
	Enabled       bool    `yaml:"enabled"`
	WindowSeconds float64 `yaml:"window_seconds"`
	MaxPerWindow  int     `yaml:"max_per_window"`
}

type RequestConfig struct {
	TimeoutSeconds         float64 `yaml:"timeout_seconds"`
	SweepIntervalMs        int     `yaml:"sweep_interval_ms"`
	SilenceDurationMinutes float64 `yaml:"silence_duration_minutes"`
}

type PartyConfig struct {
	MaxSize                   int `yaml:"max_size"`
	ReconnectBroadcastDelayMs int `yaml:"reconnect_broadcast_delay_ms"`
}

// ItemConfig toggles a token item. Enabled defaults to true when omitted.
type ItemConfig struct {
	Enabled         *bool `yaml:"enabled,omitempty"`
	GiveOnFirstJoin bool  `yaml:"give_on_first_join"`
}

func (c ItemConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		LogLevel:    "info",
		DatabaseURL: "memory://",
		Network: NetworkConfig{
			WSPort:               8080,
			TCPPort:              8888,
			APIPort:              9090,
			PayloadCodec:         CodecJSON,
			InboundRatePerSecond: 20,
			InboundBurst:         40,
			GameLoopIntervalMs:   100,
		},
		Auth: AuthConfig{
			Provider: AuthProviderTrusted,
		},
		Beacon: BeaconConfig{
			UpdateIntervalSeconds:     1.0,
			MaxGroupSize:              0,
			PositionChangeThreshold:   0,
			HealthDataMode:            HealthDataOnChange,
			HealthChangeThreshold:     0.5,
			SaturationChangeThreshold: 25,
			EnableDistanceLOD:         true,
			LODNearDistance:           100,
			LODMidDistance:            500,
		},
		MapPings: LimiterConfig{
			Enabled:       true,
			WindowSeconds: 10,
			MaxPerWindow:  3,
		},
		Chat: LimiterConfig{
			Enabled:       true,
			WindowSeconds: 10,
			MaxPerWindow:  5,
		},
		Requests: RequestConfig{
			TimeoutSeconds:         30,
			SweepIntervalMs:        1000,
			SilenceDurationMinutes: 10,
		},
		Party: PartyConfig{
			MaxSize:                   0,
			ReconnectBroadcastDelayMs: 500,
		},
		Items: map[string]ItemConfig{
			ItemWayfinderCompass: {},
			ItemHerosCallStone:   {},
			ItemBeaconBand:       {GiveOnFirstJoin: true},
		},
	}
}

// Load reads a YAML file on top of Defaults, then normalizes and validates it.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides file settings with BUDDYBEACON_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("BUDDYBEACON_DATABASE_URL")); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("BUDDYBEACON_FIREBASE_PROJECT_ID")); v != "" {
		c.Auth.FirebaseProjectID = v
	}
	if v := strings.TrimSpace(os.Getenv("BUDDYBEACON_FIREBASE_API_KEY")); v != "" {
		c.Auth.FirebaseAPIKey = v
	}
}

// Normalize clamps values that have a legal range instead of a hard limit.
func (c *Config) Normalize() {
	if c.Beacon.UpdateIntervalSeconds < MinBeaconIntervalSeconds {
		c.Beacon.UpdateIntervalSeconds = MinBeaconIntervalSeconds
	}
	if c.Beacon.UpdateIntervalSeconds > MaxBeaconIntervalSeconds {
		c.Beacon.UpdateIntervalSeconds = MaxBeaconIntervalSeconds
	}
	c.Beacon.HealthDataMode = strings.ToLower(strings.TrimSpace(c.Beacon.HealthDataMode))
	c.Network.PayloadCodec = strings.ToLower(strings.TrimSpace(c.Network.PayloadCodec))
	if c.Network.PayloadCodec == "" {
		c.Network.PayloadCodec = CodecJSON
	}
	if c.Items == nil {
		c.Items = map[string]ItemConfig{}
	}
}

func (c Config) Validate() error {
	var errs []error
	b := c.Beacon
	switch b.HealthDataMode {
	case HealthDataAlways, HealthDataOnChange, HealthDataNever:
	default:
		errs = append(errs, fmt.Errorf("beacon.health_data_mode: unknown mode %q", b.HealthDataMode))
	}
	if b.MaxGroupSize < 0 {
		errs = append(errs, errors.New("beacon.max_group_size must be >= 0"))
	}
	if b.PositionChangeThreshold < 0 || b.HealthChangeThreshold < 0 || b.SaturationChangeThreshold < 0 {
		errs = append(errs, errors.New("beacon change thresholds must be >= 0"))
	}
	if b.LODNearDistance < 0 || b.LODMidDistance < b.LODNearDistance {
		errs = append(errs, errors.New("beacon.lod_mid_distance must be >= lod_near_distance >= 0"))
	}
	for name, l := range map[string]LimiterConfig{"map_pings": c.MapPings, "chat": c.Chat} {
		if l.Enabled && (l.WindowSeconds <= 0 || l.MaxPerWindow <= 0) {
			errs = append(errs, fmt.Errorf("%s: window_seconds and max_per_window must be > 0", name))
		}
	}
	if c.Requests.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("requests.timeout_seconds must be > 0"))
	}
	if c.Requests.SweepIntervalMs <= 0 {
		errs = append(errs, errors.New("requests.sweep_interval_ms must be > 0"))
	}
	if c.Requests.SilenceDurationMinutes <= 0 {
		errs = append(errs, errors.New("requests.silence_duration_minutes must be > 0"))
	}
	if c.Party.MaxSize < 0 || c.Party.MaxSize == 1 {
		errs = append(errs, errors.New("party.max_size must be 0 (unlimited) or >= 2"))
	}
	switch c.Network.PayloadCodec {
	case CodecJSON, CodecCBOR:
	default:
		errs = append(errs, fmt.Errorf("network.payload_codec: unknown codec %q", c.Network.PayloadCodec))
	}
	if c.Network.GameLoopIntervalMs <= 0 {
		errs = append(errs, errors.New("network.game_loop_interval_ms must be > 0"))
	}
	switch c.Auth.Provider {
	case AuthProviderTrusted:
	case AuthProviderFirebase:
		if c.Auth.FirebaseProjectID == "" {
			errs = append(errs, errors.New("auth.firebase_project_id is required for the firebase provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.provider: unknown provider %q", c.Auth.Provider))
	}
	return errors.Join(errs...)
}

// ItemEnabled reports whether the token item code is enabled.
// Unknown items are disabled.
func (c Config) ItemEnabled(code string) bool {
	item, ok := c.Items[code]
	return ok && item.IsEnabled()
}

// StarterItems returns the enabled items granted on a first join.
func (c Config) StarterItems() []string {
	var items []string
	for _, code := range []string{ItemWayfinderCompass, ItemHerosCallStone, ItemBeaconBand} {
		if item, ok := c.Items[code]; ok && item.IsEnabled() && item.GiveOnFirstJoin {
			items = append(items, code)
		}
	}
	return items
}

func (b BeaconConfig) Interval() time.Duration {
	return time.Duration(b.UpdateIntervalSeconds * float64(time.Second))
}

func (l LimiterConfig) Window() time.Duration {
	return time.Duration(l.WindowSeconds * float64(time.Second))
}

func (r RequestConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds * float64(time.Second))
}

func (r RequestConfig) SweepInterval() time.Duration {
	return time.Duration(r.SweepIntervalMs) * time.Millisecond
}

func (r RequestConfig) SilenceDuration() time.Duration {
	return time.Duration(r.SilenceDurationMinutes * float64(time.Minute))
}

func (p PartyConfig) ReconnectBroadcastDelay() time.Duration {
	return time.Duration(p.ReconnectBroadcastDelayMs) * time.Millisecond
}

func (n NetworkConfig) GameLoopInterval() time.Duration {
	return time.Duration(n.GameLoopIntervalMs) * time.Millisecond
}
