package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// watsonMessagingDomain is appended to the organisation id when no broker host is set.
const watsonMessagingDomain = "messaging.internetofthings.ibmcloud.com"

// defaultFingerprint is the SHA-1 fingerprint of the platform broker certificate
// shipped with the device. It is used when no fingerprint file is present.
const defaultFingerprint = "B3 B7 C3 0D 9D 32 E6 A2 8A FC FD BA 11 BB 05 5E E1 D9 9E F7"

// Restart modes.
const (
	RestartModeExec    = "exec"
	RestartModeCommand = "command"
	RestartModeExit    = "exit"
)

// Config is the root configuration structure for Gray Logic Device.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device       DeviceConfig       `yaml:"device"`
	Database     DatabaseConfig     `yaml:"database"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	OTA          OTAConfig          `yaml:"ota"`
	Hardware     HardwareConfig     `yaml:"hardware"`
	Agent        AgentConfig        `yaml:"agent"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// DeviceConfig holds the provisioning record used on first boot.
// Once persisted, the stored identity takes precedence over these values.
type DeviceConfig struct {
	Org      string         `yaml:"org"`
	Type     string         `yaml:"type"`
	ID       string         `yaml:"id"`
	Token    string         `yaml:"token"`
	Metadata map[string]any `yaml:"metadata"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	QoS    int              `yaml:"qos"`

	// FingerprintFile is read once at startup. Its trimmed content replaces Fingerprint.
	FingerprintFile string `yaml:"fingerprint_file"`

	// Fingerprint is the expected SHA-1 fingerprint of the broker certificate.
	// Empty disables pinning (the system trust store is used instead).
	Fingerprint string `yaml:"fingerprint"`

	// KeepAlive is the MQTT keepalive interval.
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	// Host defaults to "<org>.messaging.internetofthings.ibmcloud.com" when empty.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	TLS  bool   `yaml:"tls"`
}

// ConnectivityConfig controls the connection supervisor.
type ConnectivityConfig struct {
	// Interface is the network interface whose state defines "link up".
	// Empty means the link is always considered up.
	Interface string `yaml:"interface"`

	// LinkUpCommand is run to (re)acquire the network link, e.g. ["wpa_cli", "reconnect"].
	LinkUpCommand []string `yaml:"link_up_command"`

	// LinkPollInterval is the wait between link checks while the link is down.
	LinkPollInterval time.Duration `yaml:"link_poll_interval"`

	// SessionBackoff is the wait between failed MQTT session attempts.
	SessionBackoff time.Duration `yaml:"session_backoff"`

	// WatchdogWindow is how long the link may stay down before the device restarts.
	WatchdogWindow time.Duration `yaml:"watchdog_window"`
}

// OTAConfig controls firmware updates.
type OTAConfig struct {
	// TargetPath is the executable replaced by a new image. Empty means the running binary.
	TargetPath string        `yaml:"target_path"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxSize    int64         `yaml:"max_size"`
}

// HardwareConfig contains GPIO and restart settings.
type HardwareConfig struct {
	ResetLine ResetLineConfig `yaml:"reset_line"`
	Restart   RestartConfig   `yaml:"restart"`
}

// ResetLineConfig describes the manual "force restart" input.
type ResetLineConfig struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip"`
	Offset  int    `yaml:"offset"`

	// ActiveLow means the line reads 0 while the button is pressed.
	ActiveLow bool `yaml:"active_low"`
}

// RestartConfig selects how a device restart is performed.
type RestartConfig struct {
	// Mode is "exec" (re-execute the binary), "command" (run Command) or "exit".
	Mode    string   `yaml:"mode"`
	Command []string `yaml:"command"`
}

// AgentConfig contains main loop settings.
type AgentConfig struct {
	// IntakeDepth is the capacity of the inbound message queue.
	IntakeDepth int `yaml:"intake_depth"`

	// JournalSize is how many management actions the local journal keeps.
	JournalSize int `yaml:"journal_size"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYDEVICE_SECTION_KEY
// For example: GRAYDEVICE_DEVICE_TOKEN, GRAYDEVICE_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Metadata: map[string]any{
				"pubInterval": 5000,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/graydevice.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Port: 8883,
				TLS:  true,
			},
			QoS:             0,
			FingerprintFile: "./data/fingerprint.txt",
			Fingerprint:     defaultFingerprint,
			KeepAlive:       15 * time.Second,
		},
		Connectivity: ConnectivityConfig{
			LinkPollInterval: 5 * time.Second,
			SessionBackoff:   5 * time.Second,
			WatchdogWindow:   time.Hour,
		},
		OTA: OTAConfig{
			Timeout: 5 * time.Minute,
			MaxSize: 64 << 20,
		},
		Hardware: HardwareConfig{
			ResetLine: ResetLineConfig{
				Chip:      "gpiochip0",
				ActiveLow: true,
			},
			Restart: RestartConfig{
				Mode: RestartModeExec,
			},
		},
		Agent: AgentConfig{
			IntakeDepth: 32,
			JournalSize: 200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYDEVICE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device provisioning
	if v := os.Getenv("GRAYDEVICE_DEVICE_ORG"); v != "" {
		cfg.Device.Org = v
	}
	if v := os.Getenv("GRAYDEVICE_DEVICE_TOKEN"); v != "" {
		cfg.Device.Token = v
	}

	// Database
	if v := os.Getenv("GRAYDEVICE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYDEVICE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYDEVICE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device provisioning is all-or-nothing
	d := c.Device
	set := 0
	for _, v := range []string{d.Org, d.Type, d.ID, d.Token} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 4 {
		errs = append(errs, "device.org, device.type, device.id and device.token must be set together")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.Connectivity.LinkPollInterval <= 0 {
		errs = append(errs, "connectivity.link_poll_interval must be positive")
	}
	if c.Connectivity.SessionBackoff <= 0 {
		errs = append(errs, "connectivity.session_backoff must be positive")
	}
	if c.Connectivity.WatchdogWindow <= 0 {
		errs = append(errs, "connectivity.watchdog_window must be positive")
	}

	if c.Hardware.ResetLine.Enabled && c.Hardware.ResetLine.Offset < 0 {
		errs = append(errs, "hardware.reset_line.offset must not be negative")
	}

	switch c.Hardware.Restart.Mode {
	case RestartModeExec, RestartModeExit:
	case RestartModeCommand:
		if len(c.Hardware.Restart.Command) == 0 {
			errs = append(errs, "hardware.restart.command is required when mode is \"command\"")
		}
	default:
		errs = append(errs, "hardware.restart.mode must be exec, command, or exit")
	}

	if c.Agent.IntakeDepth < 1 {
		errs = append(errs, "agent.intake_depth must be at least 1")
	}
	if c.Agent.JournalSize < 1 {
		errs = append(errs, "agent.journal_size must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BrokerHost returns the configured broker host, or the platform host derived
// from the organisation id when none is set. The org is passed in because the
// persisted identity, not the provisioning section, is authoritative.
func (c *Config) BrokerHost(org string) string {
	if c.MQTT.Broker.Host != "" {
		return c.MQTT.Broker.Host
	}
	return fmt.Sprintf("%s.%s", org, watsonMessagingDomain)
}
