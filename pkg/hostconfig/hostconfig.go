// Package hostconfig loads the configuration for the example KFly host
// programs (kfly-sniff, kfly-tui). The core kfly package never reads
// configuration of any kind; this package exists purely for the
// surrounding example binaries.
package hostconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultConfigPath is where example hosts look for configuration when
// none is given on the command line.
const DefaultConfigPath = "kfly-host.toml"

// Config is the example host's full configuration surface.
type Config struct {
	Serial   SerialConfig   `toml:"serial"`
	Subscribe []SubscribeEntry `toml:"subscribe"`
	Log      LogConfig      `toml:"log"`
	Foxglove FoxgloveConfig `toml:"foxglove"`

	configPath string `toml:"-"`
}

// SerialConfig names the physical link to the device.
type SerialConfig struct {
	Port         string `toml:"port"`
	Baud         int    `toml:"baud"`
	ReconnectMs  int    `toml:"reconnect_ms"`
	ReadBufBytes int    `toml:"read_buf_bytes"`
}

// SubscribeEntry asks the device to periodically publish one command.
type SubscribeEntry struct {
	Command    string `toml:"command"`
	IntervalMs uint32 `toml:"interval_ms"`
}

// LogConfig controls the JSONL diagnostic sink.
type LogConfig struct {
	Path string `toml:"path"`
}

// FoxgloveConfig controls the optional live telemetry bridge.
type FoxgloveConfig struct {
	WSAddr      string `toml:"ws_addr"`
	Topic       string `toml:"topic"`
	SchemaName  string `toml:"schema_name"`
	ParentFrame string `toml:"parent_frame"`
	FrameID     string `toml:"frame_id"`
}

// Default returns the built-in configuration used when no file exists
// yet and no overrides have been supplied.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Port:         "/dev/ttyACM0",
			Baud:         115200,
			ReconnectMs:  500,
			ReadBufBytes: 4096,
		},
		Subscribe: []SubscribeEntry{
			{Command: "GetSystemStatus", IntervalMs: 500},
			{Command: "GetIMUData", IntervalMs: 20},
		},
		Log: LogConfig{Path: "kfly.jsonl"},
		Foxglove: FoxgloveConfig{
			WSAddr:      "127.0.0.1:8765",
			Topic:       "kfly/telemetry",
			SchemaName:  "kfly.Telemetry",
			ParentFrame: "world",
			FrameID:     "kfly",
		},
	}
}

// Load reads and validates the config at path, failing if it does not
// exist.
func Load(path string) (Config, error) {
	cfg, exists, err := LoadOrDefault(path)
	if err != nil {
		return Config{}, err
	}
	if !exists {
		return Config{}, os.ErrNotExist
	}
	return cfg, nil
}

// LoadOrDefault reads path if present, merging missing fields with
// Default(); if path does not exist it returns Default() with
// exists=false and no error.
func LoadOrDefault(path string) (cfg Config, exists bool, err error) {
	cfg = Default()
	cfg.configPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize(path)
			return cfg, false, nil
		}
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, true, fmt.Errorf("parse config: %w", err)
	}
	cfg.configPath = path
	cfg.normalize(path)

	if err := cfg.Validate(); err != nil {
		return Config{}, true, err
	}
	return cfg, true, nil
}

// Save writes cfg to path, creating parent directories as needed.
func (cfg *Config) Save(path string) error {
	cfg.normalize(path)
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ConfigPath reports the path this config was loaded from or will be
// saved to.
func (cfg *Config) ConfigPath() string {
	return cfg.configPath
}

// Validate rejects configurations that would fail at runtime in ways
// better caught at load time.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Serial.Port) == "" {
		return fmt.Errorf("serial.port must not be empty")
	}
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", cfg.Serial.Baud)
	}
	for _, sub := range cfg.Subscribe {
		if strings.TrimSpace(sub.Command) == "" {
			return fmt.Errorf("subscribe entry has empty command")
		}
	}
	return nil
}

func (cfg *Config) normalize(path string) {
	def := Default()

	if cfg.Serial.Port == "" {
		cfg.Serial.Port = def.Serial.Port
	}
	if cfg.Serial.Baud <= 0 {
		cfg.Serial.Baud = def.Serial.Baud
	}
	if cfg.Serial.ReconnectMs <= 0 {
		cfg.Serial.ReconnectMs = def.Serial.ReconnectMs
	}
	if cfg.Serial.ReadBufBytes <= 0 {
		cfg.Serial.ReadBufBytes = def.Serial.ReadBufBytes
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = def.Log.Path
	}
	if cfg.Foxglove.WSAddr == "" {
		cfg.Foxglove.WSAddr = def.Foxglove.WSAddr
	}
	if cfg.Foxglove.Topic == "" {
		cfg.Foxglove.Topic = def.Foxglove.Topic
	}
	if cfg.Foxglove.SchemaName == "" {
		cfg.Foxglove.SchemaName = def.Foxglove.SchemaName
	}
	if cfg.Foxglove.ParentFrame == "" {
		cfg.Foxglove.ParentFrame = def.Foxglove.ParentFrame
	}
	if cfg.Foxglove.FrameID == "" {
		cfg.Foxglove.FrameID = def.Foxglove.FrameID
	}

	if path == "" {
		path = cfg.configPath
	}
	if path == "" {
		path = DefaultConfigPath
	}
	cfg.configPath = path
}
