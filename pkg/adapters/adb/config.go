package adb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDumpPath is where uiautomator writes the hierarchy on the device.
const DefaultDumpPath = "/sdcard/window_dump.xml"

// Config describes how to reach one Android device.
type Config struct {
	// ADBPath is the adb binary; "adb" resolves through PATH.
	ADBPath string `yaml:"adb_path" json:"adb_path" env:"ADB_PATH"`
	// Serial selects the device (adb -s). Empty uses the only attached device.
	Serial   string `yaml:"serial" json:"serial" env:"SERIAL"`
	DumpPath string `yaml:"dump_path" json:"dump_path" env:"DUMP_PATH"`
	// Timeout bounds each adb invocation. Zero means no bound beyond the caller's context.
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	// MaxInputSize caps the bytes typed by one write action.
	MaxInputSize int `yaml:"max_input_size" json:"max_input_size" env:"MAX_INPUT_SIZE"`
}

// DefaultConfig returns the configuration used for a single attached device.
func DefaultConfig() Config {
	return Config{ADBPath: "adb", DumpPath: DefaultDumpPath, Timeout: 30 * time.Second, MaxInputSize: DefaultMaxInputSize}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ADBPath == "" {
		c.ADBPath = def.ADBPath
	}
	if c.DumpPath == "" {
		c.DumpPath = def.DumpPath
	}
	if c.MaxInputSize <= 0 {
		c.MaxInputSize = def.MaxInputSize
	}
	return c
}

// LoadConfig reads a device configuration file (YAML or JSON).
// A missing file yields DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read device config: %w", err)
	}

	cfg := DefaultConfig()
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}
