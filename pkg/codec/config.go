package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	yaml "gopkg.in/yaml.v3"

	"github.com/Multirious/dpmaster/pkg/logging"
	"github.com/Multirious/dpmaster/pkg/protocol"
)

const (
	// MinPacketSize leaves room for one IPv6 entry and a terminator in any
	// list response.
	MinPacketSize = 64
	// MaxUDPPayload is the largest IPv4 UDP payload.
	MaxUDPPayload = 65507
)

// Config represents the structure of the codec config file
type Config struct {
	Codec   CodecSection   `toml:"codec" yaml:"codec"`
	Logging logging.Config `toml:"logging" yaml:"logging"`
	Metrics MetricsSection `toml:"metrics" yaml:"metrics"`
}

type CodecSection struct {
	Dialect       string `toml:"dialect" yaml:"dialect"`                 // native, q3a, rtcw or woet
	Extended      bool   `toml:"extended" yaml:"extended"`               // Server lists use getserversExtResponse
	MaxPacketSize int    `toml:"max_packet_size" yaml:"max_packet_size"` // Split server lists above this size
}

type MetricsSection struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Namespace string `toml:"namespace" yaml:"namespace"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Codec: CodecSection{
			Dialect:       "native",
			Extended:      true,
			MaxPacketSize: protocol.MaxPacketSize,
		},
		Logging: logging.DefaultConfig(),
		Metrics: MetricsSection{
			Enabled:   true,
			Namespace: "dpmaster",
		},
	}
}

// LoadConfig loads configuration from a TOML file, or a YAML file when the
// extension is .yaml or .yml, on top of the defaults and applies environment
// variable overrides. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	// Expand ~ in path
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return applyEnvOverrides(config), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &config)
	default:
		err = decodeTOML(data, &config)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return applyEnvOverrides(config), nil
}

func decodeTOML(data []byte, config *Config) error {
	md, err := toml.Decode(string(data), config)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return nil
}

func decodeYAML(data []byte, config *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
// Environment variables follow the pattern: DPMASTER_SECTION_KEY
// Example: DPMASTER_CODEC_DIALECT=woet
func applyEnvOverrides(config Config) Config {
	// Codec section
	if val := os.Getenv("DPMASTER_CODEC_DIALECT"); val != "" {
		config.Codec.Dialect = val
	}
	if val := os.Getenv("DPMASTER_CODEC_EXTENDED"); val != "" {
		if extended, err := strconv.ParseBool(val); err == nil {
			config.Codec.Extended = extended
		}
	}
	if val := os.Getenv("DPMASTER_CODEC_MAX_PACKET_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.Codec.MaxPacketSize = size
		}
	}

	// Logging section
	if val := os.Getenv("DPMASTER_LOGGING_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("DPMASTER_LOGGING_CONSOLE"); val != "" {
		if console, err := strconv.ParseBool(val); err == nil {
			config.Logging.Console = console
		}
	}

	// Metrics section
	if val := os.Getenv("DPMASTER_METRICS_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Metrics.Enabled = enabled
		}
	}
	if val := os.Getenv("DPMASTER_METRICS_NAMESPACE"); val != "" {
		config.Metrics.Namespace = val
	}

	return config
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	d, err := protocol.ParseDialect(c.Codec.Dialect)
	if err != nil {
		errs = append(errs, fmt.Errorf("codec.dialect: %w", err))
	} else if c.Codec.Extended && !d.Profile().Extended {
		errs = append(errs, fmt.Errorf("codec.extended: dialect %s has no extended server list", d))
	}
	if c.Codec.MaxPacketSize < MinPacketSize || c.Codec.MaxPacketSize > MaxUDPPayload {
		errs = append(errs, fmt.Errorf("codec.max_packet_size: %d is outside %d-%d", c.Codec.MaxPacketSize, MinPacketSize, MaxUDPPayload))
	}

	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			errs = append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}

	if c.Metrics.Enabled && !validMetricName(c.Metrics.Namespace) {
		errs = append(errs, fmt.Errorf("metrics.namespace: %q is not a valid metric name prefix", c.Metrics.Namespace))
	}

	return errors.Join(errs...)
}

// validMetricName allows the empty namespace.
func validMetricName(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
