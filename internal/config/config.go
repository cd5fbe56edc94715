// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"rfid-bridge/internal/protocol"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Device   DeviceConfig   `mapstructure:"device"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLS             TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DeviceConfig describes how the reader is found and driven
type DeviceConfig struct {
	// NameFilter must equal the enumerated display name exactly
	NameFilter     string           `mapstructure:"name_filter"`
	Driver         string           `mapstructure:"driver"`
	RequireUnique  bool             `mapstructure:"require_unique"`
	ReadBufferSize int              `mapstructure:"read_buffer_size"`
	Serial         SerialPortConfig `mapstructure:"serial"`
	Frame          FrameConfig      `mapstructure:"frame"`
}

// SerialPortConfig represents serial line configuration
type SerialPortConfig struct {
	BaudRate     int           `mapstructure:"baud_rate"`
	DataBits     int           `mapstructure:"data_bits"`
	StopBits     string        `mapstructure:"stop_bits"`
	Parity       string        `mapstructure:"parity"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// FrameConfig controls optional framing applied to outgoing commands
type FrameConfig struct {
	AppendCRC bool `mapstructure:"append_crc"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

const envPrefix = "RFID_BRIDGE"

// Load loads configuration from an optional file and environment variables.
// An empty path searches the default locations; a missing file there is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/rfid-bridge")
	}

	// Environment variable support
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.tls.enabled", false)

	v.SetDefault("security.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Device defaults
	v.SetDefault("device.name_filter", "CP2102 USB to UART Bridge Controller")
	v.SetDefault("device.driver", "bugst")
	v.SetDefault("device.require_unique", false)
	v.SetDefault("device.read_buffer_size", 1024)
	v.SetDefault("device.serial.baud_rate", 9600)
	v.SetDefault("device.serial.data_bits", 8)
	v.SetDefault("device.serial.stop_bits", "1")
	v.SetDefault("device.serial.parity", "none")
	v.SetDefault("device.serial.read_timeout", "1000ms")
	v.SetDefault("device.serial.write_timeout", "1000ms")
	v.SetDefault("device.frame.append_crc", false)

	// App defaults
	v.SetDefault("app.name", "rfid-bridge")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Server.TLS.Enabled && (config.Server.TLS.CertFile == "" || config.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
	}

	if strings.TrimSpace(config.Device.NameFilter) == "" {
		return fmt.Errorf("device.name_filter is required")
	}
	if config.Device.ReadBufferSize <= 0 {
		return fmt.Errorf("device.read_buffer_size must be positive")
	}

	if _, err := config.Device.LinkConfig(); err != nil {
		return fmt.Errorf("device.serial: %w", err)
	}

	validDrivers := []string{"bugst", "tarm"}
	if !slices.Contains(validDrivers, strings.ToLower(config.Device.Driver)) {
		return fmt.Errorf("device.driver must be one of: %v", validDrivers)
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !slices.Contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// LinkConfig converts the serial section into a validated line configuration
func (d *DeviceConfig) LinkConfig() (protocol.LinkConfig, error) {
	return protocol.NewLinkConfig(
		d.Serial.BaudRate,
		d.Serial.DataBits,
		d.Serial.Parity,
		d.Serial.StopBits,
		d.Serial.ReadTimeout,
		d.Serial.WriteTimeout,
	)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
