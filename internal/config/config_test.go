package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid-bridge/internal/protocol"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	chdirForTest(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8084", cfg.GetServerAddr())
	assert.Equal(t, "CP2102 USB to UART Bridge Controller", cfg.Device.NameFilter)
	assert.Equal(t, "bugst", cfg.Device.Driver)
	assert.False(t, cfg.Device.RequireUnique)
	assert.Equal(t, 1024, cfg.Device.ReadBufferSize)
	assert.Equal(t, 9600, cfg.Device.Serial.BaudRate)
	assert.Equal(t, 8, cfg.Device.Serial.DataBits)
	assert.Equal(t, "1", cfg.Device.Serial.StopBits)
	assert.Equal(t, "none", cfg.Device.Serial.Parity)
	assert.Equal(t, time.Second, cfg.Device.Serial.ReadTimeout)
	assert.Equal(t, time.Second, cfg.Device.Serial.WriteTimeout)
	assert.False(t, cfg.Device.Frame.AppendCRC)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsDebugEnabled())

	link, err := cfg.Device.LinkConfig()
	require.NoError(t, err)
	assert.Equal(t, protocol.DefaultLinkConfig(), link)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
logging:
  level: debug
  format: console
device:
  name_filter: "FT232R USB UART"
  driver: tarm
  require_unique: true
  serial:
    baud_rate: 115200
    read_timeout: 250ms
  frame:
    append_crc: true
app:
  environment: production
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "FT232R USB UART", cfg.Device.NameFilter)
	assert.Equal(t, "tarm", cfg.Device.Driver)
	assert.True(t, cfg.Device.RequireUnique)
	assert.Equal(t, 115200, cfg.Device.Serial.BaudRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Device.Serial.ReadTimeout)
	assert.Equal(t, time.Second, cfg.Device.Serial.WriteTimeout)
	assert.True(t, cfg.Device.Frame.AppendCRC)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDebugEnabled())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	chdirForTest(t, t.TempDir())
	t.Setenv("RFID_BRIDGE_SERVER_PORT", "7070")
	t.Setenv("RFID_BRIDGE_DEVICE_NAME_FILTER", "USB Serial")
	t.Setenv("RFID_BRIDGE_DEVICE_SERIAL_BAUD_RATE", "19200")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "USB Serial", cfg.Device.NameFilter)
	assert.Equal(t, 19200, cfg.Device.Serial.BaudRate)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{name: "blank filter", body: "device:\n  name_filter: \"  \"\n", errMsg: "device.name_filter"},
		{name: "unknown driver", body: "device:\n  driver: ftdi\n", errMsg: "device.driver"},
		{name: "zero read buffer", body: "device:\n  read_buffer_size: 0\n", errMsg: "device.read_buffer_size"},
		{name: "bad environment", body: "app:\n  environment: qa\n", errMsg: "app.environment"},
		{name: "bad log level", body: "logging:\n  level: verbose\n", errMsg: "logging.level"},
		{name: "bad parity", body: "device:\n  serial:\n    parity: sometimes\n", errMsg: "device.serial"},
		{name: "bad data bits", body: "device:\n  serial:\n    data_bits: 9\n", errMsg: "data bits"},
		{name: "tls without cert", body: "server:\n  tls:\n    enabled: true\n", errMsg: "cert_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
