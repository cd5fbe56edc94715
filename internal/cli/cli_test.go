package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"rfid-bridge/internal/config"
	"rfid-bridge/internal/model"
	"rfid-bridge/internal/protocol/hexframe"
	"rfid-bridge/internal/service"
)

const readerName = "CP2102 USB to UART Bridge Controller"

type fakeBackend struct {
	devices []model.DeviceDescriptor
	bridges []model.UARTBridge
	err     error

	command string
	options service.TransactionOptions
	result  model.TransactionResult
}

func (f *fakeBackend) Ports(ctx context.Context) ([]model.DeviceDescriptor, error) {
	return f.devices, f.err
}

func (f *fakeBackend) Bridges(ctx context.Context) ([]model.UARTBridge, error) {
	return f.bridges, f.err
}

func (f *fakeBackend) Transact(ctx context.Context, command string, options service.TransactionOptions, sink service.StatusSink) (model.TransactionResult, error) {
	f.command = command
	f.options = options
	if f.err != nil {
		sink.SetStatus(f.err.Error())
		return model.TransactionResult{}, f.err
	}
	sink.SetStatus(service.StatusWriting)
	sink.TransactionCompleted(f.result)
	return f.result, nil
}

func executeCommand(t *testing.T, backend *fakeBackend, args ...string) (string, string, error) {
	t.Helper()
	chdirForTest(t, t.TempDir())

	var stdout, stderr bytes.Buffer
	root := NewRootCommand(func(cfg *config.Config, logger *zap.Logger) (Backend, error) {
		return backend, nil
	})
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func testDevices() []model.DeviceDescriptor {
	return []model.DeviceDescriptor{
		{ID: "/dev/ttyS0", DisplayName: "ttyS0"},
		{ID: "/dev/ttyUSB0", DisplayName: readerName, VendorID: "10C4", ProductID: "EA60", SerialNumber: "0001", IsUSB: true},
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCommand(t, &fakeBackend{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "rfidctl version")
}

func TestPortsTable(t *testing.T) {
	out, _, err := executeCommand(t, &fakeBackend{devices: testDevices()}, "ports")
	require.NoError(t, err)

	assert.Contains(t, out, "PORT")
	assert.Contains(t, out, "/dev/ttyUSB0")
	assert.Contains(t, out, "10C4:EA60")
	assert.Contains(t, out, "*")
}

func TestPortsJSON(t *testing.T) {
	out, _, err := executeCommand(t, &fakeBackend{devices: testDevices()}, "ports", "-o", "json")
	require.NoError(t, err)

	var entries []service.PortEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Matches)
	assert.True(t, entries[1].Matches)
}

func TestPortsEmpty(t *testing.T) {
	out, _, err := executeCommand(t, &fakeBackend{}, "ports")
	require.NoError(t, err)
	assert.Contains(t, out, "No serial ports found.")
}

func TestUSBYAML(t *testing.T) {
	backend := &fakeBackend{bridges: []model.UARTBridge{{VendorID: "10C4", ProductID: "EA60", Vendor: "Silicon Labs", Product: readerName}}}

	out, _, err := executeCommand(t, backend, "usb", "-o", "yaml")
	require.NoError(t, err)

	var bridges []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &bridges))
	require.Len(t, bridges, 1)
	assert.Equal(t, readerName, bridges[0]["product"])
}

func TestUSBScanFailure(t *testing.T) {
	_, _, err := executeCommand(t, &fakeBackend{err: errors.New("libusb: access denied")}, "usb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestSendSuccess(t *testing.T) {
	payload := []byte{0x0A, 0xFF}
	backend := &fakeBackend{result: model.Succeeded(payload, hexframe.Decode(payload))}

	out, errOut, err := executeCommand(t, backend, "send", "01", "03", "00", "08", "--filter", "USB Serial")
	require.NoError(t, err)

	assert.Equal(t, "01 03 00 08", backend.command)
	assert.Equal(t, "USB Serial", backend.options.NameFilter)
	assert.Equal(t, 1024, backend.options.ReadBufferSize)
	assert.False(t, backend.options.AppendCRC)

	assert.Contains(t, out, "0A-FF")
	assert.Contains(t, out, "SUCCEEDED")
	assert.Contains(t, errOut, service.StatusWriting)
	assert.Contains(t, errOut, "OK")
}

func TestSendWithCRC(t *testing.T) {
	backend := &fakeBackend{result: model.Succeeded([]byte{0x01}, "01")}

	_, _, err := executeCommand(t, backend, "send", "--crc", "01 03")
	require.NoError(t, err)

	assert.True(t, backend.options.AppendCRC)
	assert.Equal(t, readerName, backend.options.NameFilter)
}

func TestSendFailedTransaction(t *testing.T) {
	result := model.Failed(model.TransactionStateReading, model.ErrorKindTimeout, "read timeout after 1s")
	backend := &fakeBackend{result: result}

	out, _, err := executeCommand(t, backend, "send", "01")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Contains(t, out, "READING")
	assert.Contains(t, out, "timeout")
}

func TestSendReaderMissing(t *testing.T) {
	backend := &fakeBackend{err: errors.New("device not found")}

	_, errOut, err := executeCommand(t, backend, "send", "01")
	require.Error(t, err)
	assert.Contains(t, errOut, "device not found")
}

func TestSendRequiresArgs(t *testing.T) {
	_, _, err := executeCommand(t, &fakeBackend{}, "send")
	require.Error(t, err)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, _, err := executeCommand(t, &fakeBackend{}, "ports", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
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
