package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norasector/biostream/pkg/packet"
)

const sampleYAML = `
device: serial
serial:
  port: /dev/ttyUSB0
  baud_rate: 921600
  parity: none
packet:
  enabled: [PacketCount, EEG0chip1, EEG1chip1, ACCX, CheckSumm]
  expected_size: 12
  window:
    low: 4
    high: 22
init_script: script.txt
command_suffix: "\r\n"
command_timeout: 2s
stream:
  name: Emma
  type: EEG
  nominal_rate: 250
  advertise: true
  destinations:
    - host: 127.0.0.1
      port: 9000
viz_server:
  port: 8080
  update_interval_ms: 250ms
diagnostics: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DeviceSerial, cfg.Device)
	assert.Equal(t, 921600, cfg.Serial.BaudRate)
	assert.Equal(t, "\r\n", cfg.CommandSuffix)
	assert.Equal(t, 2*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.VizServer.UpdateInterval)
	assert.Equal(t, defaultStreamPort, cfg.Stream.Port)
	assert.Equal(t, []OutputDestination{{Host: "127.0.0.1", Port: 9000}}, cfg.Stream.Destinations)
	assert.True(t, cfg.Diagnostics)
	assert.Equal(t, "info", cfg.LogLevel)

	layout, err := cfg.Packet.Layout()
	require.NoError(t, err)
	// 2 + 1 + 3 + 3 + 2 + 1
	assert.Equal(t, 12, layout.Config.PacketSize())
	assert.Equal(t, []string{"EEG0chip1", "EEG1chip1", "ACCX"}, layout.Labels)
	assert.Equal(t, packet.Window{Lo: 4, Hi: 22, Offset: 1, Count: 3}, layout.Window)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("playback_location: capture.bin\npacket:\n  enabled: [EEG0chip1]\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DeviceFile, cfg.Device)
	assert.Equal(t, defaultStreamName, cfg.Stream.Name)
	assert.Equal(t, defaultContentType, cfg.Stream.ContentType)
	assert.Equal(t, defaultCommandTimeout, cfg.CommandTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown device", "device: usb\n"},
		{"serial without port", "device: serial\npacket:\n  enabled: [EEG0chip1]\n"},
		{"bad bluetooth address", "device: bluetooth\nbluetooth:\n  address: nope\npacket:\n  enabled: [EEG0chip1]\n"},
		{"unknown channel", "playback_location: c.bin\npacket:\n  enabled: [EEG9chip9]\n"},
		{"nothing published", "playback_location: c.bin\npacket:\n  enabled: [PacketCount]\n"},
		{"size mismatch", "playback_location: c.bin\npacket:\n  enabled: [EEG0chip1]\n  expected_size: 6\n"},
		{"window out of range", "playback_location: c.bin\npacket:\n  enabled: [EEG0chip1]\n  window:\n    high: 24\n"},
		{"unknown spectrum window", "playback_location: c.bin\npacket:\n  enabled: [EEG0chip1]\nviz_server:\n  spectrum_window: kaiser\n"},
		{"bad destination", "playback_location: c.bin\npacket:\n  enabled: [EEG0chip1]\nstream:\n  destinations:\n    - host: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExplicitChannels(t *testing.T) {
	chans := DefaultChannels()
	require.Len(t, chans, packet.SlotCount)
	chans[5].Enabled = true
	chans[5].Width = 2

	p := Packet{Channels: chans}
	layout, err := p.Layout()
	require.NoError(t, err)
	assert.Equal(t, 4, layout.Config.PacketSize())
	assert.Equal(t, []string{"EEG1chip1"}, layout.Labels)

	p = Packet{Channels: chans[:23]}
	_, err = p.Layout()
	assert.ErrorIs(t, err, packet.ErrSlotCount)

	p = Packet{Channels: chans, Enabled: []string{"ACCX"}}
	_, err = p.Layout()
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "biostream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("device: [unclosed"))
	assert.Error(t, err)
}
