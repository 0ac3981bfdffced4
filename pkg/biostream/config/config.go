package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/norasector/biostream/pkg/biostream/device/bluetooth"
	"github.com/norasector/biostream/pkg/biostream/device/serialport"
	"github.com/norasector/biostream/pkg/dsp/window"
)

const (
	DeviceSerial    = "serial"
	DeviceBluetooth = "bluetooth"
	DeviceFile      = "file"
)

type Config struct {
	Device            string             `yaml:"device"`
	Serial            serialport.Options `yaml:"serial"`
	Bluetooth         bluetooth.Options  `yaml:"bluetooth"`
	RecordLocation    string             `yaml:"record_location"`
	PlaybackLocation  string             `yaml:"playback_location"`
	PlaybackChunkSize int                `yaml:"playback_chunk_size"`
	PlaybackInterval  time.Duration      `yaml:"playback_interval"`
	Packet            Packet             `yaml:"packet"`
	InitScript        string             `yaml:"init_script"`
	CommandSuffix     string             `yaml:"command_suffix"`
	CommandTimeout    time.Duration      `yaml:"command_timeout"`
	Stream            Stream             `yaml:"stream"`
	RecordCSV         string             `yaml:"record_csv"`
	VizServer         struct {
		Port           int           `yaml:"port"`
		UpdateInterval time.Duration `yaml:"update_interval_ms"`
		History        int           `yaml:"history"`
		SpectrumWindow string        `yaml:"spectrum_window"`
	} `yaml:"viz_server"`
	InfluxDB struct {
		Host         string `yaml:"host"`
		Token        string `yaml:"token"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
	LogLevel        string        `yaml:"log_level"`
	Diagnostics     bool          `yaml:"diagnostics"`
}

// Stream describes how decoded samples are published.
type Stream struct {
	Name         string              `yaml:"name"`
	ContentType  string              `yaml:"type"`
	SourceID     string              `yaml:"source_id"`
	NominalRate  float64             `yaml:"nominal_rate"`
	Port         int                 `yaml:"port"`
	Advertise    bool                `yaml:"advertise"`
	Destinations []OutputDestination `yaml:"destinations"`
}

type OutputDestination struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

const (
	defaultStreamName     = "Emma"
	defaultContentType    = "EEG"
	defaultStreamPort     = 16571
	defaultCommandTimeout = 3 * time.Second
	defaultMetricsEvery   = 10 * time.Second
	defaultVizHistory     = 1024
	defaultVizInterval    = 500 * time.Millisecond
)

func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(contents)
}

// Parse unmarshals and applies defaults. Callers run Validate once any
// overrides (legacy INI files, flags) have been applied.
func Parse(contents []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling yaml: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PlaybackLocation != "" {
		c.Device = DeviceFile
	}
	if c.Device == "" {
		c.Device = DeviceSerial
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	if c.Stream.Name == "" {
		c.Stream.Name = defaultStreamName
	}
	if c.Stream.ContentType == "" {
		c.Stream.ContentType = defaultContentType
	}
	if c.Stream.Port == 0 {
		c.Stream.Port = defaultStreamPort
	}
	if c.MetricsInterval == 0 {
		c.MetricsInterval = defaultMetricsEvery
	}
	if c.VizServer.History == 0 {
		c.VizServer.History = defaultVizHistory
	}
	if c.VizServer.UpdateInterval == 0 {
		c.VizServer.UpdateInterval = defaultVizInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks everything that must hold before a session can start,
// including the packet layout invariants.
func (c *Config) Validate() error {
	switch c.Device {
	case DeviceSerial:
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	case DeviceBluetooth:
		if _, err := bluetooth.ParseAddress(c.Bluetooth.Address); err != nil {
			return err
		}
	case DeviceFile:
		if c.PlaybackLocation == "" {
			return fmt.Errorf("file device needs playback_location")
		}
	default:
		return fmt.Errorf("unknown device %q", c.Device)
	}

	if _, err := c.Packet.Layout(); err != nil {
		return fmt.Errorf("packet: %w", err)
	}
	if c.Stream.Port < 0 || c.Stream.Port > 65535 {
		return fmt.Errorf("stream port %d out of range", c.Stream.Port)
	}
	if _, err := window.ByName(c.VizServer.SpectrumWindow); err != nil {
		return fmt.Errorf("viz_server: %w", err)
	}
	for _, dest := range c.Stream.Destinations {
		if dest.Host == "" || dest.Port <= 0 || dest.Port > 65535 {
			return fmt.Errorf("bad stream destination %s:%d", dest.Host, dest.Port)
		}
	}
	return nil
}
