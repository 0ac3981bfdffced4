package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/biostream/pkg/biostream"
	"github.com/norasector/biostream/pkg/biostream/config"
	"github.com/norasector/biostream/pkg/biostream/device"
	"github.com/norasector/biostream/pkg/biostream/device/bluetooth"
	"github.com/norasector/biostream/pkg/biostream/device/file"
	"github.com/norasector/biostream/pkg/biostream/device/serialport"
	"github.com/norasector/biostream/pkg/biostream/output"
	"github.com/norasector/biostream/pkg/dsp/window"
	"github.com/norasector/biostream/pkg/types"
	"github.com/norasector/biostream/pkg/util"
	"github.com/norasector/biostream/pkg/viz"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "biostream.yaml", "YAML config file")
	portINI := flag.String("port-ini", "", "legacy serial port settings (com.ini)")
	packetINI := flag.String("packet-ini", "", "legacy packet channel settings (pac.ini)")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	flag.Parse()

	if *listPorts {
		ports, err := serialport.Ports()
		if err != nil {
			log.Fatal().Err(err).Msg("error listing serial ports")
		}
		for _, port := range ports {
			fmt.Println(port)
		}
		return
	}

	log.Info().Str("file", *configFile).Msg("loading config")
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config")
	}

	if *portINI != "" {
		log.Info().Str("file", *portINI).Msg("loading port config")
		serialOpts, err := config.LoadPortINI(*portINI)
		if err != nil {
			log.Fatal().Err(err).Msg("error loading port config")
		}
		serialOpts.ReadSize = cfg.Serial.ReadSize
		serialOpts.ReadTimeout = cfg.Serial.ReadTimeout
		cfg.Serial = serialOpts
	}
	if *packetINI != "" {
		log.Info().Str("file", *packetINI).Msg("loading packet config")
		chans, err := config.LoadPacketINI(*packetINI)
		if err != nil {
			log.Fatal().Err(err).Msg("error loading packet config")
		}
		cfg.Packet.Channels = chans
		cfg.Packet.Enabled = nil
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	log.Logger = log.Logger.Level(level)

	layout, err := cfg.Packet.Layout()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid packet config")
	}

	var script []string
	if cfg.InitScript != "" {
		log.Info().Str("file", cfg.InitScript).Msg("loading init script")
		script, err = config.LoadScript(cfg.InitScript)
		if err != nil {
			log.Fatal().Err(err).Msg("error loading init script")
		}
	}

	dev, err := openDevice(cfg)
	if err != nil {
		log.Fatal().Str("device", cfg.Device).Err(err).Msg("failed to open device")
	}

	sourceID := cfg.Stream.SourceID
	if sourceID == "" {
		sourceID = uuid.NewString()
	}
	stream := types.StreamInfo{
		Name:         cfg.Stream.Name,
		ContentType:  cfg.Stream.ContentType,
		SourceID:     sourceID,
		NominalRate:  cfg.Stream.NominalRate,
		ChannelCount: layout.Window.Count,
		Channels:     layout.Labels,
	}

	var influxWriteAPI api.WriteAPI = &util.DiscardWriteAPI{}
	if cfg.InfluxDB.Host != "" {
		client := influxdb2.NewClient(cfg.InfluxDB.Host, cfg.InfluxDB.Token)
		defer client.Close()
		influxWriteAPI = client.WriteAPI(cfg.InfluxDB.Organization, cfg.InfluxDB.Bucket)
	}

	outputs := []biostream.SampleOutput{
		output.NewSampleUDPOutput(cfg.Stream.Port, cfg.Stream.Destinations, output.WithMetrics(influxWriteAPI)),
	}
	if cfg.RecordCSV != "" {
		f, err := os.Create(cfg.RecordCSV)
		if err != nil {
			log.Fatal().Err(err).Msg("error creating csv recording")
		}
		defer f.Close()
		outputs = append(outputs, output.NewWriterOutput(f, layout.Labels))
	}

	engineOpts := []biostream.BiostreamOption{
		biostream.WithInfluxDB(influxWriteAPI),
		biostream.WithLogger(log.Logger),
	}
	if cfg.VizServer.Port != 0 {
		winFunc, _ := window.ByName(cfg.VizServer.SpectrumWindow)
		vizServer := viz.NewServer(cfg.VizServer.Port, cfg.VizServer.UpdateInterval)
		outputs = append(outputs, output.NewVizOutput(vizServer, layout.Labels, cfg.VizServer.History, cfg.Stream.NominalRate, winFunc))
		engineOpts = append(engineOpts, biostream.WithVizServer(vizServer))
	}

	session, err := biostream.NewBiostream(dev,
		biostream.Options{
			Layout:          layout,
			Outputs:         outputs,
			InitScript:      script,
			CommandSuffix:   cfg.CommandSuffix,
			Stream:          stream,
			Advertise:       cfg.Stream.Advertise,
			AdvertisePort:   cfg.Stream.Port,
			Diagnostics:     cfg.Diagnostics,
			MetricsInterval: cfg.MetricsInterval,
		}, engineOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session")
	}

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	consoleChan := make(chan struct{})
	go watchConsole(consoleChan)

	eg.Go(func() error {
		select {
		case <-sigChan:
		case <-consoleChan:
		case <-ctx.Done():
		}
		return session.Stop()
	})

	eg.Go(func() error {
		log.Info().Str("stream", stream.Name).Str("source_id", sourceID).Msg("starting stream, press enter to stop")
		err := session.Start(ctx)
		if err == nil {
			// session ended on its own; release the signal watcher
			return context.Canceled
		}
		return err
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("exited program")
	}
	log.Info().Msg("session finished")
}

// watchConsole closes stop once a non-empty line is read from stdin.
func watchConsole(stop chan<- struct{}) {
	scan := bufio.NewScanner(os.Stdin)
	for scan.Scan() {
		if strings.TrimSpace(scan.Text()) != "" {
			close(stop)
			return
		}
	}
}

func openDevice(cfg *config.Config) (device.Device, error) {
	linkOpts := []device.LinkOption{
		device.WithCommandTimeout(cfg.CommandTimeout),
		device.WithRecording(cfg.RecordLocation),
	}

	switch cfg.Device {
	case config.DeviceFile:
		log.Info().Str("device", "file").Str("file", cfg.PlaybackLocation).Msg("opening capture...")
		return file.NewFileDevice(cfg.PlaybackLocation, cfg.PlaybackChunkSize, cfg.PlaybackInterval)
	case config.DeviceBluetooth:
		log.Info().Str("device", "bluetooth").Str("address", cfg.Bluetooth.Address).Msg("connecting...")
		return bluetooth.Dial(cfg.Bluetooth, linkOpts...)
	default:
		log.Info().Str("device", "serial").Str("port", cfg.Serial.Port).Msg("opening port...")
		return serialport.Open(cfg.Serial, linkOpts...)
	}
}
