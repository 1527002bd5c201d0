// Command sensor-station drives a four-channel analog sensor station from a
// serial console menu and publishes readings to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/sensor-station/internal/config"
	"github.com/sweeney/sensor-station/internal/console"
	"github.com/sweeney/sensor-station/internal/gpio"
	"github.com/sweeney/sensor-station/internal/logic"
	"github.com/sweeney/sensor-station/internal/mqtt"
	"github.com/sweeney/sensor-station/internal/report"
	"github.com/sweeney/sensor-station/internal/sensor"
	"github.com/sweeney/sensor-station/internal/session"
	"github.com/sweeney/sensor-station/internal/status"
	"github.com/sweeney/sensor-station/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/sensor-station.yaml", "Path to YAML config file")
	serialPort := flag.String("serial", "", "Serial console device (overrides config)")
	broker := flag.String("broker", "", `MQTT broker address (overrides config, "off" disables)`)
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	readOnce := flag.String("read-once", "", "Read one channel (1-4 or ntc/mq135/mq7/humidity), print it and exit")
	writeCfg := flag.String("write-config", "", "Write the effective config (file plus flag overrides) to this path and exit")

	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyOverrides(cfg, *serialPort, *broker, *httpAddr)
	log.SetLevel(cfg.LogLevel())

	if *writeCfg != "" {
		if err := writeConfig(cfg, *writeCfg); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		return
	}

	if err := run(cfg, *readOnce); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyOverrides copies non-empty flag values into cfg. "off" clears the
// broker or HTTP address.
func applyOverrides(cfg *config.Config, serialPort, broker, httpAddr string) {
	if serialPort != "" {
		cfg.Serial.Port = serialPort
	}
	switch broker {
	case "":
	case "off":
		cfg.MQTT.Broker = ""
	default:
		cfg.MQTT.Broker = broker
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = httpAddr
	}
}

// writeConfig saves cfg to path after validating it.
func writeConfig(cfg *config.Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	log.Infof("wrote config to %s", path)
	return nil
}

func run(cfg *config.Config, readOnce string) error {
	// Initialize ADC
	sampler, err := sensor.NewIIOSampler(cfg.ADC.IIODevice, cfg.ADC.Inputs, cfg.ADC.Shift)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	reader := sensor.NewReader(sampler, cfg.ADC.AcquireTimeout)
	defer reader.Close()

	// Read once mode
	if readOnce != "" {
		ch, err := logic.ParseChannel(readOnce)
		if err != nil {
			return err
		}
		return readChannel(context.Background(), reader, ch, os.Stdout)
	}

	// Initialize GPIO
	indicator, err := gpio.NewRealIndicator(cfg.Indicator.Chip, cfg.Indicator.PinGreen, cfg.Indicator.PinRed)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer indicator.Close()

	// Initialize serial console
	port, err := console.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud, console.DefaultPollInterval)
	if err != nil {
		if names, lerr := console.Ports(); lerr == nil {
			log.Infof("available serial ports: %v", names)
		}
		return fmt.Errorf("init serial: %w", err)
	}
	defer port.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		SerialPort: cfg.Serial.Port,
		BaudRate:   cfg.Serial.Baud,
		IntervalMs: cfg.Session.Interval.Milliseconds(),
		Broker:     cfg.MQTT.Broker,
		HTTPAddr:   cfg.HTTP.Addr,
	})
	observers := []session.Observer{tracker}

	// Initialize MQTT
	var publisher mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:             cfg.MQTT.Broker,
			ClientID:           cfg.MQTT.ClientID,
			BufferSize:         cfg.MQTT.Buffer,
			OnConnectionChange: tracker.SetMQTTConnected,
			OnBufferChange:     tracker.SetMQTTBuffer,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		tracker.SetMQTTConnected(pub.IsConnected())
		publisher = pub
		obs := mqtt.NewSessionObserver(pub, mqtt.DefaultQueueSize)
		defer obs.Close()
		observers = append(observers, obs)
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", cfg.HTTP.Addr)
	}

	machine := newMachine(cfg, reader, indicator, port, observers...)

	log.Infof("started: serial=%s baud=%d interval=%v broker=%q",
		cfg.Serial.Port, cfg.Serial.Baud, cfg.Session.Interval, cfg.MQTT.Broker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runSession(machine, publisher, tracker, time.Now, sigCh)
}

func newMachine(cfg *config.Config, reader session.Reader, indicator gpio.Indicator, port console.Port, observers ...session.Observer) *session.Machine {
	return session.New(reader, indicator, port, session.Config{
		Interval:     cfg.Session.Interval,
		IdlePoll:     cfg.Session.IdlePoll,
		WriteTimeout: cfg.Serial.WriteTimeout,
		Observers:    observers,
		Logger:       log.WithField("component", "session"),
	})
}

// readChannel performs one acquisition and writes the report line to w.
func readChannel(ctx context.Context, reader session.Reader, ch logic.Channel, w io.Writer) error {
	m, err := reader.Read(ctx, ch)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, report.FormatMeasurement(m))
	return err
}

// runSession publishes STARTUP, runs the machine until a signal arrives or
// the hardware fails, then publishes SHUTDOWN or FAULT. publisher may be nil.
func runSession(machine *session.Machine, publisher mqtt.Publisher, tracker *status.Tracker, now func() time.Time, sig <-chan os.Signal) error {
	publishSystem(publisher, tracker, now, mqtt.EventStartup, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- machine.Run(ctx) }()

	select {
	case s := <-sig:
		log.Infof("received %v, shutting down", s)
		cancel()
		if err := <-done; err != nil {
			log.WithError(err).Warn("session stopped with error")
		}
		publishSystem(publisher, tracker, now, mqtt.EventShutdown, signalName(s))
		return nil

	case err := <-done:
		if err == nil {
			publishSystem(publisher, tracker, now, mqtt.EventShutdown, "STOPPED")
			return nil
		}
		log.WithError(err).Error("session fault")
		publishSystem(publisher, tracker, now, mqtt.EventFault, err.Error())
		return fmt.Errorf("session: %w", err)
	}
}

func publishSystem(publisher mqtt.Publisher, tracker *status.Tracker, now func() time.Time, event, reason string) {
	if publisher == nil {
		return
	}
	e := mqtt.SystemEvent{
		Timestamp: now(),
		Event:     event,
		Reason:    reason,
		Retained:  true,
	}
	if tracker != nil {
		if cs, ok := publisher.(mqtt.ConnectionStatus); ok {
			tracker.SetMQTTConnected(cs.IsConnected())
		}
		if bs, ok := publisher.(mqtt.BufferStats); ok {
			tracker.SetMQTTBuffer(bs.Stats())
		}
		e.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), event, reason)
	}
	if err := publisher.PublishSystem(e); err != nil {
		log.WithError(err).Warnf("failed to publish %s event", event)
	} else {
		log.Infof("published %s event", event)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
