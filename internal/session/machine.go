package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/sensor-station/internal/console"
	"github.com/sweeney/sensor-station/internal/gpio"
	"github.com/sweeney/sensor-station/internal/logic"
	"github.com/sweeney/sensor-station/internal/report"
)

// Default timings.
const (
	DefaultInterval = 500 * time.Millisecond
	DefaultIdlePoll = 20 * time.Millisecond
)

// Reader produces a measurement for a channel.
type Reader interface {
	Read(ctx context.Context, ch logic.Channel) (logic.Measurement, error)
}

// Config holds the machine timings and hooks. Zero values select defaults.
type Config struct {
	// Interval is the wait between the end of a report and the exit check.
	Interval time.Duration
	// IdlePoll is the wait between empty input polls while idle.
	IdlePoll time.Duration
	// WriteTimeout bounds each transmitted byte.
	WriteTimeout time.Duration

	Observers []Observer
	Logger    *logrus.Entry

	// Now and Sleep are injectable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Machine is the command state machine. It is not safe for concurrent use;
// a single goroutine drives it through Run or Step.
type Machine struct {
	state State

	reader    Reader
	indicator gpio.Indicator
	port      console.Port
	reporter  *report.Reporter
	observers []Observer

	interval time.Duration
	idlePoll time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	log      *logrus.Entry
}

// New creates an idle Machine. Call Start (or Run) to show the menu.
func New(reader Reader, indicator gpio.Indicator, port console.Port, cfg Config) *Machine {
	m := &Machine{
		state:     State{Mode: ModeIdle},
		reader:    reader,
		indicator: indicator,
		port:      port,
		reporter:  report.New(port, cfg.WriteTimeout),
		observers: cfg.Observers,
		interval:  cfg.Interval,
		idlePoll:  cfg.IdlePoll,
		now:       cfg.Now,
		sleep:     cfg.Sleep,
		log:       cfg.Logger,
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.idlePoll <= 0 {
		m.idlePoll = DefaultIdlePoll
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.sleep == nil {
		m.sleep = sleepContext
	}
	if m.log == nil {
		m.log = logrus.WithField("component", "session")
	}
	return m
}

// State returns the current session state.
func (m *Machine) State() State {
	return m.state
}

// Start shows the menu in the idle state.
func (m *Machine) Start(ctx context.Context) error {
	return m.showMenu(ctx)
}

// Run shows the menu and processes input until ctx is cancelled, which
// returns nil, or a hardware failure, which is returned.
func (m *Machine) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return stopped(ctx, err)
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := m.Step(ctx); err != nil {
			return stopped(ctx, err)
		}
	}
}

// stopped hides errors caused by ctx cancellation.
func stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// Step performs one unit of work. While idle it polls for one input byte
// and waits IdlePoll when none is pending. While running it completes a
// full measurement cycle, waits Interval, then checks for one input byte.
func (m *Machine) Step(ctx context.Context) error {
	if !m.state.Running() {
		handled, err := m.pollInput(ctx)
		if err != nil || handled {
			return err
		}
		return m.sleep(ctx, m.idlePoll)
	}

	if _, err := m.RunCycle(ctx); err != nil {
		return err
	}
	if err := m.sleep(ctx, m.interval); err != nil {
		return err
	}
	_, err := m.pollInput(ctx)
	return err
}

// pollInput dispatches one pending byte, if any.
func (m *Machine) pollInput(ctx context.Context) (bool, error) {
	b, ok, err := m.port.Pending()
	if err != nil {
		return false, fmt.Errorf("poll input: %w", err)
	}
	if !ok {
		return false, nil
	}
	return true, m.Dispatch(ctx, b)
}

// Dispatch applies one input byte to the state machine.
func (m *Machine) Dispatch(ctx context.Context, b byte) error {
	cmd := Decode(b)

	switch cmd.Kind {
	case CommandIgnore:
		return nil

	case CommandMenu:
		return m.showMenu(ctx)

	case CommandSelect:
		if m.state.Running() {
			// Only 's' leaves a running session.
			return m.reject(ctx, b)
		}
		m.setState(State{Mode: ModeRunning, Channel: cmd.Channel})
		if err := m.reporter.WriteSelection(ctx, cmd.Channel); err != nil {
			return fmt.Errorf("echo selection: %w", err)
		}
		return nil

	default:
		return m.reject(ctx, b)
	}
}

// RunCycle reads the active channel, drives the indicator and reports the
// measurement. The sequence always completes before input is looked at.
func (m *Machine) RunCycle(ctx context.Context) (Cycle, error) {
	if !m.state.Running() {
		return Cycle{}, errors.New("run cycle: session is idle")
	}
	ch := m.state.Channel

	meas, err := m.reader.Read(ctx, ch)
	if err != nil {
		return Cycle{}, fmt.Errorf("measure: %w", err)
	}

	level := logic.Classify(ch, meas.Primary)
	if err := m.indicator.Set(level); err != nil {
		return Cycle{}, fmt.Errorf("drive indicator: %w", err)
	}

	if err := m.reporter.WriteMeasurement(ctx, meas); err != nil {
		return Cycle{}, fmt.Errorf("report: %w", err)
	}

	c := Cycle{Time: m.now(), Measurement: meas, Level: level}
	for _, o := range m.observers {
		o.ObserveCycle(c)
	}
	return c, nil
}

func (m *Machine) showMenu(ctx context.Context) error {
	m.setState(State{Mode: ModeIdle})
	if err := m.reporter.WriteMenu(ctx); err != nil {
		return fmt.Errorf("show menu: %w", err)
	}
	return nil
}

func (m *Machine) reject(ctx context.Context, b byte) error {
	m.log.WithField("byte", fmt.Sprintf("%q", b)).Debug("invalid command")
	for _, o := range m.observers {
		o.ObserveInvalid(b)
	}
	if err := m.reporter.WriteInvalid(ctx); err != nil {
		return fmt.Errorf("reject command: %w", err)
	}
	return nil
}

func (m *Machine) setState(s State) {
	if s != m.state {
		m.log.WithFields(logrus.Fields{"mode": s.Mode, "channel": s.Channel}).Info("session state changed")
	}
	m.state = s
	for _, o := range m.observers {
		o.ObserveState(s)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
