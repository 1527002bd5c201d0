package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/sensor-station/internal/console"
	"github.com/sweeney/sensor-station/internal/gpio"
	"github.com/sweeney/sensor-station/internal/logic"
	"github.com/sweeney/sensor-station/internal/report"
	"github.com/sweeney/sensor-station/internal/sensor"
)

// recorder is an Observer that keeps everything it sees.
type recorder struct {
	states   []State
	cycles   []Cycle
	invalids []byte
}

func (r *recorder) ObserveState(s State)  { r.states = append(r.states, s) }
func (r *recorder) ObserveCycle(c Cycle)  { r.cycles = append(r.cycles, c) }
func (r *recorder) ObserveInvalid(b byte) { r.invalids = append(r.invalids, b) }

type harness struct {
	m       *Machine
	sampler *sensor.FakeSampler
	led     *gpio.FakeIndicator
	port    *console.FakePort
	rec     *recorder
	sleeps  []time.Duration

	// onSleep, if set, runs after every recorded sleep.
	onSleep func(h *harness)
}

var defaultScript = map[logic.Channel][]logic.Raw{
	logic.ChannelNTC:            {512},
	logic.ChannelAirQuality:     {0},
	logic.ChannelCarbonMonoxide: {1023},
	logic.ChannelHumidity:       {800},
}

func newHarness(t *testing.T, script map[logic.Channel][]logic.Raw) *harness {
	t.Helper()
	if script == nil {
		script = defaultScript
	}
	h := &harness{
		sampler: sensor.NewFakeSampler(script),
		led:     gpio.NewFakeIndicator(),
		port:    console.NewFakePort(),
		rec:     &recorder{},
	}
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.m = New(sensor.NewReader(h.sampler, 50*time.Millisecond), h.led, h.port, Config{
		WriteTimeout: 50 * time.Millisecond,
		Observers:    []Observer{h.rec},
		Now:          func() time.Time { return clock },
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			if h.onSleep != nil {
				h.onSleep(h)
			}
			return ctx.Err()
		},
	})
	return h
}

func (h *harness) dispatch(t *testing.T, b byte) {
	t.Helper()
	if err := h.m.Dispatch(context.Background(), b); err != nil {
		t.Fatalf("Dispatch(%q): %v", b, err)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		in   byte
		kind CommandKind
		ch   logic.Channel
	}{
		{'\n', CommandIgnore, 0},
		{'\r', CommandIgnore, 0},
		{'s', CommandMenu, 0},
		{'1', CommandSelect, logic.ChannelNTC},
		{'2', CommandSelect, logic.ChannelAirQuality},
		{'3', CommandSelect, logic.ChannelCarbonMonoxide},
		{'4', CommandSelect, logic.ChannelHumidity},
		{'0', CommandInvalid, 0},
		{'5', CommandInvalid, 0},
		{'S', CommandInvalid, 0},
		{'x', CommandInvalid, 0},
		{0xff, CommandInvalid, 0},
	}
	for _, tt := range tests {
		got := Decode(tt.in)
		if got.Kind != tt.kind || got.Channel != tt.ch {
			t.Errorf("Decode(%q): got %s/%v, want %s/%v", tt.in, got.Kind, got.Channel, tt.kind, tt.ch)
		}
		if got.Byte != tt.in {
			t.Errorf("Decode(%q): Byte not preserved, got %q", tt.in, got.Byte)
		}
	}
}

func TestStartShowsMenuIdle(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.port.Output() != report.Menu {
		t.Errorf("expected menu output, got %q", h.port.Output())
	}
	if h.m.State().Mode != ModeIdle {
		t.Errorf("expected IDLE, got %s", h.m.State().Mode)
	}
	if h.led.Count() != 0 {
		t.Errorf("indicator should not be touched at startup, got %d writes", h.led.Count())
	}
}

func TestSelectWhileIdle(t *testing.T) {
	for i, ch := range logic.Channels {
		digit := "1234"[i]
		h := newHarness(t, nil)
		h.dispatch(t, digit)

		st := h.m.State()
		if st.Mode != ModeRunning || st.Channel != ch {
			t.Errorf("digit %q: expected RUNNING %v, got %s %v", digit, ch, st.Mode, st.Channel)
		}
		want := "Optiunea selectata: " + string(rune(digit)) + "\n"
		if h.port.Output() != want {
			t.Errorf("digit %q: expected echo %q, got %q", digit, want, h.port.Output())
		}
	}
}

func TestInvalidWhileIdle(t *testing.T) {
	h := newHarness(t, nil)

	for _, b := range []byte{'x', '0', '5', 'S'} {
		h.dispatch(t, b)
	}

	if h.m.State().Mode != ModeIdle {
		t.Errorf("expected IDLE, got %s", h.m.State().Mode)
	}
	lines := h.port.Lines()
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	for i, l := range lines {
		if l != "Comanda invalida" {
			t.Errorf("line %d: got %q", i, l)
		}
	}
	if string(h.rec.invalids) != "x05S" {
		t.Errorf("observer invalids: got %q", h.rec.invalids)
	}
}

func TestNewlineIgnoredInAnyState(t *testing.T) {
	h := newHarness(t, nil)

	h.dispatch(t, '\n')
	if h.port.Output() != "" || h.m.State().Mode != ModeIdle {
		t.Errorf("newline while idle should be a no-op, output %q state %s", h.port.Output(), h.m.State().Mode)
	}

	h.dispatch(t, '3')
	h.port.ResetOutput()
	h.dispatch(t, '\n')
	h.dispatch(t, '\r')
	if h.port.Output() != "" {
		t.Errorf("newline while running should be a no-op, got %q", h.port.Output())
	}
	if st := h.m.State(); st.Mode != ModeRunning || st.Channel != logic.ChannelCarbonMonoxide {
		t.Errorf("expected RUNNING mq7, got %+v", st)
	}
}

func TestMenuFromRunningReturnsIdle(t *testing.T) {
	for i, ch := range logic.Channels {
		h := newHarness(t, nil)
		h.dispatch(t, "1234"[i])
		h.port.ResetOutput()

		h.dispatch(t, 's')

		if h.m.State().Mode != ModeIdle {
			t.Errorf("%v: expected IDLE after 's', got %s", ch, h.m.State().Mode)
		}
		if h.port.Output() != report.Menu {
			t.Errorf("%v: expected menu, got %q", ch, h.port.Output())
		}
	}
}

func TestMenuWhileIdleReshowsMenu(t *testing.T) {
	h := newHarness(t, nil)
	h.dispatch(t, 's')
	h.dispatch(t, 's')
	if h.port.Output() != report.Menu+report.Menu {
		t.Errorf("expected menu twice, got %q", h.port.Output())
	}
}

func TestDigitWhileRunningKeepsChannel(t *testing.T) {
	h := newHarness(t, nil)
	h.dispatch(t, '1')
	h.port.ResetOutput()

	h.dispatch(t, '1')
	h.dispatch(t, '4')

	st := h.m.State()
	if st.Mode != ModeRunning || st.Channel != logic.ChannelNTC {
		t.Errorf("expected RUNNING ntc, got %+v", st)
	}
	lines := h.port.Lines()
	if len(lines) != 2 || lines[0] != "Comanda invalida" || lines[1] != "Comanda invalida" {
		t.Errorf("expected two rejections, got %q", lines)
	}
}

func TestRunCycleDrivesIndicatorAndReports(t *testing.T) {
	tests := []struct {
		digit     byte
		wantLine  string
		wantLevel logic.Level
	}{
		{'1', "Temperatura NTC: 24.95 C  Tensiunea: 2.50 V  Curentul: 0.25 mA  Rezistenta: 10019.57 ohmi", logic.LevelBelow},
		{'2', "Calitatea aerului (MQ135): 0.000%  0 ppm", logic.LevelBelow},
		{'3', "Monoxid de carbon (MQ7): 0.102%  1023 ppm", logic.LevelAtOrAbove},
		{'4', "Umiditatea din aer (DHT): 80.00%", logic.LevelAtOrAbove},
	}
	for _, tt := range tests {
		h := newHarness(t, nil)
		h.dispatch(t, tt.digit)
		h.port.ResetOutput()

		c, err := h.m.RunCycle(context.Background())
		if err != nil {
			t.Fatalf("digit %q: RunCycle: %v", tt.digit, err)
		}
		if c.Level != tt.wantLevel {
			t.Errorf("digit %q: level got %s, want %s", tt.digit, c.Level, tt.wantLevel)
		}
		if got := h.port.Output(); got != tt.wantLine+"\n" {
			t.Errorf("digit %q: report got %q, want %q", tt.digit, got, tt.wantLine)
		}

		w, ok := h.led.Last()
		if !ok {
			t.Fatalf("digit %q: indicator not driven", tt.digit)
		}
		wantRed := tt.wantLevel == logic.LevelAtOrAbove
		if w.Red != wantRed || w.Green == w.Red {
			t.Errorf("digit %q: indicator got %+v, want red=%v", tt.digit, w, wantRed)
		}

		if len(h.rec.cycles) != 1 || h.rec.cycles[0].Measurement.Channel != h.m.State().Channel {
			t.Errorf("digit %q: observer cycles %+v", tt.digit, h.rec.cycles)
		}
	}
}

func TestRunCycleWhileIdleFails(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.m.RunCycle(context.Background()); err == nil {
		t.Error("expected error running a cycle while idle")
	}
	if h.sampler.CallCount() != 0 {
		t.Errorf("sampler should not be read while idle, got %d calls", h.sampler.CallCount())
	}
}

func TestStepIdleWaitsWhenNoInput(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.m.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(h.sleeps) != 1 || h.sleeps[0] != DefaultIdlePoll {
		t.Errorf("expected one idle poll sleep, got %v", h.sleeps)
	}
	if h.port.PendingCalls != 1 {
		t.Errorf("expected one input poll, got %d", h.port.PendingCalls)
	}
}

func TestStepIdleHandlesInputWithoutWaiting(t *testing.T) {
	h := newHarness(t, nil)
	h.port.Feed('2')

	if err := h.m.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(h.sleeps) != 0 {
		t.Errorf("expected no sleep after handling input, got %v", h.sleeps)
	}
	if st := h.m.State(); st.Channel != logic.ChannelAirQuality {
		t.Errorf("expected mq135 selected, got %+v", st)
	}
}

func TestStepRunningCompletesCycleBeforeExit(t *testing.T) {
	h := newHarness(t, nil)
	h.dispatch(t, '4')
	h.port.ResetOutput()

	// 's' is already waiting, but the cycle still runs to completion first.
	h.port.Feed('s')
	if err := h.m.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	want := "Umiditatea din aer (DHT): 80.00%\n" + report.Menu
	if h.port.Output() != want {
		t.Errorf("output: got %q, want %q", h.port.Output(), want)
	}
	if h.m.State().Mode != ModeIdle {
		t.Errorf("expected IDLE, got %s", h.m.State().Mode)
	}
	if len(h.sleeps) != 1 || h.sleeps[0] != DefaultInterval {
		t.Errorf("expected one %v interval, got %v", DefaultInterval, h.sleeps)
	}
}

func TestStepRunningConsumesOneByte(t *testing.T) {
	h := newHarness(t, nil)
	h.dispatch(t, '1')
	h.port.Feed('\n', 's')

	// The first cycle only sees the newline; the menu comes one cycle later.
	if err := h.m.Step(context.Background()); err != nil {
		t.Fatalf("Step 1: %v", err)
	}
	if !h.m.State().Running() {
		t.Fatal("expected still running after first cycle")
	}
	if err := h.m.Step(context.Background()); err != nil {
		t.Fatalf("Step 2: %v", err)
	}
	if h.m.State().Running() {
		t.Error("expected idle after second cycle")
	}
	if h.sampler.CallCount() != 2 {
		t.Errorf("expected 2 samples, got %d", h.sampler.CallCount())
	}
}

func TestIndicatorRetainedWhileIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.dispatch(t, '3')
	if _, err := h.m.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	h.dispatch(t, 's')
	for i := 0; i < 3; i++ {
		h.m.Step(context.Background())
	}

	if h.led.Count() != 1 {
		t.Errorf("expected indicator untouched after 's', got %d writes", h.led.Count())
	}
	if w, _ := h.led.Last(); !w.Red {
		t.Errorf("expected red retained, got %+v", w)
	}
}

func TestRunSession(t *testing.T) {
	h := newHarness(t, map[logic.Channel][]logic.Raw{
		logic.ChannelNTC: {512, 300, 700},
	})
	h.port.Feed('1')

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cycles := 0
	h.onSleep = func(h *harness) {
		if !h.m.State().Running() {
			if cycles > 0 {
				cancel()
			}
			return
		}
		cycles++
		if cycles == 3 {
			h.port.Feed('s')
		}
	}

	if err := h.m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := h.port.Output()
	if !strings.HasPrefix(out, report.Menu+"Optiunea selectata: 1\n") {
		t.Errorf("unexpected start of output: %q", out)
	}
	if n := strings.Count(out, "Temperatura NTC: "); n != 3 {
		t.Errorf("expected 3 reports, got %d", n)
	}
	if !strings.HasSuffix(out, report.Menu) {
		t.Errorf("expected output to end with the menu, got %q", out)
	}

	if len(h.rec.cycles) != 3 {
		t.Fatalf("expected 3 observed cycles, got %d", len(h.rec.cycles))
	}
	wantLevels := []logic.Level{logic.LevelBelow, logic.LevelAtOrAbove, logic.LevelBelow}
	for i, c := range h.rec.cycles {
		if c.Level != wantLevels[i] {
			t.Errorf("cycle %d: level got %s, want %s", i, c.Level, wantLevels[i])
		}
	}
}

func TestRunStalledSensorReturnsTimeout(t *testing.T) {
	h := newHarness(t, nil)
	h.sampler.Stall = true
	h.port.Feed('2')

	err := h.m.Run(context.Background())
	if !errors.Is(err, sensor.ErrTimeout) {
		t.Fatalf("expected sensor.ErrTimeout, got %v", err)
	}
	if h.led.Count() != 0 {
		t.Errorf("indicator should not change on a failed read, got %d writes", h.led.Count())
	}
}

func TestRunStalledConsoleReturnsTimeout(t *testing.T) {
	h := newHarness(t, nil)
	h.port.StallSend = true

	err := h.m.Run(context.Background())
	if !errors.Is(err, console.ErrTimeout) {
		t.Fatalf("expected console.ErrTimeout, got %v", err)
	}
}

func TestRunInputErrorIsReturned(t *testing.T) {
	h := newHarness(t, nil)
	h.port.PendingError = errors.New("uart overrun")

	err := h.m.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "uart overrun") {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestRunCancelledReturnsNil(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	h.onSleep = func(*harness) { cancel() }

	if err := h.m.Run(ctx); err != nil {
		t.Errorf("expected nil on cancellation, got %v", err)
	}
}

func TestObserverSeesTransitions(t *testing.T) {
	h := newHarness(t, nil)
	h.m.Start(context.Background())
	h.dispatch(t, '2')
	h.dispatch(t, 's')

	want := []State{
		{Mode: ModeIdle},
		{Mode: ModeRunning, Channel: logic.ChannelAirQuality},
		{Mode: ModeIdle},
	}
	if len(h.rec.states) != len(want) {
		t.Fatalf("expected %d states, got %+v", len(want), h.rec.states)
	}
	for i := range want {
		if h.rec.states[i] != want[i] {
			t.Errorf("state %d: got %+v, want %+v", i, h.rec.states[i], want[i])
		}
	}
}
