package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/sensor-station/internal/console"
	"github.com/sweeney/sensor-station/internal/logic"
)

// DefaultWriteTimeout bounds the wait for each transmitted byte.
const DefaultWriteTimeout = 100 * time.Millisecond

// Menu is the fixed option list shown at startup and on every 's'.
const Menu = "\n~~~ MENIU ~~~\n" +
	"1: Citire temperatura, tensiune, curent si rezistent NTC\n" +
	"2: Citire calitate aer MQ135\n" +
	"3: Citire concentratie CO MQ7\n" +
	"4: Citire umiditate DHT11\n" +
	"Scrie 's' pentru a revedea meniul.\n" +
	"\nSelecteaza o optiune:\n"

const (
	selectionPrefix = "Optiunea selectata: "
	invalidCommand  = "Comanda invalida"
)

// Reporter writes text to a console port one byte at a time, waiting for
// the transmitter to accept each byte.
type Reporter struct {
	port    console.Port
	timeout time.Duration
}

// New creates a Reporter. A zero timeout selects DefaultWriteTimeout.
func New(port console.Port, timeout time.Duration) *Reporter {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Reporter{port: port, timeout: timeout}
}

// WriteText sends text verbatim.
func (r *Reporter) WriteText(ctx context.Context, text string) error {
	for i := 0; i < len(text); i++ {
		if err := console.Send(ctx, r.port, text[i], r.timeout); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}
	return nil
}

// WriteLine sends text followed by a newline.
func (r *Reporter) WriteLine(ctx context.Context, text string) error {
	return r.WriteText(ctx, text+"\n")
}

// WriteMenu sends the option menu.
func (r *Reporter) WriteMenu(ctx context.Context) error {
	return r.WriteText(ctx, Menu)
}

// WriteSelection echoes the menu number chosen for ch.
func (r *Reporter) WriteSelection(ctx context.Context, ch logic.Channel) error {
	return r.WriteLine(ctx, selectionPrefix+MenuKey(ch))
}

// WriteInvalid reports a rejected command byte.
func (r *Reporter) WriteInvalid(ctx context.Context) error {
	return r.WriteLine(ctx, invalidCommand)
}

// WriteMeasurement sends the report line for m.
func (r *Reporter) WriteMeasurement(ctx context.Context, m logic.Measurement) error {
	return r.WriteLine(ctx, FormatMeasurement(m))
}

// MenuKey returns the menu number of ch as shown to the user.
func MenuKey(ch logic.Channel) string {
	return strconv.Itoa(ch.Index() + 1)
}

// FormatMeasurement renders the report line for m, without the newline.
func FormatMeasurement(m logic.Measurement) string {
	var sb strings.Builder
	switch m.Channel {
	case logic.ChannelNTC:
		sb.WriteString("Temperatura NTC: ")
		sb.WriteString(FormatFixed(m.Primary, 2))
		sb.WriteString(" C  Tensiunea: ")
		sb.WriteString(FormatFixed(m.VoltageV, 2))
		sb.WriteString(" V  Curentul: ")
		sb.WriteString(FormatFixed(m.CurrentMA, 2))
		sb.WriteString(" mA  Rezistenta: ")
		sb.WriteString(FormatFixed(m.ResistanceOhm, 2))
		sb.WriteString(" ohmi")
	case logic.ChannelAirQuality:
		sb.WriteString("Calitatea aerului (MQ135): ")
		writeGas(&sb, m)
	case logic.ChannelCarbonMonoxide:
		sb.WriteString("Monoxid de carbon (MQ7): ")
		writeGas(&sb, m)
	case logic.ChannelHumidity:
		sb.WriteString("Umiditatea din aer (DHT): ")
		sb.WriteString(FormatFixed(m.Primary, 2))
		sb.WriteString("%")
	default:
		fmt.Fprintf(&sb, "%s: %s", m.Channel, FormatFixed(m.Primary, 2))
	}
	return sb.String()
}

func writeGas(sb *strings.Builder, m logic.Measurement) {
	sb.WriteString(FormatFixed(m.Primary, 3))
	sb.WriteString("%  ")
	sb.WriteString(FormatFixed(m.PPM(), 0))
	sb.WriteString(" ppm")
}
