package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/j9brown/victron-vebus/internal/config"
	"github.com/j9brown/victron-vebus/internal/core/domain"
	"github.com/j9brown/victron-vebus/pkg/vebus"

	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	FrameColor = lipgloss.Color("#7D56F4")
	AckColor   = lipgloss.Color("#43BF6D")
	MutedColor = lipgloss.Color("#626262")
)

type frameRecord struct {
	Frame string      `json:"frame" yaml:"frame"`
	Data  vebus.Frame `json:"data" yaml:"data"`
}

type ackRecord struct {
	Event       string            `json:"event" yaml:"event"`
	SwitchState vebus.SwitchState `json:"switch_state" yaml:"switch_state"`
}

// Printer writes frames and acknowledgments as they are published. Text
// output is styled only when out is a terminal.
type Printer struct {
	out    io.Writer
	format string
	logger *zap.Logger

	mu          sync.Mutex
	yamlEncoder *yaml.Encoder

	nameStyle  func(string) string
	fieldStyle func(string) string
	ackStyle   func(string) string
}

func plain(s string) string {
	return s
}

func styled(style lipgloss.Style) func(string) string {
	return func(s string) string {
		return style.Render(s)
	}
}

func NewPrinter(out io.Writer, format string, logger *zap.Logger) *Printer {
	p := &Printer{
		out:        out,
		format:     format,
		logger:     logger,
		nameStyle:  plain,
		fieldStyle: plain,
		ackStyle:   plain,
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r := lipgloss.NewRenderer(out)
		p.nameStyle = styled(r.NewStyle().Foreground(FrameColor).Bold(true))
		p.fieldStyle = styled(r.NewStyle().Foreground(MutedColor))
		p.ackStyle = styled(r.NewStyle().Foreground(AckColor).Bold(true))
	}
	if format == config.FORMAT_YAML {
		p.yamlEncoder = yaml.NewEncoder(out)
		p.yamlEncoder.SetIndent(2)
	}
	return p
}

// Subscribe prints every display event published on es.
func (p *Printer) Subscribe(es *eventstream.EventStream) *eventstream.Subscription {
	return es.Subscribe(p.Handle)
}

func (p *Printer) Handle(evt any) {
	var err error
	switch e := evt.(type) {
	case domain.FrameReceivedEvent:
		err = p.PrintFrame(e.Frame)
	case domain.AcknowledgedEvent:
		err = p.PrintAcknowledged(e.SwitchState)
	default:
		return
	}
	if err != nil {
		p.logger.Warn("display@printing cannot print event", zap.String("type", fmt.Sprintf("%T", evt)), zap.Error(err))
	}
}

func (p *Printer) PrintFrame(frame vebus.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.format {
	case config.FORMAT_JSON:
		return p.writeJSON(frameRecord{Frame: frame.FrameName(), Data: frame})
	case config.FORMAT_YAML:
		return p.yamlEncoder.Encode(frameRecord{Frame: frame.FrameName(), Data: frame})
	default:
		_, err := io.WriteString(p.out, p.frameText(frame))
		return err
	}
}

func (p *Printer) PrintAcknowledged(state vebus.SwitchState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.format {
	case config.FORMAT_JSON:
		return p.writeJSON(ackRecord{Event: "acknowledged", SwitchState: state})
	case config.FORMAT_YAML:
		return p.yamlEncoder.Encode(ackRecord{Event: "acknowledged", SwitchState: state})
	default:
		_, err := fmt.Fprintln(p.out, p.ackStyle("Acknowledged!"))
		return err
	}
}

// Message prints a line outside of the frame stream, in text format only.
func (p *Printer) Message(line string) {
	if p.format != config.FORMAT_TEXT {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

func (p *Printer) Close() error {
	if p.yamlEncoder != nil {
		return p.yamlEncoder.Close()
	}
	return nil
}

func (p *Printer) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}

// frameText renders the frame name followed by one "  field: value" line per
// field, enums by name.
func (p *Printer) frameText(frame vebus.Frame) string {
	var b strings.Builder
	b.WriteString(p.nameStyle(frame.FrameName()))
	b.WriteByte('\n')

	v := reflect.ValueOf(frame)
	t := v.Type()
	if t.Kind() != reflect.Struct {
		return b.String()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		b.WriteString("  ")
		b.WriteString(p.fieldStyle(fieldName(field) + ":"))
		b.WriteByte(' ')
		b.WriteString(fmt.Sprint(v.Field(i).Interface()))
		b.WriteByte('\n')
	}
	return b.String()
}

func fieldName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("yaml"); ok {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}
