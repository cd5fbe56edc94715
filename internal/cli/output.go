package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"rfid-bridge/internal/model"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// printer renders command results in the selected format.
type printer struct {
	format string
	out    io.Writer
}

func newPrinter(format string, out io.Writer) (*printer, error) {
	switch f := strings.ToLower(format); f {
	case "", FormatTable:
		return &printer{format: FormatTable, out: out}, nil
	case FormatJSON, FormatYAML:
		return &printer{format: f, out: out}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (use table, json or yaml)", format)
	}
}

// print writes data as JSON or YAML, or calls table with an aligned writer.
func (p *printer) print(data any, table func(w io.Writer)) error {
	switch p.format {
	case FormatJSON:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("error formatting JSON: %w", err)
		}
		_, err = fmt.Fprintln(p.out, string(b))
		return err

	case FormatYAML:
		b, err := yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("error formatting YAML: %w", err)
		}
		_, err = p.out.Write(b)
		return err
	}

	w := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}

// statusWriter prints progress lines from the transaction service.
type statusWriter struct {
	out io.Writer
}

func (s *statusWriter) SetStatus(status string) {
	fmt.Fprintln(s.out, progressStyle.Render(status))
}

func (s *statusWriter) TransactionCompleted(result model.TransactionResult) {
	if result.Success {
		fmt.Fprintln(s.out, okStyle.Render("OK"))
		return
	}
	fmt.Fprintln(s.out, failStyle.Render("FAILED")+" ("+string(result.ErrorKind)+")")
}
