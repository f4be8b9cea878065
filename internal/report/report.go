package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/sketchlint/sketchlint/internal/analyzer"
	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/policy"
	"github.com/sketchlint/sketchlint/internal/rules"
)

// Printer renders analysis results for a terminal.
type Printer struct {
	w io.Writer

	errColor  *color.Color
	warnColor *color.Color
	infoColor *color.Color
	dimColor  *color.Color
}

func NewPrinter(w io.Writer, useColor bool) *Printer {
	p := &Printer{
		w:         w,
		errColor:  color.New(color.FgRed, color.Bold),
		warnColor: color.New(color.FgYellow),
		infoColor: color.New(color.FgCyan),
		dimColor:  color.New(color.Faint),
	}
	if !useColor {
		for _, c := range []*color.Color{p.errColor, p.warnColor, p.infoColor, p.dimColor} {
			c.DisableColor()
		}
	}
	return p
}

// Print renders one file's pass: diagnostics first, then pin conflicts and
// the memory summary.
func (p *Printer) Print(path string, r *analyzer.Result) {
	for _, d := range r.Diagnostics {
		c := p.severityColor(d.Severity)
		fmt.Fprintf(p.w, "%s:%d:%d: %s: %s %s\n",
			path, d.Range.Start.Line+1, d.Range.Start.Character+1,
			c.Sprint(severityLabel(d.Severity)), d.Message,
			p.dimColor.Sprintf("[%s]", d.Code))
	}

	for _, rec := range r.PinMap {
		if rec.Status == "valid" {
			continue
		}
		c := p.warnColor
		if rec.Status == "conflict" {
			c = p.errColor
		}
		fmt.Fprintf(p.w, "%s: pin %s: %s: %s\n", path, rec.PinLabel, c.Sprint(rec.Status), rec.Message)
	}

	p.printMemory(r)
}

func (p *Printer) printMemory(r *analyzer.Result) {
	ram := r.Memory.RAM
	flash := r.Memory.Flash
	if r.Board == "" {
		fmt.Fprintf(p.w, "  memory: ram %dB, flash %dB (no board selected, limits unknown)\n",
			ram.Total, flash.Total)
		return
	}
	fmt.Fprintf(p.w, "  memory [%s]: ram %dB (%d%%), flash %dB (%d%%)\n",
		r.Board, ram.Total, ram.Percentage, flash.Total, flash.Percentage)
	for _, w := range r.Memory.Warnings {
		c := p.infoColor
		switch w.Severity {
		case "error":
			c = p.errColor
		case "warning":
			c = p.warnColor
		}
		fmt.Fprintf(p.w, "  %s: %s\n", c.Sprint(w.Severity), w.Message)
	}
}

// PrintPolicy renders policy pack findings for one file.
func (p *Printer) PrintPolicy(path string, res *policy.Result) {
	for _, v := range res.Violations {
		c := p.infoColor
		switch v.Severity {
		case "error":
			c = p.errColor
		case "warning":
			c = p.warnColor
		}
		fmt.Fprintf(p.w, "%s:%d: %s: %s %s\n",
			path, v.Line+1, c.Sprint(v.Severity), v.Message,
			p.dimColor.Sprintf("[policy:%s]", v.Rule))
	}
}

// Summary prints the run footer and returns the number of errors, which
// drives the process exit code.
func (p *Printer) Summary(files int, results []*analyzer.Result) int {
	var errs, warns, infos int
	for _, r := range results {
		for _, d := range r.Diagnostics {
			switch d.Severity {
			case rules.SeverityError:
				errs++
			case rules.SeverityWarning:
				warns++
			default:
				infos++
			}
		}
	}

	if errs+warns+infos == 0 {
		fmt.Fprintf(p.w, "%s %d file(s) clean\n", p.infoColor.Sprint("ok:"), files)
		return 0
	}
	fmt.Fprintf(p.w, "%d file(s): %s, %s, %s\n",
		files,
		p.errColor.Sprintf("%d error(s)", errs),
		p.warnColor.Sprintf("%d warning(s)", warns),
		p.infoColor.Sprintf("%d info", infos))
	return errs
}

func (p *Printer) severityColor(s rules.Severity) *color.Color {
	switch s {
	case rules.SeverityError:
		return p.errColor
	case rules.SeverityWarning:
		return p.warnColor
	default:
		return p.infoColor
	}
}

func severityLabel(s rules.Severity) string {
	switch s {
	case rules.SeverityError:
		return "error"
	case rules.SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// WriteJSON emits results as a JSON array. With check set, every result is
// validated against the bundled output schema first; a contract break fails
// the run instead of feeding a consumer malformed data.
func WriteJSON(w io.Writer, results []*analyzer.Result, check bool) error {
	if check {
		v, err := hardware.NewOutputValidator()
		if err != nil {
			return err
		}
		for _, r := range results {
			raw, err := json.Marshal(r)
			if err != nil {
				return errors.Wrap(err, "encoding result")
			}
			var decoded map[string]interface{}
			if err := json.Unmarshal(raw, &decoded); err != nil {
				return errors.Wrap(err, "decoding result")
			}
			if err := v.Validate(decoded); err != nil {
				return errors.Wrapf(err, "output contract violation for %s", r.URI)
			}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
