package rules

import (
	"go.uber.org/zap"

	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/source"
)

// Severity matches the wire encoding consumed by editor hosts.
type Severity int

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
	SeverityInfo    Severity = 3
)

const diagnosticSource = "sketchlint"

// Diagnostic is one positioned finding. Immutable once created; a pass's
// diagnostic set is the concatenation of all validator outputs in
// registration order.
type Diagnostic struct {
	Severity Severity     `json:"severity"`
	Range    source.Range `json:"range"`
	Message  string       `json:"message"`
	Code     string       `json:"code"`
	Source   string       `json:"source"`
}

// Input is everything a validator may read. Stripped is the comment-stripped
// text (same length and newline positions as the raw text), Symbols the
// sketch's own #define / const pin aliases. Board is nil when no board is
// active; board-gated checks must then skip silently.
type Input struct {
	Snapshot source.Snapshot
	Stripped string
	Board    *hardware.Board
	Store    *hardware.Store
	Symbols  map[string]string
}

func (in Input) diag(offset, n int, sev Severity, code, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Range:    source.LineRangeAt(in.Stripped, offset, n),
		Message:  msg,
		Code:     code,
		Source:   diagnosticSource,
	}
}

// Validator is one independent check: a pure function of its Input. Check
// must not retain state between calls; the engine may run validators in any
// order, including concurrently.
type Validator struct {
	Code  string
	Check func(Input) []Diagnostic
}

// Engine runs the registered validators over a snapshot and concatenates
// their outputs. Each validator runs behind its own fault boundary: a panic
// inside one check is logged and contributes zero diagnostics, never
// aborting the pass.
type Engine struct {
	store      *hardware.Store
	log        *zap.SugaredLogger
	validators []Validator
	severity   map[string]string // code -> off | error | warning | info
}

// NewEngine builds an engine over the full registry. severityOverrides maps
// diagnostic codes to a forced severity, or "off" to disable the code.
func NewEngine(store *hardware.Store, log *zap.SugaredLogger, severityOverrides map[string]string) *Engine {
	if severityOverrides == nil {
		severityOverrides = map[string]string{}
	}
	return &Engine{
		store:      store,
		log:        log,
		validators: Registry(),
		severity:   severityOverrides,
	}
}

// Run executes every validator against the snapshot. The text is stripped
// once; validators share the stripped copy read-only.
func (e *Engine) Run(snap source.Snapshot) []Diagnostic {
	in := Input{
		Snapshot: snap,
		Stripped: source.Strip(snap.Text),
		Store:    e.store,
		Symbols:  nil,
	}
	if e.store != nil {
		in.Board = e.store.CurrentBoard()
	}
	in.Symbols = symbolTable(in.Stripped)

	out := make([]Diagnostic, 0, 8)
	for _, v := range e.validators {
		if e.severity[v.Code] == "off" {
			continue
		}
		for _, d := range e.check(v, in) {
			if override, ok := e.severity[d.Code]; ok {
				if override == "off" {
					continue
				}
				if sev, ok := parseSeverity(override); ok {
					d.Severity = sev
				}
			}
			out = append(out, d)
		}
	}
	return out
}

func (e *Engine) check(v Validator, in Input) (ds []Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			if e.log != nil {
				e.log.Errorw("validator panicked, skipping its output", "rule", v.Code, "panic", r)
			}
			ds = nil
		}
	}()
	return v.Check(in)
}

func parseSeverity(s string) (Severity, bool) {
	switch s {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	}
	return 0, false
}
