package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/open-policy-agent/opa/rego"

	"github.com/sketchlint/sketchlint/internal/analyzer"
	"github.com/sketchlint/sketchlint/internal/rules"
)

// Engine evaluates project policy packs against the facts of one analysis
// pass. Policies are plain .rego files; teams add rules without recompiling.
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
}

// Violation is one policy finding.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// Result contains the evaluation results.
type Result struct {
	Violations []Violation
	Summary    Summary
}

// Summary provides aggregate counts.
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// Input is the fact document passed to OPA: a flattened view of one pass.
type Input struct {
	URI         string       `json:"uri"`
	Board       string       `json:"board"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Pins        []Pin        `json:"pins"`
	Memory      Memory       `json:"memory"`
}

type Diagnostic struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

type Pin struct {
	Pin         int    `json:"pin"`
	Label       string `json:"label"`
	Status      string `json:"status"`
	PrimaryType string `json:"primary_type"`
	UsageCount  int    `json:"usage_count"`
	Line        int    `json:"line"`
}

type Memory struct {
	RAMTotal        int `json:"ram_total"`
	RAMPercentage   int `json:"ram_percentage"`
	FlashTotal      int `json:"flash_total"`
	FlashPercentage int `json:"flash_percentage"`
	GlobalBytes     int `json:"global_bytes"`
}

// FromResult flattens an analysis pass into the policy fact document.
func FromResult(r *analyzer.Result) Input {
	in := Input{
		URI:         r.URI,
		Board:       r.Board,
		Diagnostics: make([]Diagnostic, 0, len(r.Diagnostics)),
		Pins:        make([]Pin, 0, len(r.PinMap)),
		Memory: Memory{
			RAMTotal:        r.Memory.RAM.Total,
			RAMPercentage:   r.Memory.RAM.Percentage,
			FlashTotal:      r.Memory.Flash.Total,
			FlashPercentage: r.Memory.Flash.Percentage,
			GlobalBytes:     r.Memory.RAM.GlobalVariables,
		},
	}
	for _, d := range r.Diagnostics {
		in.Diagnostics = append(in.Diagnostics, Diagnostic{
			Code:     d.Code,
			Severity: severityName(d.Severity),
			Line:     d.Range.Start.Line,
			Message:  d.Message,
		})
	}
	for _, rec := range r.PinMap {
		line := 0
		if len(rec.Usages) > 0 {
			line = rec.Usages[0].Position.Line
		}
		in.Pins = append(in.Pins, Pin{
			Pin:         rec.Pin,
			Label:       rec.PinLabel,
			Status:      rec.Status,
			PrimaryType: rec.PrimaryType,
			UsageCount:  len(rec.Usages),
			Line:        line,
		})
	}
	return in
}

func severityName(s rules.Severity) string {
	switch s {
	case rules.SeverityError:
		return "error"
	case rules.SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// New creates a policy engine, loading every .rego file in policyDir.
func New(policyDir string) (*Engine, error) {
	engine := &Engine{
		queries: make(map[string]rego.PreparedEvalQuery),
	}

	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, errors.Wrap(err, "finding policy files")
	}
	if len(files) == 0 {
		return nil, errors.Newf("no policy files found in %s", policyDir)
	}

	var modules []func(*rego.Rego)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", f)
		}
		modules = append(modules, rego.Module(f, string(content)))
	}

	opts := append(modules, rego.Query("data.sketch.policy.all_violations"))
	query, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "preparing violations query")
	}
	engine.queries["violations"] = query

	opts = append(modules, rego.Query("data.sketch.policy.summary"))
	query, err = rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "preparing summary query")
	}
	engine.queries["summary"] = query

	return engine, nil
}

// Evaluate runs the loaded policies against one pass's facts.
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, errors.Wrap(err, "converting input")
	}

	result := &Result{}

	rs, err := e.queries["violations"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, errors.Wrap(err, "evaluating violations")
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if violations, ok := rs[0].Expressions[0].Value.([]interface{}); ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Line:     getInt(vmap, "line"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, errors.Wrap(err, "evaluating summary")
	}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				TotalViolations: getInt(smap, "total_violations"),
				Errors:          getInt(smap, "errors"),
				Warnings:        getInt(smap, "warnings"),
				Info:            getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
