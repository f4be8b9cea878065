package analyzer

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/memory"
	"github.com/sketchlint/sketchlint/internal/pins"
	"github.com/sketchlint/sketchlint/internal/rules"
	"github.com/sketchlint/sketchlint/internal/source"
)

// Result is one complete analysis pass over one snapshot. Its JSON encoding
// is the wire contract with editor hosts and is validated against the
// bundled schema in tests.
type Result struct {
	URI         string             `json:"uri"`
	Version     int                `json:"version"`
	Board       string             `json:"board,omitempty"`
	Diagnostics []rules.Diagnostic `json:"diagnostics"`
	PinMap      []pins.Record      `json:"pinMap"`
	Memory      memory.Estimate    `json:"memory"`
}

// Analyzer fans one snapshot out to the three scanners and folds their
// outputs into a Result. It holds no per-document state; Session does.
type Analyzer struct {
	store     *hardware.Store
	log       *zap.SugaredLogger
	tracker   *pins.Tracker
	estimator *memory.Estimator
	engine    *rules.Engine
}

// New wires an analyzer onto a descriptor store. severityOverrides is the
// config's rule severity map and may be nil.
func New(store *hardware.Store, log *zap.SugaredLogger, severityOverrides map[string]string) *Analyzer {
	return &Analyzer{
		store:     store,
		log:       log,
		tracker:   pins.NewTracker(store),
		estimator: memory.NewEstimator(store, log),
		engine:    rules.NewEngine(store, log, severityOverrides),
	}
}

// Analyze runs one full pass. The three scanners are independent and read
// only the snapshot plus the read-only store, so they run concurrently.
// Analysis itself never fails; the only error is a cancelled context.
func (a *Analyzer) Analyze(ctx context.Context, snap source.Snapshot) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "analysis cancelled")
	}

	var (
		usages []pins.Usage
		est    memory.Estimate
		diags  []rules.Diagnostic
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		usages = a.tracker.Analyze(snap)
		return nil
	})
	g.Go(func() error {
		est = a.estimator.Estimate(snap)
		return nil
	})
	g.Go(func() error {
		diags = a.engine.Run(snap)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		URI:         snap.URI,
		Version:     snap.Version,
		Diagnostics: diags,
		PinMap:      a.tracker.BuildPinMap(usages),
		Memory:      est,
	}
	if result.Diagnostics == nil {
		result.Diagnostics = []rules.Diagnostic{}
	}
	if result.PinMap == nil {
		result.PinMap = []pins.Record{}
	}
	if b := a.store.CurrentBoard(); b != nil {
		result.Board = b.ID
	}

	a.log.Debugw("analysis pass complete",
		"uri", snap.URI,
		"version", snap.Version,
		"diagnostics", len(result.Diagnostics),
		"pins", len(result.PinMap),
		"ramTotal", est.RAM.Total,
	)
	return result, nil
}
