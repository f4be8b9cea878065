package report

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sketchlint/sketchlint/internal/analyzer"
	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/source"
)

func analyze(t *testing.T, text string) *analyzer.Result {
	t.Helper()
	log := zap.NewNop().Sugar()
	store := hardware.NewStore(log)
	require.NoError(t, store.Initialize())
	require.NoError(t, store.LoadBoard("uno"))
	r, err := analyzer.New(store, log, nil).Analyze(context.Background(),
		source.Snapshot{URI: "file:///sketch.ino", Version: 1, Text: text})
	require.NoError(t, err)
	return r
}

func TestPrintDiagnosticsOneBased(t *testing.T) {
	r := analyze(t, "void loop(){\n  analogWrite(2, 128);\n}")
	var buf bytes.Buffer
	NewPrinter(&buf, false).Print("sketch.ino", r)

	out := buf.String()
	// Diagnostic ranges are 0-based on the wire; terminal output is 1-based.
	assert.Contains(t, out, "sketch.ino:2:3: error:")
	assert.Contains(t, out, "[no-pwm-support]")
	assert.Contains(t, out, "memory [uno]:")
}

func TestPrintPinConflicts(t *testing.T) {
	r := analyze(t, "void setup(){ pinMode(5, OUTPUT); pinMode(5, INPUT); }")
	var buf bytes.Buffer
	NewPrinter(&buf, false).Print("sketch.ino", r)
	assert.Contains(t, buf.String(), "pin 5: conflict:")
}

func TestSummaryCountsAndExitSignal(t *testing.T) {
	clean := analyze(t, "void setup(){}\nvoid loop(){}")
	broken := analyze(t, "void loop(){ analogWrite(2, 300); }")

	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	assert.Equal(t, 0, p.Summary(1, []*analyzer.Result{clean}))
	assert.Contains(t, buf.String(), "clean")

	buf.Reset()
	errs := p.Summary(1, []*analyzer.Result{broken})
	assert.Equal(t, 2, errs, "no-pwm-support and pwm-value-overflow are both errors")
	assert.Contains(t, buf.String(), "2 error(s)")
}

func TestWriteJSONValidatesContract(t *testing.T) {
	r := analyze(t, "void loop(){ digitalWrite(7, HIGH); }")
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []*analyzer.Result{r}, true))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "file:///sketch.ino", decoded[0]["uri"])
}
