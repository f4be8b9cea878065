package analyzer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/source"
)

func testAnalyzer(t *testing.T, boardID string) (*Analyzer, *hardware.Store) {
	t.Helper()
	log := zap.NewNop().Sugar()
	store := hardware.NewStore(log)
	require.NoError(t, store.Initialize())
	if boardID != "" {
		require.NoError(t, store.LoadBoard(boardID))
	}
	return New(store, log, nil), store
}

func diagCodes(r *Result) []string {
	out := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		out[i] = d.Code
	}
	return out
}

func TestAnalyzeBlinkSketch(t *testing.T) {
	a, _ := testAnalyzer(t, "uno")
	r, err := a.Analyze(context.Background(), source.Snapshot{
		URI:     "file:///blink.ino",
		Version: 3,
		Text: `void setup(){ Serial.begin(9600); pinMode(13, OUTPUT); }
void loop(){ digitalWrite(13, HIGH); }`,
	})
	require.NoError(t, err)

	assert.Empty(t, r.Diagnostics, "clean sketch: %v", diagCodes(r))
	assert.Equal(t, "uno", r.Board)
	assert.Equal(t, 3, r.Version)

	// base(9) + Serial(175) + two functions at depth 2 * 14 bytes.
	assert.Equal(t, 0, r.Memory.RAM.GlobalVariables)
	assert.Equal(t, 9+175+28, r.Memory.RAM.Total)

	var pin13 bool
	for _, rec := range r.PinMap {
		if rec.Pin == 13 {
			pin13 = true
			assert.Equal(t, "valid", rec.Status)
		}
	}
	assert.True(t, pin13, "pin 13 missing from pin map")
}

func TestAnalyzeMissingWireBegin(t *testing.T) {
	a, _ := testAnalyzer(t, "uno")
	r, err := a.Analyze(context.Background(), source.Snapshot{
		URI:  "file:///i2c.ino",
		Text: "void setup(){ Wire.beginTransmission(0x03); }",
	})
	require.NoError(t, err)

	require.Len(t, r.Diagnostics, 2, "got %v", diagCodes(r))
	assert.ElementsMatch(t, []string{"reserved-i2c-address", "missing-wire-begin"}, diagCodes(r))
}

func TestAnalyzeCancelledContext(t *testing.T) {
	a, _ := testAnalyzer(t, "uno")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Analyze(ctx, source.Snapshot{Text: "void loop(){}"})
	assert.Error(t, err)
}

func TestResultMatchesOutputContract(t *testing.T) {
	a, _ := testAnalyzer(t, "uno")
	r, err := a.Analyze(context.Background(), source.Snapshot{
		URI:     "file:///sketch.ino",
		Version: 1,
		Text: `int hits = 0;
void setup(){ Serial.begin(9600); pinMode(5, OUTPUT); pinMode(5, INPUT); }
void loop(){ hits++; analogWrite(2, 300); }`,
	})
	require.NoError(t, err)
	require.NotEmpty(t, r.Diagnostics)

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	v, err := hardware.NewOutputValidator()
	require.NoError(t, err)
	assert.NoError(t, v.Validate(decoded))
}

func TestSessionStalePassNeverOverwritesNewer(t *testing.T) {
	a, store := testAnalyzer(t, "uno")
	s := NewSession(a, store, zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := s.Open(ctx, source.Snapshot{URI: "u", Version: 5, Text: "void loop(){ analogWrite(9, 300); }"})
	require.NoError(t, err)

	// An older version finishing late must not displace the applied pass.
	r, err := s.Change(ctx, source.Snapshot{URI: "u", Version: 3, Text: "void loop(){}"})
	require.NoError(t, err)
	assert.Equal(t, 5, r.Version, "stale pass should be discarded in favor of the applied one")

	applied, ok := s.Result("u")
	require.True(t, ok)
	assert.Equal(t, 5, applied.Version)
	assert.Contains(t, diagCodes(applied), "pwm-value-overflow")
}

func TestSessionDedupesIdenticalContent(t *testing.T) {
	a, store := testAnalyzer(t, "uno")
	s := NewSession(a, store, zap.NewNop().Sugar())
	ctx := context.Background()

	text := "void loop(){ analogWrite(2, 128); }"
	r1, err := s.Open(ctx, source.Snapshot{URI: "u", Version: 1, Text: text})
	require.NoError(t, err)
	r2, err := s.Change(ctx, source.Snapshot{URI: "u", Version: 2, Text: text})
	require.NoError(t, err)

	assert.Equal(t, 2, r2.Version, "cached result must carry the new version")
	assert.Equal(t, diagCodes(r1), diagCodes(r2))
}

func TestSessionSetBoardReanalyzes(t *testing.T) {
	a, store := testAnalyzer(t, "")
	s := NewSession(a, store, zap.NewNop().Sugar())
	ctx := context.Background()

	r, err := s.Open(ctx, source.Snapshot{URI: "u", Version: 1, Text: "void loop(){ analogWrite(2, 128); }"})
	require.NoError(t, err)
	assert.NotContains(t, diagCodes(r), "no-pwm-support", "capability rules need a board")

	results, err := s.SetBoard(ctx, "uno")
	require.NoError(t, err)
	require.Contains(t, results, "u")
	assert.Contains(t, diagCodes(results["u"]), "no-pwm-support")
	assert.Equal(t, "uno", results["u"].Board)

	// The dedupe cache must not serve the boardless pass after the switch.
	applied, ok := s.Result("u")
	require.True(t, ok)
	assert.Contains(t, diagCodes(applied), "no-pwm-support")
}

func TestSessionSetBoardUnknown(t *testing.T) {
	a, store := testAnalyzer(t, "")
	s := NewSession(a, store, zap.NewNop().Sugar())
	_, err := s.SetBoard(context.Background(), "zx81")
	assert.ErrorIs(t, err, hardware.ErrUnknownBoard)
}

func TestSessionLastGoodMemory(t *testing.T) {
	a, store := testAnalyzer(t, "uno")
	s := NewSession(a, store, zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := s.Open(ctx, source.Snapshot{URI: "u", Version: 1, Text: "void setup(){ Serial.begin(9600); }"})
	require.NoError(t, err)

	est, ok := s.LastGoodMemory("u")
	require.True(t, ok)
	assert.Greater(t, est.RAM.Total, 0)

	s.Close("u")
	_, ok = s.LastGoodMemory("u")
	assert.False(t, ok)
}
