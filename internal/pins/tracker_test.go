package pins

import (
	"testing"

	"go.uber.org/zap"

	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/source"
)

func unoTracker(t *testing.T) *Tracker {
	t.Helper()
	store := hardware.NewStore(zap.NewNop().Sugar())
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := store.LoadBoard("uno"); err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	return NewTracker(store)
}

func snap(text string) source.Snapshot {
	return source.Snapshot{URI: "file:///sketch.ino", Version: 1, Text: text}
}

func findUsage(usages []Usage, pin int, kind Kind) *Usage {
	for i := range usages {
		if usages[i].Pin == pin && usages[i].Kind == kind {
			return &usages[i]
		}
	}
	return nil
}

func TestAnalyzeBasicConstructs(t *testing.T) {
	tr := unoTracker(t)
	usages := tr.Analyze(snap(`void setup() {
  pinMode(13, OUTPUT);
  pinMode(7, INPUT);
}
void loop() {
  digitalWrite(13, HIGH);
  int v = analogRead(A0);
  analogWrite(9, 128);
}
`))

	if u := findUsage(usages, 13, DigitalOutput); u == nil {
		t.Error("pinMode(13, OUTPUT) not detected")
	} else if u.Position.Line != 1 {
		t.Errorf("pinMode(13) on line %d, want 1", u.Position.Line)
	}
	if findUsage(usages, 7, DigitalInput) == nil {
		t.Error("pinMode(7, INPUT) not detected")
	}
	if findUsage(usages, 14, AnalogInput) == nil {
		t.Error("analogRead(A0) should resolve A0 to pin 14")
	}
	if findUsage(usages, 9, PWM) == nil {
		t.Error("analogWrite(9) not detected as PWM usage")
	}
}

func TestAnalyzeIgnoresComments(t *testing.T) {
	tr := unoTracker(t)
	usages := tr.Analyze(snap(`void setup() {
  // pinMode(5, OUTPUT);
  /* digitalWrite(6, HIGH); */
  pinMode(4, OUTPUT);
}
`))

	if findUsage(usages, 5, DigitalOutput) != nil {
		t.Error("commented-out pinMode must not produce a usage")
	}
	if findUsage(usages, 6, DigitalOutput) != nil {
		t.Error("block-commented digitalWrite must not produce a usage")
	}
	if findUsage(usages, 4, DigitalOutput) == nil {
		t.Error("live pinMode(4) missing")
	}
}

func TestAnalyzeSymbolicPins(t *testing.T) {
	tr := unoTracker(t)
	usages := tr.Analyze(snap(`#define RELAY 8
const int SENSOR = A2;
void setup() {
  pinMode(RELAY, OUTPUT);
  pinMode(LED_BUILTIN, OUTPUT);
}
void loop() {
  analogRead(SENSOR);
}
`))

	if findUsage(usages, 8, DigitalOutput) == nil {
		t.Error("#define alias RELAY should resolve to pin 8")
	}
	if findUsage(usages, 16, AnalogInput) == nil {
		t.Error("const int SENSOR = A2 should resolve to pin 16")
	}
	if findUsage(usages, 13, DigitalOutput) == nil {
		t.Error("LED_BUILTIN should resolve to 13 on uno")
	}
}

func TestAnalyzeBusBeginsSynthesizeUsages(t *testing.T) {
	tr := unoTracker(t)
	usages := tr.Analyze(snap(`void setup() {
  Wire.begin();
  SPI.begin();
  Serial.begin(9600);
}
`))

	if findUsage(usages, 18, I2CSDA) == nil || findUsage(usages, 19, I2CSCL) == nil {
		t.Error("Wire.begin should reserve SDA=18, SCL=19 on uno")
	}
	for pin, kind := range map[int]Kind{10: SPISS, 11: SPIMOSI, 12: SPIMISO, 13: SPISCK} {
		if findUsage(usages, pin, kind) == nil {
			t.Errorf("SPI.begin should reserve pin %d as %s", pin, kind)
		}
	}
	if findUsage(usages, 0, SerialRX) == nil || findUsage(usages, 1, SerialTX) == nil {
		t.Error("Serial.begin should reserve RX=0, TX=1")
	}
}

func TestBuildPinMapConflicts(t *testing.T) {
	tr := unoTracker(t)

	cases := []struct {
		name   string
		sketch string
		pin    int
		status string
	}{
		{
			"output then input",
			"void setup(){ pinMode(5, OUTPUT); pinMode(5, INPUT); }",
			5, "conflict",
		},
		{
			"interrupt plus output",
			"void setup(){ attachInterrupt(digitalPinToInterrupt(2), isr, RISING); digitalWrite(2, HIGH); }",
			2, "conflict",
		},
		{
			"bus pin plus plain IO",
			"void setup(){ Wire.begin(); pinMode(A4, OUTPUT); digitalWrite(A4, HIGH); }",
			18, "conflict",
		},
		{
			"serial pin plus plain IO",
			"void setup(){ Serial.begin(9600); pinMode(1, OUTPUT); }",
			1, "warning",
		},
		{
			"same kind repeats stay valid",
			"void loop(){ digitalWrite(6, HIGH); digitalWrite(6, LOW); }",
			6, "valid",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			records := tr.BuildPinMap(tr.Analyze(snap(c.sketch)))
			var rec *Record
			for i := range records {
				if records[i].Pin == c.pin {
					rec = &records[i]
					break
				}
			}
			if rec == nil {
				t.Fatalf("no record for pin %d", c.pin)
			}
			if rec.Status != c.status {
				t.Errorf("pin %d status = %q, want %q (%s)", c.pin, rec.Status, c.status, rec.Message)
			}
		})
	}
}

func TestBuildPinMapFirstOccurrenceOrder(t *testing.T) {
	tr := unoTracker(t)
	records := tr.BuildPinMap(tr.Analyze(snap(
		"void setup(){ pinMode(9, OUTPUT); pinMode(3, OUTPUT); digitalWrite(9, HIGH); }")))

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Pin != 9 || records[1].Pin != 3 {
		t.Errorf("records ordered %d,%d; want first-occurrence order 9,3", records[0].Pin, records[1].Pin)
	}
	if records[0].PrimaryType != string(DigitalOutput) {
		t.Errorf("primaryType = %q", records[0].PrimaryType)
	}
	if records[0].PinLabel != "9" {
		t.Errorf("pinLabel = %q", records[0].PinLabel)
	}
}

func TestAnalyzeWithoutBoardUsesFallbackLayout(t *testing.T) {
	store := hardware.NewStore(zap.NewNop().Sugar())
	_ = store.Initialize()
	tr := NewTracker(store) // no board loaded

	usages := tr.Analyze(snap("void setup(){ Wire.begin(); analogRead(A0); }"))
	if findUsage(usages, 18, I2CSDA) == nil {
		t.Error("fallback I2C pins should apply with no board")
	}
	if findUsage(usages, 14, AnalogInput) == nil {
		t.Error("A0 should resolve to 14 with no board")
	}
}
