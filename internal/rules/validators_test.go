package rules

import (
	"strings"
	"testing"
)

func TestI2CAddressClassification(t *testing.T) {
	cases := []struct {
		name string
		addr string
		code string // "" means no diagnostic
	}{
		{"general call range", "0x05", "reserved-i2c-address"},
		{"ten bit range", "0x7F", "reserved-i2c-address"},
		{"out of range", "0x90", "invalid-i2c-address"},
		{"known eeprom", "0x50", ""},
		{"decimal literal", "144", "invalid-i2c-address"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ds := run(t, "uno", "void setup(){ Wire.begin(); Wire.beginTransmission("+c.addr+"); }")
			if c.code == "" {
				for _, bad := range []string{"reserved-i2c-address", "invalid-i2c-address"} {
					if find(ds, bad) != nil {
						t.Errorf("address %s flagged %s", c.addr, bad)
					}
				}
				return
			}
			if find(ds, c.code) == nil {
				t.Fatalf("address %s: want %s, got %v", c.addr, c.code, codes(ds))
			}
			// Reserved sub-ranges shadow the generic out-of-range check.
			if c.code == "reserved-i2c-address" && find(ds, "invalid-i2c-address") != nil {
				t.Error("reserved address also reported out-of-range")
			}
		})
	}
}

func TestDuplicateI2CAddress(t *testing.T) {
	ds := run(t, "uno", `void setup(){
  Wire.begin();
  Wire.beginTransmission(0x50);
  Wire.beginTransmission(0x50);
}`)

	if n := count(ds, "duplicate-i2c-address"); n != 1 {
		t.Fatalf("duplicate-i2c-address count = %d, want 1 (second occurrence only)", n)
	}
	d := find(ds, "duplicate-i2c-address")
	if d.Severity != SeverityInfo {
		t.Errorf("severity = %d, want info", d.Severity)
	}
	if d.Range.Start.Line != 3 {
		t.Errorf("duplicate reported at line %d, want 3 (the second call)", d.Range.Start.Line)
	}
	if !strings.Contains(d.Message, "line 2") {
		t.Errorf("message should reference the first occurrence at line 2: %q", d.Message)
	}
	if !strings.Contains(d.Message, "24LCxx") {
		t.Errorf("message should name the known device at 0x50: %q", d.Message)
	}
}

func TestMissingWireBegin(t *testing.T) {
	ds := run(t, "uno", `void setup(){
  Wire.beginTransmission(0x03);
  Wire.write(1);
}`)

	if len(ds) != 2 {
		t.Fatalf("want exactly 2 diagnostics, got %v", codes(ds))
	}
	if find(ds, "reserved-i2c-address") == nil {
		t.Error("0x03 should be reserved-i2c-address")
	}
	d := find(ds, "missing-wire-begin")
	if d == nil {
		t.Fatal("missing-wire-begin not emitted")
	}
	if d.Range.Start.Line != 1 {
		t.Errorf("missing-wire-begin at line %d, want the first Wire call on line 1", d.Range.Start.Line)
	}
}

func TestMissingSerialAndSPIBegin(t *testing.T) {
	ds := run(t, "uno", `void loop(){
  Serial.println("hi");
  SPI.transfer(0x42);
}`)
	if find(ds, "missing-serial-begin") == nil {
		t.Error("Serial.println without begin should be flagged")
	}
	if find(ds, "missing-spi-begin") == nil {
		t.Error("SPI.transfer without begin should be flagged")
	}

	ds = run(t, "uno", `void setup(){ SPI.begin(); Serial.begin(9600); }
void loop(){ Serial.println("hi"); SPI.transfer(1); }`)
	if find(ds, "missing-serial-begin") != nil || find(ds, "missing-spi-begin") != nil {
		t.Error("begins present, nothing should fire")
	}
}

func TestNonstandardBaud(t *testing.T) {
	ds := run(t, "uno", "void setup(){ Serial.begin(9601); }")
	if find(ds, "nonstandard-baud") == nil {
		t.Error("9601 should be flagged")
	}
	ds = run(t, "uno", "void setup(){ Serial.begin(115200); }")
	if find(ds, "nonstandard-baud") != nil {
		t.Error("115200 is standard")
	}
}

func TestPinConflictReferencesPriorLine(t *testing.T) {
	ds := run(t, "uno", `void setup(){
  pinMode(5, OUTPUT);
  pinMode(5, INPUT);
}`)

	d := find(ds, "pin-conflict")
	if d == nil {
		t.Fatalf("no pin-conflict in %v", codes(ds))
	}
	if d.Range.Start.Line != 2 {
		t.Errorf("conflict positioned at line %d, want the second pinMode on line 2", d.Range.Start.Line)
	}
	if !strings.Contains(d.Message, "line 1") {
		t.Errorf("message should reference the prior configuration on line 1: %q", d.Message)
	}
}

func TestDuplicatePinMode(t *testing.T) {
	ds := run(t, "uno", "void setup(){ pinMode(5, OUTPUT); pinMode(5, OUTPUT); }")
	d := find(ds, "duplicate-pin-mode")
	if d == nil {
		t.Fatal("exact repeat should be duplicate-pin-mode")
	}
	if d.Severity != SeverityInfo {
		t.Errorf("severity = %d, want info", d.Severity)
	}
	if find(ds, "pin-conflict") != nil {
		t.Error("exact repeat is not a conflict")
	}
}

func TestPWMRules(t *testing.T) {
	ds := run(t, "uno", "void loop(){ analogWrite(2, 128); }")
	if find(ds, "no-pwm-support") == nil {
		t.Error("pin 2 has no PWM on uno")
	}
	if find(ds, "pwm-value-overflow") != nil {
		t.Error("128 is in range")
	}

	ds = run(t, "uno", "void loop(){ analogWrite(9, 300); }")
	if find(ds, "pwm-value-overflow") == nil {
		t.Error("300 overflows the 0-255 range")
	}
	if find(ds, "no-pwm-support") != nil {
		t.Error("pin 9 supports PWM; only the value is wrong")
	}
}

func TestPinRangeAndInterrupts(t *testing.T) {
	ds := run(t, "uno", `void setup(){
  pinMode(42, OUTPUT);
  attachInterrupt(digitalPinToInterrupt(7), onEdge, RISING);
}
void onEdge(){}`)

	if find(ds, "pin-out-of-range") == nil {
		t.Error("pin 42 does not exist on uno")
	}
	if find(ds, "invalid-interrupt-pin") == nil {
		t.Error("pin 7 is not an interrupt pin on uno")
	}
}

func TestSymbolicPinResolution(t *testing.T) {
	ds := run(t, "uno", `#define MOTOR 42
void setup(){ pinMode(MOTOR, OUTPUT); }`)
	if find(ds, "pin-out-of-range") == nil {
		t.Error("defined alias should resolve through the symbol table")
	}
}

func TestDigitalWriteWithoutPinMode(t *testing.T) {
	ds := run(t, "uno", `void loop(){ digitalWrite(7, HIGH); digitalWrite(7, LOW); }`)
	if n := count(ds, "digitalwrite-without-pinmode"); n != 1 {
		t.Errorf("want one report per pin, got %d", n)
	}
}

func TestISRRules(t *testing.T) {
	ds := run(t, "uno", `int edgeCount = 0;
volatile int safeCount = 0;
void setup(){
  attachInterrupt(digitalPinToInterrupt(2), onEdge, RISING);
}
void onEdge(){
  edgeCount++;
  safeCount++;
  delay(10);
  Serial.println(edgeCount);
}`)

	if d := find(ds, "delay-in-isr"); d == nil {
		t.Error("delay() in ISR should be an error")
	} else if d.Range.Start.Line != 8 {
		t.Errorf("delay-in-isr at line %d, want 8", d.Range.Start.Line)
	}
	if find(ds, "serial-in-isr") == nil {
		t.Error("Serial in ISR should be flagged")
	}
	d := find(ds, "missing-volatile")
	if d == nil {
		t.Fatal("edgeCount lacks volatile")
	}
	if d.Range.Start.Line != 0 {
		t.Errorf("missing-volatile should sit on the declaration (line 0), got %d", d.Range.Start.Line)
	}
	if !strings.Contains(d.Message, "edgeCount") {
		t.Errorf("wrong variable: %q", d.Message)
	}
	if n := count(ds, "missing-volatile"); n != 1 {
		t.Errorf("safeCount is volatile and must not be flagged; got %d reports", n)
	}
}

func TestISRNotFound(t *testing.T) {
	ds := run(t, "uno", "void setup(){ attachInterrupt(digitalPinToInterrupt(2), ghost, RISING); }")
	if find(ds, "isr-not-found") == nil {
		t.Error("undefined handler should be flagged")
	}
}

func TestRecursionRisk(t *testing.T) {
	ds := run(t, "uno", `int fib(int n){
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
void loop(){ fib(10); }`)
	if find(ds, "recursion-risk") == nil {
		t.Error("self-call should be flagged")
	}
}

func TestStackArrayThresholds(t *testing.T) {
	// Uno stack budget is 512 bytes.
	cases := []struct {
		decl string
		sev  Severity // 0 means no diagnostic
	}{
		{"char buf[300];", SeverityError},   // >= 50%
		{"char buf[150];", SeverityWarning}, // >= 25%
		{"char buf[50];", 0},
	}
	for _, c := range cases {
		ds := run(t, "uno", "void loop(){ "+c.decl+" buf[0] = 1; }")
		d := find(ds, "large-stack-array")
		if c.sev == 0 {
			if d != nil {
				t.Errorf("%s: unexpected %q", c.decl, d.Message)
			}
			continue
		}
		if d == nil {
			t.Errorf("%s: expected large-stack-array", c.decl)
		} else if d.Severity != c.sev {
			t.Errorf("%s: severity %d, want %d", c.decl, d.Severity, c.sev)
		}
	}

	// No board, no budget, no diagnostic.
	ds := run(t, "", "void loop(){ char buf[5000]; buf[0] = 1; }")
	if find(ds, "large-stack-array") != nil {
		t.Error("threshold rule must skip silently without board limits")
	}
}

func TestUnsafeStringFunctions(t *testing.T) {
	ds := run(t, "uno", `void loop(){
  char dst[8];
  strcpy(dst, src);
  sprintf(dst, "%d", 42);
}`)
	if n := count(ds, "unsafe-string-function"); n != 2 {
		t.Errorf("want 2 reports, got %d", n)
	}
	d := find(ds, "unsafe-string-function")
	if !strings.Contains(d.Message, "strncpy") {
		t.Errorf("message should suggest the bounded form: %q", d.Message)
	}
}

func TestStringChurnInLoop(t *testing.T) {
	ds := run(t, "uno", `String log;
void loop(){ log += "tick"; }`)
	if find(ds, "string-class-churn") == nil {
		t.Error("String += in loop should be flagged")
	}

	ds = run(t, "uno", `String log;
void setup(){ log += "once"; }
void loop(){}`)
	if find(ds, "string-class-churn") != nil {
		t.Error("concatenation outside loop() is fine")
	}
}

func TestEEPROMRules(t *testing.T) {
	ds := run(t, "uno", `void loop(){
  EEPROM.write(10, 1);
  EEPROM.read(2000);
}`)
	if find(ds, "eeprom-write-in-loop") == nil {
		t.Error("EEPROM.write in loop should warn about wear")
	}
	if find(ds, "eeprom-address-range") == nil {
		t.Error("address 2000 exceeds the 1024-byte EEPROM")
	}

	ds = run(t, "uno", "void setup(){ EEPROM.update(10, 1); }")
	if find(ds, "eeprom-write-in-loop") != nil {
		t.Error("update outside loop is fine")
	}
}

func TestTimingRules(t *testing.T) {
	ds := run(t, "uno", `unsigned long next = 0;
void loop(){
  delayMicroseconds(20000);
  if (millis() > next) { next += 1000; }
  while (true) {}
}`)

	if find(ds, "delaymicroseconds-overflow") == nil {
		t.Error("20000us exceeds the documented maximum")
	}
	if find(ds, "millis-comparison-rollover") == nil {
		t.Error("direct millis() comparison should be flagged")
	}
	if find(ds, "blocking-loop") == nil {
		t.Error("while(true) with no escape should be flagged")
	}

	ds = run(t, "uno", `unsigned long last = 0;
void loop(){
  if (millis() - last >= 1000) { last = millis(); }
  while (true) { delay(1); }
}`)
	if find(ds, "millis-comparison-rollover") != nil {
		t.Error("elapsed-time idiom must not be flagged")
	}
	if find(ds, "blocking-loop") != nil {
		t.Error("while(true) with delay() is a legitimate superloop")
	}
}

func TestESP32Rules(t *testing.T) {
	ds := run(t, "esp32", `void setup(){
  pinMode(12, OUTPUT);
  WiFi.begin("ssid", "pass");
  BLEDevice::init("node");
  analogRead(25);
  esp_deep_sleep_start();
  xTaskCreatePinnedToCore(worker, "w", 512, NULL, 1, NULL, 3);
}
void worker(void* p){}`)

	for _, code := range []string{
		"strapping-pin",
		"wifi-ble-coexist",
		"adc2-wifi-conflict",
		"deepsleep-no-wakeup",
		"invalid-task-core",
		"task-stack-small",
	} {
		if find(ds, code) == nil {
			t.Errorf("missing %s in %v", code, codes(ds))
		}
	}
}

func TestESP32RulesSilentOnAVR(t *testing.T) {
	ds := run(t, "uno", `void setup(){
  pinMode(12, OUTPUT);
  esp_deep_sleep_start();
}`)
	if find(ds, "strapping-pin") != nil || find(ds, "deepsleep-no-wakeup") != nil {
		t.Errorf("ESP32 rules fired on an AVR board: %v", codes(ds))
	}
}

func TestServoAndTonePWMConflicts(t *testing.T) {
	ds := run(t, "uno", `#include <Servo.h>
Servo s;
void loop(){ analogWrite(9, 100); }`)
	if find(ds, "servo-pwm-conflict") == nil {
		t.Error("analogWrite(9) with Servo in use should be flagged")
	}

	ds = run(t, "uno", "void loop(){ tone(8, 440); analogWrite(11, 100); }")
	if find(ds, "tone-pwm-conflict") == nil {
		t.Error("analogWrite(11) while tone() is active should be flagged")
	}
}
