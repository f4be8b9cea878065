package hardware

import (
	"testing"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(zap.NewNop().Sugar())
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s
}

func TestInitializeLoadsBundledDescriptors(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"uno", "nano", "mega2560", "esp32", "esp8266"} {
		if _, ok := s.Board(id); !ok {
			t.Errorf("bundled board %q not loaded", id)
		}
	}
	if _, ok := s.Protocol("i2c"); !ok {
		t.Error("i2c protocol descriptor not loaded")
	}
	if _, ok := s.Library("serial"); !ok {
		t.Error("serial library descriptor not loaded")
	}
}

func TestNoBoardLoadedQueriesReturnFalse(t *testing.T) {
	s := newTestStore(t)

	if s.CurrentBoard() != nil {
		t.Fatal("no board should be active before LoadBoard")
	}
	if s.IsPinValid(13, "digital") {
		t.Error("IsPinValid must be false with no board loaded")
	}
	if s.IsPinCapable(3, "pwm") {
		t.Error("IsPinCapable must be false with no board loaded")
	}
}

func TestLoadBoardAndCapabilities(t *testing.T) {
	s := newTestStore(t)
	if err := s.LoadBoard("uno"); err != nil {
		t.Fatalf("LoadBoard(uno): %v", err)
	}

	b := s.CurrentBoard()
	if b == nil || b.ID != "uno" {
		t.Fatalf("current board = %v, want uno", b)
	}

	if !s.IsPinValid(13, "digital") {
		t.Error("pin 13 is a valid digital pin on uno")
	}
	if s.IsPinValid(99, "digital") {
		t.Error("pin 99 does not exist on uno")
	}
	if !s.IsPinCapable(9, "pwm") || s.IsPinCapable(2, "pwm") {
		t.Error("uno PWM set is {3,5,6,9,10,11}")
	}
	if !s.IsPinCapable(2, "interrupt") || s.IsPinCapable(4, "interrupt") {
		t.Error("uno interrupt pins are {2,3}")
	}
	if !s.IsPinValid(14, "analog-input") {
		t.Error("A0 (pin 14) is an analog input on uno")
	}
}

func TestLoadBoardUnknown(t *testing.T) {
	s := newTestStore(t)
	if err := s.LoadBoard("teensy99"); err == nil {
		t.Fatal("expected error for unknown board")
	}
	if s.CurrentBoard() != nil {
		t.Error("failed LoadBoard must not change the active board")
	}
}

func TestPinLabel(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.Board("uno")

	if got := b.PinLabel(13); got != "13" {
		t.Errorf("PinLabel(13) = %q", got)
	}
	if got := b.PinLabel(14); got != "A0" {
		t.Errorf("PinLabel(14) = %q, want A0", got)
	}
	if got := b.PinLabel(19); got != "A5" {
		t.Errorf("PinLabel(19) = %q, want A5", got)
	}
}

func TestDescriptorValidatorRejectsBadBoard(t *testing.T) {
	v, err := NewDescriptorValidator()
	if err != nil {
		t.Fatalf("NewDescriptorValidator: %v", err)
	}

	bad := []byte(`{"id": "x", "name": "X", "arch": "pdp11", "digitalPinCount": 4,
		"analogPins": [], "pwmPins": [], "interruptPins": [],
		"constraints": {"ramBytes": 1, "flashBytes": 1, "maxStackBytes": 0, "eepromBytes": 0}}`)
	if err := v.ValidateBoard(bad); err == nil {
		t.Error("arch outside the enum should fail validation")
	}

	good := []byte(`{"id": "x", "name": "X", "arch": "avr", "digitalPinCount": 4,
		"analogPins": [], "pwmPins": [], "interruptPins": [],
		"constraints": {"ramBytes": 1, "flashBytes": 1, "maxStackBytes": 0, "eepromBytes": 0}}`)
	if err := v.ValidateBoard(good); err != nil {
		t.Errorf("minimal valid board rejected: %v", err)
	}
}
