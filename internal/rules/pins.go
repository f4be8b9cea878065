package rules

import (
	"fmt"
	"regexp"

	"github.com/sketchlint/sketchlint/internal/source"
)

// Pin capability and configuration rules. Capability checks need a board
// descriptor and skip silently without one; configuration-consistency checks
// (conflicting pinMode calls) are board-agnostic.

var (
	pinModeCallPattern      = regexp.MustCompile(`\bpinMode\s*\(\s*([A-Za-z_]\w*|\d+)\s*,\s*(\w+)\s*\)`)
	digitalWriteCallPattern = regexp.MustCompile(`\bdigitalWrite\s*\(\s*([A-Za-z_]\w*|\d+)\s*,`)
	digitalReadCallPattern  = regexp.MustCompile(`\bdigitalRead\s*\(\s*([A-Za-z_]\w*|\d+)\s*\)`)
	analogWriteCallPattern  = regexp.MustCompile(`\banalogWrite\s*\(\s*([A-Za-z_]\w*|\d+)\s*,\s*([A-Za-z_]\w*|-?\d+)\s*\)`)
	analogReadCallPattern   = regexp.MustCompile(`\banalogRead\s*\(\s*([A-Za-z_]\w*|\d+)\s*\)`)
	toneCallPattern         = regexp.MustCompile(`\btone\s*\(\s*([A-Za-z_]\w*|\d+)\s*,`)
	attachInterruptCall     = regexp.MustCompile(`\battachInterrupt\s*\(\s*(?:digitalPinToInterrupt\s*\(\s*)?([A-Za-z_]\w*|\d+)`)

	servoUsePattern = regexp.MustCompile(`#include\s*<Servo\.h>|\bServo\s+\w+\s*;`)
)

// digitalPinCalls yields every construct that addresses a pin directly, for
// range checking.
var digitalPinCalls = []*regexp.Regexp{
	pinModeCallPattern,
	digitalWriteCallPattern,
	digitalReadCallPattern,
	analogWriteCallPattern,
	analogReadCallPattern,
	toneCallPattern,
}

func checkPinRange(in Input) []Diagnostic {
	if in.Board == nil {
		return nil
	}
	var ds []Diagnostic
	for _, pat := range digitalPinCalls {
		for _, m := range pat.FindAllStringSubmatchIndex(in.Stripped, -1) {
			arg := in.Stripped[m[2]:m[3]]
			pin, ok := resolvePin(arg, in)
			if !ok || in.Board.HasPin(pin) {
				continue
			}
			ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityError, "pin-out-of-range",
				fmt.Sprintf("pin %d does not exist on %s", pin, in.Board.Name)))
		}
	}
	return ds
}

func checkPWMSupport(in Input) []Diagnostic {
	if in.Board == nil {
		return nil
	}
	var ds []Diagnostic
	for _, m := range analogWriteCallPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		arg := in.Stripped[m[2]:m[3]]
		pin, ok := resolvePin(arg, in)
		if !ok || !in.Board.HasPin(pin) || in.Board.IsPWM(pin) {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityError, "no-pwm-support",
			fmt.Sprintf("pin %d does not support PWM on %s", pin, in.Board.Name)))
	}
	return ds
}

func checkPWMValue(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, m := range analogWriteCallPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		value, ok := parseNumber(in.Stripped[m[4]:m[5]], in)
		if !ok || (value >= 0 && value <= 255) {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityError, "pwm-value-overflow",
			fmt.Sprintf("analogWrite value %d is outside 0-255", value)))
	}
	return ds
}

func checkAnalogReadTarget(in Input) []Diagnostic {
	if in.Board == nil {
		return nil
	}
	var ds []Diagnostic
	for _, m := range analogReadCallPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		arg := in.Stripped[m[2]:m[3]]
		pin, ok := resolvePin(arg, in)
		if !ok || !in.Board.HasPin(pin) || in.Board.IsAnalog(pin) {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "analog-read-digital-pin",
			fmt.Sprintf("pin %d is not an analog input on %s", pin, in.Board.Name)))
	}
	return ds
}

func checkInterruptPin(in Input) []Diagnostic {
	if in.Board == nil {
		return nil
	}
	var ds []Diagnostic
	for _, m := range attachInterruptCall.FindAllStringSubmatchIndex(in.Stripped, -1) {
		arg := in.Stripped[m[2]:m[3]]
		pin, ok := resolvePin(arg, in)
		if !ok || in.Board.IsInterrupt(pin) {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityError, "invalid-interrupt-pin",
			fmt.Sprintf("pin %d does not support external interrupts on %s", pin, in.Board.Name)))
	}
	return ds
}

// checkPinModeConsistency reports reconfigurations (pin-conflict) and exact
// repeats (duplicate-pin-mode). First-seen-wins: later occurrences reference
// the earlier line in their message.
func checkPinModeConsistency(in Input) []Diagnostic {
	type config struct {
		mode string
		pos  source.Position
	}
	seen := make(map[int]config)

	var ds []Diagnostic
	for _, m := range pinModeCallPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		arg := in.Stripped[m[2]:m[3]]
		mode := in.Stripped[m[4]:m[5]]
		pin, ok := resolvePin(arg, in)
		if !ok {
			continue
		}
		prior, dup := seen[pin]
		if !dup {
			seen[pin] = config{mode: mode, pos: source.PositionAt(in.Stripped, m[0])}
			continue
		}
		if prior.mode == mode {
			ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityInfo, "duplicate-pin-mode",
				fmt.Sprintf("pin %d already configured as %s at line %d", pin, mode, prior.pos.Line)))
		} else {
			ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "pin-conflict",
				fmt.Sprintf("pin %d reconfigured as %s; previously %s at line %d", pin, mode, prior.mode, prior.pos.Line)))
		}
	}
	return ds
}

func checkWriteWithoutMode(in Input) []Diagnostic {
	configured := make(map[int]bool)
	for _, m := range pinModeCallPattern.FindAllStringSubmatch(in.Stripped, -1) {
		if pin, ok := resolvePin(m[1], in); ok {
			configured[pin] = true
		}
	}

	reported := make(map[int]bool)
	var ds []Diagnostic
	for _, m := range digitalWriteCallPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		arg := in.Stripped[m[2]:m[3]]
		pin, ok := resolvePin(arg, in)
		if !ok || configured[pin] || reported[pin] {
			continue
		}
		reported[pin] = true
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "digitalwrite-without-pinmode",
			fmt.Sprintf("pin %d is written without any pinMode configuration", pin)))
	}
	return ds
}

// checkServoPWMConflict flags analogWrite on the pins the Servo library's
// timer claims. AVR-specific; the wide cores route PWM through other timers.
func checkServoPWMConflict(in Input) []Diagnostic {
	if in.Board != nil && in.Board.Arch != "avr" {
		return nil
	}
	if !servoUsePattern.MatchString(in.Stripped) {
		return nil
	}
	disabled := map[int]bool{9: true, 10: true}
	if in.Store != nil {
		if lib, ok := in.Store.Library("servo"); ok && len(lib.DisablesPWMPins) > 0 {
			disabled = make(map[int]bool, len(lib.DisablesPWMPins))
			for _, p := range lib.DisablesPWMPins {
				disabled[p] = true
			}
		}
	}

	var ds []Diagnostic
	for _, m := range analogWriteCallPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		pin, ok := resolvePin(in.Stripped[m[2]:m[3]], in)
		if !ok || !disabled[pin] {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "servo-pwm-conflict",
			fmt.Sprintf("the Servo library disables PWM on pin %d", pin)))
	}
	return ds
}

// checkTonePWMConflict flags analogWrite on the timer2 pins while tone() is
// in use. AVR-specific.
func checkTonePWMConflict(in Input) []Diagnostic {
	if in.Board != nil && in.Board.Arch != "avr" {
		return nil
	}
	if !toneCallPattern.MatchString(in.Stripped) {
		return nil
	}
	timer2 := map[int]bool{3: true, 11: true}

	var ds []Diagnostic
	for _, m := range analogWriteCallPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		pin, ok := resolvePin(in.Stripped[m[2]:m[3]], in)
		if !ok || !timer2[pin] {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "tone-pwm-conflict",
			fmt.Sprintf("tone() uses the timer that drives PWM on pin %d", pin)))
	}
	return ds
}
