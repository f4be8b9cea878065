package rules

import (
	"fmt"
	"regexp"
)

// ESP32-specific hazard rules. All of these gate on the active board's
// architecture; without an ESP32-class board they emit nothing.

var (
	wifiInitPattern = regexp.MustCompile(`\bWiFi\s*\.\s*begin\s*\(|\bWiFi\s*\.\s*softAP\s*\(`)
	bleInitPattern  = regexp.MustCompile(`\bBLEDevice\s*::\s*init\s*\(|\bBLE\s*\.\s*begin\s*\(|\bNimBLEDevice\s*::\s*init\s*\(`)

	deepSleepStartPattern  = regexp.MustCompile(`\besp_deep_sleep_start\s*\(`)
	sleepWakeSourcePattern = regexp.MustCompile(`\besp_sleep_enable_\w+_wakeup\s*\(`)

	taskCreatePattern = regexp.MustCompile(`\bxTaskCreate(PinnedToCore)?\s*\(`)
)

const minTaskStackWords = 1024

func isESP32(in Input) bool {
	return in.Board != nil && in.Board.Arch == "esp32"
}

// checkStrappingPins flags sketch I/O on pins sampled at boot to select the
// boot mode. Driving them is legal after boot but an external pull fights
// the next reset.
func checkStrappingPins(in Input) []Diagnostic {
	if !isESP32(in) {
		return nil
	}
	var ds []Diagnostic
	for _, pat := range []*regexp.Regexp{pinModeCallPattern, digitalWriteCallPattern} {
		for _, m := range pat.FindAllStringSubmatchIndex(in.Stripped, -1) {
			pin, ok := resolvePin(in.Stripped[m[2]:m[3]], in)
			if !ok || !in.Board.IsStrapping(pin) {
				continue
			}
			ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "strapping-pin",
				fmt.Sprintf("GPIO%d is a strapping pin; its level at reset selects the boot mode", pin)))
		}
	}
	return ds
}

func checkWiFiBLECoexist(in Input) []Diagnostic {
	if !isESP32(in) {
		return nil
	}
	if !wifiInitPattern.MatchString(in.Stripped) {
		return nil
	}
	m := bleInitPattern.FindStringIndex(in.Stripped)
	if m == nil {
		return nil
	}
	return []Diagnostic{in.diag(m[0], m[1]-m[0], SeverityWarning, "wifi-ble-coexist",
		"WiFi and BLE share one radio; running both needs coexistence tuning and roughly doubles RAM pressure")}
}

func checkADC2WiFiConflict(in Input) []Diagnostic {
	if !isESP32(in) {
		return nil
	}
	if !wifiInitPattern.MatchString(in.Stripped) {
		return nil
	}
	var ds []Diagnostic
	for _, m := range analogReadCallPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		pin, ok := resolvePin(in.Stripped[m[2]:m[3]], in)
		if !ok || !in.Board.IsADC2(pin) {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "adc2-wifi-conflict",
			fmt.Sprintf("GPIO%d is on ADC2, which is unavailable while WiFi is active", pin)))
	}
	return ds
}

func checkDeepSleepWakeSource(in Input) []Diagnostic {
	if !isESP32(in) {
		return nil
	}
	m := deepSleepStartPattern.FindStringIndex(in.Stripped)
	if m == nil || sleepWakeSourcePattern.MatchString(in.Stripped) {
		return nil
	}
	return []Diagnostic{in.diag(m[0], m[1]-m[0], SeverityWarning, "deepsleep-no-wakeup",
		"esp_deep_sleep_start with no wake source enabled; only a reset brings the chip back")}
}

// checkTaskPinning validates the core argument of xTaskCreatePinnedToCore
// and the stack-depth argument of both task-creation forms.
func checkTaskPinning(in Input) []Diagnostic {
	if !isESP32(in) {
		return nil
	}
	var ds []Diagnostic
	for _, m := range taskCreatePattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		pinned := m[2] >= 0
		args, _ := callArgs(in.Stripped, m[1]-1)
		n := m[1] - m[0]

		if pinned && len(args) >= 7 {
			if core, ok := parseNumber(args[6], in); ok && core != 0 && core != 1 {
				ds = append(ds, in.diag(m[0], n, SeverityError, "invalid-task-core",
					fmt.Sprintf("core %d does not exist; the ESP32 has cores 0 and 1", core)))
			}
		}
		if len(args) >= 3 {
			if depth, ok := parseNumber(args[2], in); ok && depth < minTaskStackWords {
				ds = append(ds, in.diag(m[0], n, SeverityWarning, "task-stack-small",
					fmt.Sprintf("task stack depth %d is below the %d-word floor for tasks that print or touch WiFi", depth, minTaskStackWords)))
			}
		}
	}
	return ds
}
