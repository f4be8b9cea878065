package rules

import (
	"fmt"
	"regexp"
)

// Timing rules: the documented delayMicroseconds ceiling, millis()
// comparisons that break at rollover, and busy loops that starve the rest
// of the sketch.

const delayMicrosecondsMax = 16383

var (
	delayMicrosPattern = regexp.MustCompile(`\bdelayMicroseconds\s*\(\s*(\w+)\s*\)`)

	// millis() compared directly against something. The rollover-safe idiom
	// subtracts first, so a '-' between millis() and the comparison clears
	// the match.
	millisComparePattern = regexp.MustCompile(`\bmillis\s*\(\s*\)\s*(>=|<=|>|<)`)

	busyLoopPattern = regexp.MustCompile(`\bwhile\s*\(\s*(?:true|1)\s*\)\s*\{`)

	loopEscapePattern = regexp.MustCompile(`\b(delay|delayMicroseconds|yield|vTaskDelay)\s*\(|\bbreak\s*;|\breturn\b`)
)

func checkDelayMicroseconds(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, m := range delayMicrosPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		us, ok := parseNumber(in.Stripped[m[2]:m[3]], in)
		if !ok || us <= delayMicrosecondsMax {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "delaymicroseconds-overflow",
			fmt.Sprintf("delayMicroseconds(%d) exceeds the accurate maximum of %d; use delay()", us, delayMicrosecondsMax)))
	}
	return ds
}

func checkMillisRollover(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, m := range millisComparePattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityInfo, "millis-comparison-rollover",
			"comparing millis() directly breaks at the 49-day rollover; compare elapsed time: millis() - last >= interval"))
	}
	return ds
}

func checkBusyLoops(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, m := range busyLoopPattern.FindAllStringIndex(in.Stripped, -1) {
		open := m[1] - 1
		body := in.Stripped[open+1 : matchBrace(in.Stripped, open)]
		if loopEscapePattern.MatchString(body) {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "blocking-loop",
			"while(true) with no delay, yield, or exit blocks everything else; watchdog resets follow on some targets"))
	}
	return ds
}
