package rules

import (
	"fmt"
	"regexp"
)

// Flash/EEPROM storage rules: RAM-resident string constants that belong in
// program memory, EEPROM wear from per-iteration writes, and out-of-range
// EEPROM addresses.

const progmemSuggestBytes = 200

var (
	quotedLiteralPattern = regexp.MustCompile(`"(?:[^"\\\n]|\\.)*"`)
	progmemUsePattern    = regexp.MustCompile(`\bPROGMEM\b|\bF\s*\("`)

	eepromWritePattern = regexp.MustCompile(`\bEEPROM\s*\.\s*(write|put)\s*\(`)
	eepromAddrPattern  = regexp.MustCompile(`\bEEPROM\s*\.\s*(read|write|update|get|put)\s*\(\s*(\w+)`)
)

// checkProgmemCandidates suggests F()/PROGMEM once string constants pass a
// fixed byte budget. Only meaningful on Harvard-architecture targets; the
// wide cores map flash-resident constants automatically.
func checkProgmemCandidates(in Input) []Diagnostic {
	if in.Board != nil && in.Board.Arch != "avr" {
		return nil
	}
	if progmemUsePattern.MatchString(in.Stripped) {
		return nil
	}

	total := 0
	first := -1
	firstLen := 0
	// Literals live in the raw text; the stripped copy blanks them only
	// inside comments, so scanning the stripped text skips commented-out
	// strings while keeping offsets aligned.
	for _, m := range quotedLiteralPattern.FindAllStringIndex(in.Stripped, -1) {
		total += m[1] - m[0] - 1 // content + NUL
		if first < 0 {
			first = m[0]
			firstLen = m[1] - m[0]
		}
	}
	if total < progmemSuggestBytes || first < 0 {
		return nil
	}
	return []Diagnostic{in.diag(first, firstLen, SeverityInfo, "progmem-suggestion",
		fmt.Sprintf("about %d bytes of string constants live in RAM; consider F() or PROGMEM", total))}
}

// checkEEPROMWear flags direct writes inside loop(), where every iteration
// costs an erase cycle. EEPROM.update is the safe form and is not flagged.
func checkEEPROMWear(in Input) []Diagnostic {
	body, start, ok := functionBody(in.Stripped, "loop")
	if !ok {
		return nil
	}
	var ds []Diagnostic
	for _, m := range eepromWritePattern.FindAllStringSubmatchIndex(body, -1) {
		method := body[m[2]:m[3]]
		ds = append(ds, in.diag(start+m[0], m[1]-m[0], SeverityWarning, "eeprom-write-in-loop",
			fmt.Sprintf("EEPROM.%s in loop() wears the cell out; use EEPROM.update or write on change only", method)))
	}
	return ds
}

func checkEEPROMAddressRange(in Input) []Diagnostic {
	if in.Board == nil || in.Board.Constraints.EEPROMBytes <= 0 {
		return nil
	}
	limit := in.Board.Constraints.EEPROMBytes

	var ds []Diagnostic
	for _, m := range eepromAddrPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		addr, ok := parseNumber(in.Stripped[m[4]:m[5]], in)
		if !ok || (addr >= 0 && addr < limit) {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityError, "eeprom-address-range",
			fmt.Sprintf("EEPROM address %d is outside 0-%d on %s", addr, limit-1, in.Board.Name)))
	}
	return ds
}
