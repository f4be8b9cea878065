package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// ISR safety rules. An ISR is any function named as the handler argument of
// attachInterrupt; its body is located by brace matching over the stripped
// text. Code inside an ISR runs with interrupts masked, so anything that
// waits on the timer tick or the heap allocator is a hazard.

var (
	attachHandlerPattern = regexp.MustCompile(`\battachInterrupt\s*\(\s*(?:digitalPinToInterrupt\s*\(\s*)?(\w+)\s*\)?\s*,\s*(\w+)\s*,`)

	isrDelayPattern  = regexp.MustCompile(`\b(delay|millis)\s*\(`)
	isrSerialPattern = regexp.MustCompile(`\bSerial\s*\.\s*\w+\s*\(`)
	isrHeapPattern   = regexp.MustCompile(`\b(malloc|calloc|realloc|free)\s*\(|\bnew\s+\w|\bString\s*\(`)

	isrAssignPattern = regexp.MustCompile(`\b(\w+)\s*(?:=[^=]|\+\+|--|\+=|-=)`)

	globalVarDeclPattern = regexp.MustCompile(`(?m)^[ \t]*((?:volatile[ \t]+|static[ \t]+|const[ \t]+)*)(?:unsigned[ \t]+)?(?:int|long|short|byte|char|bool|boolean|float|double|u?int(?:8|16|32|64)_t|word|size_t)[ \t]+(\w+)[ \t]*(?:\[[^\]]*\])?[ \t]*(?:=[^;]*)?;`)
)

type isrSite struct {
	handler   string
	body      string
	bodyStart int
	attachAt  int
	attachLen int
}

// isrSites pairs each attachInterrupt handler with its function body. A
// missing body yields a site with empty body; the not-found rule reports it.
func isrSites(in Input) []isrSite {
	var sites []isrSite
	seen := make(map[string]bool)
	for _, m := range attachHandlerPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		handler := in.Stripped[m[4]:m[5]]
		if seen[handler] {
			continue
		}
		seen[handler] = true
		site := isrSite{handler: handler, attachAt: m[0], attachLen: m[1] - m[0]}
		if body, start, ok := functionBody(in.Stripped, handler); ok {
			site.body = body
			site.bodyStart = start
		} else {
			site.bodyStart = -1
		}
		sites = append(sites, site)
	}
	return sites
}

func checkDelayInISR(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, site := range isrSites(in) {
		if site.bodyStart < 0 {
			continue
		}
		for _, m := range isrDelayPattern.FindAllStringSubmatchIndex(site.body, -1) {
			call := site.body[m[2]:m[3]]
			ds = append(ds, in.diag(site.bodyStart+m[0], m[1]-m[0], SeverityError, "delay-in-isr",
				fmt.Sprintf("%s() does not advance inside ISR %s; the timer interrupt is masked", call, site.handler)))
		}
	}
	return ds
}

func checkSerialInISR(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, site := range isrSites(in) {
		if site.bodyStart < 0 {
			continue
		}
		for _, m := range isrSerialPattern.FindAllStringIndex(site.body, -1) {
			ds = append(ds, in.diag(site.bodyStart+m[0], m[1]-m[0], SeverityWarning, "serial-in-isr",
				fmt.Sprintf("Serial inside ISR %s can deadlock when the TX buffer fills", site.handler)))
		}
	}
	return ds
}

func checkHeapInISR(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, site := range isrSites(in) {
		if site.bodyStart < 0 {
			continue
		}
		for _, m := range isrHeapPattern.FindAllStringIndex(site.body, -1) {
			ds = append(ds, in.diag(site.bodyStart+m[0], m[1]-m[0], SeverityError, "malloc-in-isr",
				fmt.Sprintf("heap allocation inside ISR %s", site.handler)))
		}
	}
	return ds
}

// checkVolatileSharedGlobals flags globals written by an ISR but declared
// without volatile. The diagnostic sits on the declaration; one report per
// variable.
func checkVolatileSharedGlobals(in Input) []Diagnostic {
	sites := isrSites(in)
	if len(sites) == 0 {
		return nil
	}

	type decl struct {
		offset    int
		length    int
		modifiers string
	}
	globals := make(map[string]decl)
	for _, m := range globalVarDeclPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		if braceDepthAt(in.Stripped, m[0]) > 0 {
			continue
		}
		name := in.Stripped[m[4]:m[5]]
		mods := ""
		if m[2] >= 0 {
			mods = in.Stripped[m[2]:m[3]]
		}
		if _, ok := globals[name]; !ok {
			globals[name] = decl{offset: m[0], length: m[1] - m[0], modifiers: mods}
		}
	}

	reported := make(map[string]bool)
	var ds []Diagnostic
	for _, site := range sites {
		if site.bodyStart < 0 {
			continue
		}
		for _, m := range isrAssignPattern.FindAllStringSubmatch(site.body, -1) {
			name := m[1]
			d, isGlobal := globals[name]
			if !isGlobal || reported[name] || strings.Contains(d.modifiers, "volatile") {
				continue
			}
			reported[name] = true
			ds = append(ds, in.diag(d.offset, d.length, SeverityWarning, "missing-volatile",
				fmt.Sprintf("%s is written by ISR %s but not declared volatile", name, site.handler)))
		}
	}
	return ds
}

func checkISRDefined(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, site := range isrSites(in) {
		if site.bodyStart >= 0 {
			continue
		}
		ds = append(ds, in.diag(site.attachAt, site.attachLen, SeverityWarning, "isr-not-found",
			fmt.Sprintf("interrupt handler %s is not defined in this sketch", site.handler)))
	}
	return ds
}

// braceDepthAt counts unmatched opening braces before offset. Depth 0 means
// global scope; the count can drift on preprocessor-conditional braces, a
// known limitation of lexical scanning.
func braceDepthAt(stripped string, offset int) int {
	depth := 0
	for i := 0; i < offset && i < len(stripped); i++ {
		switch stripped[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	return depth
}
