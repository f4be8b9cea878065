package rules

import (
	"fmt"
	"regexp"
)

// String handling rules: unbounded C string functions, and String-object
// concatenation inside loop() where repeated reallocation fragments the
// small heap.

var (
	unsafeStringFnPattern = regexp.MustCompile(`\b(strcpy|strcat|sprintf|gets)\s*\(`)

	stringDeclPattern = regexp.MustCompile(`\bString\s+(\w+)`)
)

var unsafeAlternatives = map[string]string{
	"strcpy":  "strncpy",
	"strcat":  "strncat",
	"sprintf": "snprintf",
	"gets":    "fgets",
}

func checkUnsafeStringFunctions(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, m := range unsafeStringFnPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		fn := in.Stripped[m[2]:m[3]]
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "unsafe-string-function",
			fmt.Sprintf("%s has no bounds check; prefer %s", fn, unsafeAlternatives[fn])))
	}
	return ds
}

// checkStringChurn flags String concatenation in loop(). One report per
// variable; the first concatenation site carries the diagnostic.
func checkStringChurn(in Input) []Diagnostic {
	body, start, ok := functionBody(in.Stripped, "loop")
	if !ok {
		return nil
	}

	var ds []Diagnostic
	reported := make(map[string]bool)
	for _, m := range stringDeclPattern.FindAllStringSubmatch(in.Stripped, -1) {
		name := m[1]
		if reported[name] {
			continue
		}
		concat := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*(\+=|=[^=;]*\+)`)
		loc := concat.FindStringIndex(body)
		if loc == nil {
			continue
		}
		reported[name] = true
		ds = append(ds, in.diag(start+loc[0], loc[1]-loc[0], SeverityInfo, "string-class-churn",
			fmt.Sprintf("String concatenation on %s in loop() fragments the heap; prefer a fixed char buffer", name)))
	}
	return ds
}
