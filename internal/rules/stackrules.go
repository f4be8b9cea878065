package rules

import (
	"fmt"
	"regexp"
)

// Stack hazard rules. The array thresholds are fractions of the board's
// configured stack budget; with no board loaded there is no budget to
// compare against and both checks that need one skip silently.

var localArrayPattern = regexp.MustCompile(`\b(unsigned\s+)?(int|long|short|char|byte|float|double|bool|boolean|u?int(?:8|16|32)_t|word)\s+(\w+)\s*\[\s*(\d+)\s*\]`)

var stackElementSizes = map[string]int{
	"char": 1, "byte": 1, "bool": 1, "boolean": 1, "int8_t": 1, "uint8_t": 1,
	"int": 2, "short": 2, "word": 2, "int16_t": 2, "uint16_t": 2,
	"long": 4, "float": 4, "double": 4, "int32_t": 4, "uint32_t": 4,
}

func checkRecursion(in Input) []Diagnostic {
	var ds []Diagnostic
	for _, fn := range scanFunctions(in.Stripped) {
		selfCall := regexp.MustCompile(`\b` + regexp.QuoteMeta(fn.Name) + `\s*\(`)
		body := in.Stripped[fn.BodyStart:fn.BodyEnd]
		m := selfCall.FindStringIndex(body)
		if m == nil {
			continue
		}
		ds = append(ds, in.diag(fn.BodyStart+m[0], m[1]-m[0], SeverityWarning, "recursion-risk",
			fmt.Sprintf("%s calls itself; recursion depth is unbounded on a fixed stack", fn.Name)))
	}
	return ds
}

func checkStackArrays(in Input) []Diagnostic {
	if in.Board == nil || in.Board.Constraints.MaxStackBytes <= 0 {
		return nil
	}
	budget := in.Board.Constraints.MaxStackBytes

	var ds []Diagnostic
	for _, fn := range scanFunctions(in.Stripped) {
		body := in.Stripped[fn.BodyStart:fn.BodyEnd]
		for _, m := range localArrayPattern.FindAllStringSubmatchIndex(body, -1) {
			elem := body[m[4]:m[5]]
			count, ok := parseNumber(body[m[8]:m[9]], in)
			if !ok {
				continue
			}
			size := stackElementSizes[elem]
			if size == 0 {
				size = 2
			}
			bytes := count * size
			offset := fn.BodyStart + m[0]
			n := m[1] - m[0]
			switch {
			case bytes*2 >= budget:
				ds = append(ds, in.diag(offset, n, SeverityError, "large-stack-array",
					fmt.Sprintf("local array %s uses %d bytes, over half the %d-byte stack budget", body[m[6]:m[7]], bytes, budget)))
			case bytes*4 >= budget:
				ds = append(ds, in.diag(offset, n, SeverityWarning, "large-stack-array",
					fmt.Sprintf("local array %s uses %d bytes of the %d-byte stack budget", body[m[6]:m[7]], bytes, budget)))
			}
		}
	}
	return ds
}
