package rules

import (
	"regexp"
	"strconv"
	"strings"
)

// Shared lexical helpers. All of these are pure functions over the stripped
// text; validators never pass state to each other through them.

var (
	defineSymbolPattern = regexp.MustCompile(`(?m)^\s*#define\s+(\w+)\s+(A?\w+)\b`)
	constSymbolPattern  = regexp.MustCompile(`\b(?:const\s+)?(?:int|byte|uint8_t|unsigned\s+char)\s+(\w+)\s*=\s*(A?\d+)\s*[;,]`)
	analogAliasPattern  = regexp.MustCompile(`^A(\d+)$`)

	// void name() { ... } and typed variants; group 1 is the return type,
	// group 2 the name.
	functionDefPattern = regexp.MustCompile(`\b(void|int|long|bool|boolean|float|double|byte|char|uint8_t|uint16_t|uint32_t|String)\s+(\w+)\s*\(([^)]*)\)\s*\{`)
)

// symbolTable collects #define and const-int aliases so validators can see
// through named pins and addresses.
func symbolTable(stripped string) map[string]string {
	symbols := make(map[string]string)
	for _, m := range defineSymbolPattern.FindAllStringSubmatch(stripped, -1) {
		symbols[m[1]] = m[2]
	}
	for _, m := range constSymbolPattern.FindAllStringSubmatch(stripped, -1) {
		symbols[m[1]] = m[2]
	}
	return symbols
}

// resolvePin maps a pin argument (literal, A-alias, LED_BUILTIN, or a
// symbolic name from the sketch's own defines) to a pin number.
func resolvePin(arg string, in Input) (int, bool) {
	for hops := 0; hops <= 4; hops++ {
		if n, err := strconv.Atoi(arg); err == nil {
			return n, true
		}
		if m := analogAliasPattern.FindStringSubmatch(arg); m != nil {
			n, _ := strconv.Atoi(m[1])
			count := 14
			if in.Board != nil {
				count = in.Board.DigitalPinCount
			}
			return count + n, true
		}
		if arg == "LED_BUILTIN" {
			if in.Board != nil && (in.Board.Arch == "esp32" || in.Board.Arch == "esp8266") {
				return 2, true
			}
			return 13, true
		}
		next, ok := in.Symbols[arg]
		if !ok {
			return 0, false
		}
		arg = next
	}
	return 0, false
}

// parseNumber accepts decimal and 0x hex literals, resolving one level of
// sketch symbols first.
func parseNumber(arg string, in Input) (int, bool) {
	arg = strings.TrimSpace(arg)
	if next, ok := in.Symbols[arg]; ok {
		arg = next
	}
	n, err := strconv.ParseInt(arg, 0, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

type function struct {
	Name      string
	BodyStart int // offset just past the opening brace
	BodyEnd   int // offset of the closing brace, or len(text) if unbalanced
}

// scanFunctions finds top-level function definitions by pattern match plus
// brace counting. Unbalanced bodies extend to end of text; partial input is
// expected mid-keystroke.
func scanFunctions(stripped string) []function {
	var fns []function
	for _, m := range functionDefPattern.FindAllStringSubmatchIndex(stripped, -1) {
		open := m[1] - 1 // the brace the pattern ends on
		name := stripped[m[4]:m[5]]
		fns = append(fns, function{
			Name:      name,
			BodyStart: open + 1,
			BodyEnd:   matchBrace(stripped, open),
		})
	}
	return fns
}

// matchBrace returns the offset of the brace closing the one at open, or
// len(text) when the body never closes.
func matchBrace(stripped string, open int) int {
	depth := 0
	for i := open; i < len(stripped); i++ {
		switch stripped[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(stripped)
}

// functionBody returns the body span of the named function.
func functionBody(stripped, name string) (body string, start int, ok bool) {
	for _, fn := range scanFunctions(stripped) {
		if fn.Name == name {
			return stripped[fn.BodyStart:fn.BodyEnd], fn.BodyStart, true
		}
	}
	return "", 0, false
}

// callArgs splits the argument list of a call whose opening paren is at
// open, honoring nested parentheses. Returns nil if the call never closes.
func callArgs(stripped string, open int) ([]string, int) {
	depth := 0
	argStart := open + 1
	var args []string
	for i := open; i < len(stripped); i++ {
		switch stripped[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if tail := strings.TrimSpace(stripped[argStart:i]); tail != "" || len(args) > 0 {
					args = append(args, strings.TrimSpace(stripped[argStart:i]))
				}
				return args, i
			}
		case ',':
			if depth == 1 {
				args = append(args, strings.TrimSpace(stripped[argStart:i]))
				argStart = i + 1
			}
		}
	}
	return nil, len(stripped)
}
