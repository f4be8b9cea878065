package memory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/source"
)

// Item is one global's contribution to the RAM estimate. Size 0 means the
// declaration was never referenced again and an optimizing compiler would
// likely discard it. This is a heuristic, not a guarantee.
type Item struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

// Warning is a threshold or hazard note attached to the estimate.
type Warning struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// RAMEstimate breaks down estimated static RAM consumption.
type RAMEstimate struct {
	GlobalVariables   int    `json:"globalVariables"`
	StackEstimate     int    `json:"stackEstimate"`
	FrameworkOverhead int    `json:"frameworkOverhead"`
	DynamicAllocHint  int    `json:"dynamicAllocHint"`
	Total             int    `json:"total"`
	Percentage        int    `json:"percentage"`
	Items             []Item `json:"items"`
}

// FlashEstimate breaks down estimated Flash consumption.
type FlashEstimate struct {
	Strings    int `json:"strings"`
	BaseCode   int `json:"baseCode"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Estimate is the full memory picture for one pass. Recomputed from scratch
// every pass; never incrementally patched.
type Estimate struct {
	RAM      RAMEstimate   `json:"ram"`
	Flash    FlashEstimate `json:"flash"`
	Warnings []Warning     `json:"warnings"`
}

var (
	globalDeclPattern = regexp.MustCompile(`(?m)^[ \t]*((?:static[ \t]+|volatile[ \t]+|const[ \t]+)*)((?:unsigned[ \t]+|signed[ \t]+)?[A-Za-z_]\w*)[ \t]+([A-Za-z_]\w*)[ \t]*(\[[ \t]*(\d*)[ \t]*\])?[ \t]*(=[^;]*)?;`)

	structDefPattern    = regexp.MustCompile(`\bstruct[ \t]+([A-Za-z_]\w*)[ \t\r\n]*\{([^}]*)\}`)
	structMemberPattern = regexp.MustCompile(`((?:unsigned[ \t]+|signed[ \t]+)?[A-Za-z_]\w*)[ \t]+([A-Za-z_]\w*)[ \t]*(?:\[[ \t]*(\d+)[ \t]*\])?[ \t]*;`)

	stringLiteralPattern = regexp.MustCompile(`"(?:[^"\\\n]|\\.)*"`)
	includeLinePattern   = regexp.MustCompile(`(?m)^[ \t]*#include\b.*$`)

	allocCallPattern = regexp.MustCompile(`\b(?:malloc|calloc|realloc|strdup)[ \t]*\(|\bnew[ \t]+[A-Za-z_]`)
	stringVarPattern = regexp.MustCompile(`\bString[ \t]+([A-Za-z_]\w*)`)

	functionDefPattern = regexp.MustCompile(`(?m)^[ \t]*(?:(?:static|inline|unsigned|signed)[ \t]+)*(?:void|bool|boolean|byte|char|int|word|long|short|float|double|String|[A-Za-z_]\w*_t)[ \t&*]+[A-Za-z_]\w*[ \t]*\([^;{)]*\)[ \t\r\n]*\{`)
)

// Estimator computes RAM/Flash estimates from sketch text. All scanning is
// lexical over the comment-stripped text; nothing here is a real compiler,
// and user-facing output must say so.
type Estimator struct {
	store *hardware.Store
	log   *zap.SugaredLogger
}

// NewEstimator creates an estimator bound to the descriptor store.
func NewEstimator(store *hardware.Store, log *zap.SugaredLogger) *Estimator {
	return &Estimator{store: store, log: log}
}

// Estimate analyzes one snapshot. Each sub-scan is fault-isolated: a panic
// inside a step contributes zero for that step and the pass continues.
func (e *Estimator) Estimate(snap source.Snapshot) Estimate {
	stripped := source.Strip(snap.Text)

	var est Estimate
	est.RAM.Items = []Item{}
	est.Warnings = []Warning{}

	e.step("globals", func() {
		items, total := e.scanGlobals(stripped)
		est.RAM.Items = append(est.RAM.Items, items...)
		est.RAM.GlobalVariables += total
	})
	e.step("structs", func() {
		items, total := e.scanStructs(stripped)
		est.RAM.Items = append(est.RAM.Items, items...)
		est.RAM.GlobalVariables += total
	})
	e.step("strings", func() {
		est.Flash.Strings = scanStringLiterals(stripped)
	})

	var allocCount int
	e.step("allocations", func() {
		allocCount = countDynamicAllocations(stripped)
		est.RAM.DynamicAllocHint = allocCount * heapAllocOverhead
	})
	e.step("stack", func() {
		est.RAM.StackEstimate = estimateStack(stripped)
	})
	e.step("framework", func() {
		est.RAM.FrameworkOverhead = e.frameworkOverhead(stripped)
	})

	est.RAM.Total = est.RAM.GlobalVariables + est.RAM.StackEstimate +
		est.RAM.FrameworkOverhead + est.RAM.DynamicAllocHint
	est.Flash.BaseCode = flashBaseCode
	est.Flash.Total = est.Flash.Strings + est.Flash.BaseCode

	if allocCount > 0 {
		est.Warnings = append(est.Warnings, Warning{
			Severity: "info",
			Category: "dynamic-allocation",
			Message: fmt.Sprintf("%d dynamic allocation site(s) detected; heap use on constrained targets risks fragmentation",
				allocCount),
		})
	}

	if board := e.store.CurrentBoard(); board != nil {
		limits := board.Constraints
		if limits.RAMBytes > 0 {
			est.RAM.Percentage = percent(est.RAM.Total, limits.RAMBytes)
			est.Warnings = append(est.Warnings, thresholdWarnings(est.RAM.Percentage, ramThresholds)...)
		}
		if limits.FlashBytes > 0 {
			est.Flash.Percentage = percent(est.Flash.Total, limits.FlashBytes)
			est.Warnings = append(est.Warnings, thresholdWarnings(est.Flash.Percentage, flashThresholds)...)
		}
	}

	return est
}

// step runs one estimation stage under a fault boundary. Estimation degrades,
// never aborts the pass.
func (e *Estimator) step(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warnw("memory estimation step failed, contributing zero", "step", name, "panic", r)
		}
	}()
	fn()
}

// scanGlobals finds primitive/array/String declarations at global scope and
// sizes them. Liveness rule: a declaration with no later reference sizes to
// zero (the compiler would dead-strip it).
func (e *Estimator) scanGlobals(stripped string) ([]Item, int) {
	sizes := e.sizes()
	var items []Item
	total := 0

	for _, m := range globalDeclPattern.FindAllStringSubmatchIndex(stripped, -1) {
		if !atGlobalScope(stripped, m[0]) {
			continue
		}
		typeName := normalizeSpace(stripped[m[4]:m[5]])
		base, known := sizes[typeName]
		if !known {
			continue
		}
		name := stripped[m[6]:m[7]]

		count := 1
		if m[8] >= 0 { // array declarator present
			digits := ""
			if m[10] >= 0 {
				digits = strings.TrimSpace(stripped[m[10]:m[11]])
			}
			if digits != "" {
				count, _ = strconv.Atoi(digits)
			} else if m[12] >= 0 {
				// char buf[] = "..." sizes from the initializer
				if lit := stringLiteralPattern.FindString(stripped[m[12]:m[13]]); lit != "" {
					count = decodedLiteralLen(lit) + 1
				}
			}
		}

		size := base * count
		if !referencedAfter(stripped, m[1], name) {
			size = 0
		}
		items = append(items, Item{Name: name, Type: typeName, Size: size})
		total += size
	}
	return items, total
}

// scanStructs sizes struct definitions member-by-member and accounts global
// instances.
func (e *Estimator) scanStructs(stripped string) ([]Item, int) {
	sizes := e.sizes()

	structSizes := make(map[string]int)
	for _, m := range structDefPattern.FindAllStringSubmatch(stripped, -1) {
		name, body := m[1], m[2]
		size := 0
		for _, mem := range structMemberPattern.FindAllStringSubmatch(body, -1) {
			base, known := sizes[normalizeSpace(mem[1])]
			if !known {
				continue
			}
			count := 1
			if mem[3] != "" {
				count, _ = strconv.Atoi(mem[3])
			}
			size += base * count
		}
		structSizes[name] = size
	}
	if len(structSizes) == 0 {
		return nil, 0
	}

	names := make([]string, 0, len(structSizes))
	for n := range structSizes {
		names = append(names, regexp.QuoteMeta(n))
	}
	instPattern := regexp.MustCompile(
		`(?m)^[ \t]*(?:struct[ \t]+)?(` + strings.Join(names, "|") + `)[ \t]+([A-Za-z_]\w*)[ \t]*(?:\[[ \t]*(\d+)[ \t]*\])?[ \t]*;`)

	var items []Item
	total := 0
	for _, m := range instPattern.FindAllStringSubmatchIndex(stripped, -1) {
		if !atGlobalScope(stripped, m[0]) {
			continue
		}
		typeName := stripped[m[2]:m[3]]
		varName := stripped[m[4]:m[5]]
		count := 1
		if m[6] >= 0 {
			count, _ = strconv.Atoi(stripped[m[6]:m[7]])
		}
		size := structSizes[typeName] * count
		if !referencedAfter(stripped, m[1], varName) {
			size = 0
		}
		items = append(items, Item{Name: varName, Type: "struct " + typeName, Size: size})
		total += size
	}
	return items, total
}

// atGlobalScope is the brace-depth heuristic: the declaration must not start
// inside an open block. Unbalanced braces from preprocessor branches can fool
// it; that limitation is documented, not compensated.
func atGlobalScope(stripped string, offset int) bool {
	prefix := stripped[:offset]
	return strings.Count(prefix, "{")-strings.Count(prefix, "}") <= 0
}

// referencedAfter reports whether name occurs again anywhere after the
// declaration. Comments and string contents were already blanked for
// comments; string literals can still alias a name, which is accepted noise.
func referencedAfter(stripped string, declEnd int, name string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	return re.MatchString(stripped[declEnd:])
}

// scanStringLiterals totals len+1 bytes per double-quoted literal, escape
// sequences decoded. Literals land in read-only program memory regardless of
// scope in the target toolchain model. #include lines are excluded.
func scanStringLiterals(stripped string) int {
	text := includeLinePattern.ReplaceAllString(stripped, "")
	total := 0
	for _, lit := range stringLiteralPattern.FindAllString(text, -1) {
		total += decodedLiteralLen(lit) + 1
	}
	return total
}

// decodedLiteralLen is the byte length of a quoted literal's contents with
// each backslash escape counted as one byte.
func decodedLiteralLen(lit string) int {
	body := lit[1 : len(lit)-1]
	n := 0
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		n++
	}
	return n
}

// countDynamicAllocations counts heap-allocation call sites plus String
// concatenation expressions.
func countDynamicAllocations(stripped string) int {
	count := len(allocCallPattern.FindAllString(stripped, -1))

	for _, m := range stringVarPattern.FindAllStringSubmatch(stripped, -1) {
		concat := regexp.MustCompile(`\b` + regexp.QuoteMeta(m[1]) + `[ \t]*\+=`)
		count += len(concat.FindAllString(stripped, -1))
	}
	return count
}

// estimateStack is a coarse ceiling: assumed call depth times a fixed frame
// cost. No call-graph analysis happens here; the result is a rough estimate,
// not a bound.
func estimateStack(stripped string) int {
	fns := len(functionDefPattern.FindAllString(stripped, -1))
	depth := 2
	if fns > callDepthFuncThreshold {
		depth = maxAssumedCallDepth
	}
	return depth * stackFrameBytes
}

// frameworkOverhead sums the base runtime cost plus each detected library's
// calibrated cost. Per-library costs do not stack with repeated calls.
func (e *Estimator) frameworkOverhead(stripped string) int {
	overhead := frameworkBaseRAM
	for _, lib := range e.store.Libraries() {
		for _, needle := range lib.Detect {
			if strings.Contains(stripped, needle) {
				overhead += lib.RAMOverhead
				break
			}
		}
	}
	return overhead
}

func (e *Estimator) sizes() map[string]int {
	arch := ""
	if board := e.store.CurrentBoard(); board != nil {
		arch = board.Arch
	}
	return typeSizes(arch)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func percent(total, limit int) int {
	return int(float64(total)/float64(limit)*100 + 0.5)
}

func thresholdWarnings(pct int, thresholds []usageThreshold) []Warning {
	for _, th := range thresholds {
		if pct >= th.Percent {
			return []Warning{{
				Severity: th.Severity,
				Category: th.Category,
				Message:  fmt.Sprintf(th.Message, pct),
			}}
		}
	}
	return nil
}
