package memory

// Calibration data. Every number here is empirical for a specific core and
// toolchain version; treat them as configuration, not derived constants.

const (
	// Fixed RAM cost of the framework runtime before any library loads.
	frameworkBaseRAM = 9

	// Stack heuristic: assumed bytes per frame and the function-count
	// threshold that bumps assumed call depth from 2 to 3.
	stackFrameBytes        = 14
	callDepthFuncThreshold = 4
	maxAssumedCallDepth    = 3

	// Estimated heap bookkeeping per dynamic allocation site.
	heapAllocOverhead = 16

	// Flash consumed by an empty sketch (vectors, init, core).
	flashBaseCode = 444
)

type usageThreshold struct {
	Percent  int
	Severity string
	Category string
	Message  string
}

// First matching threshold wins; keep these sorted descending.
var ramThresholds = []usageThreshold{
	{90, "error", "ram", "critical: estimated RAM usage at %d%% of capacity; expect instability"},
	{75, "warning", "ram", "estimated RAM usage at %d%% of capacity"},
	{60, "info", "ram", "estimated RAM usage at %d%% of capacity"},
}

var flashThresholds = []usageThreshold{
	{95, "error", "flash", "estimated Flash usage at %d%% of capacity; sketch may not fit"},
}

// Primitive sizes per architecture. AVR has 16-bit ints and 4-byte doubles;
// the 32-bit cores do not.
var avrTypeSizes = map[string]int{
	"bool": 1, "boolean": 1, "char": 1, "byte": 1,
	"int8_t": 1, "uint8_t": 1,
	"int": 2, "unsigned int": 2, "short": 2, "unsigned short": 2, "word": 2,
	"int16_t": 2, "uint16_t": 2, "size_t": 2,
	"long": 4, "unsigned long": 4, "int32_t": 4, "uint32_t": 4,
	"float": 4, "double": 4,
	"int64_t": 8, "uint64_t": 8, "long long": 8,
	"String": 6,
}

var wideTypeSizes = map[string]int{
	"bool": 1, "boolean": 1, "char": 1, "byte": 1,
	"int8_t": 1, "uint8_t": 1,
	"short": 2, "unsigned short": 2, "word": 2, "int16_t": 2, "uint16_t": 2,
	"int": 4, "unsigned int": 4, "size_t": 4,
	"long": 4, "unsigned long": 4, "int32_t": 4, "uint32_t": 4,
	"float": 4, "double": 8,
	"int64_t": 8, "uint64_t": 8, "long long": 8,
	"String": 12,
}

// typeSizes selects the size table for a board architecture; AVR rules apply
// when no board is loaded (the classic targets are the constrained ones this
// estimate exists for).
func typeSizes(arch string) map[string]int {
	switch arch {
	case "esp32", "esp8266":
		return wideTypeSizes
	default:
		return avrTypeSizes
	}
}
