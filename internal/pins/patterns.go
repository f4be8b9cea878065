package pins

import "regexp"

// One compiled pattern per pin-touching construct. All scans run against the
// comment-stripped text, so quoted or commented-out calls never match a
// misleading offset. The first capture group is always the pin argument,
// which may be a literal, an A-alias, or a symbolic name resolved against
// #define / const declarations.

var (
	// pinMode(pin, MODE)
	pinModePattern = regexp.MustCompile(`\bpinMode\s*\(\s*([A-Za-z_]\w*|\d+)\s*,\s*(\w+)\s*\)`)

	// digitalWrite(pin, value)
	digitalWritePattern = regexp.MustCompile(`\bdigitalWrite\s*\(\s*([A-Za-z_]\w*|\d+)\s*,`)

	// digitalRead(pin)
	digitalReadPattern = regexp.MustCompile(`\bdigitalRead\s*\(\s*([A-Za-z_]\w*|\d+)\s*\)`)

	// analogWrite(pin, value)
	analogWritePattern = regexp.MustCompile(`\banalogWrite\s*\(\s*([A-Za-z_]\w*|\d+)\s*,\s*(-?\d+|\w+)`)

	// analogRead(pin)
	analogReadPattern = regexp.MustCompile(`\banalogRead\s*\(\s*([A-Za-z_]\w*|\d+)\s*\)`)

	// tone(pin, frequency[, duration])
	tonePattern = regexp.MustCompile(`\btone\s*\(\s*([A-Za-z_]\w*|\d+)\s*,`)

	// attachInterrupt(digitalPinToInterrupt(pin), handler, mode) and the
	// legacy attachInterrupt(pin, handler, mode) form
	attachInterruptPattern = regexp.MustCompile(`\battachInterrupt\s*\(\s*(?:digitalPinToInterrupt\s*\(\s*)?([A-Za-z_]\w*|\d+)`)

	// bus initialization; these reserve the bus's fixed pin set implicitly
	wireBeginPattern   = regexp.MustCompile(`\bWire\s*\.\s*begin\s*\(`)
	spiBeginPattern    = regexp.MustCompile(`\bSPI\s*\.\s*begin\s*\(`)
	serialBeginPattern = regexp.MustCompile(`\bSerial\s*\.\s*begin\s*\(`)

	// symbolic pin definitions
	definePattern   = regexp.MustCompile(`(?m)^\s*#define\s+(\w+)\s+(A?\d+)\b`)
	constPinPattern = regexp.MustCompile(`\b(?:const\s+)?(?:int|byte|uint8_t|unsigned\s+char)\s+(\w+)\s*=\s*(A?\d+)\s*[;,]`)

	analogAliasPattern = regexp.MustCompile(`^A(\d+)$`)
)
