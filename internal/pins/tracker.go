package pins

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/source"
)

// Kind classifies what a construct does with a pin.
type Kind string

const (
	DigitalOutput Kind = "digital-output"
	DigitalInput  Kind = "digital-input"
	AnalogInput   Kind = "analog-input"
	PWM           Kind = "pwm"
	Interrupt     Kind = "interrupt"
	I2CSDA        Kind = "i2c-sda"
	I2CSCL        Kind = "i2c-scl"
	SPISS         Kind = "spi-ss"
	SPIMOSI       Kind = "spi-mosi"
	SPIMISO       Kind = "spi-miso"
	SPISCK        Kind = "spi-sck"
	SerialRX      Kind = "serial-rx"
	SerialTX      Kind = "serial-tx"
)

// Usage is one pin-touching construct found in the sketch.
type Usage struct {
	Pin       int             `json:"pin"`
	Kind      Kind            `json:"kind"`
	Construct string          `json:"construct"`
	Position  source.Position `json:"position"`

	// Offset into the snapshot text; not part of the wire shape.
	Offset int `json:"-"`
}

// Record aggregates every usage of one pin within a single analysis pass.
// Records are rebuilt from scratch each pass, never patched.
type Record struct {
	Pin         int     `json:"pin"`
	Usages      []Usage `json:"usages"`
	Status      string  `json:"status"` // valid | warning | conflict
	Message     string  `json:"message"`
	PrimaryType string  `json:"primaryType"`
	PinLabel    string  `json:"pinLabel"`
}

// Fallback bus pin sets used when no board descriptor is active. These match
// the classic Uno layout so bus reservation modeling still works
// board-agnostically.
var (
	fallbackDigitalPinCount = 14
	fallbackI2C             = hardware.BusPins{SDA: 18, SCL: 19}
	fallbackSPI             = hardware.SPIPins{SS: 10, MOSI: 11, MISO: 12, SCK: 13}
	fallbackSerial          = hardware.SerialPins{RX: 0, TX: 1}
)

// Tracker scans sketch text for pin usages and classifies per-pin conflicts.
type Tracker struct {
	store *hardware.Store
}

// NewTracker creates a tracker bound to a descriptor store. The store is
// queried per pass for the active board; the tracker itself holds no
// per-pass state.
func NewTracker(store *hardware.Store) *Tracker {
	return &Tracker{store: store}
}

// Analyze scans the snapshot and returns every pin usage in text order.
// The text is comment-stripped once; each construct scan then runs
// independently over the stripped copy.
func (t *Tracker) Analyze(snap source.Snapshot) []Usage {
	stripped := source.Strip(snap.Text)
	symbols := resolveSymbols(stripped)
	board := t.currentBoard()

	var usages []Usage
	add := func(offset int, pinArg string, kind Kind, construct string) {
		pin, ok := t.resolvePin(pinArg, symbols, board)
		if !ok {
			return
		}
		usages = append(usages, Usage{
			Pin:       pin,
			Kind:      kind,
			Construct: construct,
			Position:  source.PositionAt(stripped, offset),
			Offset:    offset,
		})
	}

	for _, m := range pinModePattern.FindAllStringSubmatchIndex(stripped, -1) {
		pinArg := stripped[m[2]:m[3]]
		mode := stripped[m[4]:m[5]]
		kind := DigitalInput
		if mode == "OUTPUT" {
			kind = DigitalOutput
		}
		add(m[0], pinArg, kind, "pinMode("+pinArg+", "+mode+")")
	}
	for _, m := range digitalWritePattern.FindAllStringSubmatchIndex(stripped, -1) {
		pinArg := stripped[m[2]:m[3]]
		add(m[0], pinArg, DigitalOutput, "digitalWrite("+pinArg+")")
	}
	for _, m := range digitalReadPattern.FindAllStringSubmatchIndex(stripped, -1) {
		pinArg := stripped[m[2]:m[3]]
		add(m[0], pinArg, DigitalInput, "digitalRead("+pinArg+")")
	}
	for _, m := range analogWritePattern.FindAllStringSubmatchIndex(stripped, -1) {
		pinArg := stripped[m[2]:m[3]]
		add(m[0], pinArg, PWM, "analogWrite("+pinArg+")")
	}
	for _, m := range analogReadPattern.FindAllStringSubmatchIndex(stripped, -1) {
		pinArg := stripped[m[2]:m[3]]
		add(m[0], pinArg, AnalogInput, "analogRead("+pinArg+")")
	}
	for _, m := range tonePattern.FindAllStringSubmatchIndex(stripped, -1) {
		pinArg := stripped[m[2]:m[3]]
		add(m[0], pinArg, PWM, "tone("+pinArg+")")
	}
	for _, m := range attachInterruptPattern.FindAllStringSubmatchIndex(stripped, -1) {
		pinArg := stripped[m[2]:m[3]]
		add(m[0], pinArg, Interrupt, "attachInterrupt("+pinArg+")")
	}

	// Bus begins reserve the bus's fixed pin set even though the sketch
	// never names those pins.
	i2c, spi, ser := t.busPins(board)
	for _, m := range wireBeginPattern.FindAllStringIndex(stripped, -1) {
		pos := source.PositionAt(stripped, m[0])
		usages = append(usages,
			Usage{Pin: i2c.SDA, Kind: I2CSDA, Construct: "Wire.begin()", Position: pos, Offset: m[0]},
			Usage{Pin: i2c.SCL, Kind: I2CSCL, Construct: "Wire.begin()", Position: pos, Offset: m[0]},
		)
	}
	for _, m := range spiBeginPattern.FindAllStringIndex(stripped, -1) {
		pos := source.PositionAt(stripped, m[0])
		usages = append(usages,
			Usage{Pin: spi.SS, Kind: SPISS, Construct: "SPI.begin()", Position: pos, Offset: m[0]},
			Usage{Pin: spi.MOSI, Kind: SPIMOSI, Construct: "SPI.begin()", Position: pos, Offset: m[0]},
			Usage{Pin: spi.MISO, Kind: SPIMISO, Construct: "SPI.begin()", Position: pos, Offset: m[0]},
			Usage{Pin: spi.SCK, Kind: SPISCK, Construct: "SPI.begin()", Position: pos, Offset: m[0]},
		)
	}
	for _, m := range serialBeginPattern.FindAllStringIndex(stripped, -1) {
		pos := source.PositionAt(stripped, m[0])
		usages = append(usages,
			Usage{Pin: ser.RX, Kind: SerialRX, Construct: "Serial.begin()", Position: pos, Offset: m[0]},
			Usage{Pin: ser.TX, Kind: SerialTX, Construct: "Serial.begin()", Position: pos, Offset: m[0]},
		)
	}

	sort.SliceStable(usages, func(i, j int) bool { return usages[i].Offset < usages[j].Offset })
	return usages
}

// BuildPinMap groups usages by pin (first-occurrence order) and classifies
// each group. Classification checks run in fixed order; the first match
// wins, so conflicts always shadow warnings.
func (t *Tracker) BuildPinMap(usages []Usage) []Record {
	board := t.currentBoard()

	var order []int
	byPin := make(map[int][]Usage)
	for _, u := range usages {
		if _, seen := byPin[u.Pin]; !seen {
			order = append(order, u.Pin)
		}
		byPin[u.Pin] = append(byPin[u.Pin], u)
	}

	records := make([]Record, 0, len(order))
	for _, pin := range order {
		group := byPin[pin]
		status, message := classify(pin, group)
		label := strconv.Itoa(pin)
		if board != nil {
			label = board.PinLabel(pin)
		}
		records = append(records, Record{
			Pin:         pin,
			Usages:      group,
			Status:      status,
			Message:     message,
			PrimaryType: string(group[0].Kind),
			PinLabel:    label,
		})
	}
	return records
}

func classify(pin int, group []Usage) (string, string) {
	kinds := make(map[Kind]bool, len(group))
	for _, u := range group {
		kinds[u.Kind] = true
	}

	hasOutput := kinds[DigitalOutput] || kinds[PWM]
	hasInput := kinds[DigitalInput] || kinds[AnalogInput]
	hasPlainIO := hasOutput || hasInput
	hasProtocol := kinds[I2CSDA] || kinds[I2CSCL] ||
		kinds[SPISS] || kinds[SPIMOSI] || kinds[SPIMISO] || kinds[SPISCK]
	hasSerial := kinds[SerialRX] || kinds[SerialTX]

	switch {
	case hasOutput && hasInput:
		return "conflict", fmt.Sprintf("pin %d is used as both output and input", pin)
	case kinds[Interrupt] && kinds[DigitalOutput]:
		return "conflict", fmt.Sprintf("pin %d has an interrupt attached but is driven as an output", pin)
	case hasProtocol && hasPlainIO:
		return "conflict", fmt.Sprintf("pin %d is reserved by a bus but also used for plain I/O", pin)
	case hasSerial && hasPlainIO:
		return "warning", fmt.Sprintf("pin %d is shared with the hardware serial port", pin)
	default:
		return "valid", ""
	}
}

func (t *Tracker) currentBoard() *hardware.Board {
	if t.store == nil {
		return nil
	}
	return t.store.CurrentBoard()
}

func (t *Tracker) busPins(board *hardware.Board) (hardware.BusPins, hardware.SPIPins, hardware.SerialPins) {
	i2c, spi, ser := fallbackI2C, fallbackSPI, fallbackSerial
	if board != nil {
		if board.I2C != nil {
			i2c = *board.I2C
		}
		if board.SPI != nil {
			spi = *board.SPI
		}
		if board.Serial != nil {
			ser = *board.Serial
		}
	}
	return i2c, spi, ser
}

// resolvePin maps a pin argument to its numeric identity. Analog aliases
// resolve to digitalPinCount+n for the active board (Uno layout without
// one); unknown identifiers resolve through the sketch's own #define /
// const table, or not at all.
func (t *Tracker) resolvePin(arg string, symbols map[string]string, board *hardware.Board) (int, bool) {
	seen := 0
	for {
		if n, err := strconv.Atoi(arg); err == nil {
			return n, true
		}
		if m := analogAliasPattern.FindStringSubmatch(arg); m != nil {
			n, _ := strconv.Atoi(m[1])
			count := fallbackDigitalPinCount
			if board != nil {
				count = board.DigitalPinCount
			}
			return count + n, true
		}
		if arg == "LED_BUILTIN" {
			if board != nil && (board.Arch == "esp32" || board.Arch == "esp8266") {
				return 2, true
			}
			return 13, true
		}
		next, ok := symbols[arg]
		if !ok || seen > 4 { // defines may chain, but never cyclically
			return 0, false
		}
		arg = next
		seen++
	}
}

// resolveSymbols collects #define and const-int pin aliases from the
// stripped text.
func resolveSymbols(stripped string) map[string]string {
	symbols := make(map[string]string)
	for _, m := range definePattern.FindAllStringSubmatch(stripped, -1) {
		symbols[m[1]] = m[2]
	}
	for _, m := range constPinPattern.FindAllStringSubmatch(stripped, -1) {
		symbols[m[1]] = m[2]
	}
	return symbols
}
