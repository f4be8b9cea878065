package rules

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/source"
)

// I2C rules are protocol-defined, not board-defined: they run with or
// without an active board. Range facts come from the protocol descriptor
// when loaded, with the 7-bit defaults as fallback.

var (
	wireAddressPattern = regexp.MustCompile(`\bWire\s*\.\s*(?:beginTransmission|requestFrom)\s*\(\s*(\w+)`)
	wireAnyCallPattern = regexp.MustCompile(`\bWire\s*\.\s*(\w+)\s*\(`)
)

func i2cProtocol(in Input) *hardware.Protocol {
	if in.Store != nil {
		if p, ok := in.Store.Protocol("i2c"); ok {
			return p
		}
	}
	return &hardware.Protocol{
		ID:           "i2c",
		ReservedLow:  [2]int{0x00, 0x07},
		ReservedHigh: [2]int{0x78, 0x7F},
	}
}

// checkI2CAddresses classifies every addressed Wire call. Precedence is
// fixed: reserved sub-ranges are reported before the generic out-of-range
// check, so a reserved address is never doubly reported; duplicates are
// tracked only among valid addresses, first-seen-wins.
func checkI2CAddresses(in Input) []Diagnostic {
	proto := i2cProtocol(in)
	type seen struct {
		pos source.Position
	}
	first := make(map[int]seen)

	var ds []Diagnostic
	for _, m := range wireAddressPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		addr, ok := parseNumber(in.Stripped[m[2]:m[3]], in)
		if !ok {
			continue
		}
		n := m[1] - m[0]
		switch {
		case addr >= proto.ReservedLow[0] && addr <= proto.ReservedLow[1]:
			ds = append(ds, in.diag(m[0], n, SeverityError, "reserved-i2c-address",
				fmt.Sprintf("I2C address 0x%02X is reserved (general call / start byte range)", addr)))
		case addr >= proto.ReservedHigh[0] && addr <= proto.ReservedHigh[1]:
			ds = append(ds, in.diag(m[0], n, SeverityError, "reserved-i2c-address",
				fmt.Sprintf("I2C address 0x%02X is reserved (10-bit addressing range)", addr)))
		case addr < 0 || addr > 0x7F:
			ds = append(ds, in.diag(m[0], n, SeverityError, "invalid-i2c-address",
				fmt.Sprintf("I2C address 0x%02X is outside the 7-bit range 0x00-0x7F", addr)))
		default:
			if prior, dup := first[addr]; dup {
				label := fmt.Sprintf("0x%02X", addr)
				if device, known := proto.KnownDevices[strconv.Itoa(addr)]; known {
					label += " (" + device + ")"
				}
				ds = append(ds, in.diag(m[0], n, SeverityInfo, "duplicate-i2c-address",
					fmt.Sprintf("I2C address %s already addressed at line %d", label, prior.pos.Line)))
			} else {
				first[addr] = seen{pos: source.PositionAt(in.Stripped, m[0])}
			}
		}
	}
	return ds
}

// checkWireBegin reports a missing Wire.begin() once, at the first Wire call
// that needs the bus initialized.
func checkWireBegin(in Input) []Diagnostic {
	var firstUse = -1
	var firstLen int
	for _, m := range wireAnyCallPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		method := in.Stripped[m[2]:m[3]]
		if method == "begin" {
			return nil
		}
		if firstUse < 0 {
			firstUse = m[0]
			firstLen = m[1] - m[0]
		}
	}
	if firstUse < 0 {
		return nil
	}
	return []Diagnostic{in.diag(firstUse, firstLen, SeverityError, "missing-wire-begin",
		"Wire is used without Wire.begin()")}
}
