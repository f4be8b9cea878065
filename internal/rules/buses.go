package rules

import (
	"fmt"
	"regexp"
)

// SPI and hardware serial initialization-order rules. Like the I2C rules
// these are bus-level and run without a board; the baud list comes from the
// serial protocol descriptor when available.

var (
	spiAnyCallPattern    = regexp.MustCompile(`\bSPI\s*\.\s*(\w+)\s*\(`)
	serialAnyCallPattern = regexp.MustCompile(`\bSerial\s*\.\s*(\w+)\s*\(`)
	serialBaudPattern    = regexp.MustCompile(`\bSerial\s*\.\s*begin\s*\(\s*(\w+)`)
)

var defaultBauds = []int{300, 600, 1200, 2400, 4800, 9600, 14400, 19200, 28800, 38400, 57600, 74880, 115200, 230400, 250000, 500000, 1000000, 2000000}

func checkSPIBegin(in Input) []Diagnostic {
	return checkBusBegin(in, spiAnyCallPattern, "missing-spi-begin", "SPI is used without SPI.begin()")
}

func checkSerialBegin(in Input) []Diagnostic {
	return checkBusBegin(in, serialAnyCallPattern, "missing-serial-begin", "Serial is used without Serial.begin()")
}

func checkBusBegin(in Input, pattern *regexp.Regexp, code, msg string) []Diagnostic {
	firstUse, firstLen := -1, 0
	for _, m := range pattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
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
	return []Diagnostic{in.diag(firstUse, firstLen, SeverityError, code, msg)}
}

func checkBaudRate(in Input) []Diagnostic {
	bauds := defaultBauds
	if in.Store != nil {
		if p, ok := in.Store.Protocol("serial"); ok && len(p.StandardBauds) > 0 {
			bauds = p.StandardBauds
		}
	}

	var ds []Diagnostic
	for _, m := range serialBaudPattern.FindAllStringSubmatchIndex(in.Stripped, -1) {
		baud, ok := parseNumber(in.Stripped[m[2]:m[3]], in)
		if !ok {
			continue
		}
		standard := false
		for _, b := range bauds {
			if b == baud {
				standard = true
				break
			}
		}
		if standard {
			continue
		}
		ds = append(ds, in.diag(m[0], m[1]-m[0], SeverityWarning, "nonstandard-baud",
			fmt.Sprintf("%d is not a standard baud rate", baud)))
	}
	return ds
}
