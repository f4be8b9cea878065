package hardware

import "strconv"

// Descriptor tables for target boards, bus protocols, and framework libraries.
// These are static capability data, loaded once and read-only afterwards.
// Calibration numbers (RAM overheads, limits) are empirical for specific
// core/toolchain versions and live here as data, never as derived constants.

// BusPins names the fixed pins a two-wire bus claims on a board.
type BusPins struct {
	SDA int `json:"sda"`
	SCL int `json:"scl"`
}

// SPIPins names the fixed pins the hardware SPI peripheral claims.
type SPIPins struct {
	SS   int `json:"ss"`
	MOSI int `json:"mosi"`
	MISO int `json:"miso"`
	SCK  int `json:"sck"`
}

// SerialPins names the hardware UART pins.
type SerialPins struct {
	RX int `json:"rx"`
	TX int `json:"tx"`
}

// Register is a memory-mapped peripheral register.
type Register struct {
	Address   uint32            `json:"address"`
	Bitfields map[string]string `json:"bitfields,omitempty"`
}

// Constraints are the board's hard resource limits.
type Constraints struct {
	RAMBytes      int `json:"ramBytes"`
	FlashBytes    int `json:"flashBytes"`
	MaxStackBytes int `json:"maxStackBytes"`
	EEPROMBytes   int `json:"eepromBytes"`
}

// Board is the capability table for one target microcontroller.
type Board struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Arch            string              `json:"arch"` // avr, esp32, esp8266
	DigitalPinCount int                 `json:"digitalPinCount"`
	AnalogPins      []int               `json:"analogPins"`
	PWMPins         []int               `json:"pwmPins"`
	InterruptPins   []int               `json:"interruptPins"`
	I2C             *BusPins            `json:"i2c,omitempty"`
	SPI             *SPIPins            `json:"spi,omitempty"`
	Serial          *SerialPins         `json:"serial,omitempty"`
	Registers       map[string]Register `json:"registers,omitempty"`
	Constraints     Constraints         `json:"constraints"`

	// ESP32-class hazard sets; empty on other architectures.
	StrappingPins []int `json:"strappingPins,omitempty"`
	ADC2Pins      []int `json:"adc2Pins,omitempty"`
}

// Protocol describes bus-level facts that hold regardless of board.
type Protocol struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	AddressBits  int            `json:"addressBits,omitempty"`
	ReservedLow  [2]int         `json:"reservedLow,omitempty"`
	ReservedHigh [2]int         `json:"reservedHigh,omitempty"`
	KnownDevices map[string]string `json:"knownDevices,omitempty"` // addr (decimal string) -> device
	StandardBauds []int         `json:"standardBauds,omitempty"`
}

// Library is a framework library's cost/behavior record. Detect substrings
// key the memory estimator's overhead table; overheads do not stack per call.
type Library struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Detect          []string `json:"detect"`
	RAMOverhead     int      `json:"ramOverhead"`
	DisablesPWMPins []int    `json:"disablesPwmPins,omitempty"`
}

// HasPin reports whether pin exists on the board, digital or analog.
func (b *Board) HasPin(pin int) bool {
	if pin >= 0 && pin < b.DigitalPinCount {
		return true
	}
	for _, p := range b.AnalogPins {
		if p == pin {
			return true
		}
	}
	return false
}

// IsAnalog reports whether pin is an analog input.
func (b *Board) IsAnalog(pin int) bool {
	for _, p := range b.AnalogPins {
		if p == pin {
			return true
		}
	}
	return false
}

// IsPWM reports whether pin supports hardware PWM.
func (b *Board) IsPWM(pin int) bool {
	for _, p := range b.PWMPins {
		if p == pin {
			return true
		}
	}
	return false
}

// IsInterrupt reports whether pin supports external interrupts.
func (b *Board) IsInterrupt(pin int) bool {
	for _, p := range b.InterruptPins {
		if p == pin {
			return true
		}
	}
	return false
}

// IsStrapping reports whether pin is a boot strapping pin.
func (b *Board) IsStrapping(pin int) bool {
	for _, p := range b.StrappingPins {
		if p == pin {
			return true
		}
	}
	return false
}

// IsADC2 reports whether pin belongs to the ADC2 block.
func (b *Board) IsADC2(pin int) bool {
	for _, p := range b.ADC2Pins {
		if p == pin {
			return true
		}
	}
	return false
}

// PinLabel renders a pin number the way sketches name it: analog pins get
// their A-alias, digital pins the bare number.
func (b *Board) PinLabel(pin int) string {
	if pin >= b.DigitalPinCount {
		for i, p := range b.AnalogPins {
			if p == pin {
				return "A" + strconv.Itoa(i)
			}
		}
	}
	return strconv.Itoa(pin)
}
