package rules

// Registry returns the full validator set in registration order. Output
// order of a pass follows this list; the order carries no meaning beyond
// stable presentation.
func Registry() []Validator {
	return []Validator{
		// Pin capability and configuration.
		{Code: "pin-out-of-range", Check: checkPinRange},
		{Code: "no-pwm-support", Check: checkPWMSupport},
		{Code: "pwm-value-overflow", Check: checkPWMValue},
		{Code: "analog-read-digital-pin", Check: checkAnalogReadTarget},
		{Code: "invalid-interrupt-pin", Check: checkInterruptPin},
		{Code: "pin-conflict", Check: checkPinModeConsistency},
		{Code: "digitalwrite-without-pinmode", Check: checkWriteWithoutMode},
		{Code: "servo-pwm-conflict", Check: checkServoPWMConflict},
		{Code: "tone-pwm-conflict", Check: checkTonePWMConflict},

		// I2C.
		{Code: "i2c-address", Check: checkI2CAddresses},
		{Code: "missing-wire-begin", Check: checkWireBegin},

		// SPI / Serial.
		{Code: "missing-spi-begin", Check: checkSPIBegin},
		{Code: "missing-serial-begin", Check: checkSerialBegin},
		{Code: "nonstandard-baud", Check: checkBaudRate},

		// ISR safety.
		{Code: "delay-in-isr", Check: checkDelayInISR},
		{Code: "serial-in-isr", Check: checkSerialInISR},
		{Code: "malloc-in-isr", Check: checkHeapInISR},
		{Code: "missing-volatile", Check: checkVolatileSharedGlobals},
		{Code: "isr-not-found", Check: checkISRDefined},

		// Stack.
		{Code: "recursion-risk", Check: checkRecursion},
		{Code: "large-stack-array", Check: checkStackArrays},

		// Strings.
		{Code: "unsafe-string-function", Check: checkUnsafeStringFunctions},
		{Code: "string-class-churn", Check: checkStringChurn},

		// Storage.
		{Code: "progmem-suggestion", Check: checkProgmemCandidates},
		{Code: "eeprom-write-in-loop", Check: checkEEPROMWear},
		{Code: "eeprom-address-range", Check: checkEEPROMAddressRange},

		// Timing.
		{Code: "delaymicroseconds-overflow", Check: checkDelayMicroseconds},
		{Code: "millis-comparison-rollover", Check: checkMillisRollover},
		{Code: "blocking-loop", Check: checkBusyLoops},

		// ESP32 hazards.
		{Code: "strapping-pin", Check: checkStrappingPins},
		{Code: "wifi-ble-coexist", Check: checkWiFiBLECoexist},
		{Code: "adc2-wifi-conflict", Check: checkADC2WiFiConflict},
		{Code: "deepsleep-no-wakeup", Check: checkDeepSleepWakeSource},
		{Code: "invalid-task-core", Check: checkTaskPinning},
	}
}
