//go:build tinygo

//go:generate tinygo flash -target=pico

package main

import (
	"machine"
	"time"
)

var (
	adcMic machine.ADC
	uart   = machine.UART0

	// Conversion state, toggled by the host
	running bool

	// Serial buffer for reading command lines
	serialBuffer [8]byte
	serialPos    int
)

func main() {
	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LED.Low()

	machine.InitADC()
	adcMic = machine.ADC{Pin: PIN_MIC}
	adcMic.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	for {
		// Check for serial input (non-blocking)
		processSerial()

		if running {
			outputReading(readMic())
		}

		time.Sleep(SAMPLE_INTERVAL_US * time.Microsecond)
	}
}

// readMic returns one reading scaled down to ADC_RESOLUTION bits.
// machine.ADC.Get always reports a 16-bit value.
func readMic() uint16 {
	return adcMic.Get() >> (16 - ADC_RESOLUTION)
}

// outputReading writes "reading\n", e.g. "2048\n".
func outputReading(value uint16) {
	print(value)
	print("\n")
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		// Check for newline (end of line)
		if data == '\n' || data == '\r' {
			if serialPos == 1 {
				setRunning(serialBuffer[0] == '1')
			}
			serialPos = 0
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		// Only accept '0' or '1'
		if data == '0' || data == '1' {
			if serialPos < len(serialBuffer) {
				serialBuffer[serialPos] = data
				serialPos++
			}
		} else {
			// Invalid character - reset buffer
			serialPos = 0
		}
	}
}

// setRunning starts or stops streaming and mirrors the state on the LED.
func setRunning(on bool) {
	running = on
	if on {
		PIN_LED.High()
	} else {
		PIN_LED.Low()
	}
}
