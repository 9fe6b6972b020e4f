//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_US = 20 // Delay between two ADC reads while running

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Microphone on ADC channel 2
	PIN_MIC = machine.ADC2

	// Status LED, lit while conversion runs
	PIN_LED = machine.LED

	// Serial configuration
	// Format "reading\n": at most 5 bytes per line.
	// One reading every 20us is 50,000 lines/sec, far beyond UART throughput,
	// so the stream is paced by the UART and the host keeps whatever arrives.
	UART_BAUD_RATE = 115200
)
