package level

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/itohio/micscan/pkg/config"
)

// Power returns the root-mean-square of the raw batch readings.
// The readings are used as-is; centering and scaling happen in Quantizer.Magnitude.
// An empty batch has zero power.
func Power(batch []uint16) float64 {
	if len(batch) == 0 {
		return 0
	}

	// 200 readings of 4095² fit comfortably in uint64, so the sum is exact
	var sum uint64
	for _, x := range batch {
		sum += uint64(x) * uint64(x)
	}

	return math.Sqrt(float64(sum) / float64(len(batch)))
}

// Quantizer converts an RMS reading into volts and volts into an intensity level.
// All voltage arithmetic is single precision, matching the firmware math.
type Quantizer struct {
	fullScale float32
	codes     float32 // 2^resolution
	step      float32
	maxLevel  int
}

// NewQuantizer creates a Quantizer from the ADC and quantizer configuration.
func NewQuantizer(adc config.ADCConfig, q config.QuantizerConfig) Quantizer {
	fs := float32(adc.FullScale)
	return Quantizer{
		fullScale: fs,
		codes:     float32(uint32(1) << adc.Resolution),
		step:      fs / float32(q.Divisions) / float32(q.Substeps),
		maxLevel:  q.Divisions * q.Substeps,
	}
}

// Adjust converts a raw converter value to a signed voltage centered on half scale.
// Formula: V = raw * FS / 2^bits - FS/2
func (q Quantizer) Adjust(raw float32) float32 {
	return raw*q.fullScale/q.codes - q.fullScale/2
}

// Magnitude converts an RMS power value to the envelope voltage fed to Intensity.
// The centered magnitude is doubled to restore the 0..FS range.
func (q Quantizer) Magnitude(power float64) float32 {
	return 2 * math32.Abs(q.Adjust(float32(power)))
}

// Step returns the voltage of one intensity step.
func (q Quantizer) Step() float32 {
	return q.step
}

// MaxLevel returns the largest level Intensity can report.
func (q Quantizer) MaxLevel() int {
	return q.maxLevel
}

// Intensity counts how many whole steps can be subtracted from v while the
// remainder stays strictly positive.
// Non-positive and NaN inputs yield 0; the count never exceeds MaxLevel.
func (q Quantizer) Intensity(v float32) int {
	count := 0
	for count < q.maxLevel {
		v -= q.step
		if !(v > 0) {
			break
		}
		count++
	}
	return count
}

// Level runs the whole conversion chain for one batch: power, magnitude and intensity.
func (q Quantizer) Level(batch []uint16) (power float64, volts float32, intensity int) {
	power = Power(batch)
	volts = q.Magnitude(power)
	intensity = q.Intensity(volts)
	return power, volts, intensity
}
