package synth

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the oscillator shape for a voice
type Waveform int

const (
	Sine Waveform = iota
	Square
	Triangle
	Sawtooth
	Pulse
	Noise
	Brass
)

var waveformNames = [...]string{"sine", "square", "triangle", "sawtooth", "pulse", "noise", "brass"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
	return waveformNames[w]
}

// ParseWaveform maps a name like "square" back to its Waveform
func ParseWaveform(name string) (Waveform, error) {
	for i, n := range waveformNames {
		if n == strings.ToLower(name) {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", name)
}

const twoPi = 2 * math.Pi

// noiseTaps is the Galois LFSR feedback mask, taps at bits 0, 2, 3 and 5
const noiseTaps = 0x2D

// noiseState is the per-voice shift register for the Noise waveform. The
// register only steps once every sampleRate/8000 frames and holds its output
// in between, which keeps the characteristic lo-fi crunch independent of the
// output sample rate.
type noiseState struct {
	reg   uint32
	hold  float64
	count int
	every int
}

func newNoiseState(sampleRate int) *noiseState {
	every := sampleRate / 8000
	if every < 1 {
		every = 1
	}
	return &noiseState{reg: 0xACE1, every: every}
}

func (n *noiseState) next() float64 {
	if n.count <= 0 {
		bit := n.reg & 1
		n.reg >>= 1
		if bit != 0 {
			n.reg ^= noiseTaps
		}
		// quantise through 16 bits for the retro grit
		n.hold = float64(int16(n.reg)) / 32768 * 0.25
		n.count = n.every
	}
	n.count--
	return n.hold
}

// brassWeights are the relative levels of the six harmonics making up Brass
var brassWeights = [...]float64{1.0, 0.5, 0.3, 0.15, 0.1, 0.05}

// generateSample produces one amplitude sample for a waveform at the given
// phase. Phase is in radians, wrapped to [0, 2π). Only Noise consults the
// mutable state; every other shape is a pure function of phase.
func generateSample(w Waveform, phase float64, noise *noiseState) float64 {
	switch w {
	case Sine:
		return 0.25 * math.Sin(phase)

	case Square:
		if phase < math.Pi {
			return 0.25
		}
		return -0.25

	case Triangle:
		// linear ramp over four quadrants: 0 → 0.25 → -0.25 → 0
		quarter := math.Pi / 2
		switch {
		case phase < quarter:
			return 0.25 * (phase / quarter)
		case phase < 3*quarter:
			return 0.25 * (1 - 2*(phase-quarter)/math.Pi)
		default:
			return 0.25 * ((phase-3*quarter)/quarter - 1)
		}

	case Sawtooth:
		return 0.25 * (phase/math.Pi - 1)

	case Pulse:
		// 25% duty variant of Square
		if phase < math.Pi/2 {
			return 0.25
		}
		return -0.25

	case Noise:
		return noise.next()

	case Brass:
		var sum float64
		for i, weight := range brassWeights {
			sum += weight * math.Sin(phase*float64(i+1))
		}
		return 0.2 * sum
	}

	return 0
}
