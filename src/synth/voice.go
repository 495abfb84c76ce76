package synth

import (
	"math"
	"sync/atomic"
)

// FreqCell is a thread-safe frequency value in Hz. The control side may
// write it at any rate; the stream callback re-reads it every frame, so a
// dynamic voice bends pitch without resetting phase.
type FreqCell struct {
	bits atomic.Uint64
}

// Set stores a new frequency in Hz
func (c *FreqCell) Set(hz float64) {
	c.bits.Store(math.Float64bits(hz))
}

// Get loads the current frequency in Hz
func (c *FreqCell) Get() float64 {
	return math.Float64frombits(c.bits.Load())
}

// voice is one live note. The stream callback owns every field except the
// two atomic flags, which the control side flips: released requests the
// release fade (latched by the callback on the next frame it sees), killed
// cuts the voice dead immediately.
type voice struct {
	id    string
	freq  *FreqCell
	wave  Waveform
	env   Envelope
	noise *noiseState

	phase        float64
	frame        int
	latched      bool
	releaseFrame int
	handedOff    bool

	released atomic.Bool
	killed   atomic.Bool
}

// sample renders one frame and advances the voice's phase and frame counter
func (v *voice) sample(sampleRate int) float64 {
	if v.killed.Load() {
		return 0
	}
	if v.released.Load() && !v.latched {
		v.latched = true
		v.releaseFrame = v.frame
	}

	var gain float64
	if v.latched {
		gain = v.env.releasedGainAt(v.frame, v.releaseFrame, sampleRate)
	} else {
		gain = v.env.gainAt(v.frame, sampleRate)
	}

	out := generateSample(v.wave, v.phase, v.noise) * gain

	v.phase += twoPi * v.freq.Get() / float64(sampleRate)
	for v.phase >= twoPi {
		v.phase -= twoPi
	}
	v.frame++
	return out
}

// done reports whether the voice can be detached from the live set
func (v *voice) done(sampleRate int) bool {
	if v.killed.Load() {
		return true
	}
	return v.latched && v.frame-v.releaseFrame >= frames(v.env.Release, sampleRate)
}
