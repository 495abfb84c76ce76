package synth

import (
	"math"
	"testing"
)

const testRate = 44100

func TestEnvelopePhases(t *testing.T) {
	env := Envelope{Attack: 0.01, Decay: 0.05, Sustain: 0.7, Release: 0.15}
	attack := frames(env.Attack, testRate)
	decay := frames(env.Decay, testRate)

	if got := env.gainAt(0, testRate); math.Abs(got-0.01) > 1e-9 {
		t.Errorf("attack starts at %v, want 0.01", got)
	}
	if got := env.gainAt(attack, testRate); math.Abs(got-1.0) > 1e-3 {
		t.Errorf("gain at end of attack %v, want ~1.0", got)
	}
	if got := env.gainAt(attack+decay, testRate); math.Abs(got-env.Sustain) > 1e-3 {
		t.Errorf("gain at end of decay %v, want sustain %v", got, env.Sustain)
	}
	if got := env.gainAt(attack+decay+100000, testRate); got != env.Sustain {
		t.Errorf("sustain gain %v, want %v", got, env.Sustain)
	}
}

func TestEnvelopeAttackQuadratic(t *testing.T) {
	env := Envelope{Attack: 0.1, Decay: 0.05, Sustain: 0.7, Release: 0.15}
	attack := frames(env.Attack, testRate)
	mid := attack / 2
	want := 0.01 + 0.99*0.25 // p = 0.5
	if got := env.gainAt(mid, testRate); math.Abs(got-want) > 1e-3 {
		t.Errorf("gain mid-attack %v, want %v", got, want)
	}
}

// Gain must be continuous across every phase boundary, including release
// latched at arbitrary offsets into attack, decay and sustain.
func TestEnvelopeContinuity(t *testing.T) {
	env := Envelope{Attack: 0.01, Decay: 0.05, Sustain: 0.7, Release: 0.15}
	attack := frames(env.Attack, testRate)
	decay := frames(env.Decay, testRate)
	releaseFrames := frames(env.Release, testRate)

	latchPoints := []int{
		0,
		attack / 3,
		attack - 1,
		attack,
		attack + decay/2,
		attack + decay,
		attack + decay + 1000,
	}
	for _, latch := range latchPoints {
		prev := math.NaN()
		for frame := 0; frame < latch+releaseFrames+100; frame++ {
			var gain float64
			if frame >= latch {
				gain = env.releasedGainAt(frame, latch, testRate)
			} else {
				gain = env.gainAt(frame, testRate)
			}
			if !math.IsNaN(prev) && math.Abs(gain-prev) > 0.02 {
				t.Fatalf("latch %d: gain jumped %v -> %v at frame %d", latch, prev, gain, frame)
			}
			prev = gain
		}
	}
}

func TestEnvelopeReleaseCompletes(t *testing.T) {
	env := DefaultEnvelope
	latch := frames(env.Attack+env.Decay, testRate) + 500
	releaseFrames := frames(env.Release, testRate)

	if got := env.releasedGainAt(latch, latch, testRate); math.Abs(got-env.Sustain) > 1e-9 {
		t.Errorf("release starts at %v, want pre-release gain %v", got, env.Sustain)
	}
	for _, after := range []int{releaseFrames, releaseFrames + 1, releaseFrames * 10} {
		if got := env.releasedGainAt(latch+after, latch, testRate); got != 0 {
			t.Errorf("gain %v at %d frames past latch, want 0", got, after)
		}
	}
}

func TestEnvelopeZeroAttack(t *testing.T) {
	env := Envelope{Attack: 0, Decay: 0.05, Sustain: 0.5, Release: 0.1}
	if got := env.gainAt(0, testRate); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("zero attack should open at full gain, got %v", got)
	}
}
