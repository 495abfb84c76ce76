package synth

// Envelope holds the attack/decay/sustain/release parameters for a note.
// Times are in seconds, Sustain is a level in [0, 1]. A voice captures the
// engine's envelope at begin time; later changes never affect live voices.
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultEnvelope is the engine-wide envelope until SetEnvelope overrides it
var DefaultEnvelope = Envelope{Attack: 0.01, Decay: 0.05, Sustain: 0.7, Release: 0.15}

func frames(seconds float64, sampleRate int) int {
	return int(seconds * float64(sampleRate))
}

// gainAt returns the envelope gain for a frame index before release has been
// latched. The attack rises along a quadratic ease-in starting from 0.01
// rather than zero, which would otherwise click on the first frame; decay
// falls linearly to the sustain level.
func (e Envelope) gainAt(frame, sampleRate int) float64 {
	attack := frames(e.Attack, sampleRate)
	decay := frames(e.Decay, sampleRate)
	switch {
	case frame < attack:
		p := float64(frame) / float64(attack)
		return 0.01 + 0.99*p*p
	case frame < attack+decay:
		p := float64(frame-attack) / float64(decay)
		return 1 + (e.Sustain-1)*p
	default:
		return e.Sustain
	}
}

// releasedGainAt returns the gain once release has been latched at
// releaseFrame. The fade starts from whatever gain the attack/decay/sustain
// curve had reached at the latch frame, so releasing mid-attack or mid-decay
// stays continuous.
func (e Envelope) releasedGainAt(frame, releaseFrame, sampleRate int) float64 {
	release := frames(e.Release, sampleRate)
	elapsed := frame - releaseFrame
	if release <= 0 || elapsed >= release {
		return 0
	}
	progress := float64(elapsed) / float64(release)
	return e.gainAt(releaseFrame, sampleRate) * (1 - progress)
}
