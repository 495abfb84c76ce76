package timing

import (
	"time"

	"github.com/faiface/beep"
)

// TicksPerBeat is the number of scheduler ticks that make up one beat-unit.
// 48 divides evenly by both 12 and 16, so the usual subdivisions land on
// whole ticks.
const TicksPerBeat = 48

// Tempo is a tempo in beats per minute
type Tempo float64

// BeatDuration returns the wall-clock duration of a single beat
func (t Tempo) BeatDuration() time.Duration {
	return time.Duration(float64(time.Minute) / float64(t))
}

// TickDuration returns the wall-clock duration of a single tick
func (t Tempo) TickDuration() time.Duration {
	return t.BeatDuration() / TicksPerBeat
}

// TicksPerSecond returns the tick rate implied by the tempo
func (t Tempo) TicksPerSecond() float64 {
	return float64(t) / 60 * TicksPerBeat
}

// TicksIn converts elapsed wall-clock time to a fractional tick count
func (t Tempo) TicksIn(elapsed time.Duration) float64 {
	return elapsed.Seconds() * t.TicksPerSecond()
}

// DurationOf converts a whole number of ticks back to wall-clock time
func (t Tempo) DurationOf(ticks int) time.Duration {
	return time.Duration(float64(ticks) / t.TicksPerSecond() * float64(time.Second))
}

// TickSamples returns the number of samples in a single tick for a given format.
func (t Tempo) TickSamples(of beep.Format) (samples int) {
	return of.SampleRate.N(t.TickDuration())
}
