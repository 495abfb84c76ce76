package sequencer

import (
	"fmt"
	"math"

	"github.com/readsa/minipiano/src/synth"
)

// Note is one scheduled note from the grid: which row it sits on, the tick
// it starts at, how many ticks it holds, and the waveform it plays with.
// The scheduler consumes notes read-only from a snapshot taken at Play.
type Note struct {
	Row           int
	StartTick     int
	DurationTicks int
	Timbre        synth.Waveform
}

func noteID(n Note) string {
	return fmt.Sprintf("note:%d@%d", n.Row, n.StartTick)
}

// NoteSink is the slice of the synthesis engine the scheduler needs.
// *synth.Engine satisfies it; tests substitute a recorder.
type NoteSink interface {
	BeginNote(id string, freq float64)
	EndNote(id string)
	SetWaveform(synth.Waveform)
	SilenceAll()
}

// DefaultRowFrequency maps row 0 to middle C and each row above to one
// equal-temperament semitone up. Presentation layers with their own pitch
// grids can swap in a different mapping via Scheduler.RowFrequency.
func DefaultRowFrequency(row int) float64 {
	return 261.626 * math.Pow(2, float64(row)/12)
}
