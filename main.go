package main

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"github.com/readsa/minipiano/src/sequencer"
	"github.com/readsa/minipiano/src/synth"
	"github.com/readsa/minipiano/src/timing"
	"github.com/readsa/minipiano/src/util"
)

type args struct {
	Tempo   float64 `arg:"-t,--tempo" default:"120" help:"tempo in beats per minute"`
	Loop    bool    `arg:"-l,--loop" help:"loop the phrase until the run time is up"`
	Wave    string  `arg:"-w,--wave" default:"sine" help:"default waveform: sine|square|triangle|sawtooth|pulse|noise|brass"`
	Seconds float64 `arg:"-s,--seconds" default:"8" help:"how long to keep playing"`
	Rate    int     `arg:"-r,--rate" default:"44100" help:"output sample rate"`
	Bend    bool    `arg:"--bend" help:"add a pitch-bent drone under the phrase"`
	Verbose bool    `arg:"-v,--verbose" help:"print scheduler and engine activity"`
}

// phrase is the kind of grid an on-screen editor would hand the scheduler:
// a little two-bar melody over a held brass root.
func phrase() ([]sequencer.Note, int) {
	const bar = 4 * timing.TicksPerBeat
	melody := []int{0, 4, 7, 12, 7, 4, 0, -5}
	notes := make([]sequencer.Note, 0, len(melody)+2)
	for i, row := range melody {
		notes = append(notes, sequencer.Note{
			Row:           row,
			StartTick:     i * timing.TicksPerBeat,
			DurationTicks: timing.TicksPerBeat / 2,
			Timbre:        synth.Square,
		})
	}
	notes = append(notes,
		sequencer.Note{Row: -12, StartTick: 0, DurationTicks: bar, Timbre: synth.Brass},
		sequencer.Note{Row: -12, StartTick: bar, DurationTicks: bar, Timbre: synth.Brass},
	)
	return notes, 2 * bar
}

func main() {
	var a args
	arg.MustParse(&a)

	if a.Verbose {
		util.Quiet.FilterBelow()
	} else {
		util.Loudest.FilterBelow()
	}

	wave, err := synth.ParseWaveform(a.Wave)
	if err != nil {
		log.Fatal(err)
	}

	sr := beep.SampleRate(a.Rate)
	engine := synth.NewEngine(sr)
	defer engine.Close()
	engine.SetWaveform(wave)

	// failing to open the output device is fatal: no degraded mode
	if err := speaker.Init(sr, sr.N(time.Second/20)); err != nil {
		log.Fatal(err)
	}
	speaker.Play(engine)

	notes, totalTicks := phrase()
	sched := sequencer.NewScheduler(engine)
	sched.SetNotes(notes, totalTicks)
	sched.SetTempo(timing.Tempo(a.Tempo))
	sched.SetLooping(a.Loop)

	if a.Bend {
		cell := engine.BeginDynamicNote("drone", 110)
		go func() {
			// slow sweep an octave up and back, the way a tilt
			// sensor would feed continuous pitch
			for t := 0.0; ; t += 0.01 {
				cell.Set(110 * (1.5 + 0.5*math.Sin(t)))
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}

	sched.Play()

	done := time.After(time.Duration(a.Seconds * float64(time.Second)))
	for {
		select {
		case tick := <-sched.Updates():
			if a.Verbose {
				fmt.Printf("\rtick %4d", tick)
			}
		case <-done:
			sched.Stop()
			// leave a moment for releases to fade before tearing down
			time.Sleep(200 * time.Millisecond)
			if a.Verbose {
				fmt.Println()
			}
			return
		}
	}
}
