package synth

import (
	"sync"

	"github.com/faiface/beep"

	"github.com/readsa/minipiano/src/util"
)

var logger = util.Logger{}.Ctx("synth")

// Engine owns the set of live voices and mixes them into the output stream.
// It implements beep.Streamer, so the speaker pulls samples from it on the
// audio goroutine while BeginNote/EndNote arrive from any other goroutine.
//
// The voice table mutex is held only for membership changes and for the
// per-buffer snapshot of live voices; per-sample computation runs unlocked,
// because each voice's mutable state belongs to the stream callback alone.
// Finished voices are handed to a buffered channel and deleted by a
// background goroutine, never inside the stream callback.
type Engine struct {
	sampleRate beep.SampleRate

	mu     sync.Mutex
	voices map[string]*voice
	wave   Waveform
	env    Envelope

	// active is reused across Stream calls to avoid per-buffer allocation
	active  []*voice
	retired chan *voice
	quit    chan struct{}
}

// NewEngine creates an engine mixing at the given sample rate. It never
// fails: opening the output device is the caller's job (speaker.Init), and
// that is where configuration errors surface.
func NewEngine(sampleRate beep.SampleRate) *Engine {
	e := &Engine{
		sampleRate: sampleRate,
		voices:     map[string]*voice{},
		wave:       Sine,
		env:        DefaultEnvelope,
		retired:    make(chan *voice, 64),
		quit:       make(chan struct{}),
	}
	go e.reap()
	return e
}

// Close stops the background voice reaper. The engine must not be streamed
// after Close.
func (e *Engine) Close() {
	close(e.quit)
}

// SetWaveform sets the engine-wide waveform captured by subsequent BeginNote
// calls. Live voices keep the waveform they started with.
func (e *Engine) SetWaveform(w Waveform) {
	e.mu.Lock()
	e.wave = w
	e.mu.Unlock()
}

// SetEnvelope sets the engine-wide envelope captured by subsequent BeginNote
// calls. Live voices keep the envelope they started with.
func (e *Engine) SetEnvelope(env Envelope) {
	e.mu.Lock()
	e.env = env
	e.mu.Unlock()
}

// BeginNote starts a voice with a fixed frequency. If a voice with the same
// id is already live it is cut and replaced; a re-trigger is a new note
// event, never an error.
func (e *Engine) BeginNote(id string, freq float64) {
	cell := &FreqCell{}
	cell.Set(freq)
	e.begin(id, cell)
}

// BeginDynamicNote starts a voice whose frequency can keep changing after
// creation. The returned cell is safe to write from any goroutine; the
// stream callback re-reads it every frame.
func (e *Engine) BeginDynamicNote(id string, freq float64) *FreqCell {
	cell := &FreqCell{}
	cell.Set(freq)
	e.begin(id, cell)
	return cell
}

func (e *Engine) begin(id string, cell *FreqCell) {
	logger.Vol(util.Quiet).Log("begin note", id, "at", cell.Get(), "Hz")
	e.mu.Lock()
	if old, ok := e.voices[id]; ok {
		// re-trigger: the old voice is silenced instantly and detached
		old.killed.Store(true)
	}
	e.voices[id] = &voice{
		id:    id,
		freq:  cell,
		wave:  e.wave,
		env:   e.env,
		noise: newNoiseState(int(e.sampleRate)),
	}
	e.mu.Unlock()
}

// EndNote marks a voice released. The release latch happens on the next
// stream frame, not here, so the fade is frame-accurate. Unknown ids are a
// no-op: the control and audio sides may race benignly, and ending a note
// twice is the same as ending it once.
func (e *Engine) EndNote(id string) {
	e.mu.Lock()
	v, ok := e.voices[id]
	e.mu.Unlock()
	if !ok {
		return
	}
	v.released.Store(true)
}

// SilenceAll cuts every live voice immediately and empties the table. Runs
// on the control side, so deleting here is fine.
func (e *Engine) SilenceAll() {
	e.mu.Lock()
	for id, v := range e.voices {
		v.killed.Store(true)
		delete(e.voices, id)
	}
	e.mu.Unlock()
}

// ActiveVoices reports how many voices are currently in the live table
func (e *Engine) ActiveVoices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

// Stream implements beep.Streamer: the mix of every live voice, mono into
// both channels. It always fills the whole buffer and never ends.
func (e *Engine) Stream(samples [][2]float64) (n int, ok bool) {
	e.mu.Lock()
	e.active = e.active[:0]
	for _, v := range e.voices {
		e.active = append(e.active, v)
	}
	e.mu.Unlock()

	for i := range samples {
		samples[i][0] = 0
		samples[i][1] = 0
	}

	sr := int(e.sampleRate)
	for _, v := range e.active {
		if !v.done(sr) {
			for i := range samples {
				s := v.sample(sr)
				samples[i][0] += s
				samples[i][1] += s
			}
		}
		if v.done(sr) && !v.handedOff {
			// non-blocking handoff; a full channel retries next buffer
			select {
			case e.retired <- v:
				v.handedOff = true
			default:
			}
		}
	}

	return len(samples), true
}

func (e *Engine) Err() error { return nil }

// reap deletes finished voices off the stream goroutine. A voice is only
// removed if the table still maps its id to it; a re-trigger may have
// replaced it already.
func (e *Engine) reap() {
	for {
		select {
		case v := <-e.retired:
			e.mu.Lock()
			if cur, ok := e.voices[v.id]; ok && cur == v {
				delete(e.voices, v.id)
			}
			e.mu.Unlock()
		case <-e.quit:
			return
		}
	}
}
