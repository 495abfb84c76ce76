package sequencer

import (
	"sort"
	"sync"
	"time"

	"github.com/readsa/minipiano/src/synth"
	"github.com/readsa/minipiano/src/timing"
	"github.com/readsa/minipiano/src/util"
)

var logger = util.Logger{}.Ctx("sequencer")

// PlaybackState is a snapshot of the scheduler for presentation layers.
// Updates are best-effort: it is not guaranteed to reflect every
// intermediate tick.
type PlaybackState struct {
	Playing    bool
	Tick       int
	TotalTicks int
	Looping    bool
	Tempo      timing.Tempo
}

// Scheduler advances the musical timeline and drives the engine. Every
// timer fire recomputes the expected tick from elapsed wall-clock time
// rather than counting fires, so scheduling jitter never accumulates into
// tempo drift: a delayed fire simply catches up over the skipped tick range.
type Scheduler struct {
	// RowFrequency converts a note row to a frequency in Hz
	RowFrequency func(row int) float64

	sink NoteSink
	now  func() time.Time

	mu       sync.Mutex
	playing  bool
	looping  bool
	tempo    timing.Tempo
	playhead float64 // fractional ticks, authoritative while not playing
	total    int
	notes    []Note // kept sorted by StartTick
	run      *playbackRun

	updates chan int
}

// playbackRun is the immutable-snapshot side of one Play..Pause/Stop span.
// Snapshotting notes, tempo and length at Play keeps the timer goroutine
// from racing against live edits to the table.
type playbackRun struct {
	notes []Note
	tempo timing.Tempo
	total int
	stopc chan struct{}

	mu        sync.Mutex
	anchor    time.Time
	startTick float64
	lastTick  int
	timers    []*time.Timer
}

func (r *playbackRun) cancelTimers() {
	r.mu.Lock()
	timers := r.timers
	r.timers = nil
	r.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}

func (r *playbackRun) track(t *time.Timer) {
	r.mu.Lock()
	r.timers = append(r.timers, t)
	r.mu.Unlock()
}

// NewScheduler creates a stopped scheduler at 120 BPM driving the given sink
func NewScheduler(sink NoteSink) *Scheduler {
	return &Scheduler{
		RowFrequency: DefaultRowFrequency,
		sink:         sink,
		now:          time.Now,
		tempo:        120,
		updates:      make(chan int, 16),
	}
}

// SetNotes replaces the note table and the timeline length in ticks.
// Takes effect at the next Play; a running playback keeps its snapshot.
func (s *Scheduler) SetNotes(notes []Note, totalTicks int) {
	sorted := make([]Note, len(notes))
	copy(sorted, notes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartTick < sorted[j].StartTick })
	s.mu.Lock()
	s.notes = sorted
	s.total = totalTicks
	s.mu.Unlock()
}

// SetTempo sets the tempo in beats per minute for the next Play
func (s *Scheduler) SetTempo(t timing.Tempo) {
	s.mu.Lock()
	s.tempo = t
	s.mu.Unlock()
}

// SetLooping toggles loop-at-end. Read live, so it may be flipped mid-play.
func (s *Scheduler) SetLooping(loop bool) {
	s.mu.Lock()
	s.looping = loop
	s.mu.Unlock()
}

// Updates is a best-effort feed of tick positions. Sends never block; a slow
// reader just misses intermediate positions.
func (s *Scheduler) Updates() <-chan int {
	return s.updates
}

func (s *Scheduler) publish(tick int) {
	select {
	case s.updates <- tick:
	default:
	}
}

// State returns a consistent snapshot of the playback state
func (s *Scheduler) State() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := PlaybackState{
		Playing:    s.playing,
		TotalTicks: s.total,
		Looping:    s.looping,
		Tempo:      s.tempo,
	}
	if s.playing && s.run != nil {
		r := s.run
		r.mu.Lock()
		tick := int(r.startTick + r.tempo.TicksIn(s.now().Sub(r.anchor)))
		r.mu.Unlock()
		st.Tick = util.Min(tick, r.total)
	} else {
		st.Tick = int(s.playhead)
	}
	return st
}

// Play starts playback from the current playhead. No-op if already playing.
func (s *Scheduler) Play() {
	r, ok := s.start()
	if !ok {
		return
	}
	logger.Vol(util.Normal).Log("play from tick", r.lastTick, "of", r.total, "at", float64(r.tempo), "bpm")
	s.publish(r.lastTick)
	go s.tickLoop(r)
}

// start arms a playback run; separate from Play so tests can drive fires
// deterministically without the timer goroutine.
func (s *Scheduler) start() (*playbackRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		return nil, false
	}
	notes := make([]Note, len(s.notes))
	copy(notes, s.notes)
	r := &playbackRun{
		notes:     notes,
		tempo:     s.tempo,
		total:     s.total,
		stopc:     make(chan struct{}),
		anchor:    s.now(),
		startTick: s.playhead,
		lastTick:  int(s.playhead),
	}
	s.run = r
	s.playing = true
	return r, true
}

func (s *Scheduler) tickLoop(r *playbackRun) {
	ticker := time.NewTicker(r.tempo.TickDuration())
	defer ticker.Stop()
	for {
		select {
		case <-r.stopc:
			return
		case <-ticker.C:
			if !s.fire(r) {
				return
			}
		}
	}
}

// fire handles one timer fire: map elapsed wall-clock time to the expected
// tick, trigger everything in the elapsed range, and handle the end of the
// timeline. Returns false when playback is finished.
func (s *Scheduler) fire(r *playbackRun) bool {
	s.mu.Lock()
	if s.run != r {
		// a Pause or Stop won the race against this fire
		s.mu.Unlock()
		return false
	}
	looping := s.looping
	s.mu.Unlock()

	r.mu.Lock()
	expected := int(r.startTick + r.tempo.TicksIn(s.now().Sub(r.anchor)))
	last := r.lastTick
	r.mu.Unlock()

	if expected < r.total {
		// just after a loop wrap the catch-up may have processed further
		// ahead than the new anchor implies; never move lastTick backwards
		if expected > last {
			s.trigger(r, last, expected)
			r.mu.Lock()
			r.lastTick = expected
			r.mu.Unlock()
			s.publish(expected)
		}
		return true
	}

	// flush whatever is left before the boundary
	s.trigger(r, last, r.total)

	if !looping {
		s.mu.Lock()
		if s.run == r {
			s.run = nil
			s.playing = false
			s.playhead = 0
		}
		s.mu.Unlock()
		logger.Vol(util.Normal).Log("reached end of timeline, stopped")
		s.publish(0)
		return false
	}

	// loop wrap: cut the ringing voices, re-anchor at tick zero, then
	// immediately process whatever the fire overshot past the boundary so
	// no tick is skipped across the wrap
	s.sink.SilenceAll()
	r.cancelTimers()
	overshoot := expected - r.total
	r.mu.Lock()
	r.anchor = s.now()
	r.startTick = 0
	r.lastTick = 0
	r.mu.Unlock()
	if r.total > 0 {
		if wrapped := overshoot % r.total; wrapped > 0 {
			s.trigger(r, 0, wrapped)
			r.mu.Lock()
			r.lastTick = wrapped
			r.mu.Unlock()
		}
	}
	logger.Vol(util.Quiet).Log("looped, overshoot", overshoot, "ticks")
	s.publish(0)
	return true
}

// trigger begins every note with StartTick in [from, to) and schedules its
// release after the note's duration
func (s *Scheduler) trigger(r *playbackRun, from, to int) {
	for _, n := range r.notes {
		if n.StartTick >= to {
			break
		}
		if n.StartTick < from {
			continue
		}
		id := noteID(n)
		s.sink.SetWaveform(n.Timbre)
		s.sink.BeginNote(id, s.RowFrequency(n.Row))
		r.track(time.AfterFunc(r.tempo.DurationOf(n.DurationTicks), func() {
			s.sink.EndNote(id)
		}))
	}
}

// Pause stops the timer and captures the exact fractional tick from
// wall-clock time, so Play resumes time-accurately rather than from the last
// discrete tick processed. Active voices are silenced.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	r := s.run
	if !s.playing || r == nil {
		s.mu.Unlock()
		return
	}
	s.run = nil
	s.playing = false
	r.mu.Lock()
	playhead := r.startTick + r.tempo.TicksIn(s.now().Sub(r.anchor))
	r.mu.Unlock()
	if playhead > float64(r.total) {
		playhead = float64(r.total)
	}
	s.playhead = playhead
	s.mu.Unlock()

	close(r.stopc)
	r.cancelTimers()
	s.sink.SilenceAll()
	logger.Vol(util.Normal).Log("paused at tick", playhead)
	s.publish(int(playhead))
}

// Seek moves the playhead, clamped to [0, totalTicks]. While playing it
// restarts playback anchored at the new tick; otherwise it only moves the
// marker.
func (s *Scheduler) Seek(tick int) {
	s.mu.Lock()
	tick = util.Clamp(tick, 0, s.total)
	playing := s.playing
	s.mu.Unlock()

	if playing {
		s.Pause()
	}
	s.mu.Lock()
	s.playhead = float64(tick)
	s.mu.Unlock()
	logger.Vol(util.Quiet).Log("seek to tick", tick)
	s.publish(tick)
	if playing {
		s.Play()
	}
}

// Stop is Pause plus rewinding the playhead to zero
func (s *Scheduler) Stop() {
	s.Pause()
	s.mu.Lock()
	s.playhead = 0
	s.mu.Unlock()
	s.publish(0)
}

var _ NoteSink = (*synth.Engine)(nil)
