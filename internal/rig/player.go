package rig

import "dice-miniapp-backend/internal/physics"

// finalizeGraceMillis is how far past the last frame's timestamp playback
// runs before freezing the dice and reporting results.
const finalizeGraceMillis = 100.0

// PlaybackResult is the settled readout emitted exactly once per playback.
type PlaybackResult struct {
	Faces  []int
	Sum    int
	Rigged bool
}

// Player drives the visible roster through a recording by timestamp-based
// interpolation, decoupled from the physics step rate. It is advanced by an
// external Tick(now) and owns no scheduling of its own.
type Player struct {
	rec    *Recording
	roster []*physics.Body

	startMillis float64
	started     bool
	finalized   bool
	cursor      int
}

// NewPlayer creates a playback driver for one recording and roster. Each
// player instance consumes exactly one recording.
func NewPlayer(rec *Recording, roster []*physics.Body) *Player {
	return &Player{rec: rec, roster: roster}
}

// Start arms playback at the given clock reading (milliseconds).
func (p *Player) Start(nowMillis float64) {
	p.startMillis = nowMillis
	p.started = true
	p.finalized = false
	p.cursor = 0

	for _, b := range p.roster {
		b.Unfreeze()
	}
}

// Done reports whether playback has finalized.
func (p *Player) Done() bool {
	return p.finalized
}

// Tick advances playback to the given clock reading. It writes the
// interpolated per-die state onto the visible roster each call and returns a
// non-nil result exactly once, when the sequence is exhausted past the grace
// window.
func (p *Player) Tick(nowMillis float64) *PlaybackResult {
	if !p.started || p.finalized {
		return nil
	}

	frames := p.rec.Frames
	if len(frames) == 0 {
		return p.finalize()
	}

	elapsed := nowMillis - p.startMillis
	last := frames[len(frames)-1]

	if elapsed > last.Timestamp+finalizeGraceMillis {
		p.applyFrame(&last)
		return p.finalize()
	}

	frame := p.InterpolatedAt(elapsed)
	p.applyFrame(&frame)
	return nil
}

// InterpolatedAt computes the frame for a sequence-local elapsed time:
// linear interpolation for position and velocities, slerp for orientation,
// clamped to the first/last frame outside the recorded range.
func (p *Player) InterpolatedAt(elapsedMillis float64) Frame {
	frames := p.rec.Frames

	if elapsedMillis <= frames[0].Timestamp {
		return frames[0]
	}
	if elapsedMillis >= frames[len(frames)-1].Timestamp {
		return frames[len(frames)-1]
	}

	// Timestamps are monotonic, so resume the scan from the last bracket.
	if p.cursor >= len(frames)-1 || frames[p.cursor].Timestamp > elapsedMillis {
		p.cursor = 0
	}
	for p.cursor < len(frames)-2 && frames[p.cursor+1].Timestamp <= elapsedMillis {
		p.cursor++
	}

	a := &frames[p.cursor]
	b := &frames[p.cursor+1]

	span := b.Timestamp - a.Timestamp
	t := 0.0
	if span > 0 {
		t = (elapsedMillis - a.Timestamp) / span
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	out := Frame{Timestamp: elapsedMillis, Dice: make([]DieState, len(a.Dice))}
	for i := range a.Dice {
		sa, sb := a.Dice[i], b.Dice[i]
		out.Dice[i] = DieState{
			Position:        sa.Position.Add(sb.Position.Sub(sa.Position).Mul(t)),
			Orientation:     physics.Slerp(sa.Orientation, sb.Orientation, t),
			Velocity:        sa.Velocity.Add(sb.Velocity.Sub(sa.Velocity).Mul(t)),
			AngularVelocity: sa.AngularVelocity.Add(sb.AngularVelocity.Sub(sa.AngularVelocity).Mul(t)),
		}
	}

	return out
}

func (p *Player) applyFrame(f *Frame) {
	for i, b := range p.roster {
		if i >= len(f.Dice) {
			break
		}
		f.Dice[i].ApplyTo(b)
	}
}

func (p *Player) finalize() *PlaybackResult {
	p.finalized = true

	for _, b := range p.roster {
		b.Freeze()
	}

	faces := append([]int(nil), p.rec.Results()...)
	sum := 0
	for _, f := range faces {
		sum += f
	}

	return &PlaybackResult{Faces: faces, Sum: sum, Rigged: p.rec.IsRigged}
}
