// Package rig implements the dice-roll pre-computation pipeline: a hidden
// shadow simulation rolls the dice ahead of time, a recorder captures the
// trajectory frame by frame, the rigging engine optionally rewrites the
// trajectory so the dice settle on operator-chosen faces, and the playback
// driver replays the result onto the visible roster.
package rig

import (
	"dice-miniapp-backend/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
)

// DieState is one die's kinematic snapshot at an instant. Immutable once
// recorded.
type DieState struct {
	Position        mgl64.Vec3 `json:"position"`
	Orientation     mgl64.Quat `json:"orientation"`
	Velocity        mgl64.Vec3 `json:"velocity"`
	AngularVelocity mgl64.Vec3 `json:"angular_velocity"`
}

// CaptureDieState snapshots a body's current kinematic state.
func CaptureDieState(b *physics.Body) DieState {
	return DieState{
		Position:        b.Position,
		Orientation:     b.Orientation,
		Velocity:        b.Velocity,
		AngularVelocity: b.AngularVelocity,
	}
}

// ApplyTo writes the snapshot back onto a body and wakes it.
func (s DieState) ApplyTo(b *physics.Body) {
	b.Position = s.Position
	b.Orientation = s.Orientation
	b.Velocity = s.Velocity
	b.AngularVelocity = s.AngularVelocity
	b.Wake()
}

// Frame is a timestamped snapshot of every die, index-aligned with the die
// roster. Timestamps are sequence-local milliseconds, not wall clock.
type Frame struct {
	Timestamp float64    `json:"timestamp"`
	Dice      []DieState `json:"dice"`
}

// Recording is an ordered, time-monotonic sequence of frames plus the final
// face values read off the last frame. A recording is created fresh for each
// shadow throw, rigged at most once, played back once and then discarded.
type Recording struct {
	Frames       []Frame `json:"frames"`
	FinalResults []int   `json:"final_results"`
	Complete     bool    `json:"complete"`

	IsRigged       bool  `json:"is_rigged,omitempty"`
	DesiredResults []int `json:"desired_results,omitempty"`
}

// DieCount returns the number of dice in the recording roster.
func (r *Recording) DieCount() int {
	return len(r.FinalResults)
}

// Empty reports whether the recording carries no frames. Callers treat an
// empty recording as "rigging unavailable, fall back to a direct throw."
func (r *Recording) Empty() bool {
	return len(r.Frames) == 0
}

// LastFrame returns the final frame, or nil for an empty recording.
func (r *Recording) LastFrame() *Frame {
	if len(r.Frames) == 0 {
		return nil
	}
	return &r.Frames[len(r.Frames)-1]
}

// Duration returns the recording's length in sequence milliseconds.
func (r *Recording) Duration() float64 {
	if last := r.LastFrame(); last != nil {
		return last.Timestamp
	}
	return 0
}

// Results returns the face values playback should report: the desired values
// when rigged, the natural outcome otherwise.
func (r *Recording) Results() []int {
	if r.IsRigged && len(r.DesiredResults) == len(r.FinalResults) {
		return r.DesiredResults
	}
	return r.FinalResults
}

// degenerateRecording builds the safe fallback returned when the shadow
// roster is unavailable: no frames, one default face per die.
func degenerateRecording(dieCount int) *Recording {
	results := make([]int, dieCount)
	for i := range results {
		results[i] = 1
	}
	return &Recording{FinalResults: results, Complete: true}
}
