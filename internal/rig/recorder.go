package rig

import "dice-miniapp-backend/internal/physics"

// baseFrameMillis is the recorded timeline's frame spacing before speed
// compression, one display refresh at 60Hz.
const baseFrameMillis = 1000.0 / 60.0

// Recorder samples a die roster once per shadow physics step into a frame
// sequence with synthetic timestamps. Timestamps advance by
// frameIndex * (1000/60) * speedMultiplier so replay timing matches the
// compressed shadow pacing rather than wall-clock capture time.
type Recorder struct {
	frames    []Frame
	recording bool
	speed     float64
}

// NewRecorder creates a recorder for the given shadow speed multiplier.
func NewRecorder(speedMultiplier float64) *Recorder {
	if speedMultiplier <= 0 {
		speedMultiplier = 1
	}
	return &Recorder{speed: speedMultiplier}
}

// Start clears the buffer and arms capture.
func (r *Recorder) Start() {
	r.frames = nil
	r.recording = true
}

// Stop disarms capture. Frames already captured remain available.
func (r *Recorder) Stop() {
	r.recording = false
}

// Recording reports whether capture is armed.
func (r *Recorder) Recording() bool {
	return r.recording
}

// Capture appends one frame sampling every body in the roster. No-op while
// disarmed.
func (r *Recorder) Capture(roster []*physics.Body) {
	if !r.recording {
		return
	}

	dice := make([]DieState, len(roster))
	for i, b := range roster {
		dice[i] = CaptureDieState(b)
	}

	r.frames = append(r.frames, Frame{
		Timestamp: float64(len(r.frames)) * baseFrameMillis * r.speed,
		Dice:      dice,
	})
}

// Frames returns the captured sequence.
func (r *Recorder) Frames() []Frame {
	return r.frames
}

// FrameMillis returns the spacing between captured timestamps.
func (r *Recorder) FrameMillis() float64 {
	return baseFrameMillis * r.speed
}
