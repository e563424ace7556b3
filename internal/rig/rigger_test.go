package rig_test

import (
	"math"
	"math/rand"
	"testing"

	"dice-miniapp-backend/internal/physics"
	"dice-miniapp-backend/internal/rig"

	"github.com/go-gl/mathgl/mgl64"
)

// syntheticArc builds a plausible natural recording: dice launch, rise to a
// peak around frame 30, descend, and only drop below the settle speed in the
// last handful of frames.
func syntheticArc(frameCount, dieCount int) *rig.Recording {
	frames := make([]rig.Frame, frameCount)

	for i := 0; i < frameCount; i++ {
		height := 0.5
		if i <= 60 {
			off := float64(i-30) / 30
			if h := 0.5 + 6*(1-off*off); h > height {
				height = h
			}
		}

		speed := 3.0
		if i >= frameCount-8 {
			speed = 3.0 * float64(frameCount-1-i) / 8
		}

		dice := make([]rig.DieState, dieCount)
		for d := 0; d < dieCount; d++ {
			dice[d] = rig.DieState{
				Position:        mgl64.Vec3{float64(d) * 1.5, height, 0},
				Orientation:     mgl64.QuatRotate(0.05*float64(i+d), mgl64.Vec3{0, 1, 0}).Normalize(),
				Velocity:        mgl64.Vec3{0, -speed, 0},
				AngularVelocity: mgl64.Vec3{0, 0, speed},
			}
		}

		frames[i] = rig.Frame{Timestamp: float64(i) * 100, Dice: dice}
	}

	results := make([]int, dieCount)
	last := frames[frameCount-1]
	for d := range results {
		results[d] = physics.FaceUp(last.Dice[d].Orientation)
	}

	return &rig.Recording{Frames: frames, FinalResults: results, Complete: true}
}

func assertStrictlyIncreasing(t *testing.T, frames []rig.Frame) {
	t.Helper()
	for i := 1; i < len(frames); i++ {
		if frames[i].Timestamp <= frames[i-1].Timestamp {
			t.Fatalf("frame %d timestamp %v not after %v", i, frames[i].Timestamp, frames[i-1].Timestamp)
		}
	}
}

func newTestRigger() *rig.Rigger {
	return rig.NewRigger(rig.DefaultRigConfig(), rand.New(rand.NewSource(1)))
}

func TestRig_TripleSix(t *testing.T) {
	natural := syntheticArc(120, 3)
	desired := []int{6, 6, 6}

	rigged := newTestRigger().Rig(natural, desired)

	if !rigged.IsRigged {
		t.Fatal("recording should be marked rigged")
	}
	if len(rigged.FinalResults) != 3 {
		t.Fatalf("final results length = %d, want 3", len(rigged.FinalResults))
	}
	for i, v := range rigged.FinalResults {
		if v != 6 {
			t.Errorf("die %d final result = %d, want 6", i, v)
		}
	}

	if len(rigged.Frames) < len(natural.Frames) {
		t.Errorf("rigged frame count %d < natural %d, transition frames should be appended",
			len(rigged.Frames), len(natural.Frames))
	}

	assertStrictlyIncreasing(t, rigged.Frames)

	// The last frame must actually show the desired faces and be at rest.
	last := rigged.LastFrame()
	for d, st := range last.Dice {
		if got := physics.FaceUp(st.Orientation); got != 6 {
			t.Errorf("die %d settles showing %d, want 6", d, got)
		}
		if st.Velocity.Len() > 1e-9 || st.AngularVelocity.Len() > 1e-9 {
			t.Errorf("die %d not at rest: vel %v angVel %v", d, st.Velocity, st.AngularVelocity)
		}
	}
}

func TestRig_PreservesNaturalOpening(t *testing.T) {
	natural := syntheticArc(120, 2)
	rigged := newTestRigger().Rig(natural, []int{3, 5})

	// The throw and early flight stay physically untouched: the opening
	// frames of the rigged recording are the natural ones, verbatim.
	checked := 0
	for i := 0; i < len(rigged.Frames) && i < len(natural.Frames); i++ {
		same := true
		for d := range natural.Frames[i].Dice {
			a, b := natural.Frames[i].Dice[d], rigged.Frames[i].Dice[d]
			if a.Position != b.Position || math.Abs(a.Orientation.Dot(b.Orientation)) < 1-1e-12 {
				same = false
			}
		}
		if !same {
			break
		}
		checked++
	}

	if checked == 0 {
		t.Error("expected an untouched pre-influence segment at the start")
	}
	if checked == len(rigged.Frames) {
		t.Error("entire recording identical, rigging had no effect")
	}
}

func TestRig_ShortRecordingPassesThrough(t *testing.T) {
	short := syntheticArc(5, 3)
	out := newTestRigger().Rig(short, []int{6, 6, 6})

	if out != short {
		t.Fatal("short recording should pass through unmodified")
	}
	if out.IsRigged {
		t.Error("short recording must not be marked rigged")
	}
	if len(out.Frames) != 5 {
		t.Errorf("frame count changed to %d", len(out.Frames))
	}
}

func TestRig_EmptyDesiredPassesThrough(t *testing.T) {
	natural := syntheticArc(120, 2)
	wantResults := append([]int(nil), natural.FinalResults...)

	out := newTestRigger().Rig(natural, nil)

	if out != natural {
		t.Fatal("empty desired results should pass the recording through")
	}
	if out.IsRigged {
		t.Error("pass-through must not mark the recording rigged")
	}
	for i, v := range out.FinalResults {
		if v != wantResults[i] {
			t.Errorf("final result %d changed: %d != %d", i, v, wantResults[i])
		}
	}
}

func TestRig_InvalidRequestsRejected(t *testing.T) {
	rigger := newTestRigger()

	tests := []struct {
		name    string
		desired []int
	}{
		{"wrong die count", []int{6, 6}},
		{"face too high", []int{6, 6, 7}},
		{"face too low", []int{0, 6, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			natural := syntheticArc(120, 3)
			out := rigger.Rig(natural, tt.desired)
			if out != natural || out.IsRigged {
				t.Errorf("%v should be rejected without partial rigging", tt.desired)
			}
		})
	}
}

func TestRig_EveryFaceValueLands(t *testing.T) {
	rigger := newTestRigger()

	for face := 1; face <= 6; face++ {
		natural := syntheticArc(120, 1)
		rigged := rigger.Rig(natural, []int{face})

		if got := physics.FaceUp(rigged.LastFrame().Dice[0].Orientation); got != face {
			t.Errorf("rigged to %d but die shows %d", face, got)
		}
		if rigged.FinalResults[0] != face {
			t.Errorf("final result = %d, want %d", rigged.FinalResults[0], face)
		}
	}
}

func TestRig_DesiredResultsStored(t *testing.T) {
	natural := syntheticArc(120, 2)
	desired := []int{2, 5}

	rigged := newTestRigger().Rig(natural, desired)

	// The stored copy must not alias the caller's slice.
	desired[0] = 4
	if rigged.DesiredResults[0] != 2 {
		t.Error("rigged recording aliases the caller's desired slice")
	}
	if rigged.Results()[0] != 2 || rigged.Results()[1] != 5 {
		t.Errorf("Results() = %v, want [2 5]", rigged.Results())
	}
}
