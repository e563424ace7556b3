package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const quatTolerance = 1e-9

func quatsEqual(a, b mgl64.Quat, tol float64) bool {
	return math.Abs(a.W-b.W) < tol &&
		math.Abs(a.X()-b.X()) < tol &&
		math.Abs(a.Y()-b.Y()) < tol &&
		math.Abs(a.Z()-b.Z()) < tol
}

// sameRotation compares quaternions as rotations, i.e. up to sign.
func sameRotation(a, b mgl64.Quat, tol float64) bool {
	return math.Abs(math.Abs(a.Dot(b))-1) < tol
}

func TestSlerp_Boundaries(t *testing.T) {
	a := mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0}.Normalize())
	b := mgl64.QuatRotate(1.9, mgl64.Vec3{1, 0, 1}.Normalize())

	if got := Slerp(a, b, 0); !quatsEqual(got, a, 1e-9) {
		t.Errorf("Slerp(a, b, 0) = %v, want a = %v", got, a)
	}
	if got := Slerp(a, b, 1); !sameRotation(got, b, 1e-9) {
		t.Errorf("Slerp(a, b, 1) = %v, want b = %v", got, b)
	}
}

func TestSlerp_IdenticalInputs(t *testing.T) {
	a := mgl64.QuatRotate(2.1, mgl64.Vec3{1, 2, 3}.Normalize())

	for _, tt := range []float64{0, 0.25, 0.5, 0.75, 1} {
		if got := Slerp(a, a, tt); !quatsEqual(got, a, quatTolerance) {
			t.Errorf("Slerp(a, a, %.2f) = %v, want a unchanged", tt, got)
		}
	}
}

func TestSlerp_NearlyIdenticalUsesNlerp(t *testing.T) {
	a := mgl64.QuatRotate(0.5, mgl64.Vec3{0, 1, 0})
	b := mgl64.QuatRotate(0.5001, mgl64.Vec3{0, 1, 0})

	got := Slerp(a, b, 0.5)
	if math.Abs(got.Len()-1) > 1e-9 {
		t.Errorf("nlerp fallback should return a unit quaternion, |q| = %v", got.Len())
	}
	if !sameRotation(got, mgl64.QuatRotate(0.50005, mgl64.Vec3{0, 1, 0}), 1e-6) {
		t.Errorf("nlerp fallback drifted: %v", got)
	}
}

func TestSlerp_ShortestArc(t *testing.T) {
	a := mgl64.QuatRotate(0.4, mgl64.Vec3{0, 1, 0})
	b := mgl64.QuatRotate(2.8, mgl64.Vec3{1, 0, 0})
	if a.Dot(b) > 0 {
		// Force a negative dot product so the correction path runs.
		b = b.Scale(-1)
	}
	neg := b.Scale(-1)

	for _, tt := range []float64{0.1, 0.3, 0.5, 0.9} {
		p := Slerp(a, b, tt)
		q := Slerp(a, neg, tt)
		if !sameRotation(p, q, 1e-9) {
			t.Errorf("t=%.1f: Slerp(a, b) and Slerp(a, -b) disagree: %v vs %v", tt, p, q)
		}
	}
}

func TestSlerp_ConstantAngularSpeed(t *testing.T) {
	a := mgl64.QuatIdent()
	b := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})

	mid := Slerp(a, b, 0.5)
	want := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0})
	if !sameRotation(mid, want, 1e-9) {
		t.Errorf("midpoint of 90 degree rotation = %v, want 45 degrees", mid)
	}
}

func TestOrientingTorque_ZeroWhenAligned(t *testing.T) {
	q := mgl64.QuatRotate(1.2, mgl64.Vec3{1, 1, 0}.Normalize())

	torque := OrientingTorque(q, q, 1.0)
	if torque.Len() > 1e-9 {
		t.Errorf("OrientingTorque(q, q) = %v, want zero vector", torque)
	}
}

func TestOrientingTorque_PointsAlongRotationAxis(t *testing.T) {
	current := mgl64.QuatIdent()
	target := mgl64.QuatRotate(1.0, mgl64.Vec3{0, 1, 0})

	torque := OrientingTorque(current, target, 1.0)
	if torque.Len() < 1e-6 {
		t.Fatal("expected a non-zero torque")
	}

	axis := torque.Normalize()
	if math.Abs(axis.Y()-1) > 1e-6 {
		t.Errorf("torque axis = %v, want +Y", axis)
	}
	if math.Abs(torque.Len()-1.0) > 1e-6 {
		t.Errorf("torque magnitude = %v, want angle*strength = 1.0", torque.Len())
	}
}

func TestOrientingTorque_ClampsMagnitude(t *testing.T) {
	current := mgl64.QuatIdent()
	target := mgl64.QuatRotate(3.0, mgl64.Vec3{1, 0, 0})

	torque := OrientingTorque(current, target, 100.0)
	if torque.Len() > maxOrientingTorque+1e-9 {
		t.Errorf("torque magnitude %v exceeds ceiling %v", torque.Len(), maxOrientingTorque)
	}
}

func TestLandingOrientationFor_ShowsRequestedFace(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for face := 1; face <= 6; face++ {
		for trial := 0; trial < 20; trial++ {
			q := LandingOrientationFor(face, rng)
			if got := FaceUp(q); got != face {
				t.Errorf("face %d trial %d: orientation shows %d", face, trial, got)
			}
		}
	}
}

func TestLandingOrientationFor_JitterVaries(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	a := LandingOrientationFor(6, rng)
	b := LandingOrientationFor(6, rng)
	if quatsEqual(a, b, 1e-12) {
		t.Error("expected yaw jitter to vary repeated landings of the same face")
	}
}
