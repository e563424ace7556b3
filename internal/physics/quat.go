package physics

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Above this dot product the quaternions are close enough that the
	// standard slerp denominator becomes unstable; fall back to nlerp.
	nlerpDotThreshold = 0.9995

	// Maximum magnitude of an orienting angular impulse, keeps steering
	// from injecting unbounded spin.
	maxOrientingTorque = 12.0

	// Yaw jitter applied to landing orientations, ~22.5 degrees.
	maxLandingYawJitter = math.Pi / 8
)

// Slerp spherically interpolates between two unit quaternions, always along
// the shorter arc. t=0 returns a, t=1 returns b (up to quaternion sign).
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	dot := a.Dot(b)

	// Double-cover correction: q and -q are the same rotation, take the
	// shorter arc.
	if dot < 0 {
		b = b.Scale(-1)
		dot = -dot
	}

	// No defined rotation axis between identical orientations.
	if dot >= 1.0-1e-12 {
		return a
	}

	if dot >= nlerpDotThreshold {
		return a.Add(b.Sub(a).Scale(t)).Normalize()
	}

	theta0 := math.Acos(dot)
	theta := theta0 * t
	sinTheta0 := math.Sin(theta0)

	s0 := math.Sin(theta0-theta) / sinTheta0
	s1 := math.Sin(theta) / sinTheta0

	return a.Scale(s0).Add(b.Scale(s1)).Normalize()
}

// OrientingTorque computes an angular impulse that rotates current toward
// target: the axis-angle delta between the two orientations, scaled by
// angle*strength and clamped to a fixed ceiling. Returns the zero vector when
// the orientations already match.
func OrientingTorque(current, target mgl64.Quat, strength float64) mgl64.Vec3 {
	delta := target.Mul(current.Inverse()).Normalize()
	if delta.W < 0 {
		delta = delta.Scale(-1)
	}

	w := mgl64.Clamp(delta.W, -1, 1)
	angle := 2 * math.Acos(w)
	if angle < 1e-6 {
		return mgl64.Vec3{}
	}

	s := math.Sqrt(1 - w*w)
	if s < 1e-9 {
		return mgl64.Vec3{}
	}

	torque := delta.V.Mul(1 / s).Mul(angle * strength)
	if torque.Len() > maxOrientingTorque {
		torque = torque.Normalize().Mul(maxOrientingTorque)
	}

	return torque
}

// LandingOrientationFor returns an orientation that leaves the requested face
// showing after a straight drop: the opposite face's normal is aligned with
// world-down, composed with a small random yaw about world-up so repeated
// riggings of the same value do not land identically.
func LandingOrientationFor(face int, rng *rand.Rand) mgl64.Quat {
	down := mgl64.Vec3{0, -1, 0}
	align := mgl64.QuatBetweenVectors(FaceNormal(OppositeFace(face)), down)

	yaw := 0.0
	if rng != nil {
		yaw = (rng.Float64()*2 - 1) * maxLandingYawJitter
	}

	return mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0}).Mul(align).Normalize()
}
