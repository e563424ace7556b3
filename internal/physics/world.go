// Package physics implements the compact rigid-body simulation the dice
// engine runs: cube bodies under gravity inside a walled tray, integrated at
// a fixed timestep, plus the quaternion and face-mapping utilities the
// rigging pipeline is built on.
package physics

import "github.com/go-gl/mathgl/mgl64"

// Bounds describes the static tray geometry: a floor at FloorY and four
// walls at +-Extent on X and Z.
type Bounds struct {
	FloorY float64
	Extent float64
}

// World steps a roster of die bodies under gravity with floor/wall collision.
type World struct {
	Gravity mgl64.Vec3
	Bodies  []*Body
	Bounds  Bounds

	SleepVelocityThreshold float64
	SleepTimeThreshold     float64
}

// NewWorld creates a world with the standard dice-tray setup.
func NewWorld() *World {
	return &World{
		Gravity: mgl64.Vec3{0, -20.0, 0},
		Bounds:  Bounds{FloorY: 0, Extent: 6.0},

		SleepVelocityThreshold: 0.08,
		SleepTimeThreshold:     0.4,
	}
}

// AddBody registers a body with the world.
func (w *World) AddBody(b *Body) {
	w.Bodies = append(w.Bodies, b)
}

// Step advances every awake dynamic body by dt seconds: gravity, damping,
// integration, then collision against the tray.
func (w *World) Step(dt float64) {
	for _, b := range w.Bodies {
		if b.Type != BodyDynamic || b.Sleeping {
			continue
		}

		b.Velocity = b.Velocity.Add(w.Gravity.Mul(dt))

		b.Velocity = b.Velocity.Mul(1 / (1 + b.LinearDamping*dt))
		b.AngularVelocity = b.AngularVelocity.Mul(1 / (1 + b.AngularDamping*dt))

		b.Position = b.Position.Add(b.Velocity.Mul(dt))
		w.integrateOrientation(b, dt)

		w.collideFloor(b)
		w.collideWalls(b)

		b.trySleep(dt, w.SleepVelocityThreshold, w.SleepTimeThreshold)
	}
}

func (w *World) integrateOrientation(b *Body, dt float64) {
	speed := b.AngularVelocity.Len()
	if speed < 1e-9 {
		return
	}
	axis := b.AngularVelocity.Mul(1 / speed)
	b.Orientation = mgl64.QuatRotate(speed*dt, axis).Mul(b.Orientation).Normalize()
}

func (w *World) collideFloor(b *Body) {
	bottom := b.Position.Y() - b.HalfExtent
	if bottom >= w.Bounds.FloorY {
		return
	}

	b.Position[1] = w.Bounds.FloorY + b.HalfExtent

	if b.Velocity.Y() < 0 {
		vy := -b.Velocity.Y() * b.Restitution
		// Kill micro-bounces so dice come to rest instead of buzzing.
		if vy < 0.3 {
			vy = 0
		}
		b.Velocity[1] = vy

		b.Velocity[0] *= 1 - b.Friction
		b.Velocity[2] *= 1 - b.Friction

		// Floor contact converts sliding into tumbling and bleeds spin.
		b.AngularVelocity = b.AngularVelocity.Mul(1 - b.Friction)
		b.AngularVelocity = b.AngularVelocity.Add(
			mgl64.Vec3{b.Velocity.Z(), 0, -b.Velocity.X()}.Mul(0.4))
	}
}

func (w *World) collideWalls(b *Body) {
	limit := w.Bounds.Extent - b.HalfExtent

	if b.Position.X() > limit {
		b.Position[0] = limit
		if b.Velocity.X() > 0 {
			b.Velocity[0] = -b.Velocity.X() * b.Restitution
		}
	} else if b.Position.X() < -limit {
		b.Position[0] = -limit
		if b.Velocity.X() < 0 {
			b.Velocity[0] = -b.Velocity.X() * b.Restitution
		}
	}

	if b.Position.Z() > limit {
		b.Position[2] = limit
		if b.Velocity.Z() > 0 {
			b.Velocity[2] = -b.Velocity.Z() * b.Restitution
		}
	} else if b.Position.Z() < -limit {
		b.Position[2] = -limit
		if b.Velocity.Z() < 0 {
			b.Velocity[2] = -b.Velocity.Z() * b.Restitution
		}
	}
}
