package physics

import "github.com/go-gl/mathgl/mgl64"

// BodyType represents the type of rigid body.
type BodyType int

const (
	// BodyDynamic bodies are affected by gravity, impulses and collisions.
	BodyDynamic BodyType = iota

	// BodyStatic bodies are frozen in place; playback finalization parks
	// settled dice as static.
	BodyStatic
)

// Body is one die in the simulation: a cube with position, orientation and
// linear/angular velocity, integrated by the owning World.
type Body struct {
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3

	Mass       float64
	HalfExtent float64

	Restitution    float64
	Friction       float64
	LinearDamping  float64
	AngularDamping float64

	Type     BodyType
	Sleeping bool

	sleepTimer float64
}

// NewDieBody creates a dynamic die body at the given position with the
// standard die material.
func NewDieBody(position mgl64.Vec3) *Body {
	return &Body{
		Position:       position,
		Orientation:    mgl64.QuatIdent(),
		Mass:           1.0,
		HalfExtent:     0.5,
		Restitution:    0.45,
		Friction:       0.3,
		LinearDamping:  0.05,
		AngularDamping: 0.1,
		Type:           BodyDynamic,
	}
}

// ApplyImpulse adds an instantaneous velocity change and wakes the body.
func (b *Body) ApplyImpulse(impulse mgl64.Vec3) {
	if b.Type != BodyDynamic {
		return
	}
	b.Wake()
	b.Velocity = b.Velocity.Add(impulse.Mul(1 / b.Mass))
}

// ApplyAngularImpulse adds an instantaneous angular velocity change.
func (b *Body) ApplyAngularImpulse(impulse mgl64.Vec3) {
	if b.Type != BodyDynamic {
		return
	}
	b.Wake()
	b.AngularVelocity = b.AngularVelocity.Add(impulse)
}

// Wake clears the sleeping state so the body integrates again.
func (b *Body) Wake() {
	b.Sleeping = false
	b.sleepTimer = 0
}

// Sleep stops the body and marks it at rest.
func (b *Body) Sleep() {
	b.Sleeping = true
	b.Velocity = mgl64.Vec3{}
	b.AngularVelocity = mgl64.Vec3{}
}

// Freeze parks the body as static at its current pose, zeroing all motion.
func (b *Body) Freeze() {
	b.Type = BodyStatic
	b.Sleep()
}

// Unfreeze returns a frozen body to the dynamic roster.
func (b *Body) Unfreeze() {
	b.Type = BodyDynamic
	b.Wake()
}

func (b *Body) trySleep(dt, velocityThreshold, timeThreshold float64) {
	if b.Velocity.Len() < velocityThreshold && b.AngularVelocity.Len() < velocityThreshold {
		b.sleepTimer += dt
		if b.sleepTimer >= timeThreshold {
			b.Sleep()
		}
	} else {
		b.sleepTimer = 0
	}
}
