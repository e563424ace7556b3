package rig

import (
	"fmt"
	"math/rand"
	"sync"

	"dice-miniapp-backend/internal/physics"
)

// Phase is the throw lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseShadowRunning
	PhasePlayingBack
	PhaseFinalizing
)

// ErrThrowInFlight is returned when a roll is requested while one is still
// playing; the request is a no-op, never queued.
var ErrThrowInFlight = fmt.Errorf("throw already in flight")

// Preset is the operator-facing rigging choice: whether rigging is enabled
// and the face value each die must land on.
type Preset struct {
	Enabled bool  `json:"enabled"`
	Faces   []int `json:"faces,omitempty"`
}

// Validate rejects presets whose faces do not match the roster or fall
// outside 1..6. Invalid values are rejected, not clamped.
func (p Preset) Validate(dieCount int) error {
	if !p.Enabled {
		return nil
	}
	if len(p.Faces) != dieCount {
		return fmt.Errorf("rig preset needs %d face values, got %d", dieCount, len(p.Faces))
	}
	for i, v := range p.Faces {
		if !physics.ValidFace(v) {
			return fmt.Errorf("rig preset face %d: value %d outside 1..6", i, v)
		}
	}
	return nil
}

// Session owns one user's dice setup end to end: the visible world and
// roster, the shadow roller, the rigging engine, the current playback, and
// the session-scoped rig preset. It replaces the ambient globals the front
// end revisions used.
type Session struct {
	mu sync.Mutex

	world   *physics.World
	visible []*physics.Body

	shadow *ShadowRoller
	rigger *Rigger

	preset   Preset
	player   *Player
	phase    Phase
	throwing bool
}

// NewSession builds a session with structurally identical visible and shadow
// rosters.
func NewSession(shadowCfg ShadowConfig, rigCfg RigConfig, rng *rand.Rand) *Session {
	s := &Session{
		world:  physics.NewWorld(),
		shadow: NewShadowRoller(shadowCfg),
		rigger: NewRigger(rigCfg, rng),
	}

	count := s.shadow.DieCount()
	for i := 0; i < count; i++ {
		b := physics.NewDieBody(s.shadow.idlePosition(i))
		s.world.AddBody(b)
		s.visible = append(s.visible, b)
	}

	return s
}

// DieCount returns the roster size.
func (s *Session) DieCount() int {
	return len(s.visible)
}

// Phase returns the current lifecycle state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetPreset validates and stores the rig preset. The preset is read fresh at
// rig time, so changing it while a shadow roll is in flight affects that
// roll.
func (s *Session) SetPreset(p Preset) error {
	if err := p.Validate(len(s.visible)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.preset = p
	s.preset.Faces = append([]int(nil), p.Faces...)
	return nil
}

// Preset returns the current rig preset.
func (s *Session) Preset() Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.preset
	out.Faces = append([]int(nil), s.preset.Faces...)
	return out
}

// Roll runs the full shadow-first throw: pre-compute, rig if the preset asks
// for it, and arm playback at nowMillis. Returns ErrThrowInFlight while a
// previous roll is still playing.
func (s *Session) Roll(strength float64, rng *rand.Rand, nowMillis float64) (*Recording, error) {
	s.mu.Lock()
	if s.throwing {
		s.mu.Unlock()
		return nil, ErrThrowInFlight
	}
	s.throwing = true
	s.phase = PhaseShadowRunning
	s.mu.Unlock()

	// The shadow roster starts each throw from wherever the visible dice
	// sit right now, so the pre-computed flight joins up with the scene.
	rec := s.shadow.Throw(strength, rng, s.VisibleStates())

	if rec.Empty() {
		// Shadow unavailable: fall back to throwing the visible dice
		// directly and synthesizing a recording from that run, so the
		// caller still gets a playable sequence.
		rec = s.directThrow(strength, rng)
	}

	// Read the preset at rig time, not at throw start; the operator's
	// choice may have changed while the shadow roll ran.
	preset := s.Preset()
	if preset.Enabled {
		rec = s.rigger.Rig(rec, preset.Faces)
	}

	s.mu.Lock()
	s.player = NewPlayer(rec, s.visible)
	s.player.Start(nowMillis)
	s.phase = PhasePlayingBack
	s.mu.Unlock()

	return rec, nil
}

// Tick advances the active playback. Returns the settled result exactly
// once, after which the session is idle and ready for the next roll.
func (s *Session) Tick(nowMillis float64) *PlaybackResult {
	s.mu.Lock()
	player := s.player
	s.mu.Unlock()

	if player == nil {
		return nil
	}

	result := player.Tick(nowMillis)
	if result == nil {
		return nil
	}

	s.mu.Lock()
	s.phase = PhaseFinalizing
	s.player = nil
	s.throwing = false
	s.phase = PhaseIdle
	s.mu.Unlock()

	return result
}

// Abort cancels an in-flight roll, releasing the reentrancy guard without
// reporting a result.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = nil
	s.throwing = false
	s.phase = PhaseIdle
}

// VisibleStates snapshots the visible roster, for streaming or seeding.
func (s *Session) VisibleStates() []DieState {
	out := make([]DieState, len(s.visible))
	for i, b := range s.visible {
		out[i] = CaptureDieState(b)
	}
	return out
}

// directThrow is the degraded path when the shadow world is unavailable:
// run the same impulse profile on the visible roster and record it there.
func (s *Session) directThrow(strength float64, rng *rand.Rand) *Recording {
	cfg := DefaultShadowConfig()
	cfg.DieCount = len(s.visible)
	fallback := NewShadowRoller(cfg)
	rec := fallback.Throw(strength, rng, s.VisibleStates())
	return rec
}
