// Package countup animates a displayed number from its current value to a
// target with a cubic ease-out.
//
// Animator is the pure state machine: callers feed it configuration
// changes through Drive and timestamps through Step, from whatever
// scheduling context they have. Driver wraps an Animator with a
// clock-paced frame loop.
package countup

import (
	"math"
	"time"
)

// DefaultDuration is the animation length used when none is configured.
const DefaultDuration = 1000 * time.Millisecond

// State is the animator lifecycle state.
type State int

const (
	Idle State = iota
	Animating
	Settled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Animating:
		return "animating"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Animator holds the state of one animated display. The zero value is an
// idle animator showing 0. It is not safe for concurrent use.
type Animator struct {
	value       float64
	startValue  float64
	target      float64
	startedAt   time.Time
	duration    time.Duration
	hasAnimated bool
	state       State
}

// New returns an idle animator.
func New() *Animator {
	return &Animator{duration: DefaultDuration}
}

// Drive applies a new configuration at now and reports whether frames must
// be scheduled. A non-positive or non-finite target resets the display to
// 0. Disabling freezes the display where it is. Enabling starts a new
// animation on first activation, on a changed target, or when the previous
// one never settled; it starts from the displayed value when that is
// positive.
func (a *Animator) Drive(target float64, duration time.Duration, enabled bool, now time.Time) bool {
	target = normalize(target)
	a.duration = duration

	if target <= 0 {
		a.value = 0
		a.startValue = 0
		a.target = 0
		a.state = Idle
		return false
	}

	if !enabled {
		if a.state == Animating {
			a.state = Idle
		}
		return false
	}

	if a.hasAnimated && target == a.target && a.state == Settled {
		return false
	}

	a.startValue = 0
	if a.value > 0 {
		a.startValue = a.value
	}
	a.target = target
	a.startedAt = now
	a.hasAnimated = true
	a.state = Animating
	return true
}

// Step advances the animation to now and returns the displayed value and
// whether further frames are needed. Outside Animating it only reports the
// current value.
func (a *Animator) Step(now time.Time) (float64, bool) {
	if a.state != Animating {
		return a.value, false
	}

	progress := 1.0
	if a.duration > 0 {
		progress = math.Min(float64(now.Sub(a.startedAt))/float64(a.duration), 1)
	}
	if progress >= 1 {
		a.value = a.target
		a.state = Settled
		return a.value, false
	}
	if progress < 0 {
		progress = 0
	}

	a.value = math.Floor(a.startValue + (a.target-a.startValue)*easeOutCubic(progress))
	return a.value, true
}

// Value returns the displayed value.
func (a *Animator) Value() float64 { return a.value }

// Target returns the last accepted target.
func (a *Animator) Target() float64 { return a.target }

// StartValue returns the value the current animation started from.
func (a *Animator) StartValue() float64 { return a.startValue }

// State returns the lifecycle state.
func (a *Animator) State() State { return a.state }

func easeOutCubic(p float64) float64 {
	return 1 - math.Pow(1-p, 3)
}

func normalize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
