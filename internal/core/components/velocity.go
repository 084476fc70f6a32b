package components

import (
	"fmt"
	"math"

	"github.com/helix-engine/helix/internal/core/component"
)

// VelocityTypeID identifies the velocity component type.
var VelocityTypeID = component.RegisterType("core.velocity", func() component.Component {
	return NewVelocity()
})

// Velocity holds linear and angular motion state. Acceleration is
// integrated into velocity each tick, then velocity is clamped to the
// maximum speed and damped.
type Velocity struct {
	component.Base

	vx, vy, vz float64
	ax, ay, az float64
	angular    float64

	maxSpeed float64
	// fraction of velocity retained per second, in [0, 1]
	damping float64
}

// NewVelocity builds a stationary velocity component with no speed cap.
func NewVelocity() *Velocity {
	v := &Velocity{Base: component.NewBase()}
	v.damping = 1
	return v
}

func (v *Velocity) TypeID() component.TypeID { return VelocityTypeID }

func (v *Velocity) Reset() {
	v.ResetBase()
	v.vx, v.vy, v.vz = 0, 0, 0
	v.ax, v.ay, v.az = 0, 0, 0
	v.angular = 0
	v.maxSpeed = 0
	v.damping = 1
}

func (v *Velocity) Clone() component.Component {
	clone := *v
	clone.Base = v.CloneBase()
	return &clone
}

func (v *Velocity) IsValid() bool {
	for _, f := range [...]float64{v.vx, v.vy, v.vz, v.ax, v.ay, v.az, v.angular} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return v.maxSpeed >= 0 && v.damping >= 0 && v.damping <= 1
}

func (v *Velocity) Size() int { return 8 * 9 }

// VX returns the x velocity.
func (v *Velocity) VX() float64 { return v.vx }

// VY returns the y velocity.
func (v *Velocity) VY() float64 { return v.vy }

// VZ returns the z velocity.
func (v *Velocity) VZ() float64 { return v.vz }

// Angular returns the angular velocity in radians per second.
func (v *Velocity) Angular() float64 { return v.angular }

// MaxSpeed returns the speed cap, zero meaning uncapped.
func (v *Velocity) MaxSpeed() float64 { return v.maxSpeed }

// Set replaces the linear velocity.
func (v *Velocity) Set(vx, vy, vz float64) {
	v.vx, v.vy, v.vz = vx, vy, vz
	v.clampSpeed()
	v.NotifyModified()
}

// SetAngular sets the angular velocity in radians per second.
func (v *Velocity) SetAngular(radians float64) {
	v.angular = radians
	v.NotifyModified()
}

// SetMaxSpeed sets the speed cap. Zero disables the cap.
func (v *Velocity) SetMaxSpeed(speed float64) {
	v.maxSpeed = max(0, speed)
	v.clampSpeed()
	v.NotifyModified()
}

// SetDamping sets the per-second velocity retention fraction.
func (v *Velocity) SetDamping(fraction float64) {
	v.damping = min(1, max(0, fraction))
	v.NotifyModified()
}

// ApplyImpulse adds directly to the velocity.
func (v *Velocity) ApplyImpulse(ix, iy, iz float64) {
	v.vx += ix
	v.vy += iy
	v.vz += iz
	v.clampSpeed()
	v.NotifyModified()
}

// ApplyForce adds to the acceleration, integrated on the next Integrate.
func (v *Velocity) ApplyForce(fx, fy, fz float64) {
	v.ax += fx
	v.ay += fy
	v.az += fz
	v.NotifyModified()
}

// Integrate advances velocity by dt seconds: acceleration is applied and
// consumed, the speed cap enforced, and damping applied.
func (v *Velocity) Integrate(dt float64) {
	v.vx += v.ax * dt
	v.vy += v.ay * dt
	v.vz += v.az * dt
	v.ax, v.ay, v.az = 0, 0, 0

	v.clampSpeed()

	if v.damping < 1 {
		factor := math.Pow(v.damping, dt)
		v.vx *= factor
		v.vy *= factor
		v.vz *= factor
	}
	v.NotifyModified()
}

// Stop zeroes all motion.
func (v *Velocity) Stop() {
	v.vx, v.vy, v.vz = 0, 0, 0
	v.ax, v.ay, v.az = 0, 0, 0
	v.angular = 0
	v.NotifyModified()
}

// Speed returns the linear speed magnitude.
func (v *Velocity) Speed() float64 {
	return math.Sqrt(v.vx*v.vx + v.vy*v.vy + v.vz*v.vz)
}

// IsStationary reports whether the speed is below the given epsilon.
func (v *Velocity) IsStationary(epsilon float64) bool {
	return v.Speed() < epsilon
}

// Direction returns the normalized velocity, or zeroes when stationary.
func (v *Velocity) Direction() (x, y, z float64) {
	speed := v.Speed()
	if speed == 0 {
		return 0, 0, 0
	}
	return v.vx / speed, v.vy / speed, v.vz / speed
}

func (v *Velocity) clampSpeed() {
	if v.maxSpeed <= 0 {
		return
	}
	speed := v.Speed()
	if speed > v.maxSpeed {
		scale := v.maxSpeed / speed
		v.vx *= scale
		v.vy *= scale
		v.vz *= scale
	}
}

func (v *Velocity) String() string {
	return fmt.Sprintf("Velocity{%.2f, %.2f, %.2f}", v.vx, v.vy, v.vz)
}
