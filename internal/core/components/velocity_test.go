package components

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVelocityImpulseAndSpeed(t *testing.T) {
	v := NewVelocity()
	require.True(t, v.IsStationary(0.001))

	v.ApplyImpulse(3, 4, 0)
	require.Equal(t, 5.0, v.Speed())
	require.False(t, v.IsStationary(0.001))

	dx, dy, dz := v.Direction()
	require.InDelta(t, 0.6, dx, 1e-9)
	require.InDelta(t, 0.8, dy, 1e-9)
	require.Equal(t, 0.0, dz)
}

func TestVelocityMaxSpeedClamp(t *testing.T) {
	v := NewVelocity()
	v.SetMaxSpeed(10)

	v.Set(30, 40, 0)
	require.InDelta(t, 10.0, v.Speed(), 1e-9)

	// lowering the cap re-clamps existing velocity
	v.SetMaxSpeed(5)
	require.InDelta(t, 5.0, v.Speed(), 1e-9)
}

func TestVelocityIntegrateConsumesAcceleration(t *testing.T) {
	v := NewVelocity()
	v.ApplyForce(10, 0, 0)

	v.Integrate(0.5)
	require.Equal(t, 5.0, v.VX())

	// force was consumed, a second step coasts
	v.Integrate(0.5)
	require.Equal(t, 5.0, v.VX())
}

func TestVelocityDamping(t *testing.T) {
	v := NewVelocity()
	v.Set(100, 0, 0)
	v.SetDamping(0.5)

	v.Integrate(1.0)
	require.InDelta(t, 50.0, v.VX(), 1e-9)

	v.Integrate(2.0)
	require.InDelta(t, 12.5, v.VX(), 1e-9)
}

func TestVelocityStopAndReset(t *testing.T) {
	v := NewVelocity()
	v.Set(1, 2, 3)
	v.SetAngular(math.Pi)
	v.ApplyForce(1, 1, 1)

	v.Stop()
	require.Equal(t, 0.0, v.Speed())
	require.Equal(t, 0.0, v.Angular())

	v.SetMaxSpeed(7)
	v.Reset()
	require.Equal(t, 0.0, v.MaxSpeed())
	require.True(t, v.IsValid())
}
