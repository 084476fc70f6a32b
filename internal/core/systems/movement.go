// Package systems provides the stock simulation systems that run against
// the gameplay components: movement integration and health regeneration.
package systems

import (
	"github.com/helix-engine/helix/internal/core/components"
	"github.com/helix-engine/helix/internal/core/observability/log"
	"github.com/helix-engine/helix/internal/core/system"
)

// MovementName is the registered name of the movement system.
const MovementName = "movement"

// Movement integrates velocity into position for every entity carrying
// both components. Acceleration and damping are folded into the velocity
// before the position advances.
type Movement struct {
	*system.Base

	moved uint64
}

// NewMovement builds the movement system at the given priority.
func NewMovement(priority int, logger log.Log) *Movement {
	return &Movement{Base: system.NewBase(MovementName, priority, logger)}
}

func (m *Movement) Update(dt float64, world system.World) error {
	return m.Execute(dt, func() error {
		entities := world.Query().
			With(components.PositionTypeID, components.VelocityTypeID).
			Execute()

		for _, e := range entities {
			pc, ok := world.Component(e.ID(), components.PositionTypeID)
			if !ok {
				continue
			}
			vc, ok := world.Component(e.ID(), components.VelocityTypeID)
			if !ok {
				continue
			}
			pos := pc.(*components.Position)
			vel := vc.(*components.Velocity)

			vel.Integrate(dt)
			if vel.Speed() == 0 && vel.Angular() == 0 {
				continue
			}

			pos.CommitLastPosition()
			pos.Move(vel.VX()*dt, vel.VY()*dt, vel.VZ()*dt)
			if vel.Angular() != 0 {
				pos.SetRotation(pos.Rotation() + vel.Angular()*dt)
			}
			m.moved++
		}
		return nil
	})
}

// Moved returns how many entity moves the system has applied in total.
func (m *Movement) Moved() uint64 { return m.moved }
