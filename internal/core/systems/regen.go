package systems

import (
	"github.com/helix-engine/helix/internal/core/components"
	"github.com/helix-engine/helix/internal/core/observability/log"
	"github.com/helix-engine/helix/internal/core/system"
)

// RegenName is the registered name of the regeneration system.
const RegenName = "regen"

// Regen advances health and shield recovery on a fixed interval rather
// than every tick. Each firing applies one interval's worth of regen and
// expires timed stat modifiers by the same amount.
type Regen struct {
	*system.Interval
}

// NewRegen builds the regeneration system firing every interval seconds.
func NewRegen(priority int, interval float64, logger log.Log) *Regen {
	cfg := system.IntervalConfig{Interval: interval}
	return &Regen{Interval: system.NewInterval(RegenName, priority, cfg, logger)}
}

func (r *Regen) Update(dt float64, world system.World) error {
	return r.Tick(dt, func() error {
		step := r.Step()

		for _, e := range world.Query().With(components.HealthTypeID).Execute() {
			if c, ok := world.Component(e.ID(), components.HealthTypeID); ok {
				c.(*components.Health).Update(step)
			}
		}
		for _, e := range world.Query().With(components.StatsTypeID).Execute() {
			if c, ok := world.Component(e.ID(), components.StatsTypeID); ok {
				c.(*components.Stats).Update(step)
			}
		}
		return nil
	})
}
