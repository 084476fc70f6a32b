package components

import (
	"fmt"
	"math"

	"github.com/helix-engine/helix/internal/core/component"
)

// PositionTypeID identifies the position component type.
var PositionTypeID = component.RegisterType("core.position", func() component.Component {
	return NewPosition(0, 0, 0)
})

// Position holds world-space coordinates plus rotation and scale. The
// previous coordinates are retained so movement systems can detect and
// consume change deltas per tick.
type Position struct {
	component.Base

	x, y, z  float64
	rotation float64
	scale    float64

	lastX, lastY, lastZ float64
}

// NewPosition builds a position component at the given coordinates.
func NewPosition(x, y, z float64) *Position {
	p := &Position{Base: component.NewBase()}
	p.x, p.y, p.z = x, y, z
	p.lastX, p.lastY, p.lastZ = x, y, z
	p.scale = 1
	return p
}

func (p *Position) TypeID() component.TypeID { return PositionTypeID }

func (p *Position) Reset() {
	p.ResetBase()
	p.x, p.y, p.z = 0, 0, 0
	p.rotation = 0
	p.scale = 1
	p.lastX, p.lastY, p.lastZ = 0, 0, 0
}

func (p *Position) Clone() component.Component {
	clone := *p
	clone.Base = p.CloneBase()
	return &clone
}

func (p *Position) IsValid() bool {
	for _, v := range [...]float64{p.x, p.y, p.z, p.rotation, p.scale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return p.scale > 0
}

func (p *Position) Size() int { return 8 * 8 }

// X returns the x coordinate.
func (p *Position) X() float64 { return p.x }

// Y returns the y coordinate.
func (p *Position) Y() float64 { return p.y }

// Z returns the z coordinate.
func (p *Position) Z() float64 { return p.z }

// Rotation returns the facing angle in radians.
func (p *Position) Rotation() float64 { return p.rotation }

// Scale returns the uniform scale factor.
func (p *Position) Scale() float64 { return p.scale }

// Set teleports to the given coordinates.
func (p *Position) Set(x, y, z float64) {
	p.x, p.y, p.z = x, y, z
	p.NotifyModified()
}

// Move offsets the coordinates by the given delta.
func (p *Position) Move(dx, dy, dz float64) {
	p.x += dx
	p.y += dy
	p.z += dz
	p.NotifyModified()
}

// SetRotation sets the facing angle in radians.
func (p *Position) SetRotation(radians float64) {
	p.rotation = radians
	p.NotifyModified()
}

// SetScale sets the uniform scale factor.
func (p *Position) SetScale(scale float64) {
	p.scale = scale
	p.NotifyModified()
}

// DistanceTo returns the euclidean distance to another position.
func (p *Position) DistanceTo(other *Position) float64 {
	dx := p.x - other.x
	dy := p.y - other.y
	dz := p.z - other.z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// HasMoved reports whether coordinates changed since the last call to
// CommitLastPosition.
func (p *Position) HasMoved() bool {
	return p.x != p.lastX || p.y != p.lastY || p.z != p.lastZ
}

// CommitLastPosition snapshots the current coordinates as the reference
// for the next HasMoved check.
func (p *Position) CommitLastPosition() {
	p.lastX, p.lastY, p.lastZ = p.x, p.y, p.z
}

func (p *Position) String() string {
	return fmt.Sprintf("Position{%.2f, %.2f, %.2f}", p.x, p.y, p.z)
}
