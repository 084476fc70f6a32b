// Package components provides the stock gameplay components built on the
// core component contract: health, position, velocity, and derived stats.
package components

import (
	"fmt"
	"time"

	"github.com/helix-engine/helix/internal/core/component"
)

// HealthTypeID identifies the health component type.
var HealthTypeID = component.RegisterType("core.health", func() component.Component {
	return NewHealth(100, 0)
})

// Health tracks hit points and an optional shield layer. Damage is absorbed
// shield-first, scaled by the absorption factor, after the flat damage
// reduction has been applied.
type Health struct {
	component.Base

	current float64
	max     float64

	shield    float64
	maxShield float64

	regenRate       float64
	shieldRegenRate float64
	// seconds after the last damage before the shield starts regenerating
	shieldRegenDelay float64
	lastDamageAt     time.Time

	invincible     bool
	invincibleLeft float64

	// fraction of incoming damage ignored, in [0, 1]
	damageReduction float64
	// fraction of post-reduction damage the shield absorbs, in [0, 1]
	shieldAbsorption float64

	dead bool
}

// NewHealth builds a full-health component with the given maxima.
func NewHealth(maxHealth, maxShield float64) *Health {
	h := &Health{Base: component.NewBase()}
	h.applyDefaults(maxHealth, maxShield)
	return h
}

func (h *Health) applyDefaults(maxHealth, maxShield float64) {
	h.max = max(0, maxHealth)
	h.current = h.max
	h.maxShield = max(0, maxShield)
	h.shield = h.maxShield
	h.regenRate = 0
	h.shieldRegenRate = 0
	h.shieldRegenDelay = 3.0
	h.lastDamageAt = time.Now()
	h.invincible = false
	h.invincibleLeft = 0
	h.damageReduction = 0
	h.shieldAbsorption = 1.0
	h.dead = false
}

func (h *Health) TypeID() component.TypeID { return HealthTypeID }

func (h *Health) Reset() {
	h.ResetBase()
	h.applyDefaults(100, 0)
}

func (h *Health) Clone() component.Component {
	clone := *h
	clone.Base = h.CloneBase()
	return &clone
}

func (h *Health) IsValid() bool {
	return h.max >= 0 && h.current >= 0 && h.current <= h.max &&
		h.maxShield >= 0 && h.shield >= 0 && h.shield <= h.maxShield &&
		h.damageReduction >= 0 && h.damageReduction <= 1 &&
		h.shieldAbsorption >= 0 && h.shieldAbsorption <= 1
}

func (h *Health) Size() int { return 8*9 + 24 + 3 }

// Current returns the current hit points.
func (h *Health) Current() float64 { return h.current }

// Max returns the hit point ceiling.
func (h *Health) Max() float64 { return h.max }

// Shield returns the current shield value.
func (h *Health) Shield() float64 { return h.shield }

// MaxShield returns the shield ceiling.
func (h *Health) MaxShield() float64 { return h.maxShield }

// IsDead reports whether hit points have reached zero.
func (h *Health) IsDead() bool { return h.dead }

// IsInvincible reports whether damage is currently ignored.
func (h *Health) IsInvincible() bool { return h.invincible }

// HasShield reports whether any shield remains.
func (h *Health) HasShield() bool { return h.shield > 0 }

// Percentage returns current/max, or 0 for a zero maximum.
func (h *Health) Percentage() float64 {
	if h.max <= 0 {
		return 0
	}
	return h.current / h.max
}

// EffectiveHealth returns hit points plus shield.
func (h *Health) EffectiveHealth() float64 { return h.current + h.shield }

// IsFull reports whether both pools are at their ceiling.
func (h *Health) IsFull() bool { return h.current == h.max && h.shield == h.maxShield }

// IsInDanger reports whether the health fraction is below the threshold.
func (h *Health) IsInDanger(threshold float64) bool { return h.Percentage() < threshold }

// SetMax adjusts the hit point ceiling, clamping current down if needed.
func (h *Health) SetMax(maxHealth float64) {
	h.max = max(0, maxHealth)
	if h.current > h.max {
		h.current = h.max
	}
	h.NotifyModified()
}

// SetCurrent sets hit points, clamped to [0, max].
func (h *Health) SetCurrent(current float64) {
	h.current = min(h.max, max(0, current))
	h.updateDeathState()
	h.NotifyModified()
}

// SetMaxShield adjusts the shield ceiling, clamping the shield down if
// needed.
func (h *Health) SetMaxShield(maxShield float64) {
	h.maxShield = max(0, maxShield)
	if h.shield > h.maxShield {
		h.shield = h.maxShield
	}
	h.NotifyModified()
}

// SetShield sets the shield, clamped to [0, maxShield].
func (h *Health) SetShield(shield float64) {
	h.shield = min(h.maxShield, max(0, shield))
	h.NotifyModified()
}

// SetRegenRates configures passive recovery, in points per second.
func (h *Health) SetRegenRates(health, shield float64) {
	h.regenRate = health
	h.shieldRegenRate = shield
	h.NotifyModified()
}

// SetDamageReduction sets the flat incoming damage reduction fraction.
func (h *Health) SetDamageReduction(fraction float64) {
	h.damageReduction = min(1, max(0, fraction))
	h.NotifyModified()
}

// SetShieldAbsorption sets the fraction of damage the shield soaks.
func (h *Health) SetShieldAbsorption(fraction float64) {
	h.shieldAbsorption = min(1, max(0, fraction))
	h.NotifyModified()
}

// TakeDamage applies damage shield-first and returns the damage actually
// dealt after reduction. Zero while invincible or dead.
func (h *Health) TakeDamage(damage float64) float64 {
	if damage <= 0 || h.invincible || h.dead {
		return 0
	}

	actual := damage * (1 - h.damageReduction)
	total := actual

	if h.shield > 0 && h.shieldAbsorption > 0 {
		absorbed := min(h.shield, actual*h.shieldAbsorption)
		h.shield -= absorbed
		actual -= absorbed
	}
	if actual > 0 {
		h.current = max(0, h.current-actual)
	}

	h.lastDamageAt = time.Now()
	h.updateDeathState()
	h.NotifyModified()
	return total
}

// Heal restores hit points up to the ceiling and returns the amount
// actually restored. Dead entities cannot be healed.
func (h *Health) Heal(amount float64) float64 {
	if amount <= 0 || h.dead {
		return 0
	}
	before := h.current
	h.current = min(h.max, h.current+amount)
	restored := h.current - before
	if restored > 0 {
		h.NotifyModified()
	}
	return restored
}

// RestoreShield recovers shield up to the ceiling and returns the amount
// actually restored.
func (h *Health) RestoreShield(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	before := h.shield
	h.shield = min(h.maxShield, h.shield+amount)
	restored := h.shield - before
	if restored > 0 {
		h.NotifyModified()
	}
	return restored
}

// FullRestore refills both pools.
func (h *Health) FullRestore() {
	h.SetCurrent(h.max)
	h.SetShield(h.maxShield)
}

// SetInvincible grants damage immunity for the duration, in seconds.
func (h *Health) SetInvincible(duration float64) {
	h.invincible = true
	h.invincibleLeft = duration
	h.NotifyModified()
}

// RemoveInvincibility cancels damage immunity.
func (h *Health) RemoveInvincibility() {
	h.invincible = false
	h.invincibleLeft = 0
	h.NotifyModified()
}

// InstantKill drops both pools to zero, ignoring shield and invincibility.
func (h *Health) InstantKill() {
	h.current = 0
	h.shield = 0
	h.invincible = false
	h.invincibleLeft = 0
	h.updateDeathState()
	h.NotifyModified()
}

// Update advances invincibility and passive regeneration by dt seconds.
// The regen systems call it once per firing.
func (h *Health) Update(dt float64) {
	modified := false

	if h.invincible && h.invincibleLeft > 0 {
		h.invincibleLeft -= dt
		if h.invincibleLeft <= 0 {
			h.invincible = false
			h.invincibleLeft = 0
			modified = true
		}
	}

	if h.regenRate > 0 && h.current < h.max && !h.dead {
		before := h.current
		h.current = min(h.max, h.current+h.regenRate*dt)
		modified = modified || h.current != before
	}

	if h.shieldRegenRate > 0 && h.shield < h.maxShield {
		if time.Since(h.lastDamageAt).Seconds() >= h.shieldRegenDelay {
			before := h.shield
			h.shield = min(h.maxShield, h.shield+h.shieldRegenRate*dt)
			modified = modified || h.shield != before
		}
	}

	if modified {
		h.NotifyModified()
	}
}

func (h *Health) updateDeathState() {
	h.dead = h.current <= 0
}

func (h *Health) String() string {
	return fmt.Sprintf("Health{hp=%.1f/%.1f, shield=%.1f/%.1f, dead=%t}",
		h.current, h.max, h.shield, h.maxShield, h.dead)
}
