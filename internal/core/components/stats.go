package components

import (
	"sort"

	"github.com/helix-engine/helix/internal/core/component"
)

// StatsTypeID identifies the stats component type.
var StatsTypeID = component.RegisterType("core.stats", func() component.Component {
	return NewStats()
})

// StatType names a numeric attribute a stats component can carry.
type StatType int

const (
	StatMaxHealth   StatType = 1
	StatHealthRegen StatType = 2
	StatMaxShield   StatType = 3
	StatShieldRegen StatType = 4

	StatAttackPower  StatType = 11
	StatAttackSpeed  StatType = 12
	StatCritChance   StatType = 13
	StatCritMultiple StatType = 14

	StatArmor           StatType = 21
	StatMagicResist     StatType = 22
	StatDamageReduction StatType = 23
	StatBlockChance     StatType = 24

	StatMoveSpeed    StatType = 31
	StatJumpHeight   StatType = 32
	StatDashDistance StatType = 33
	StatDashCooldown StatType = 34
)

// ModifierKind determines how a modifier combines into the final value.
// Kinds apply in ascending order: flat set, flat add, percent add, then
// percent multiply.
type ModifierKind int

const (
	ModifierFlatAdd ModifierKind = iota + 1
	ModifierPercentAdd
	ModifierPercentMultiply
	ModifierFlatSet
)

func (k ModifierKind) priority() int {
	switch k {
	case ModifierFlatSet:
		return 1
	case ModifierFlatAdd:
		return 2
	case ModifierPercentAdd:
		return 3
	case ModifierPercentMultiply:
		return 4
	default:
		return 5
	}
}

// Modifier is a named adjustment to a single stat. A non-positive
// duration means permanent.
type Modifier struct {
	ID       string
	Source   string
	Stat     StatType
	Kind     ModifierKind
	Value    float64
	duration float64
	elapsed  float64
}

// NewModifier builds a modifier that lasts for the given number of
// seconds, or forever when duration is non-positive.
func NewModifier(id, source string, stat StatType, kind ModifierKind, value, duration float64) Modifier {
	return Modifier{ID: id, Source: source, Stat: stat, Kind: kind, Value: value, duration: duration}
}

// Permanent reports whether the modifier never expires.
func (m Modifier) Permanent() bool { return m.duration <= 0 }

// Remaining returns the seconds left before expiry, or a negative value
// for permanent modifiers.
func (m Modifier) Remaining() float64 {
	if m.Permanent() {
		return -1
	}
	return max(0, m.duration-m.elapsed)
}

func (m Modifier) expired() bool {
	return !m.Permanent() && m.elapsed >= m.duration
}

// Stats carries base attribute values and a stack of modifiers. Final
// values are computed lazily and cached until the next mutation.
type Stats struct {
	component.Base

	base      map[StatType]float64
	modifiers []Modifier

	finals      map[StatType]float64
	finalsValid bool
}

// NewStats builds an empty stats component.
func NewStats() *Stats {
	return &Stats{
		Base:   component.NewBase(),
		base:   make(map[StatType]float64),
		finals: make(map[StatType]float64),
	}
}

func (s *Stats) TypeID() component.TypeID { return StatsTypeID }

func (s *Stats) Reset() {
	s.ResetBase()
	clear(s.base)
	clear(s.finals)
	s.modifiers = s.modifiers[:0]
	s.finalsValid = false
}

func (s *Stats) Clone() component.Component {
	clone := NewStats()
	for stat, v := range s.base {
		clone.base[stat] = v
	}
	clone.modifiers = append(clone.modifiers, s.modifiers...)
	return clone
}

func (s *Stats) IsValid() bool { return s.base != nil }

func (s *Stats) Size() int {
	return len(s.base)*16 + len(s.modifiers)*72 + 64
}

// BaseStat returns the unmodified value for the stat, zero if unset.
func (s *Stats) BaseStat(stat StatType) float64 { return s.base[stat] }

// SetBaseStat sets the unmodified value for the stat.
func (s *Stats) SetBaseStat(stat StatType, value float64) {
	s.base[stat] = value
	s.invalidate()
}

// FinalStat returns the stat value with all live modifiers applied,
// clamped to be non-negative.
func (s *Stats) FinalStat(stat StatType) float64 {
	if !s.finalsValid {
		s.recompute()
	}
	if v, ok := s.finals[stat]; ok {
		return v
	}
	return max(0, s.base[stat])
}

// AddModifier attaches a modifier. A modifier with the same ID replaces
// the existing one.
func (s *Stats) AddModifier(m Modifier) {
	for i := range s.modifiers {
		if s.modifiers[i].ID == m.ID {
			s.modifiers[i] = m
			s.invalidate()
			return
		}
	}
	s.modifiers = append(s.modifiers, m)
	s.invalidate()
}

// RemoveModifier detaches the modifier with the given ID and reports
// whether one was found.
func (s *Stats) RemoveModifier(id string) bool {
	for i := range s.modifiers {
		if s.modifiers[i].ID == id {
			s.modifiers = append(s.modifiers[:i], s.modifiers[i+1:]...)
			s.invalidate()
			return true
		}
	}
	return false
}

// RemoveModifiersBySource detaches every modifier from the given source
// and returns how many were removed.
func (s *Stats) RemoveModifiersBySource(source string) int {
	kept := s.modifiers[:0]
	removed := 0
	for _, m := range s.modifiers {
		if m.Source == source {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.modifiers = kept
	if removed > 0 {
		s.invalidate()
	}
	return removed
}

// Modifiers returns a copy of the live modifier stack.
func (s *Stats) Modifiers() []Modifier {
	out := make([]Modifier, len(s.modifiers))
	copy(out, s.modifiers)
	return out
}

// Update advances modifier lifetimes by dt seconds and drops expired
// ones.
func (s *Stats) Update(dt float64) {
	kept := s.modifiers[:0]
	dropped := 0
	for _, m := range s.modifiers {
		if !m.Permanent() {
			m.elapsed += dt
		}
		if m.expired() {
			dropped++
			continue
		}
		kept = append(kept, m)
	}
	s.modifiers = kept
	if dropped > 0 {
		s.invalidate()
	}
}

func (s *Stats) invalidate() {
	s.finalsValid = false
	s.NotifyModified()
}

func (s *Stats) recompute() {
	clear(s.finals)

	byStat := make(map[StatType][]Modifier, len(s.modifiers))
	for _, m := range s.modifiers {
		byStat[m.Stat] = append(byStat[m.Stat], m)
	}

	for stat, base := range s.base {
		s.finals[stat] = applyModifiers(base, byStat[stat])
	}
	for stat, mods := range byStat {
		if _, ok := s.base[stat]; !ok {
			s.finals[stat] = applyModifiers(0, mods)
		}
	}
	s.finalsValid = true
}

// applyModifiers folds modifiers into a base value. A flat set replaces
// the base and discards everything accumulated before it.
func applyModifiers(base float64, mods []Modifier) float64 {
	sort.SliceStable(mods, func(i, j int) bool {
		return mods[i].Kind.priority() < mods[j].Kind.priority()
	})

	flatAdd := 0.0
	percentAdd := 0.0
	percentMultiply := 1.0
	for _, m := range mods {
		switch m.Kind {
		case ModifierFlatSet:
			base = m.Value
			flatAdd = 0
			percentAdd = 0
			percentMultiply = 1
		case ModifierFlatAdd:
			flatAdd += m.Value
		case ModifierPercentAdd:
			percentAdd += m.Value
		case ModifierPercentMultiply:
			percentMultiply *= m.Value
		}
	}

	return max(0, (base+flatAdd)*(1+percentAdd/100)*percentMultiply)
}
