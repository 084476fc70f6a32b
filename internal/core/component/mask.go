package component

import "math/bits"

// Mask is a 256-bit set over component TypeIDs, used by archetypes and
// queries for fast compatibility checks. TypeIDs above 255 fold into the
// mask modulo its width, which keeps the check conservative (possible false
// positives) and the exact membership test authoritative.
type Mask [4]uint64

// MaskOf builds a mask from the given type ids.
func MaskOf(ids ...TypeID) Mask {
	var m Mask
	for _, id := range ids {
		m.Set(id)
	}
	return m
}

func maskBit(id TypeID) (int, uint64) {
	bit := uint32(id) & 255
	return int(bit >> 6), 1 << (bit & 63)
}

// Set marks the bit for the given type id.
func (m *Mask) Set(id TypeID) {
	i, b := maskBit(id)
	m[i] |= b
}

// Unset clears the bit for the given type id.
func (m *Mask) Unset(id TypeID) {
	i, b := maskBit(id)
	m[i] &^= b
}

// Has reports whether the bit for the given type id is set.
func (m Mask) Has(id TypeID) bool {
	i, b := maskBit(id)
	return m[i]&b != 0
}

// ContainsAll reports whether every bit of sub is also set in m.
func (m Mask) ContainsAll(sub Mask) bool {
	return m[0]&sub[0] == sub[0] &&
		m[1]&sub[1] == sub[1] &&
		m[2]&sub[2] == sub[2] &&
		m[3]&sub[3] == sub[3]
}

// Intersects reports whether m and other share at least one bit.
func (m Mask) Intersects(other Mask) bool {
	return m[0]&other[0] != 0 ||
		m[1]&other[1] != 0 ||
		m[2]&other[2] != 0 ||
		m[3]&other[3] != 0
}

// IsEmpty reports whether no bit is set.
func (m Mask) IsEmpty() bool {
	return m[0] == 0 && m[1] == 0 && m[2] == 0 && m[3] == 0
}

// Cardinality returns the number of set bits.
func (m Mask) Cardinality() int {
	return bits.OnesCount64(m[0]) + bits.OnesCount64(m[1]) +
		bits.OnesCount64(m[2]) + bits.OnesCount64(m[3])
}
