// Package contextmap records, per output pixel, which exposures deposited
// weight there. Ordinals are packed into 32-bit planes; plane n holds
// ordinals 32n..32n+31.
package contextmap

import(
	"fmt"
	"math/bits"
)

const PlaneBits = 32

type Map struct {
	w, h   int
	planes [][]uint32
}

func New(w, h int) *Map {
	return &Map{w: w, h: h}
}

func (m *Map)Dx() int         { return m.w }
func (m *Map)Dy() int         { return m.h }
func (m *Map)NumPlanes() int  { return len(m.planes) }
func (m *Map)String() string  { return fmt.Sprintf("context[%dx%d, %d planes]", m.w, m.h, len(m.planes)) }

// Plane returns the raw bits of plane i, row-major. Callers must not modify it.
func (m *Map)Plane(i int) []uint32 { return m.planes[i] }

func split(ordinal int) (int, uint32) {
	return ordinal / PlaneBits, uint32(1) << uint(ordinal%PlaneBits)
}

// Grow makes sure a plane exists for the ordinal.
func (m *Map)Grow(ordinal int) error {
	if ordinal < 0 {
		return fmt.Errorf("context ordinal %d is negative", ordinal)
	}
	plane, _ := split(ordinal)
	for len(m.planes) <= plane {
		m.planes = append(m.planes, make([]uint32, m.w*m.h))
	}
	return nil
}

func (m *Map)SetBit(x, y, ordinal int) error {
	if err := m.Grow(ordinal); err != nil {
		return err
	}
	plane, bit := split(ordinal)
	m.planes[plane][y*m.w + x] |= bit
	return nil
}

// TestBit is false for ordinals that never had a plane allocated.
func (m *Map)TestBit(x, y, ordinal int) bool {
	if ordinal < 0 {
		return false
	}
	plane, bit := split(ordinal)
	if plane >= len(m.planes) {
		return false
	}
	return m.planes[plane][y*m.w + x] & bit != 0
}

// Count is the number of exposures that contributed to (x,y).
func (m *Map)Count(x, y int) int {
	n := 0
	for _, p := range m.planes {
		n += bits.OnesCount32(p[y*m.w + x])
	}
	return n
}

// Contributors lists the ordinals set at (x,y), ascending.
func (m *Map)Contributors(x, y int) []int {
	ret := []int{}
	for i, p := range m.planes {
		v := p[y*m.w + x]
		for v != 0 {
			b := bits.TrailingZeros32(v)
			ret = append(ret, i*PlaneBits + b)
			v &^= uint32(1) << uint(b)
		}
	}
	return ret
}

// MaxCount is the largest Count over the whole map.
func (m *Map)MaxCount() int {
	max := 0
	for y:=0; y<m.h; y++ {
		for x:=0; x<m.w; x++ {
			if n := m.Count(x, y); n > max { max = n }
		}
	}
	return max
}
