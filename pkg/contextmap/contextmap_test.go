package contextmap

import(
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanesGrowOnDemand(t *testing.T) {
	m := New(4, 3)
	require.Equal(t, 0, m.NumPlanes())
	require.False(t, m.TestBit(1, 1, 0))

	require.NoError(t, m.SetBit(1, 1, 31))
	require.Equal(t, 1, m.NumPlanes())

	require.NoError(t, m.SetBit(1, 1, 32))
	require.Equal(t, 2, m.NumPlanes())

	require.NoError(t, m.SetBit(2, 0, 64))
	require.Equal(t, 3, m.NumPlanes())

	require.True(t, m.TestBit(1, 1, 31))
	require.True(t, m.TestBit(1, 1, 32))
	require.False(t, m.TestBit(1, 1, 64))
	require.True(t, m.TestBit(2, 0, 64))
	require.False(t, m.TestBit(2, 0, 0))
	require.False(t, m.TestBit(2, 0, 96))

	require.Equal(t, uint32(1)<<31, m.Plane(0)[1*4+1])
	require.Equal(t, uint32(1), m.Plane(1)[1*4+1])
}

func TestNegativeOrdinal(t *testing.T) {
	m := New(2, 2)
	require.Error(t, m.SetBit(0, 0, -1))
	require.False(t, m.TestBit(0, 0, -1))
	require.Equal(t, 0, m.NumPlanes())
}

func TestContributors(t *testing.T) {
	m := New(3, 3)
	for _, ord := range []int{5, 0, 40, 33} {
		require.NoError(t, m.SetBit(2, 2, ord))
	}
	require.NoError(t, m.SetBit(2, 2, 5))

	require.Equal(t, []int{0, 5, 33, 40}, m.Contributors(2, 2))
	require.Equal(t, 4, m.Count(2, 2))
	require.Equal(t, 0, m.Count(0, 0))
	require.Empty(t, m.Contributors(0, 0))
	require.Equal(t, 4, m.MaxCount())
}
