package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquaredL2(t *testing.T) {
	assert.InDelta(t, 0.0, SquaredL2([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	assert.InDelta(t, 27.0, SquaredL2([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
}

func TestCosineDistance(t *testing.T) {
	a, ok := NormalizeL2Copy([]float32{1, 0, 0})
	require.True(t, ok)
	b, ok := NormalizeL2Copy([]float32{0, 1, 0})
	require.True(t, ok)

	// Identical direction -> 0, orthogonal -> 1, opposite -> 2.
	assert.InDelta(t, 0.0, CosineDistance(a, a), 1e-6)
	assert.InDelta(t, 1.0, CosineDistance(a, b), 1e-6)

	c, ok := NormalizeL2Copy([]float32{-2, 0, 0})
	require.True(t, ok)
	assert.InDelta(t, 2.0, CosineDistance(a, c), 1e-6)
}

func TestNormalize(t *testing.T) {
	t.Run("ZeroVector", func(t *testing.T) {
		_, ok := NormalizeL2Copy([]float32{0, 0, 0})
		assert.False(t, ok)
	})

	t.Run("PreservesInput", func(t *testing.T) {
		src := []float32{3, 4}
		norm, ok := NormalizeL2Copy(src)
		require.True(t, ok)
		assert.Equal(t, []float32{3, 4}, src)
		assert.InDelta(t, 0.6, norm[0], 1e-6)
		assert.InDelta(t, 0.8, norm[1], 1e-6)
	})
}

func TestParse(t *testing.T) {
	m, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, MetricCosine, m)

	m, err = Parse("l2")
	require.NoError(t, err)
	assert.Equal(t, MetricSquaredL2, m)

	_, err = Parse("hamming")
	assert.Error(t, err)
}
