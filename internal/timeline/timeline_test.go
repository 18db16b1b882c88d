package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 10))
	assert.Equal(t, 10.0, Clamp(12, 10))
	assert.Equal(t, 4.5, Clamp(4.5, 10))
}

func TestNewInterval(t *testing.T) {
	iv, err := NewInterval(-0.5, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, Interval{Start: 0, End: 3}, iv)

	iv, err = NewInterval(8, 12, 10)
	require.NoError(t, err)
	assert.Equal(t, Interval{Start: 8, End: 10}, iv)

	_, err = NewInterval(11, 12, 10)
	assert.ErrorIs(t, err, ErrEmptyInterval)

	_, err = NewInterval(5, 5, 10)
	assert.ErrorIs(t, err, ErrEmptyInterval)
}

func TestInterval_Overlaps(t *testing.T) {
	a := Interval{Start: 1, End: 3}
	assert.True(t, a.Overlaps(Interval{Start: 2, End: 4}))
	assert.False(t, a.Overlaps(Interval{Start: 3, End: 4}), "touching intervals do not overlap")
	assert.False(t, a.Overlaps(Interval{Start: 5, End: 6}))
	assert.Equal(t, Interval{Start: 1, End: 4}, a.Union(Interval{Start: 2, End: 4}))
}

func TestComplement(t *testing.T) {
	tests := []struct {
		name     string
		removed  []Interval
		duration float64
		want     []Interval
	}{
		{
			name:     "nothing removed",
			duration: 10,
			want:     []Interval{{Start: 0, End: 10}},
		},
		{
			name:     "middle cut",
			removed:  []Interval{{Start: 4, End: 6}},
			duration: 10,
			want:     []Interval{{Start: 0, End: 4}, {Start: 6, End: 10}},
		},
		{
			name:     "unsorted and overlapping",
			removed:  []Interval{{Start: 7, End: 8}, {Start: 0, End: 2}, {Start: 1, End: 3}},
			duration: 10,
			want:     []Interval{{Start: 3, End: 7}, {Start: 8, End: 10}},
		},
		{
			name:     "everything removed",
			removed:  []Interval{{Start: 0, End: 10}},
			duration: 10,
			want:     nil,
		},
		{
			name:     "zero duration",
			duration: 0,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Complement(tt.removed, tt.duration))
		})
	}
}

func TestTotal(t *testing.T) {
	assert.InDelta(t, 3.5, Total([]Interval{{Start: 0, End: 1}, {Start: 2, End: 4.5}}), 1e-12)
	assert.Equal(t, 0.0, Total(nil))
}
