package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickWithHysteresis(t *testing.T) {
	reps := []Representation{
		{Bitrate: 500000},
		{Bitrate: 1000000},
		{Bitrate: 2500000},
	}

	tests := []struct {
		name    string
		current int
		kbps    float64
		want    int
	}{
		{"below lowest stays lowest", 0, 100, 0},
		{"upgrade needs margin", 0, 1100, 0},
		{"upgrade clears margin", 0, 1200, 1},
		{"skip to top", 0, 3000, 2},
		{"stop below unreachable top", 0, 2600, 1},
		{"small dip holds", 2, 2200, 2},
		{"large dip drops", 2, 2000, 1},
		{"collapse to lowest", 2, 300, 0},
		{"steady", 1, 1000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickWithHysteresis(reps, tt.current, tt.kbps*1000, DefaultHysteresis))
		})
	}
}

func TestLadderSortsByBitrate(t *testing.T) {
	in := []Representation{
		{Index: 0, Bitrate: 2000},
		{Index: 1, Bitrate: 500, Height: 480},
		{Index: 2, Bitrate: 500, Height: 360},
	}
	out := ladder(in)
	assert.Equal(t, []int{2, 1, 0}, indices(out))
	assert.Equal(t, 0, in[0].Index, "input untouched")
}
