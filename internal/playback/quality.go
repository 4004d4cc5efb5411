package playback

import (
	"fmt"
	"sort"
)

// DefaultHysteresis keeps auto selection from oscillating between
// neighbouring representations on a noisy bandwidth estimate.
const DefaultHysteresis = 0.15

// Representation is one rendition in the manifest.
type Representation struct {
	// Index is the engine's own index for the rendition.
	Index   int
	Bitrate int // bits per second
	Width   int
	Height  int
	Codecs  string
	URI     string
}

func (r Representation) String() string {
	if r.Height > 0 {
		return fmt.Sprintf("%dp@%dkbps", r.Height, r.Bitrate/1000)
	}
	return fmt.Sprintf("%dkbps", r.Bitrate/1000)
}

// Manifest is what an engine reports after loading a source.
type Manifest struct {
	Live            bool
	Representations []Representation
}

// ladder orders representations by bitrate, lowest first, breaking ties
// on height.
func ladder(reps []Representation) []Representation {
	out := make([]Representation, len(reps))
	copy(out, reps)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Bitrate != out[j].Bitrate {
			return out[i].Bitrate < out[j].Bitrate
		}
		return out[i].Height < out[j].Height
	})
	return out
}

// highestAtMost returns the position of the highest rendition whose bitrate
// fits in bps, or 0 when none does.
func highestAtMost(reps []Representation, bps float64) int {
	best := 0
	for i, r := range reps {
		if float64(r.Bitrate) <= bps {
			best = i
		}
	}
	return best
}

// pickWithHysteresis moves up only when the estimate clears the target by
// the hysteresis margin, and down only when it falls below the current
// rendition by the same margin.
func pickWithHysteresis(reps []Representation, current int, bps, hysteresis float64) int {
	if len(reps) == 0 {
		return 0
	}
	target := highestAtMost(reps, bps)

	switch {
	case target > current:
		next := current
		for i := current + 1; i <= target; i++ {
			if bps >= float64(reps[i].Bitrate)*(1+hysteresis) {
				next = i
			}
		}
		return next
	case target < current:
		if bps < float64(reps[current].Bitrate)*(1-hysteresis) {
			return target
		}
	}
	return current
}
