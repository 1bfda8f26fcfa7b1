// Package plan converts floorplan tap positions into viewport-independent
// fractional anchors and back. Callers must pass taps in image-local
// coordinates, already compensated for any zoom/pan transform.
package plan

import "github.com/sitejournal/api/internal/models"

// Normalize maps a tap at (tapX, tapY) on a viewport of the given intrinsic
// size to a fractional anchor. Both components are clamped to [0,1], so taps
// outside the viewport (or degenerate viewport sizes) still yield a valid
// anchor. Pure; never fails.
func Normalize(tapX, tapY, viewportW, viewportH float64) models.Anchor {
	return models.Anchor{
		X: clamp01(fraction(tapX, viewportW)),
		Y: clamp01(fraction(tapY, viewportH)),
	}
}

// Denormalize projects a stored anchor onto a viewport, which need not be the
// one the anchor was captured on. Inverse of Normalize for matching viewport
// dimensions.
func Denormalize(a models.Anchor, viewportW, viewportH float64) (tapX, tapY float64) {
	return clamp01(a.X) * viewportW, clamp01(a.Y) * viewportH
}

func fraction(v, extent float64) float64 {
	if extent <= 0 {
		return 0
	}
	return v / extent
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
