// Package player runs stored animations against live devices on a fixed
// frame clock, the in-process equivalent of the browser applying an
// animation declaration.
package player

import (
	"math"
)

// Timing selects how playback progress is warped within each cycle. The
// names follow the animation-timing-function keywords.
type Timing string

const (
	TimingLinear    Timing = "linear"
	TimingEase      Timing = "ease"
	TimingEaseIn    Timing = "ease-in"
	TimingEaseOut   Timing = "ease-out"
	TimingEaseInOut Timing = "ease-in-out"
)

// ApplyTiming warps a progress value (0-1) through the named curve.
// Unknown timings fall back to linear.
func ApplyTiming(progress float64, timing Timing) float64 {
	if progress <= 0 {
		return 0
	}
	if progress >= 1 {
		return 1
	}

	switch timing {
	case TimingEase:
		return cubicBezier(0.25, 0.1, 0.25, 1, progress)
	case TimingEaseIn:
		return cubicBezier(0.42, 0, 1, 1, progress)
	case TimingEaseOut:
		return cubicBezier(0, 0, 0.58, 1, progress)
	case TimingEaseInOut:
		return -(math.Cos(math.Pi*progress) - 1) / 2
	default:
		return progress
	}
}

// cubicBezier evaluates the y component of a cubic bezier timing curve.
// The x control points are ignored; for the preset curves above the
// simplification stays well within a DMX quantization step.
func cubicBezier(p1x, p1y, p2x, p2y, t float64) float64 {
	_ = p1x
	_ = p2x

	cy := 3 * p1y
	by := 3*(p2y-p1y) - cy
	ay := 1 - cy - by

	tSquared := t * t
	tCubed := tSquared * t

	return ay*tCubed + by*tSquared + cy*t
}
