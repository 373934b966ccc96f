package ascii

import "math"

// Floyd–Steinberg weights for right, below-left, below, below-right.
const (
	weightRight      = 7.0 / 16
	weightBelowLeft  = 3.0 / 16
	weightBelow      = 5.0 / 16
	weightBelowRight = 1.0 / 16
)

// FloydSteinberg quantizes m to levels steps with error diffusion and
// returns the result. m is left untouched; diffusion runs on a copy in
// raster order so each error only reaches cells not yet finalized.
func FloydSteinberg(m BrightnessMap, levels int) BrightnessMap {
	out := m.Clone()
	if levels < 2 {
		return out
	}

	steps := float64(levels - 1)
	height := len(out)
	for y := 0; y < height; y++ {
		width := len(out[y])
		for x := 0; x < width; x++ {
			old := out[y][x]
			quantized := roundHalfUp(steps*old) / steps
			out[y][x] = quantized
			e := old - quantized

			if x+1 < width {
				out[y][x+1] += e * weightRight
			}
			if y+1 < height {
				if x > 0 {
					out[y+1][x-1] += e * weightBelowLeft
				}
				out[y+1][x] += e * weightBelow
				if x+1 < width {
					out[y+1][x+1] += e * weightBelowRight
				}
			}
		}
	}
	return out
}

// roundHalfUp rounds halves towards +Inf, negative inputs included.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
