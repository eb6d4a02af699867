package mood

import "github.com/satindergrewal/chromavinyl/internal/analysis"

// ColorStats aggregates a palette into channel averages and derived scalars.
type ColorStats struct {
	Red, Green, Blue float64

	Warmth     float64 // (R + G/2) / 255
	Coolness   float64 // B / 255
	Intensity  float64 // (R + G + B) / 765
	Saturation float64 // (max - min) / max, 0 for black
}

// AnalyzeColors averages the palette channels. Each entry counts once
// regardless of its pixel count. Callers must not pass an empty palette.
func AnalyzeColors(colors []analysis.DominantColor) ColorStats {
	var r, g, b float64
	for _, c := range colors {
		r += c.RGB[0]
		g += c.RGB[1]
		b += c.RGB[2]
	}
	n := float64(len(colors))
	s := ColorStats{Red: r / n, Green: g / n, Blue: b / n}

	s.Warmth = (s.Red + s.Green*0.5) / 255
	s.Coolness = s.Blue / 255
	s.Intensity = (s.Red + s.Green + s.Blue) / (255 * 3)

	hi := max(s.Red, s.Green, s.Blue)
	lo := min(s.Red, s.Green, s.Blue)
	if hi > 0 {
		s.Saturation = (hi - lo) / hi
	}
	return s
}
