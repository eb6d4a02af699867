package analysis

import "math"

// DefaultBrightness is used when the analysis carries no average brightness.
const DefaultBrightness = 50.0

// Result is the image-analysis summary produced by the external analysis service.
// Every field is optional; a nil *Result is valid input.
type Result struct {
	Brightness *Brightness `json:"brightness,omitempty"`
	Colors     *Colors     `json:"colors,omitempty"`
}

// Brightness summarises image luminance.
type Brightness struct {
	Average *float64 `json:"average,omitempty"`
	Level   string   `json:"level,omitempty"` // dark, medium, bright
}

// Colors summarises the image palette.
type Colors struct {
	DominantColors    []DominantColor `json:"dominant_colors,omitempty"`
	UniqueColorsCount int             `json:"unique_colors_count,omitempty"`
}

// DominantColor is one palette entry, ordered by prominence.
type DominantColor struct {
	RGB   [3]float64 `json:"rgb"`
	Count int        `json:"count"`
}

// AverageBrightness returns brightness.average, or DefaultBrightness when it
// is absent, zero or NaN. Analysers report 0 for images they could not read.
func (r *Result) AverageBrightness() float64 {
	if r == nil || r.Brightness == nil || r.Brightness.Average == nil {
		return DefaultBrightness
	}
	if v := *r.Brightness.Average; v != 0 && !math.IsNaN(v) {
		return v
	}
	return DefaultBrightness
}

// DominantColors returns the palette, or nil when absent.
func (r *Result) DominantColors() []DominantColor {
	if r == nil || r.Colors == nil {
		return nil
	}
	return r.Colors.DominantColors
}
