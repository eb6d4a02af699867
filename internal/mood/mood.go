package mood

import "github.com/satindergrewal/chromavinyl/internal/analysis"

// Category is the visual tone of an image, used to pick a music style.
type Category string

const (
	BrightWarm  Category = "bright_warm"
	DarkCool    Category = "dark_cool"
	Intense     Category = "intense"
	SoftPastel  Category = "soft_pastel"
	NatureGreen Category = "nature_green"
	Balanced    Category = "balanced"
)

// Categories lists every category in rule order, Balanced last.
var Categories = []Category{BrightWarm, DarkCool, Intense, SoftPastel, NatureGreen, Balanced}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Classify maps an analysis to a category. Rules are evaluated in order and
// the first match wins; Balanced is returned when nothing matches or the
// analysis has no palette.
func Classify(a *analysis.Result) Category {
	colors := a.DominantColors()
	if len(colors) == 0 {
		return Balanced
	}
	brightness := a.AverageBrightness()
	s := AnalyzeColors(colors)

	switch {
	case brightness > 120 && s.Warmth > 0.6:
		return BrightWarm
	case brightness < 80 && s.Coolness > 0.5:
		return DarkCool
	case s.Intensity > 0.7 || s.Red > 150:
		return Intense
	case brightness > 100 && s.Saturation < 0.4:
		return SoftPastel
	case s.Green > 100 && s.Green > s.Red && s.Green > s.Blue:
		return NatureGreen
	default:
		return Balanced
	}
}
