package media

import "math"

// Orientation is the coarse aspect-ratio class used to namespace storage keys.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
	Other     Orientation = "other"
)

const (
	landscapeRatio = 16.0 / 9.0
	portraitRatio  = 9.0 / 16.0
	ratioTolerance = 0.05
)

// Classify maps pixel dimensions to an Orientation. Non-positive dimensions
// are classified as Other.
func Classify(width, height int) Orientation {
	if width <= 0 || height <= 0 {
		return Other
	}
	ratio := float64(width) / float64(height)
	switch {
	case math.Abs(ratio-landscapeRatio) <= ratioTolerance:
		return Landscape
	case math.Abs(ratio-portraitRatio) <= ratioTolerance:
		return Portrait
	default:
		return Other
	}
}
