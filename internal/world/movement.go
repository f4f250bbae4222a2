package world

import "errors"

var (
	ErrIllegalStep = errors.New("move must be a single cardinal step")
	ErrOutOfBounds = errors.New("move leaves the space")
)

// IsLegalStep reports whether target is exactly one cell away from current
// along a single axis.
func IsLegalStep(current, target Position) bool {
	return abs(current.X-target.X)+abs(current.Y-target.Y) == 1
}

// Validate checks the single-step rule and that target stays inside b.
func Validate(current, target Position, b Bounds) error {
	if !IsLegalStep(current, target) {
		return ErrIllegalStep
	}
	if !b.Contains(target) {
		return ErrOutOfBounds
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
