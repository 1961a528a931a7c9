// Package galaxy provides the read-only star catalog consumed by the economy.
package galaxy

import (
	"fmt"
	"math"
)

// Tech level bounds for station infrastructure.
const (
	MinTechLevel     = 1
	MaxTechLevel     = 5
	DefaultTechLevel = 3 // Used for systems missing from the catalog
)

// Star is a single star system. Records are immutable once the catalog is built.
type Star struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	SpectralType string  `json:"spectral_type"` // e.g. "G2V", "M4.5V"
	X            float64 `json:"x"`             // Light-years from Sol
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
	TechLevel    int     `json:"tech_level"` // 1–5 station level
}

// Class returns the spectral class letter ("G" for "G2V"), or "?" when unknown.
func (s Star) Class() string {
	if s.SpectralType == "" {
		return "?"
	}
	return s.SpectralType[:1]
}

// ClampedTechLevel returns the tech level forced into [MinTechLevel, MaxTechLevel].
func (s Star) ClampedTechLevel() int {
	switch {
	case s.TechLevel < MinTechLevel:
		return MinTechLevel
	case s.TechLevel > MaxTechLevel:
		return MaxTechLevel
	default:
		return s.TechLevel
	}
}

func (s Star) String() string {
	return fmt.Sprintf("%s (#%d, %s, tech %d)", s.Name, s.ID, s.SpectralType, s.TechLevel)
}

// Unknown returns the fallback record for a system id absent from the catalog.
// It carries the id (so temporal phase still varies) and a neutral tech level.
func Unknown(id int) Star {
	return Star{
		ID:           id,
		Name:         fmt.Sprintf("Uncharted-%d", id),
		SpectralType: "",
		TechLevel:    DefaultTechLevel,
	}
}

// Distance returns the straight-line distance between two systems in light-years.
func Distance(a, b Star) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
