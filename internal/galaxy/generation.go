// Procedural catalog generation using layered simplex noise.
// Noise fields decide where industry clusters (tech level) and which stellar
// populations dominate a region (spectral class).
package galaxy

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds catalog generation parameters.
type GenConfig struct {
	Systems int     // Total systems including the core catalog
	Radius  float64 // Disc radius in light-years
	Height  float64 // Disc half-thickness in light-years
	Seed    int64   // Random seed (0 = random)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Systems: 80,
		Radius:  40,
		Height:  6,
		Seed:    0,
	}
}

// Generate builds a catalog that starts with the core stars and fills the rest
// of the disc with procedural systems. Same seed, same catalog.
func Generate(cfg GenConfig) *Catalog {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultGenConfig().Radius
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultGenConfig().Height
	}

	rng := rand.New(rand.NewSource(seed + 100))
	techNoise := opensimplex.NewNormalized(seed)
	classNoise := opensimplex.NewNormalized(seed + 1)

	stars := coreStars()
	extra := cfg.Systems - len(stars)
	if extra <= 0 {
		return NewCatalog(stars)
	}

	names := generateNames(rng, extra)
	for i := 0; i < extra; i++ {
		// Uniform point in the disc: sqrt keeps density flat along the radius.
		r := cfg.Radius * math.Sqrt(rng.Float64())
		theta := rng.Float64() * 2 * math.Pi
		x := r * math.Cos(theta)
		y := r * math.Sin(theta)
		z := (rng.Float64()*2 - 1) * cfg.Height

		tech := octaveNoise(techNoise, x, y, z, 3, 0.05, 0.5)
		// Industry thins out toward the rim.
		tech *= 1.0 - 0.5*(r/cfg.Radius)
		class := octaveNoise(classNoise, x, y, z, 2, 0.08, 0.5)

		stars = append(stars, Star{
			ID:           len(stars),
			Name:         names[i],
			SpectralType: deriveSpectralType(class, rng),
			X:            round2(x),
			Y:            round2(y),
			Z:            round2(z),
			TechLevel:    deriveTechLevel(tech),
		})
	}

	return NewCatalog(stars)
}

// deriveSpectralType maps a noise sample to a spectral type. Red dwarfs dominate,
// as they do in the real solar neighbourhood.
func deriveSpectralType(v float64, rng *rand.Rand) string {
	var class string
	switch {
	case v < 0.45:
		class = "M"
	case v < 0.60:
		class = "K"
	case v < 0.70:
		class = "G"
	case v < 0.78:
		class = "F"
	case v < 0.84:
		class = "A"
	case v < 0.92:
		class = "L"
	default:
		class = "D"
	}
	if class == "D" {
		return "DA" + fmt.Sprint(rng.Intn(9)+1)
	}
	if class == "L" {
		return "L" + fmt.Sprint(rng.Intn(10))
	}
	return fmt.Sprintf("%s%dV", class, rng.Intn(10))
}

func deriveTechLevel(v float64) int {
	level := MinTechLevel + int(v*float64(MaxTechLevel))
	if level > MaxTechLevel {
		level = MaxTechLevel
	}
	if level < MinTechLevel {
		level = MinTechLevel
	}
	return level
}

// octaveNoise samples multi-octave 3D noise normalized to [0, 1).
func octaveNoise(noise opensimplex.Noise, x, y, z float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval3(x*frequency, y*frequency, z*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// generateNames produces procedural system names by combining a survey prefix
// with a catalog number.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Gliese", "Ross", "Wolf", "Kepler", "Luyten", "Struve",
		"Kruger", "Lacaille", "Groombridge", "Van Maanen", "Stein",
		"Teegarden", "Kapteyn", "Lalande", "Scholz", "Giclas",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)

	for len(names) < count {
		name := fmt.Sprintf("%s %d", prefixes[rng.Intn(len(prefixes))], 100+rng.Intn(9900))
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}

	return names
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
