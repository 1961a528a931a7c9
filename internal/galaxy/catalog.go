package galaxy

import (
	"fmt"
	"sort"
)

// Catalog holds every known star system, ordered by id.
type Catalog struct {
	stars []Star
	index map[int]int // ID → position in stars
}

// NewCatalog builds a catalog from the given stars. Duplicate ids keep the first record.
func NewCatalog(stars []Star) *Catalog {
	sorted := make([]Star, 0, len(stars))
	seen := make(map[int]bool, len(stars))
	for _, s := range stars {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	c := &Catalog{
		stars: sorted,
		index: make(map[int]int, len(sorted)),
	}
	for i, s := range sorted {
		c.index[s.ID] = i
	}
	return c
}

// Lookup returns the star with the given id.
func (c *Catalog) Lookup(id int) (Star, bool) {
	if c == nil {
		return Star{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Star{}, false
	}
	return c.stars[i], true
}

// Resolve returns the star with the given id, or the Unknown fallback.
func (c *Catalog) Resolve(id int) Star {
	if s, ok := c.Lookup(id); ok {
		return s
	}
	return Unknown(id)
}

// Stars returns all stars in id order. The slice must not be modified.
func (c *Catalog) Stars() []Star {
	if c == nil {
		return nil
	}
	return c.stars
}

// Len returns the number of systems in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stars)
}

// ClassCounts returns how many systems carry each spectral class letter.
func (c *Catalog) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, s := range c.Stars() {
		counts[s.Class()]++
	}
	return counts
}

func (c *Catalog) String() string {
	return fmt.Sprintf("Catalog(systems=%d)", c.Len())
}

// CoreCatalog returns the fixed catalog of nearby stars. Sol is id 0 and
// Alpha Centauri A is id 1; together they form the core systems.
func CoreCatalog() *Catalog {
	return NewCatalog(coreStars())
}

func coreStars() []Star {
	return []Star{
		{ID: 0, Name: "Sol", SpectralType: "G2V", X: 0, Y: 0, Z: 0, TechLevel: 5},
		{ID: 1, Name: "Alpha Centauri A", SpectralType: "G2V", X: -1.64, Y: -1.37, Z: -3.84, TechLevel: 5},
		{ID: 2, Name: "Barnard's Star", SpectralType: "M4V", X: -0.06, Y: -5.94, Z: 0.49, TechLevel: 3},
		{ID: 3, Name: "Wolf 359", SpectralType: "M6V", X: -7.43, Y: 2.11, Z: 0.95, TechLevel: 2},
		{ID: 4, Name: "Lalande 21185", SpectralType: "M2V", X: -6.51, Y: 1.64, Z: 4.87, TechLevel: 3},
		{ID: 5, Name: "Sirius A", SpectralType: "A1V", X: -1.61, Y: 8.08, Z: -2.47, TechLevel: 4},
		{ID: 6, Name: "Luyten 726-8", SpectralType: "M5V", X: 7.54, Y: 3.48, Z: -2.69, TechLevel: 2},
		{ID: 7, Name: "Ross 154", SpectralType: "M3V", X: 1.91, Y: -8.65, Z: -3.92, TechLevel: 2},
		{ID: 8, Name: "Ross 248", SpectralType: "M5V", X: 7.38, Y: -0.58, Z: 7.19, TechLevel: 1},
		{ID: 9, Name: "Epsilon Eridani", SpectralType: "K2V", X: 6.21, Y: 8.31, Z: -1.73, TechLevel: 4},
		{ID: 10, Name: "Lacaille 9352", SpectralType: "M1V", X: 8.47, Y: -2.04, Z: -6.29, TechLevel: 2},
		{ID: 11, Name: "Procyon A", SpectralType: "F5IV", X: -4.77, Y: 10.31, Z: 1.04, TechLevel: 4},
		{ID: 12, Name: "61 Cygni A", SpectralType: "K5V", X: 6.48, Y: -6.11, Z: 7.13, TechLevel: 3},
		{ID: 13, Name: "Epsilon Indi", SpectralType: "K5V", X: 5.66, Y: -3.16, Z: -9.89, TechLevel: 3},
		{ID: 14, Name: "Tau Ceti", SpectralType: "G8V", X: 10.27, Y: 5.01, Z: -3.26, TechLevel: 4},
		{ID: 15, Name: "Luhman 16", SpectralType: "L8", X: -2.33, Y: -5.64, Z: -1.05, TechLevel: 1},
	}
}
