// Package dyad maps star attributes to musical (note, velocity) pairs.
// The mapping is pure: the same attributes always produce the same four
// dyads, and every output is clamped to the configured instrument range.
package dyad

import (
	"math"
	"strconv"

	"github.com/starchime/starchime/pkg/catalog"
)

// Dyad is one (note, velocity) pair.
type Dyad struct {
	Note     int `json:"note"`
	Velocity int `json:"velocity"`
}

// Bounds is the instrument's valid note and velocity range.
type Bounds struct {
	NoteMin     int
	NoteMax     int
	VelocityMin int
	VelocityMax int
}

// DefaultBounds covers the full MIDI range with the practical velocity
// window used by the original instrument mapping.
var DefaultBounds = Bounds{NoteMin: 0, NoteMax: 127, VelocityMin: 40, VelocityMax: 115}

// Quantization constants. Magnitude spans the practical catalog range from
// Sirius-like brilliance to the naked-eye-plus limit; mass and distance are
// quantized on log scales covering the physical extremes of catalog stars.
const (
	magBright = -1.5
	magFaint  = 8.0

	massMin = 0.08 // red dwarf limit, solar masses
	massMax = 64.0

	distMinLY = 1.0
	distMaxLY = 15000.0

	defaultMass   = 1.0
	defaultDistLY = 10.0
)

// spectralSteps orders the seven spectral classes hot to cool. Hotter
// classes map to higher notes. Unknown or absent classes use the G entry.
var spectralSteps = map[string]int{
	"O": 6, "B": 5, "A": 4, "F": 3, "G": 2, "K": 1, "M": 0,
}

const spectralDefault = "G"

// MapStar produces the four dyads for a star, in fixed order:
// magnitude, mass, spectral class, distance.
func MapStar(s *catalog.Star, b Bounds) [4]Dyad {
	vel := magnitudeVelocity(s.Magnitude, b)
	return [4]Dyad{
		{Note: midNote(b), Velocity: vel},
		{Note: massNote(s, b), Velocity: vel},
		{Note: spectralNote(s.SpectralClass(), b), Velocity: vel},
		distanceDyad(s.DistanceLY, b),
	}
}

// magnitudeVelocity maps apparent magnitude to velocity: brighter (lower)
// magnitudes play louder. Affine clamp over [magBright, magFaint].
func magnitudeVelocity(mag float64, b Bounds) int {
	t := (clamp(mag, magBright, magFaint) - magBright) / (magFaint - magBright)
	return round(lerp(1-t, float64(b.VelocityMin), float64(b.VelocityMax)))
}

// massNote maps stellar mass to a note on a log2 scale: heavier stars land
// in higher registers. When mass is absent, an absolute-magnitude proxy is
// derived from apparent magnitude and distance; when distance is absent too,
// one solar mass is assumed.
func massNote(s *catalog.Star, b Bounds) int {
	m := defaultMass
	switch {
	case s.Mass != nil:
		m = *s.Mass
	case s.DistanceLY != nil && *s.DistanceLY > 0:
		m = massFromAbsoluteMagnitude(s.Magnitude, *s.DistanceLY)
	}
	lo, hi := math.Log2(massMin), math.Log2(massMax)
	t := (math.Log2(clamp(m, massMin, massMax)) - lo) / (hi - lo)
	return noteAt(t, b)
}

// massFromAbsoluteMagnitude estimates mass from intrinsic luminosity using
// the main-sequence mass-luminosity relation L ∝ M^4.
func massFromAbsoluteMagnitude(vmag, distLY float64) float64 {
	distPC := distLY / 3.26156
	if distPC <= 0 {
		return defaultMass
	}
	absMag := vmag - 5*(math.Log10(distPC)-1)
	// L/Lsun from absolute magnitude (solar absolute magnitude 4.83)
	lum := math.Pow(10, (4.83-absMag)/2.5)
	return math.Pow(lum, 0.25)
}

// spectralNote returns the fixed note for a spectral class letter.
func spectralNote(class string, b Bounds) int {
	step, ok := spectralSteps[class]
	if !ok {
		step = spectralSteps[spectralDefault]
	}
	return noteAt(float64(step)/6.0, b)
}

// distanceDyad maps distance to both note and velocity on a log10 scale:
// nearer stars play higher and louder, distant stars lower and softer.
// Absent distance uses the documented 10 light-year default.
func distanceDyad(distLY *float64, b Bounds) Dyad {
	d := defaultDistLY
	if distLY != nil && *distLY > 0 {
		d = *distLY
	}
	lo, hi := math.Log10(distMinLY), math.Log10(distMaxLY)
	t := 1 - (math.Log10(clamp(d, distMinLY, distMaxLY))-lo)/(hi-lo)
	return Dyad{
		Note:     noteAt(t, b),
		Velocity: round(lerp(t, float64(b.VelocityMin), float64(b.VelocityMax))),
	}
}

func midNote(b Bounds) int {
	return (b.NoteMin + b.NoteMax) / 2
}

func noteAt(t float64, b Bounds) int {
	return round(lerp(clamp(t, 0, 1), float64(b.NoteMin), float64(b.NoteMax)))
}

func lerp(t, a, b float64) float64 { return a + t*(b-a) }

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func round(x float64) int { return int(math.Round(x)) }

// NoteName renders a MIDI note number in scientific pitch notation.
func NoteName(n int) string {
	names := [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	if n < 0 {
		n = 0
	}
	octave := n/12 - 1
	return names[n%12] + strconv.Itoa(octave)
}
