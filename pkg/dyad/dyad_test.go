package dyad

import (
	"testing"

	"github.com/starchime/starchime/pkg/catalog"
)

func fptr(v float64) *float64 { return &v }

func TestMapStarDeterministic(t *testing.T) {
	star := &catalog.Star{
		Name:       "Sirius",
		RADeg:      101.287,
		DecDeg:     -16.716,
		Magnitude:  -1.46,
		Mass:       fptr(2.063),
		Spectral:   "A1V",
		DistanceLY: fptr(8.6),
	}

	a := MapStar(star, DefaultBounds)
	b := MapStar(star, DefaultBounds)
	if a != b {
		t.Errorf("two mappings of the same star differ: %v vs %v", a, b)
	}
}

func TestMapStarWithinBounds(t *testing.T) {
	bounds := Bounds{NoteMin: 36, NoteMax: 84, VelocityMin: 50, VelocityMax: 100}

	stars := []*catalog.Star{
		{Name: "bright heavy near", Magnitude: -5, Mass: fptr(500), Spectral: "O5", DistanceLY: fptr(0.5)},
		{Name: "faint light far", Magnitude: 15, Mass: fptr(0.01), Spectral: "M8", DistanceLY: fptr(1e6)},
		{Name: "nothing optional", Magnitude: 4.2},
	}

	for _, s := range stars {
		for i, d := range MapStar(s, bounds) {
			if d.Note < bounds.NoteMin || d.Note > bounds.NoteMax {
				t.Errorf("%s dyad %d: note %d outside [%d, %d]", s.Name, i, d.Note, bounds.NoteMin, bounds.NoteMax)
			}
			if d.Velocity < bounds.VelocityMin || d.Velocity > bounds.VelocityMax {
				t.Errorf("%s dyad %d: velocity %d outside [%d, %d]", s.Name, i, d.Velocity, bounds.VelocityMin, bounds.VelocityMax)
			}
		}
	}
}

func TestMagnitudeVelocityEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		mag      float64
		expected int
	}{
		{"Sirius-class pins the loud end", -1.5, DefaultBounds.VelocityMax},
		{"brighter than scale still clamps", -27, DefaultBounds.VelocityMax},
		{"faint limit pins the soft end", 8, DefaultBounds.VelocityMin},
		{"fainter than scale still clamps", 14, DefaultBounds.VelocityMin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := magnitudeVelocity(tt.mag, DefaultBounds); got != tt.expected {
				t.Errorf("magnitudeVelocity(%v) = %d, expected %d", tt.mag, got, tt.expected)
			}
		})
	}
}

func TestMagnitudeVelocityMonotonic(t *testing.T) {
	prev := magnitudeVelocity(-1.5, DefaultBounds)
	for mag := -1.0; mag <= 8; mag += 0.5 {
		v := magnitudeVelocity(mag, DefaultBounds)
		if v > prev {
			t.Fatalf("velocity rose from %d to %d as magnitude dimmed to %v", prev, v, mag)
		}
		prev = v
	}
}

func TestSpectralNoteOrdering(t *testing.T) {
	classes := []string{"M", "K", "G", "F", "A", "B", "O"}
	prev := -1
	for _, c := range classes {
		n := spectralNote(c, DefaultBounds)
		if n <= prev {
			t.Fatalf("class %s note %d not above cooler class note %d", c, n, prev)
		}
		prev = n
	}

	// Unknown and empty classes take the G slot.
	g := spectralNote("G", DefaultBounds)
	for _, c := range []string{"", "X", "W"} {
		if got := spectralNote(c, DefaultBounds); got != g {
			t.Errorf("spectralNote(%q) = %d, expected G default %d", c, got, g)
		}
	}
}

func TestSpectralClassFromCatalogType(t *testing.T) {
	tests := []struct {
		spectral string
		expected string
	}{
		{"A1V", "A"},
		{"M5III", "M"},
		{"k0", "K"},
		{"", "G"},
		{"sdB", "G"}, // leading subtype marker is not a class letter
	}
	for _, tt := range tests {
		s := &catalog.Star{Spectral: tt.spectral}
		got := s.SpectralClass()
		if got == "" {
			got = spectralDefault
		}
		note := spectralNote(got, DefaultBounds)
		want := spectralNote(tt.expected, DefaultBounds)
		if note != want {
			t.Errorf("spectral %q: note %d, expected class %s note %d", tt.spectral, note, tt.expected, want)
		}
	}
}

func TestMassNoteFallbacks(t *testing.T) {
	solar := massNote(&catalog.Star{Mass: fptr(1.0)}, DefaultBounds)

	// No mass, no distance: solar mass assumed.
	if got := massNote(&catalog.Star{Magnitude: 4.83}, DefaultBounds); got != solar {
		t.Errorf("absent mass and distance: note %d, expected solar note %d", got, solar)
	}

	// No mass but a distance: Sun-like star at 10pc (32.6 ly) with vmag 4.83
	// has absolute magnitude 4.83, so the luminosity proxy lands on ~1 Msun.
	proxy := massNote(&catalog.Star{Magnitude: 4.83, DistanceLY: fptr(32.6156)}, DefaultBounds)
	if diff := proxy - solar; diff < -1 || diff > 1 {
		t.Errorf("luminosity-proxy note %d too far from solar note %d", proxy, solar)
	}

	// An intrinsically bright star lands higher than the Sun.
	giant := massNote(&catalog.Star{Magnitude: 0.0, DistanceLY: fptr(500)}, DefaultBounds)
	if giant <= solar {
		t.Errorf("bright distant star note %d not above solar note %d", giant, solar)
	}
}

func TestDistanceDyadNearIsHighAndLoud(t *testing.T) {
	near := distanceDyad(fptr(1.0), DefaultBounds)
	if near.Note != DefaultBounds.NoteMax || near.Velocity != DefaultBounds.VelocityMax {
		t.Errorf("1 ly dyad = %+v, expected note %d velocity %d", near, DefaultBounds.NoteMax, DefaultBounds.VelocityMax)
	}

	far := distanceDyad(fptr(15000.0), DefaultBounds)
	if far.Note != DefaultBounds.NoteMin || far.Velocity != DefaultBounds.VelocityMin {
		t.Errorf("15000 ly dyad = %+v, expected note %d velocity %d", far, DefaultBounds.NoteMin, DefaultBounds.VelocityMin)
	}

	mid := distanceDyad(fptr(100.0), DefaultBounds)
	if mid.Note <= far.Note || mid.Note >= near.Note {
		t.Errorf("100 ly note %d not between %d and %d", mid.Note, far.Note, near.Note)
	}

	// Absent distance uses the 10 ly default, which sits near the top.
	def := distanceDyad(nil, DefaultBounds)
	if def != distanceDyad(fptr(10.0), DefaultBounds) {
		t.Errorf("absent distance dyad %+v differs from 10 ly dyad", def)
	}
}

func TestNoteName(t *testing.T) {
	tests := []struct {
		note     int
		expected string
	}{
		{60, "C4"},
		{69, "A4"},
		{0, "C-1"},
		{127, "G9"},
		{61, "C#4"},
	}
	for _, tt := range tests {
		if got := NoteName(tt.note); got != tt.expected {
			t.Errorf("NoteName(%d) = %q, expected %q", tt.note, got, tt.expected)
		}
	}
}
