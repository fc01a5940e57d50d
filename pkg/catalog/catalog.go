// Package catalog provides the star catalog model and loaders. Stars are
// loaded once at startup and treated as read-only afterward.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Star is one catalog entry. At least one of the identifier fields is
// guaranteed non-empty after load. RA and Dec are J2000 degrees.
type Star struct {
	Name       string   `json:"name"`
	Bayer      string   `json:"bf,omitempty"` // Bayer/Flamsteed designation
	HR         int      `json:"hr,omitempty"`
	HIP        int      `json:"hip,omitempty"`
	HD         int      `json:"hd,omitempty"`
	RADeg      float64  `json:"ra_deg"`
	DecDeg     float64  `json:"dec_deg"`
	Magnitude  float64  `json:"vmag"`
	Mass       *float64 `json:"mass,omitempty"`        // solar masses
	Spectral   string   `json:"spectral,omitempty"`    // O,B,A,F,G,K,M...
	DistanceLY *float64 `json:"distance_ly,omitempty"` // light-years
}

// SpectralClass returns the leading spectral class letter, or "" when absent.
func (s *Star) SpectralClass() string {
	sp := strings.TrimSpace(s.Spectral)
	if sp == "" {
		return ""
	}
	return strings.ToUpper(sp[:1])
}

// DisplayName returns the best human-readable identifier for the star.
func (s *Star) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Bayer != "" {
		return s.Bayer
	}
	switch {
	case s.HR > 0:
		return fmt.Sprintf("HR %d", s.HR)
	case s.HIP > 0:
		return fmt.Sprintf("HIP %d", s.HIP)
	case s.HD > 0:
		return fmt.Sprintf("HD %d", s.HD)
	}
	return "unnamed"
}

// hasIdentifier reports whether any identifier class is present.
func (s *Star) hasIdentifier() bool {
	return s.Name != "" || s.Bayer != "" || s.HR > 0 || s.HIP > 0 || s.HD > 0
}

// Filter holds the load-time admission rules. Stars with declinations outside
// [lat-90, lat+90] can never rise above the horizon at the configured site
// and are dropped here, not at schedule time.
type Filter struct {
	LatitudeDeg  float64
	MaxMagnitude *float64 // nil = no magnitude cut
}

func (f Filter) admit(s *Star) error {
	if !s.hasIdentifier() {
		return fmt.Errorf("star has no identifier")
	}
	if s.RADeg < 0 || s.RADeg >= 360 {
		return fmt.Errorf("star %s: ra %v outside [0, 360)", s.DisplayName(), s.RADeg)
	}
	if s.DecDeg < -90 || s.DecDeg > 90 {
		return fmt.Errorf("star %s: dec %v outside [-90, 90]", s.DisplayName(), s.DecDeg)
	}
	if s.DecDeg < f.LatitudeDeg-90 || s.DecDeg > f.LatitudeDeg+90 {
		return fmt.Errorf("star %s: dec %v never rises at latitude %v",
			s.DisplayName(), s.DecDeg, f.LatitudeDeg)
	}
	if f.MaxMagnitude != nil && s.Magnitude > *f.MaxMagnitude {
		return fmt.Errorf("star %s: magnitude %v above cut %v",
			s.DisplayName(), s.Magnitude, *f.MaxMagnitude)
	}
	return nil
}

// apply runs the filter over raw records, keeping catalog order. Stars with
// RA uniformly below 24 are assumed to carry hours and are rescaled to
// degrees first (some catalog exports store hours).
func (f Filter) apply(raw []Star) []Star {
	if raInHours(raw) {
		for i := range raw {
			raw[i].RADeg *= 15.0
		}
	}
	kept := make([]Star, 0, len(raw))
	for i := range raw {
		if err := f.admit(&raw[i]); err == nil {
			kept = append(kept, raw[i])
		}
	}
	return kept
}

func raInHours(raw []Star) bool {
	if len(raw) == 0 {
		return false
	}
	max := 0.0
	for i := range raw {
		if raw[i].RADeg > max {
			max = raw[i].RADeg
		}
	}
	return max <= 24.0
}

// Summary describes the loaded catalog's magnitude distribution. The
// scheduler reports it once at startup so an operator can sanity-check the
// velocity mapping range against the catalog actually in use.
type Summary struct {
	Stars         int
	MagnitudeMean float64
	MagnitudeP05  float64
	MagnitudeP95  float64
	BrightestMag  float64
	FaintestMag   float64
}

// Summarize computes the magnitude distribution of the catalog.
func Summarize(stars []Star) Summary {
	sum := Summary{Stars: len(stars)}
	if len(stars) == 0 {
		return sum
	}
	mags := make([]float64, len(stars))
	for i := range stars {
		mags[i] = stars[i].Magnitude
	}
	sort.Float64s(mags)
	sum.MagnitudeMean = stat.Mean(mags, nil)
	sum.MagnitudeP05 = stat.Quantile(0.05, stat.Empirical, mags, nil)
	sum.MagnitudeP95 = stat.Quantile(0.95, stat.Empirical, mags, nil)
	sum.BrightestMag = mags[0]
	sum.FaintestMag = mags[len(mags)-1]
	return sum
}
