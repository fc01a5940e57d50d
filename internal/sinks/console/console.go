// Package console renders fired transits to the terminal.
package console

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/starchime/starchime/internal/scheduler"
	"github.com/starchime/starchime/pkg/dyad"
)

// Spectral class glyphs, hot to cool.
var spectralGlyphs = map[string]string{
	"O": "✦",
	"B": "★",
	"A": "⁑",
	"F": "●",
	"G": "•",
	"K": "◦",
	"M": "○",
}

const defaultGlyph = "•"

var dyadLabels = [4]string{"mag", "mass", "spec", "dist"}

// Sink writes transit blocks to stdout.
type Sink struct {
	quiet bool
	tty   bool
}

// New creates the console sink. Quiet suppresses all rendering; the sink
// stays registered so enable/disable is purely a config concern.
func New(quiet bool) *Sink {
	return &Sink{
		quiet: quiet,
		tty:   isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// Name implements sinks.Sink.
func (s *Sink) Name() string { return "console" }

// HandleTransit prints the transit block and the upcoming-transit table.
func (s *Sink) HandleTransit(_ context.Context, f *scheduler.Firing) error {
	if s.quiet {
		return nil
	}
	if !s.tty {
		// plain single line when output is piped
		fmt.Printf("transit %s  %s\n", f.Star.DisplayName(), formatDyads(f.Dyads))
		return nil
	}
	fmt.Print(FormatTransit(f))
	if len(f.Upcoming) > 0 {
		fmt.Println(upcomingTable(f.Upcoming, f.FiredAt))
	}
	return nil
}

// HandleSkip implements sinks.SkipNotifier with a one-line notice.
func (s *Sink) HandleSkip(_ context.Context, k *scheduler.Skip) {
	if s.quiet {
		return
	}
	fmt.Printf("  ~ %s skipped (%s), next %s\n",
		k.Star.DisplayName(), k.Reason, k.NextAt.Format("15:04:05 MST"))
}

// FormatTransit renders one fired transit as a bordered block.
func FormatTransit(f *scheduler.Firing) string {
	star := f.Star
	glyph := glyphFor(star.SpectralClass())
	glyphs := strings.Repeat(glyph, brightnessRepeat(star.Magnitude))

	var b strings.Builder
	b.WriteString("\n  ╭─ TRANSIT ─────────╮\n")
	fmt.Fprintf(&b, "  │  %s  %s\n", glyphs, star.DisplayName())
	fmt.Fprintf(&b, "  │  %s\n", propLine(f))
	fmt.Fprintf(&b, "  │  LST %.2fh  RA %.2f°  Dec %+.2f°\n",
		f.LSTDeg/15, star.RADeg, star.DecDeg)
	fmt.Fprintf(&b, "  │  Notes: %s\n", formatDyads(f.Dyads))
	b.WriteString("  ╰───────────────────╯\n")
	return b.String()
}

func propLine(f *scheduler.Firing) string {
	star := f.Star
	bits := []string{fmt.Sprintf("vmag %.2f", star.Magnitude)}
	if star.Mass != nil {
		bits = append(bits, fmt.Sprintf("mass %.2g M☉", *star.Mass))
	}
	if sp := star.SpectralClass(); sp != "" {
		bits = append(bits, sp)
	}
	if star.DistanceLY != nil {
		bits = append(bits, fmt.Sprintf("dist %.4g ly", *star.DistanceLY))
	}
	return strings.Join(bits, "  ")
}

func formatDyads(dyads [4]dyad.Dyad) string {
	parts := make([]string, 0, len(dyads))
	for i, d := range dyads {
		parts = append(parts, fmt.Sprintf("%s %s@%d", dyadLabels[i], dyad.NoteName(d.Note), d.Velocity))
	}
	return strings.Join(parts, "  ")
}

func upcomingTable(upcoming []scheduler.Upcoming, now time.Time) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Up next", "In"})
	for _, u := range upcoming {
		t.AppendRow(table.Row{u.Name, formatDelta(u.At.Sub(now))})
	}
	return t.Render()
}

func glyphFor(class string) string {
	if g, ok := spectralGlyphs[class]; ok {
		return g
	}
	return defaultGlyph
}

// brightnessRepeat returns more glyph copies for brighter stars.
func brightnessRepeat(vmag float64) int {
	switch {
	case vmag < 1:
		return 3
	case vmag < 3.5:
		return 2
	}
	return 1
}

func formatDelta(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Seconds())
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
