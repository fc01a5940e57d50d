package config

import (
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Configuration management (for future SQLite-specific operations)
	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Site       SiteData       `json:"site" yaml:"site"`
	Scheduler  SchedulerData  `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`
	Instrument InstrumentData `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	Catalog    CatalogData    `json:"catalog" yaml:"catalog"`
	Sinks      SinksData      `json:"sinks,omitempty" yaml:"sinks,omitempty"`
}

// SiteData holds the observer's geodetic position
type SiteData struct {
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"` // degrees, East positive
}

// SchedulerData holds transit scheduling tunables
type SchedulerData struct {
	Staleness string `json:"staleness,omitempty" yaml:"staleness,omitempty"` // e.g. "10m"
}

// InstrumentData holds the note/velocity ranges for the dyad mapper
type InstrumentData struct {
	NoteMin      int     `json:"note_min" yaml:"note_min"`
	NoteMax      int     `json:"note_max" yaml:"note_max"`
	VelocityMin  int     `json:"velocity_min" yaml:"velocity_min"`
	VelocityMax  int     `json:"velocity_max" yaml:"velocity_max"`
	NoteDuration float64 `json:"note_duration,omitempty" yaml:"note_duration,omitempty"` // seconds
}

// CatalogData holds the star catalog source configuration. MaxMagnitude is
// optional; absent means no magnitude cut, so a cut of exactly 0.0 stays
// expressible.
type CatalogData struct {
	Path         string   `json:"path" yaml:"path"`
	Backend      string   `json:"backend,omitempty" yaml:"backend,omitempty"` // "json" or "sqlite"
	MaxMagnitude *float64 `json:"max_magnitude,omitempty" yaml:"max_magnitude,omitempty"`
}

// SinksData holds the configuration for the dispatch sinks
type SinksData struct {
	Console     *ConsoleData     `json:"console,omitempty" yaml:"console,omitempty"`
	MIDI        *MIDIData        `json:"midi,omitempty" yaml:"midi,omitempty"`
	Stellarium  *StellariumData  `json:"stellarium,omitempty" yaml:"stellarium,omitempty"`
	EventServer *EventServerData `json:"eventserver,omitempty" yaml:"eventserver,omitempty"`
}

// ConsoleData configures the terminal renderer
type ConsoleData struct {
	Quiet bool `json:"quiet,omitempty" yaml:"quiet,omitempty"`
}

// MIDIData configures the MIDI output sink
type MIDIData struct {
	Port string `json:"port,omitempty" yaml:"port,omitempty"` // substring match; empty = first port
}

// StellariumData configures the planetarium sync sink. Endpoint paths are
// configurable so the protocol logic stays independent of any one viewer build.
type StellariumData struct {
	BaseURL    string `json:"base_url" yaml:"base_url"`
	StatusPath string `json:"status_path,omitempty" yaml:"status_path,omitempty"`
	ViewPath   string `json:"view_path,omitempty" yaml:"view_path,omitempty"`
	FindPath   string `json:"find_path,omitempty" yaml:"find_path,omitempty"`
	FocusPath  string `json:"focus_path,omitempty" yaml:"focus_path,omitempty"`
	FOVPath    string `json:"fov_path,omitempty" yaml:"fov_path,omitempty"`
	Timeout    string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "5s"
}

// EventServerData configures the REST/websocket event stream
type EventServerData struct {
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// Defaults applied where the configuration is silent.
const (
	DefaultStaleness      = 10 * time.Minute
	DefaultNoteDuration   = 0.6 // seconds
	DefaultStellariumURL  = "http://localhost:8090"
	DefaultStatusPath     = "/api/main/status"
	DefaultViewPath       = "/api/main/view"
	DefaultFindPath       = "/api/objects/find"
	DefaultFocusPath      = "/api/main/focus"
	DefaultFOVPath        = "/api/main/fov"
	DefaultHTTPTimeout    = 5 * time.Second
	DefaultEventPort      = 8137
	DefaultNoteMin        = 0
	DefaultNoteMax        = 127
	DefaultVelocityMin    = 40
	DefaultVelocityMax    = 115
)

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *ConfigData) ApplyDefaults() {
	if c.Instrument.NoteMax == 0 && c.Instrument.NoteMin == 0 {
		c.Instrument.NoteMin = DefaultNoteMin
		c.Instrument.NoteMax = DefaultNoteMax
	}
	if c.Instrument.VelocityMax == 0 && c.Instrument.VelocityMin == 0 {
		c.Instrument.VelocityMin = DefaultVelocityMin
		c.Instrument.VelocityMax = DefaultVelocityMax
	}
	if c.Instrument.NoteDuration == 0 {
		c.Instrument.NoteDuration = DefaultNoteDuration
	}
	if c.Catalog.Backend == "" {
		c.Catalog.Backend = "json"
	}
	if s := c.Sinks.Stellarium; s != nil {
		if s.BaseURL == "" {
			s.BaseURL = DefaultStellariumURL
		}
		if s.StatusPath == "" {
			s.StatusPath = DefaultStatusPath
		}
		if s.ViewPath == "" {
			s.ViewPath = DefaultViewPath
		}
		if s.FindPath == "" {
			s.FindPath = DefaultFindPath
		}
		if s.FocusPath == "" {
			s.FocusPath = DefaultFocusPath
		}
		if s.FOVPath == "" {
			s.FOVPath = DefaultFOVPath
		}
	}
	if e := c.Sinks.EventServer; e != nil && e.Port == 0 {
		e.Port = DefaultEventPort
	}
}

// Validate checks the configuration invariants that are fatal at startup.
func (c *ConfigData) Validate() error {
	if c.Site.Latitude < -90 || c.Site.Latitude > 90 {
		return fmt.Errorf("site latitude %v outside [-90, 90]", c.Site.Latitude)
	}
	if c.Site.Longitude < -180 || c.Site.Longitude > 180 {
		return fmt.Errorf("site longitude %v outside [-180, 180]", c.Site.Longitude)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required")
	}
	switch c.Catalog.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unsupported catalog backend: %s. Use 'json' or 'sqlite'", c.Catalog.Backend)
	}
	i := c.Instrument
	if i.NoteMin < 0 || i.NoteMax > 127 || i.NoteMin > i.NoteMax {
		return fmt.Errorf("instrument note range [%d, %d] invalid", i.NoteMin, i.NoteMax)
	}
	if i.VelocityMin < 0 || i.VelocityMax > 127 || i.VelocityMin > i.VelocityMax {
		return fmt.Errorf("instrument velocity range [%d, %d] invalid", i.VelocityMin, i.VelocityMax)
	}
	return nil
}

// StalenessDuration parses the scheduler staleness setting, falling back to
// the default when unset.
func (c *ConfigData) StalenessDuration() (time.Duration, error) {
	if c.Scheduler.Staleness == "" {
		return DefaultStaleness, nil
	}
	d, err := time.ParseDuration(c.Scheduler.Staleness)
	if err != nil {
		return 0, fmt.Errorf("invalid scheduler staleness %q: %w", c.Scheduler.Staleness, err)
	}
	return d, nil
}

// HTTPTimeout parses the stellarium timeout setting.
func (s *StellariumData) HTTPTimeout() (time.Duration, error) {
	if s == nil || s.Timeout == "" {
		return DefaultHTTPTimeout, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid stellarium timeout %q: %w", s.Timeout, err)
	}
	return d, nil
}
