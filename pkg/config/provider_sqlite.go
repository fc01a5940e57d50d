package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from the SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	if err := s.loadSite(config); err != nil {
		return nil, fmt.Errorf("failed to load site config: %w", err)
	}
	if err := s.loadScalars(config); err != nil {
		return nil, fmt.Errorf("failed to load scheduler/instrument/catalog config: %w", err)
	}
	if err := s.loadSinks(config); err != nil {
		return nil, fmt.Errorf("failed to load sink config: %w", err)
	}

	config.ApplyDefaults()
	return config, nil
}

func (s *SQLiteProvider) loadSite(config *ConfigData) error {
	row := s.db.QueryRow(`
		SELECT name, latitude, longitude
		FROM site
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')`)

	var name sql.NullString
	if err := row.Scan(&name, &config.Site.Latitude, &config.Site.Longitude); err != nil {
		return err
	}
	config.Site.Name = name.String
	return nil
}

func (s *SQLiteProvider) loadScalars(config *ConfigData) error {
	row := s.db.QueryRow(`
		SELECT staleness, note_min, note_max, velocity_min, velocity_max,
		       note_duration, catalog_path, catalog_backend, max_magnitude
		FROM settings
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')`)

	var staleness, backend sql.NullString
	var maxMag sql.NullFloat64
	err := row.Scan(&staleness,
		&config.Instrument.NoteMin, &config.Instrument.NoteMax,
		&config.Instrument.VelocityMin, &config.Instrument.VelocityMax,
		&config.Instrument.NoteDuration,
		&config.Catalog.Path, &backend, &maxMag)
	if err != nil {
		return err
	}
	config.Scheduler.Staleness = staleness.String
	config.Catalog.Backend = backend.String
	if maxMag.Valid {
		v := maxMag.Float64
		config.Catalog.MaxMagnitude = &v
	}
	return nil
}

func (s *SQLiteProvider) loadSinks(config *ConfigData) error {
	rows, err := s.db.Query(`
		SELECT type, quiet, midi_port, base_url, status_path, view_path,
		       find_path, focus_path, fov_path, timeout, listen_addr, port
		FROM sinks
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY type`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sinkType string
		var quiet sql.NullBool
		var midiPort, baseURL, statusPath, viewPath sql.NullString
		var findPath, focusPath, fovPath, timeout, listenAddr sql.NullString
		var port sql.NullInt64

		err := rows.Scan(&sinkType, &quiet, &midiPort, &baseURL, &statusPath,
			&viewPath, &findPath, &focusPath, &fovPath, &timeout, &listenAddr, &port)
		if err != nil {
			return err
		}

		switch sinkType {
		case "console":
			config.Sinks.Console = &ConsoleData{Quiet: quiet.Bool}
		case "midi":
			config.Sinks.MIDI = &MIDIData{Port: midiPort.String}
		case "stellarium":
			config.Sinks.Stellarium = &StellariumData{
				BaseURL:    baseURL.String,
				StatusPath: statusPath.String,
				ViewPath:   viewPath.String,
				FindPath:   findPath.String,
				FocusPath:  focusPath.String,
				FOVPath:    fovPath.String,
				Timeout:    timeout.String,
			}
		case "eventserver":
			config.Sinks.EventServer = &EventServerData{
				ListenAddr: listenAddr.String,
				Port:       int(port.Int64),
			}
		default:
			return fmt.Errorf("unknown sink type in config database: %s", sinkType)
		}
	}
	return rows.Err()
}

// IsReadOnly returns false because SQLite configs can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
