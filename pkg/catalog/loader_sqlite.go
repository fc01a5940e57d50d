package catalog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite catalog schema, shared with cmd/catalog-convert.
const Schema = `
CREATE TABLE IF NOT EXISTS stars (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL DEFAULT '',
	bf          TEXT NOT NULL DEFAULT '',
	hr          INTEGER NOT NULL DEFAULT 0,
	hip         INTEGER NOT NULL DEFAULT 0,
	hd          INTEGER NOT NULL DEFAULT 0,
	ra_deg      REAL NOT NULL,
	dec_deg     REAL NOT NULL,
	vmag        REAL NOT NULL,
	mass        REAL,
	spectral    TEXT NOT NULL DEFAULT '',
	distance_ly REAL
);
CREATE INDEX IF NOT EXISTS idx_stars_dec ON stars(dec_deg);
`

// LoadSQLite reads the star catalog from a SQLite database and applies the
// load-time filter. Row order (insertion id) is preserved so scheduling
// tie-breaks stay deterministic across backends.
func LoadSQLite(path string, filter Filter) ([]Star, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	rows, err := db.Query(`
		SELECT name, bf, hr, hip, hd, ra_deg, dec_deg, vmag, mass, spectral, distance_ly
		FROM stars
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stars: %w", err)
	}
	defer rows.Close()

	var raw []Star
	for rows.Next() {
		var s Star
		var mass, dist sql.NullFloat64
		err := rows.Scan(&s.Name, &s.Bayer, &s.HR, &s.HIP, &s.HD,
			&s.RADeg, &s.DecDeg, &s.Magnitude, &mass, &s.Spectral, &dist)
		if err != nil {
			return nil, fmt.Errorf("failed to scan star row: %w", err)
		}
		if mass.Valid {
			m := mass.Float64
			s.Mass = &m
		}
		if dist.Valid {
			d := dist.Float64
			s.DistanceLY = &d
		}
		raw = append(raw, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating star rows: %w", err)
	}

	stars := filter.apply(raw)
	if len(stars) == 0 {
		return nil, fmt.Errorf("catalog %s contains no usable stars after filtering", path)
	}
	return stars, nil
}
