// catalog-convert translates star catalogs between the JSON and SQLite
// formats understood by starchime.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/starchime/starchime/pkg/catalog"
)

func main() {
	input := flag.String("input", "", "Input catalog path (.json or .db)")
	output := flag.String("output", "", "Output catalog path (.json or .db)")
	flag.Parse()

	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "both -input and -output are required")
		flag.Usage()
		os.Exit(1)
	}

	if err := convert(*input, *output); err != nil {
		fmt.Fprintf(os.Stderr, "conversion failed: %v\n", err)
		os.Exit(1)
	}
}

func convert(input, output string) error {
	stars, err := read(input)
	if err != nil {
		return err
	}
	if err := write(output, stars); err != nil {
		return err
	}
	fmt.Printf("wrote %d stars to %s\n", len(stars), output)
	return nil
}

func read(path string) ([]catalog.Star, error) {
	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var stars []catalog.Star
		if err := json.Unmarshal(data, &stars); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
		return stars, nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT name, bf, hr, hip, hd, ra_deg, dec_deg, vmag, mass, spectral, distance_ly
		FROM stars ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stars []catalog.Star
	for rows.Next() {
		var s catalog.Star
		var mass, dist sql.NullFloat64
		err := rows.Scan(&s.Name, &s.Bayer, &s.HR, &s.HIP, &s.HD,
			&s.RADeg, &s.DecDeg, &s.Magnitude, &mass, &s.Spectral, &dist)
		if err != nil {
			return nil, err
		}
		if mass.Valid {
			m := mass.Float64
			s.Mass = &m
		}
		if dist.Valid {
			d := dist.Float64
			s.DistanceLY = &d
		}
		stars = append(stars, s)
	}
	return stars, rows.Err()
}

func write(path string, stars []catalog.Star) error {
	if strings.HasSuffix(path, ".json") {
		data, err := json.MarshalIndent(stars, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(catalog.Schema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO stars (name, bf, hr, hip, hd, ra_deg, dec_deg, vmag, mass, spectral, distance_ly)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range stars {
		s := &stars[i]
		var mass, dist interface{}
		if s.Mass != nil {
			mass = *s.Mass
		}
		if s.DistanceLY != nil {
			dist = *s.DistanceLY
		}
		_, err := stmt.Exec(s.Name, s.Bayer, s.HR, s.HIP, s.HD,
			s.RADeg, s.DecDeg, s.Magnitude, mass, s.Spectral, dist)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("error inserting star %s: %w", s.DisplayName(), err)
		}
	}
	return tx.Commit()
}
