package catalog

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func createTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stars.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	stmt := `INSERT INTO stars (name, bf, hr, hip, hd, ra_deg, dec_deg, vmag, mass, spectral, distance_ly)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	rows := [][]interface{}{
		{"Sirius", "Alp CMa", 2491, 32349, 48915, 101.287, -16.716, -1.46, nil, "A1V", 8.6},
		{"Vega", "Alp Lyr", 7001, 91262, 172167, 279.234, 38.784, 0.03, 2.135, "A0V", 25.0},
		{"FarSouth", "", 0, 1, 0, 200.0, -80.0, 2.0, nil, "K0", nil},
	}
	for _, r := range rows {
		if _, err := db.Exec(stmt, r...); err != nil {
			t.Fatalf("inserting star: %v", err)
		}
	}
	return path
}

func TestLoadSQLite(t *testing.T) {
	path := createTestDB(t)

	stars, err := LoadSQLite(path, Filter{LatitudeDeg: 36})
	if err != nil {
		t.Fatalf("LoadSQLite: %v", err)
	}
	if len(stars) != 2 {
		t.Fatalf("loaded %d stars, expected 2 after horizon filter", len(stars))
	}
	// Insertion order preserved.
	if stars[0].Name != "Sirius" || stars[1].Name != "Vega" {
		t.Errorf("order not preserved: %s, %s", stars[0].Name, stars[1].Name)
	}
	if stars[0].Mass != nil {
		t.Error("NULL mass should load as absent")
	}
	if stars[0].DistanceLY == nil || *stars[0].DistanceLY != 8.6 {
		t.Error("distance not carried through")
	}
	if stars[1].Mass == nil || *stars[1].Mass != 2.135 {
		t.Error("mass not carried through")
	}
	if stars[1].HIP != 91262 || stars[1].Bayer != "Alp Lyr" {
		t.Errorf("identifiers not carried through: %+v", stars[1])
	}
}

func TestLoadSQLiteEmptyAfterFilter(t *testing.T) {
	path := createTestDB(t)
	// A magnitude cut below every star leaves nothing.
	if _, err := LoadSQLite(path, Filter{LatitudeDeg: 36, MaxMagnitude: fptr(-3)}); err == nil {
		t.Error("expected error when filter leaves no stars")
	}
}
