// Package testutil seeds a migrated database with a small WHO style dataset for tests.
package testutil

import (
	"database/sql"
	"testing"
)

var whoFixture = []string{
	`INSERT INTO Region (RegionID, region) VALUES (1, 'Africa'), (2, 'Europe'), (3, 'Western Pacific')`,
	`INSERT INTO Economy (economyID, phase) VALUES (1, 'Developing'), (2, 'Developed')`,
	`INSERT INTO Country (CountryID, name, region, economy) VALUES
		('KEN', 'Kenya', 1, 1),
		('NGA', 'Nigeria', 1, 1),
		('FRA', 'France', 2, 2),
		('KOR', 'Korea, Republic of', 3, 2)`,
	`INSERT INTO Antigen (AntigenID, name) VALUES ('MCV1', 'Measles'), ('POL3', 'Polio')`,
	`INSERT INTO YearDate (YearID) VALUES (2010), (2011), (2012), (2013)`,
	`INSERT INTO Vaccination (antigen, country, year, target_num, doses, coverage) VALUES
		('MCV1', 'KEN', 2010, 1000000, 800000, 80),
		('MCV1', 'KEN', 2011, 1000000, 850000, 85),
		('MCV1', 'KEN', 2012, 1000000, 900000, 90),
		('MCV1', 'KEN', 2013, 1000000, 920000, 92),
		('POL3', 'KEN', 2010, 1000000, 700000, 70),
		('POL3', 'KEN', 2011, NULL, NULL, -1),
		('MCV1', 'NGA', 2010, 6000000, 3000000, 50),
		('MCV1', 'NGA', 2011, 6000000, 3300000, 55),
		('MCV1', 'FRA', 2010, 800000, 760000, 95),
		('MCV1', 'FRA', 2012, 800000, 768000, 96),
		('MCV1', 'KOR', 2011, 450000, 441000, 98)`,
	`INSERT INTO Infection_Type (id, description) VALUES ('MEA', 'Measles'), ('DIP', 'Diphtheria')`,
	`INSERT INTO InfectionData (inf_type, country, year, cases) VALUES
		('MEA', 'KEN', 2010, 1200),
		('MEA', 'KEN', 2011, 900),
		('MEA', 'NGA', 2010, 3000),
		('MEA', 'FRA', 2010, 50),
		('DIP', 'KOR', 2011, 5),
		('DIP', 'NGA', 2012, -1)`,
	`INSERT INTO Personas (persona_id, title, name, age, occupation, education, location, language,
		disability, needs, goals, skills, image, image_credit) VALUES
		(1, 'Public Health Analyst', 'Amara Okafor', 34, 'Analyst', 'MPH', 'Lagos', 'English',
		 'None', 'Comparable regional figures', 'Spot coverage gaps', 'Spreadsheets', 'amara.png', 'Unsplash')`,
}

// SeedWHO loads the fixture dataset into an already migrated database.
//
// The fixture holds four countries in three regions, two antigens over 2010 to 2013
// (one coverage value of -1 and one row with NULL target and doses) and six infection rows
// (one with negative cases).
func SeedWHO(t testing.TB, db *sql.DB) {
	t.Helper()
	for _, stmt := range whoFixture {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed fixture: %v", err)
		}
	}
}
