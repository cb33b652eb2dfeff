package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jo-hoe/healthdash/internal/metrics"
	_ "modernc.org/sqlite"
)

const (
	DefaultQueryTimeout = 30 * time.Second
	feedbackTimeLayout  = "2006-01-02 15:04:05"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
	queryTimeout     time.Duration
}

func NewSQLiteDatabase(connectionString string, queryTimeout time.Duration) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// Every new connection to an in-memory database is a separate empty database.
	if isInMemory(connectionString) {
		db.SetMaxOpenConns(1)
	}
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
		queryTimeout:     queryTimeout,
	}, nil
}

func isInMemory(connectionString string) bool {
	return connectionString == ":memory:" ||
		strings.Contains(connectionString, "mode=memory") ||
		strings.HasPrefix(connectionString, "file::memory:")
}

// CreateDatabase applies the embedded migrations. It is idempotent.
func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	if err := migrate(s.db); err != nil {
		return nil, err
	}
	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *SQLiteDatabase) QueryVaccinations(ctx context.Context, filter Filter) ([]VaccinationRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("vaccinations", time.Now())

	where := vaccinationWhere(filter)
	query := `SELECT c.name, r.region, a.name, v.year, v.target_num, v.doses, v.coverage
		FROM Vaccination v
		JOIN Country c ON v.country = c.CountryID
		JOIN Region r ON c.region = r.RegionID
		JOIN Antigen a ON v.antigen = a.AntigenID` +
		where.String() +
		` ORDER BY v.year, c.name, a.name`

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vaccinations: %w", err)
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	records := make([]VaccinationRecord, 0)
	for rows.Next() {
		var (
			rec                     VaccinationRecord
			year                    sql.NullInt64
			target, doses, coverage sql.NullFloat64
		)
		if err := rows.Scan(&rec.Country, &rec.Region, &rec.Antigen, &year, &target, &doses, &coverage); err != nil {
			return nil, fmt.Errorf("failed to scan vaccination row: %w", err)
		}
		rec.Year = int(year.Int64)
		rec.TargetNum = target.Float64
		rec.Doses = doses.Float64
		rec.Coverage = coverage.Float64
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteDatabase) QueryInfections(ctx context.Context, filter Filter) ([]InfectionRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("infections", time.Now())

	where := infectionWhere(filter)
	query := `SELECT c.name, e.phase, it.description, yd.YearID, inf.cases
		FROM InfectionData inf
		JOIN Country c ON inf.country = c.CountryID
		JOIN Economy e ON c.economy = e.economyID
		JOIN Infection_Type it ON inf.inf_type = it.id
		JOIN YearDate yd ON inf.year = yd.YearID` +
		where.String() +
		` ORDER BY yd.YearID, inf.cases DESC`

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query infections: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]InfectionRecord, 0)
	for rows.Next() {
		var (
			rec   InfectionRecord
			cases sql.NullFloat64
		)
		if err := rows.Scan(&rec.Country, &rec.EconomicStatus, &rec.InfectionType, &rec.Year, &cases); err != nil {
			return nil, fmt.Errorf("failed to scan infection row: %w", err)
		}
		rec.Cases = cases.Float64
		records = append(records, rec)
	}
	return records, rows.Err()
}

// queryStrings runs a single column query and drops NULL values.
func (s *SQLiteDatabase) queryStrings(ctx context.Context, name, query string, args ...any) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery(name, time.Now())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", name, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	values := make([]string, 0)
	for rows.Next() {
		var value sql.NullString
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", name, err)
		}
		if value.Valid {
			values = append(values, value.String)
		}
	}
	return values, rows.Err()
}

func (s *SQLiteDatabase) ListCountries(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "countries", "SELECT DISTINCT name FROM Country ORDER BY name")
}

func (s *SQLiteDatabase) ListRegions(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "regions", "SELECT DISTINCT region FROM Region ORDER BY region")
}

func (s *SQLiteDatabase) ListAntigens(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "antigens", "SELECT DISTINCT name FROM Antigen ORDER BY name")
}

func (s *SQLiteDatabase) ListYears(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "years", "SELECT DISTINCT year FROM Vaccination WHERE year IS NOT NULL ORDER BY year")
}

func (s *SQLiteDatabase) ListInfectionYears(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "infection_years", "SELECT DISTINCT YearID FROM YearDate ORDER BY YearID")
}

func (s *SQLiteDatabase) ListInfectionTypes(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "infection_types", "SELECT DISTINCT description FROM Infection_Type ORDER BY description")
}

func (s *SQLiteDatabase) ListEconomicStatuses(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "economic_statuses", "SELECT DISTINCT phase FROM Economy ORDER BY phase")
}

func (s *SQLiteDatabase) ListCountriesByRegion(ctx context.Context, region string) ([]string, error) {
	return s.queryStrings(ctx, "countries_by_region", `SELECT c.name
		FROM Country c
		JOIN Region r ON c.region = r.RegionID
		WHERE r.region = ?
		ORDER BY c.name`, strings.TrimSpace(region))
}

func (s *SQLiteDatabase) ListRegionCountries(ctx context.Context) ([]RegionCountries, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("region_countries", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT r.region, c.name
		FROM Country c
		JOIN Region r ON c.region = r.RegionID
		ORDER BY r.region, c.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list region countries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	mappings := make([]RegionCountries, 0)
	for rows.Next() {
		var region, country string
		if err := rows.Scan(&region, &country); err != nil {
			return nil, fmt.Errorf("failed to scan region country: %w", err)
		}
		last := len(mappings) - 1
		if last < 0 || mappings[last].Region != region {
			mappings = append(mappings, RegionCountries{Region: region})
			last++
		}
		mappings[last].Countries = append(mappings[last].Countries, country)
	}
	return mappings, rows.Err()
}

func (s *SQLiteDatabase) GetDashboardSummary(ctx context.Context) (DashboardSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("dashboard_summary", time.Now())

	var summary DashboardSummary
	counts := []struct {
		query string
		dest  any
	}{
		{"SELECT COUNT(DISTINCT CountryID) FROM Country", &summary.TotalCountries},
		{"SELECT COUNT(DISTINCT RegionID) FROM Region", &summary.TotalRegions},
		{"SELECT COUNT(DISTINCT AntigenID) FROM Antigen", &summary.TotalVaccines},
		{"SELECT CAST(COALESCE(SUM(cases), 0) AS INTEGER) FROM InfectionData", &summary.TotalInfectionCases},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return DashboardSummary{}, fmt.Errorf("failed to load dashboard summary: %w", err)
		}
	}
	return summary, nil
}

func (s *SQLiteDatabase) TopCoverageByCountry(ctx context.Context, filter Filter, limit int) ([]CountryCoverage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("top_coverage", time.Now())

	where := &whereClause{}
	where.require("v.coverage IS NOT NULL")
	where.require("v.coverage > 0")
	filtered := vaccinationWhere(filter)
	where.conditions = append(where.conditions, filtered.conditions...)
	where.args = append(where.args, filtered.args...)

	query := `SELECT c.name, ROUND(AVG(v.coverage), 2) AS avg_coverage
		FROM Vaccination v
		JOIN Country c ON v.country = c.CountryID
		JOIN Region r ON c.region = r.RegionID
		JOIN Antigen a ON v.antigen = a.AntigenID` +
		where.String() +
		` GROUP BY c.name
		ORDER BY avg_coverage DESC, c.name
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, append(where.args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query coverage by country: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]CountryCoverage, 0)
	for rows.Next() {
		var row CountryCoverage
		if err := rows.Scan(&row.Country, &row.AverageCoverage); err != nil {
			return nil, fmt.Errorf("failed to scan coverage by country: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *SQLiteDatabase) GetEconomySnapshot(ctx context.Context) ([]EconomySnapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("economy_snapshot", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT e.phase, COUNT(DISTINCT c.CountryID), AVG(v.coverage)
		FROM Economy e
		JOIN Country c ON e.economyID = c.economy
		LEFT JOIN Vaccination v ON c.CountryID = v.country
		GROUP BY e.phase
		ORDER BY e.phase`)
	if err != nil {
		return nil, fmt.Errorf("failed to query economy snapshot: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]EconomySnapshot, 0)
	for rows.Next() {
		var (
			row     EconomySnapshot
			average sql.NullFloat64
		)
		if err := rows.Scan(&row.Phase, &row.CountryCount, &average); err != nil {
			return nil, fmt.Errorf("failed to scan economy snapshot: %w", err)
		}
		row.AverageVaccination = average.Float64
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *SQLiteDatabase) RegionCountryCounts(ctx context.Context, limit int) ([]RegionCount, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("region_counts", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT r.region, COUNT(c.CountryID) AS country_count
		FROM Region r
		LEFT JOIN Country c ON r.RegionID = c.region
		GROUP BY r.region
		ORDER BY country_count DESC, r.region
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query region counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]RegionCount, 0)
	for rows.Next() {
		var row RegionCount
		if err := rows.Scan(&row.Region, &row.CountryCount); err != nil {
			return nil, fmt.Errorf("failed to scan region count: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *SQLiteDatabase) TopInfections(ctx context.Context, limit int) ([]InfectionTotal, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("top_infections", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT it.description, COALESCE(SUM(inf.cases), 0) AS total_cases
		FROM InfectionData inf
		JOIN Infection_Type it ON inf.inf_type = it.id
		GROUP BY it.description
		ORDER BY total_cases DESC, it.description
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top infections: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]InfectionTotal, 0)
	for rows.Next() {
		var row InfectionTotal
		if err := rows.Scan(&row.InfectionType, &row.TotalCases); err != nil {
			return nil, fmt.Errorf("failed to scan top infection: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *SQLiteDatabase) InfectionsByEconomicStatus(ctx context.Context, filter Filter) ([]EconomicStatusSummary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("infections_by_economic_status", time.Now())

	where := infectionWhere(filter)
	query := `SELECT e.phase, it.description, COUNT(DISTINCT c.CountryID),
			COALESCE(SUM(inf.cases), 0) AS total_cases, COALESCE(AVG(inf.cases), 0)
		FROM InfectionData inf
		JOIN Country c ON inf.country = c.CountryID
		JOIN Economy e ON c.economy = e.economyID
		JOIN Infection_Type it ON inf.inf_type = it.id
		JOIN YearDate yd ON inf.year = yd.YearID` +
		where.String() +
		` GROUP BY e.phase, it.description
		ORDER BY total_cases DESC`

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query infections by economic status: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]EconomicStatusSummary, 0)
	for rows.Next() {
		var row EconomicStatusSummary
		if err := rows.Scan(&row.EconomicStatus, &row.InfectionType, &row.CountryCount, &row.TotalCases, &row.AverageCases); err != nil {
			return nil, fmt.Errorf("failed to scan economic status summary: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *SQLiteDatabase) ListPersonas(ctx context.Context) ([]Persona, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("personas", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT persona_id, COALESCE(title, ''), COALESCE(name, ''), COALESCE(age, 0),
			COALESCE(occupation, ''), COALESCE(education, ''), COALESCE(location, ''), COALESCE(language, ''),
			COALESCE(disability, ''), COALESCE(needs, ''), COALESCE(goals, ''), COALESCE(skills, ''),
			COALESCE(image, ''), COALESCE(image_credit, '')
		FROM Personas
		ORDER BY persona_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query personas: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	personas := make([]Persona, 0)
	for rows.Next() {
		var p Persona
		if err := rows.Scan(&p.ID, &p.Title, &p.Name, &p.Age, &p.Occupation, &p.Education, &p.Location,
			&p.Language, &p.Disability, &p.Needs, &p.Goals, &p.Skills, &p.Image, &p.ImageCredit); err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas = append(personas, p)
	}
	return personas, rows.Err()
}

func (s *SQLiteDatabase) ListFeedback(ctx context.Context) ([]FeedbackEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("feedback", time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(id, ''), name, email, feedback, submitted_at
		FROM Feedback
		ORDER BY submitted_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]FeedbackEntry, 0)
	for rows.Next() {
		var entry FeedbackEntry
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Email, &entry.Feedback, &entry.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// InsertFeedback stores a feedback entry and returns its id. Missing ids and timestamps are generated.
func (s *SQLiteDatabase) InsertFeedback(ctx context.Context, entry FeedbackEntry) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveQuery("insert_feedback", time.Now())

	if entry.ID == "" {
		entry.ID = generateID()
	}
	if entry.SubmittedAt == "" {
		entry.SubmittedAt = time.Now().UTC().Format(feedbackTimeLayout)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO Feedback (id, name, email, feedback, submitted_at) VALUES (?, ?, ?, ?, ?)",
		entry.ID, entry.Name, entry.Email, entry.Feedback, entry.SubmittedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert feedback: %w", err)
	}
	return entry.ID, nil
}
