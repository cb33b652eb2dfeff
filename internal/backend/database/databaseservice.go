package database

import (
	"context"
	"database/sql"
)

type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// QueryVaccinations returns vaccination facts joined with their country, region and antigen,
	// ordered by year. Empty filter fields do not constrain the result.
	QueryVaccinations(ctx context.Context, filter Filter) ([]VaccinationRecord, error)
	// QueryInfections returns infection facts ordered by year, then by cases descending.
	QueryInfections(ctx context.Context, filter Filter) ([]InfectionRecord, error)

	ListCountries(ctx context.Context) ([]string, error)
	ListRegions(ctx context.Context) ([]string, error)
	ListAntigens(ctx context.Context) ([]string, error)
	ListYears(ctx context.Context) ([]string, error)
	ListInfectionYears(ctx context.Context) ([]string, error)
	ListInfectionTypes(ctx context.Context) ([]string, error)
	ListEconomicStatuses(ctx context.Context) ([]string, error)
	ListRegionCountries(ctx context.Context) ([]RegionCountries, error)
	ListCountriesByRegion(ctx context.Context, region string) ([]string, error)

	GetDashboardSummary(ctx context.Context) (DashboardSummary, error)
	TopCoverageByCountry(ctx context.Context, filter Filter, limit int) ([]CountryCoverage, error)
	GetEconomySnapshot(ctx context.Context) ([]EconomySnapshot, error)
	RegionCountryCounts(ctx context.Context, limit int) ([]RegionCount, error)
	TopInfections(ctx context.Context, limit int) ([]InfectionTotal, error)
	InfectionsByEconomicStatus(ctx context.Context, filter Filter) ([]EconomicStatusSummary, error)

	ListPersonas(ctx context.Context) ([]Persona, error)
	ListFeedback(ctx context.Context) ([]FeedbackEntry, error)
	InsertFeedback(ctx context.Context, entry FeedbackEntry) (string, error)
}
