package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/healthdash/internal/backend/cache"
	"github.com/jo-hoe/healthdash/internal/backend/database"
)

const (
	dashboardTopCoverage   = 10
	dashboardTopRegions    = 5
	dashboardTopInfections = 10
	insightsTopCountries   = 10
)

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	cache           cache.Cache
}

func NewCoreService(config *ServiceConfig) *CoreService {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		slog.Error("failed to initialize database service", "error", err)
		panic(err)
	}
	lookupCache, err := cache.NewCache(config.Cache.Type, config.Cache.Address, config.Cache.TTL)
	if err != nil {
		slog.Error("failed to initialize cache", "type", config.Cache.Type, "error", err)
		_ = databaseService.Close()
		panic(err)
	}
	return NewCoreServiceWith(config, databaseService, lookupCache)
}

// NewCoreServiceWith wires already constructed dependencies. A nil cache disables caching.
func NewCoreServiceWith(config *ServiceConfig, databaseService database.DatabaseService, lookupCache cache.Cache) *CoreService {
	if lookupCache == nil {
		lookupCache = cache.NoopCache{}
	}
	return &CoreService{
		config:          config,
		databaseService: databaseService,
		cache:           lookupCache,
	}
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString, config.Database.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

func (service *CoreService) Close() error {
	return errors.Join(service.cache.Close(), service.databaseService.Close())
}

// IsHealthy reports whether the database answers.
func (service *CoreService) IsHealthy() bool {
	return service.databaseService.DoesDatabaseExist()
}

func (service *CoreService) YearRange() YearRange {
	if service.config == nil || (service.config.Years.Min == 0 && service.config.Years.Max == 0) {
		return DefaultYearRange()
	}
	return YearRange{Min: service.config.Years.Min, Max: service.config.Years.Max}
}

func (service *CoreService) LogoEnabled() bool {
	return service.config == nil || service.config.LogoEnabled()
}

// Options holds the values offered by the filter dropdowns.
type Options struct {
	Countries        []string
	Regions          []string
	Antigens         []string
	Years            []string
	InfectionTypes   []string
	EconomicStatuses []string
	RegionCountries  []database.RegionCountries
}

func (service *CoreService) lookup(ctx context.Context, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	return cache.Strings(ctx, service.cache, key, load)
}

// ExploreOptions loads countries, regions, antigens, vaccination years and the region to country mapping.
func (service *CoreService) ExploreOptions(ctx context.Context) (Options, error) {
	var (
		options Options
		err     error
	)
	if options.Countries, err = service.lookup(ctx, "countries", service.databaseService.ListCountries); err != nil {
		return Options{}, err
	}
	if options.Regions, err = service.lookup(ctx, "regions", service.databaseService.ListRegions); err != nil {
		return Options{}, err
	}
	if options.Antigens, err = service.lookup(ctx, "antigens", service.databaseService.ListAntigens); err != nil {
		return Options{}, err
	}
	if options.Years, err = service.lookup(ctx, "years", service.databaseService.ListYears); err != nil {
		return Options{}, err
	}
	if options.RegionCountries, err = service.databaseService.ListRegionCountries(ctx); err != nil {
		return Options{}, err
	}
	return options, nil
}

// InfectionOptions loads countries, infection types, economic statuses and the YearDate years.
func (service *CoreService) InfectionOptions(ctx context.Context) (Options, error) {
	var (
		options Options
		err     error
	)
	if options.Countries, err = service.lookup(ctx, "countries", service.databaseService.ListCountries); err != nil {
		return Options{}, err
	}
	if options.InfectionTypes, err = service.lookup(ctx, "infection_types", service.databaseService.ListInfectionTypes); err != nil {
		return Options{}, err
	}
	if options.EconomicStatuses, err = service.lookup(ctx, "economic_statuses", service.databaseService.ListEconomicStatuses); err != nil {
		return Options{}, err
	}
	if options.Years, err = service.lookup(ctx, "infection_years", service.databaseService.ListInfectionYears); err != nil {
		return Options{}, err
	}
	return options, nil
}

// InsightsOptions loads the regions and antigens offered on the insights page.
func (service *CoreService) InsightsOptions(ctx context.Context) (Options, error) {
	options, err := service.ExploreOptions(ctx)
	if err != nil {
		return Options{}, err
	}
	options.Countries = nil
	options.RegionCountries = nil
	return options, nil
}

func (service *CoreService) CountriesByRegion(ctx context.Context, region string) ([]string, error) {
	if region == "" {
		return service.lookup(ctx, "countries", service.databaseService.ListCountries)
	}
	return service.lookup(ctx, "countries_by_region:"+region, func(ctx context.Context) ([]string, error) {
		return service.databaseService.ListCountriesByRegion(ctx, region)
	})
}

// Vaccinations validates the year filters and returns the matching records.
// Invalid input yields a *ValidationError and no query is executed.
func (service *CoreService) Vaccinations(ctx context.Context, filters Filters) ([]database.VaccinationRecord, error) {
	if err := service.YearRange().ValidateYears(filters.YearStart, filters.YearEnd); err != nil {
		return nil, err
	}
	return service.databaseService.QueryVaccinations(ctx, filters.ToQuery())
}

// Infections validates the year filters and returns the matching records.
func (service *CoreService) Infections(ctx context.Context, filters Filters) ([]database.InfectionRecord, error) {
	if err := service.YearRange().ValidateYears(filters.YearStart, filters.YearEnd); err != nil {
		return nil, err
	}
	return service.databaseService.QueryInfections(ctx, filters.ToQuery())
}

type Dashboard struct {
	Summary       database.DashboardSummary
	TopCoverage   []database.CountryCoverage
	Economy       []database.EconomySnapshot
	Regions       []database.RegionCount
	TopInfections []database.InfectionTotal
}

func (service *CoreService) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		dashboard Dashboard
		err       error
	)
	if dashboard.Summary, err = service.databaseService.GetDashboardSummary(ctx); err != nil {
		return Dashboard{}, err
	}
	if dashboard.TopCoverage, err = service.databaseService.TopCoverageByCountry(ctx, database.Filter{}, dashboardTopCoverage); err != nil {
		return Dashboard{}, err
	}
	if dashboard.Economy, err = service.databaseService.GetEconomySnapshot(ctx); err != nil {
		return Dashboard{}, err
	}
	if dashboard.Regions, err = service.databaseService.RegionCountryCounts(ctx, dashboardTopRegions); err != nil {
		return Dashboard{}, err
	}
	if dashboard.TopInfections, err = service.databaseService.TopInfections(ctx, dashboardTopInfections); err != nil {
		return Dashboard{}, err
	}
	return dashboard, nil
}

// Insights returns the ten countries with the highest average coverage for the region, antigen and years.
func (service *CoreService) Insights(ctx context.Context, filters Filters) ([]database.CountryCoverage, error) {
	if err := service.YearRange().ValidateYears(filters.YearStart, filters.YearEnd); err != nil {
		return nil, err
	}
	query := database.Filter{Region: filters.Region, Antigen: filters.Antigen}
	full := filters.ToQuery()
	query.YearStart, query.YearEnd = full.YearStart, full.YearEnd
	return service.databaseService.TopCoverageByCountry(ctx, query, insightsTopCountries)
}

type Trending struct {
	Detail  []database.InfectionRecord
	Summary []database.EconomicStatusSummary
}

// Trending needs both an economic status and an infection type; otherwise it returns nil.
// The summary covers every economic status for the infection type and years.
func (service *CoreService) Trending(ctx context.Context, filters Filters) (*Trending, error) {
	if err := service.YearRange().ValidateYears(filters.YearStart, filters.YearEnd); err != nil {
		return nil, err
	}
	if filters.EconomicStatus == "" || filters.InfectionType == "" {
		return nil, nil
	}
	query := filters.ToQuery()
	detail, err := service.databaseService.QueryInfections(ctx, query)
	if err != nil {
		return nil, err
	}
	summary, err := service.databaseService.InfectionsByEconomicStatus(ctx, database.Filter{
		InfectionType: query.InfectionType,
		YearStart:     query.YearStart,
		YearEnd:       query.YearEnd,
	})
	if err != nil {
		return nil, err
	}
	return &Trending{Detail: detail, Summary: summary}, nil
}

func (service *CoreService) Personas(ctx context.Context) ([]database.Persona, error) {
	return service.databaseService.ListPersonas(ctx)
}

func (service *CoreService) Feedback(ctx context.Context) ([]database.FeedbackEntry, error) {
	return service.databaseService.ListFeedback(ctx)
}

func (service *CoreService) SubmitFeedback(ctx context.Context, name, email, feedback string) (string, error) {
	return service.databaseService.InsertFeedback(ctx, database.FeedbackEntry{
		Name:     name,
		Email:    email,
		Feedback: feedback,
	})
}
