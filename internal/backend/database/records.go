package database

// VaccinationRecord is one row of the Vaccination fact table resolved against its lookups.
type VaccinationRecord struct {
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	Antigen   string  `json:"antigen"`
	Year      int     `json:"year"`
	TargetNum float64 `json:"targetNum"`
	Doses     float64 `json:"doses"`
	Coverage  float64 `json:"coverage"` // percentage; negative values mark missing data
}

// InfectionRecord is one row of the InfectionData fact table resolved against its lookups.
type InfectionRecord struct {
	Country        string  `json:"country"`
	EconomicStatus string  `json:"economicStatus"`
	InfectionType  string  `json:"infectionType"`
	Year           int     `json:"year"`
	Cases          float64 `json:"cases"`
}

type RegionCountries struct {
	Region    string   `json:"region"`
	Countries []string `json:"countries"`
}

type DashboardSummary struct {
	TotalCountries      int
	TotalRegions        int
	TotalVaccines       int
	TotalInfectionCases int64
}

type CountryCoverage struct {
	Country         string  `json:"country"`
	AverageCoverage float64 `json:"averageCoverage"`
}

type EconomySnapshot struct {
	Phase              string
	CountryCount       int
	AverageVaccination float64
}

type RegionCount struct {
	Region       string
	CountryCount int
}

type InfectionTotal struct {
	InfectionType string
	TotalCases    float64
}

type EconomicStatusSummary struct {
	EconomicStatus string
	InfectionType  string
	CountryCount   int
	TotalCases     float64
	AverageCases   float64
}

type Persona struct {
	ID          int
	Title       string
	Name        string
	Age         int
	Occupation  string
	Education   string
	Location    string
	Language    string
	Disability  string
	Needs       string
	Goals       string
	Skills      string
	Image       string
	ImageCredit string
}

type FeedbackEntry struct {
	ID          string
	Name        string
	Email       string
	Feedback    string
	SubmittedAt string
}
