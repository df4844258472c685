package domain

// DaycareRecord is one licensed child-care centre from the city's open
// dataset. Records are constructed once at snapshot load time and never
// mutated afterwards.
type DaycareRecord struct {
	ID         string  `json:"id"` // dataset LOC_ID
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	PostalCode string  `json:"postal_code,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Lat        float64 `json:"lat"` // WGS84 degrees
	Lon        float64 `json:"lon"`

	// Licensed spaces per age group.
	InfantSpaces       int `json:"infant_spaces"`
	ToddlerSpaces      int `json:"toddler_spaces"`
	PreschoolSpaces    int `json:"preschool_spaces"`
	KindergartenSpaces int `json:"kindergarten_spaces"`
	SchoolAgeSpaces    int `json:"schoolage_spaces"`
	TotalSpaces        int `json:"total_spaces"`

	Subsidy bool `json:"subsidy"` // has a fee-subsidy contract with the city
	CWELCC  bool `json:"cwelcc"`  // enrolled in the CWELCC fee-reduction program
}

// Capacity returns the licensed spaces for one age group.
func (d DaycareRecord) Capacity(g AgeGroup) int {
	switch g {
	case Infant:
		return d.InfantSpaces
	case Toddler:
		return d.ToddlerSpaces
	case Preschool:
		return d.PreschoolSpaces
	case Kindergarten:
		return d.KindergartenSpaces
	case SchoolAge:
		return d.SchoolAgeSpaces
	}
	return 0
}

// AgeGroup is one of the five fixed licensing categories.
type AgeGroup int

const (
	Infant AgeGroup = iota
	Toddler
	Preschool
	Kindergarten
	SchoolAge
)

// AgeGroups lists all groups in band order (youngest first).
var AgeGroups = []AgeGroup{Infant, Toddler, Preschool, Kindergarten, SchoolAge}

func (g AgeGroup) String() string {
	switch g {
	case Infant:
		return "infant"
	case Toddler:
		return "toddler"
	case Preschool:
		return "preschool"
	case Kindergarten:
		return "kindergarten"
	case SchoolAge:
		return "school_age"
	}
	return "unknown"
}

// Label is the human-readable band description shown to users.
func (g AgeGroup) Label() string {
	switch g {
	case Infant:
		return "Infant (0-18 months)"
	case Toddler:
		return "Toddler (18-30 months)"
	case Preschool:
		return "Preschool (30 months - 4 years)"
	case Kindergarten:
		return "Kindergarten (4-5 years)"
	case SchoolAge:
		return "School Age (6+ years)"
	}
	return "unknown"
}

// OriginPoint is the geocoded location an address search starts from.
type OriginPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TravelTimes holds provider-formatted durations like "14 mins"; "N/A" when
// the upstream could not produce one.
type TravelTimes struct {
	Walk    string `json:"walk"`
	Transit string `json:"transit"`
	Drive   string `json:"drive"`
}

// NearbyResult is one qualifying daycare with its computed distance from the
// origin. Travel times are filled in by a separate enrichment pass.
type NearbyResult struct {
	DaycareRecord
	DistanceKm    float64     `json:"distance_km"`
	GroupCapacity int         `json:"capacity"` // spaces in the child's derived age group
	Travel        TravelTimes `json:"travel_times"`
}

// SearchStats summarizes a result set for the shortlist view.
type SearchStats struct {
	Total           int `json:"total"`
	WalkableCount   int `json:"walkable_count"` // walk time <= 15 min
	CWELCCCount     int `json:"cwelcc_count"`
	CWELCCPercent   int `json:"cwelcc_percent"`
	SubsidyCount    int `json:"subsidy_count"`
	SubsidyPercent  int `json:"subsidy_percent"`
	TotalGroupSpace int `json:"total_spaces"`
}
