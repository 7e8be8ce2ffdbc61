package model

import "time"

// FlatRow is a RawOffer with its nested place, salary and competency
// structures pulled out to top-level fields. Missing source fields are left
// empty (or nil for coordinates).
type FlatRow struct {
	ID                string
	Title             string
	Description       string
	DateCreation      string
	DateActualization string
	Latitude          *float64
	Longitude         *float64
	PostalCode        string
	ContractType      string
	ContractNature    string
	ExperienceBool    string // raw code: "E" required, "D" beginner accepted
	Experience        string // raw label, e.g. "3 An(s)"
	Salary            string // raw label
	CompanyField      string
	Competencies      []string
}

// SkillFlags records, per skill column name (e.g. "power_bi"), whether the
// keyword was found in the offer description.
type SkillFlags map[string]bool

// Flag renders the presence of a skill as "Y" or "N".
func (s SkillFlags) Flag(column string) string {
	if s[column] {
		return "Y"
	}
	return "N"
}

// EnrichedRow is the unit of storage and publication.
type EnrichedRow struct {
	ID                string
	Title             string
	DateCreation      string // YYYY-MM-DD
	DateActualization string
	Latitude          *float64
	Longitude         *float64
	PostalCode        string
	ContractType      string
	ContractNature    string
	ExperienceBool    string   // "Y" or "N"
	Experience        *float64 // years, nil when the label could not be parsed
	CompanyField      string
	Competencies      []string

	JobCategory string
	Chef        string // "Chef" or "Other"
	Skills      SkillFlags

	Year  int
	Month int
	Day   int

	MinSalary *float64 // annual euros
	MaxSalary *float64
	AvgSalary *float64

	ExtractedDate string // run date, YYYY-MM-DD
}

// RunReport summarizes one ingestion run from fetch to publish.
type RunReport struct {
	RunID      string
	Keyword    string
	From       string // YYYY-MM-DD, empty for an unbounded window
	To         string
	StartedAt  time.Time
	FinishedAt time.Time

	PagesRequested int
	PagesSkipped   int
	SkippedRanges  []string

	Fetched    int // offers returned by the API
	Dropped    int // unclassifiable rows
	Duplicates int // rows already stored or repeated earlier in the run
	Inserted   int

	SnapshotKey     string
	NothingToInsert bool

	Status string // "success", "partial" or "failed"
	Error  string
}

// Run statuses.
const (
	RunSuccess = "success"
	RunPartial = "partial"
	RunFailed  = "failed"
)
