// Package normalize turns the free-text fields of an offer into structured
// values. Every function is total: malformed input yields a zero or nil
// value, never an error.
package normalize

import (
	"regexp"
	"strings"
)

// Category is the closed set of job categories derived from a title.
type Category string

const (
	BusinessAnalyst    Category = "Business Analyst"
	DataProductOwner   Category = "Data Product Owner"
	DataProjectManager Category = "Data Project Manager"
	ConsultantBI       Category = "Consultant BI"
	ConsultantData     Category = "Consultant Data"
	SoftwareDeveloper  Category = "Software - Développeur Data"
	DataTechnician     Category = "Technicien Data"
	DataAssistant      Category = "Data Assistant"
	DataEngineer       Category = "Data Engineer"
	DataAnalyst        Category = "Data Analyst"
	DataArchitect      Category = "Data Architect"
	DataScientist      Category = "Data Scientist"
	DataManager        Category = "Data Manager"
	OtherDataPosition  Category = "Other Data Position"
	Other              Category = "Other"
)

// Rule maps a pattern on the lower-cased title to a category.
type Rule struct {
	Pattern  *regexp.Regexp
	Category Category
}

// categoryRules is evaluated top to bottom and the first match wins. Patterns
// overlap ("data" matches almost everything), so the order is part of the
// classification.
var categoryRules = []Rule{
	{regexp.MustCompile(`business analyst`), BusinessAnalyst},
	{regexp.MustCompile(`owner|product`), DataProductOwner},
	{regexp.MustCompile(`chef de projet`), DataProjectManager},
	{regexp.MustCompile(`consultant bi|bi`), ConsultantBI},
	{regexp.MustCompile(`consultant data|consultant`), ConsultantData},
	{regexp.MustCompile(`back|développeur|infra|software`), SoftwareDeveloper},
	{regexp.MustCompile(`tech`), DataTechnician},
	{regexp.MustCompile(`assistant`), DataAssistant},
	{regexp.MustCompile(`data engineer|ingénieur|engineer|ingenieur`), DataEngineer},
	{regexp.MustCompile(`data analyst|analyste|analytics`), DataAnalyst},
	{regexp.MustCompile(`data architect|architect`), DataArchitect},
	{regexp.MustCompile(`data scientist|scientifique|science`), DataScientist},
	{regexp.MustCompile(`data manager|gestionnaire|manager|administrator|gestion`), DataManager},
	{regexp.MustCompile(`data`), OtherDataPosition},
}

// Rules returns a copy of the ordered classification table.
func Rules() []Rule {
	out := make([]Rule, len(categoryRules))
	copy(out, categoryRules)
	return out
}

// ClassifyJobTitle returns the category of the first rule matching the
// lower-cased title, or Other when none does.
func ClassifyJobTitle(title string) Category {
	lower := strings.ToLower(title)
	for _, r := range categoryRules {
		if r.Pattern.MatchString(lower) {
			return r.Category
		}
	}
	return Other
}

// ClassifyChef flags management titles. It is independent of the category.
func ClassifyChef(title string) string {
	if strings.Contains(strings.ToLower(title), "chef") {
		return "Chef"
	}
	return "Other"
}
