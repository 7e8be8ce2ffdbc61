package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

const beginnerAccepted = "Débutant accepté"

var (
	yearsRe  = regexp.MustCompile(`(\d+)\s*An\(s\)`)
	monthsRe = regexp.MustCompile(`(\d+)\s*Mo(i)?s`)
)

// MapExperienceRequired remaps the experienceExige code: "E" (required)
// becomes "Y", anything else "N".
func MapExperienceRequired(code string) string {
	if strings.TrimSpace(code) == "E" {
		return "Y"
	}
	return "N"
}

// ParseExperience converts an experience label to a number of years.
// "Débutant accepté" is 0, "N An(s)" is N and "N Mois" is N/12. Any other
// label returns nil.
func ParseExperience(label string) *float64 {
	label = strings.TrimSpace(label)
	if label == beginnerAccepted {
		return floatPtr(0)
	}
	if m := yearsRe.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return floatPtr(float64(n))
		}
	}
	if m := monthsRe.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return floatPtr(float64(n) / 12)
		}
	}
	return nil
}

func floatPtr(v float64) *float64 {
	return &v
}
