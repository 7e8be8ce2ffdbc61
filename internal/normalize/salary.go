package normalize

import (
	"regexp"
	"strconv"
)

// SalaryRange is an annualized salary in euros. The three fields are either
// all set or all nil.
type SalaryRange struct {
	Min *float64
	Max *float64
	Avg *float64
}

var (
	monthlyRe = regexp.MustCompile(`Mensuel de (\d+(?:\.\d+)?) Euros(?: à (\d+(?:\.\d+)?))?`)
	annualRe  = regexp.MustCompile(`Annuel de (\d+(?:\.\d+)?) Euros(?: à (\d+(?:\.\d+)?))?`)
)

// ParseSalary extracts a salary range from a label such as
// "Mensuel de 3000 Euros à 4000 Euros". Monthly amounts are multiplied by 12.
// A single bound becomes both min and max.
func ParseSalary(label string) SalaryRange {
	if label == "" {
		return SalaryRange{}
	}

	factor := 1.0
	m := monthlyRe.FindStringSubmatch(label)
	if m != nil {
		factor = 12
	} else {
		m = annualRe.FindStringSubmatch(label)
	}
	if m == nil {
		return SalaryRange{}
	}

	lo, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return SalaryRange{}
	}
	hi := lo
	if m[2] != "" {
		hi, err = strconv.ParseFloat(m[2], 64)
		if err != nil {
			return SalaryRange{}
		}
	}
	lo, hi = lo*factor, hi*factor
	if hi < lo {
		lo, hi = hi, lo
	}

	return SalaryRange{
		Min: floatPtr(lo),
		Max: floatPtr(hi),
		Avg: floatPtr((lo + hi) / 2),
	}
}
