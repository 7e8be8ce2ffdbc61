// Package extract flattens raw API offers into FlatRows.
package extract

import (
	"strings"

	"github.com/amishk599/jobmarket/internal/model"
)

// Flatten pulls the nested place, salary and competency structures of an
// offer out to top-level fields. Absent structures leave their fields empty.
func Flatten(o model.RawOffer) model.FlatRow {
	row := model.FlatRow{
		ID:                strings.TrimSpace(o.ID),
		Title:             o.Title,
		Description:       o.Description,
		DateCreation:      o.DateCreation,
		DateActualization: o.DateActualisation,
		ContractType:      o.ContractType,
		ContractNature:    o.ContractNature,
		ExperienceBool:    o.ExperienceRequired,
		Experience:        o.ExperienceLabel,
		CompanyField:      o.CompanyField,
	}

	if o.Place != nil {
		row.Latitude = o.Place.Latitude
		row.Longitude = o.Place.Longitude
		row.PostalCode = o.Place.PostalCode
	}

	if o.Salary != nil {
		row.Salary = o.Salary.Label
	}

	for _, c := range o.Competencies {
		if c.Label == "" {
			continue
		}
		row.Competencies = append(row.Competencies, c.Label)
	}

	return row
}

// FlattenAll flattens a batch of offers, preserving order.
func FlattenAll(offers []model.RawOffer) []model.FlatRow {
	rows := make([]model.FlatRow, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, Flatten(o))
	}
	return rows
}
