package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/amishk599/jobmarket/internal/model"
	"github.com/amishk599/jobmarket/internal/normalize"
)

type colKind int

const (
	kindText colKind = iota
	kindReal
	kindInt
)

type column struct {
	name string
	kind colKind
}

var headColumns = []column{
	{"id", kindText},
	{"title", kindText},
	{"code_postal", kindText},
	{"latitude", kindReal},
	{"longitude", kindReal},
	{"date_creation", kindText},
	{"date_actualization", kindText},
	{"contract_type", kindText},
	{"contract_nature", kindText},
	{"experience_bool", kindText},
	{"experience", kindReal},
	{"company_field", kindText},
	{"competencies", kindText},
	{"job_category", kindText},
	{"chef", kindText},
	{"year", kindInt},
	{"month", kindInt},
	{"day", kindInt},
}

var tailColumns = []column{
	{"extracted_date", kindText},
	{"min_salary", kindReal},
	{"max_salary", kindReal},
	{"avg_salary", kindReal},
}

// columns returns the job table layout: fixed columns, one Y/N column per
// skill, then the extraction date and salary triple.
func columns() []column {
	skills := normalize.SkillColumns()
	cols := make([]column, 0, len(headColumns)+len(skills)+len(tailColumns))
	cols = append(cols, headColumns...)
	for _, s := range skills {
		cols = append(cols, column{s, kindText})
	}
	return append(cols, tailColumns...)
}

// ColumnNames lists the job table columns in storage order.
func ColumnNames() []string {
	cols := columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return int64(v)
}

func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// rowValues flattens a row into bind arguments in columns order.
func rowValues(r model.EnrichedRow) ([]any, error) {
	comp := "[]"
	if len(r.Competencies) > 0 {
		b, err := json.Marshal(r.Competencies)
		if err != nil {
			return nil, fmt.Errorf("encoding competencies for %s: %w", r.ID, err)
		}
		comp = string(b)
	}

	vals := []any{
		r.ID,
		r.Title,
		nullText(r.PostalCode),
		nullFloat(r.Latitude),
		nullFloat(r.Longitude),
		nullText(r.DateCreation),
		nullText(r.DateActualization),
		nullText(r.ContractType),
		nullText(r.ContractNature),
		r.ExperienceBool,
		nullFloat(r.Experience),
		nullText(r.CompanyField),
		comp,
		r.JobCategory,
		r.Chef,
		nullInt(r.Year),
		nullInt(r.Month),
		nullInt(r.Day),
	}
	for _, s := range normalize.SkillColumns() {
		vals = append(vals, r.Skills.Flag(s))
	}
	return append(vals,
		r.ExtractedDate,
		nullFloat(r.MinSalary),
		nullFloat(r.MaxSalary),
		nullFloat(r.AvgSalary),
	), nil
}

// rowScanner holds scan destinations for one row in columns order.
type rowScanner struct {
	id, title, postal               sql.NullString
	lat, long                       sql.NullFloat64
	created, updated                sql.NullString
	contractType, contractNature    sql.NullString
	expBool                         sql.NullString
	exp                             sql.NullFloat64
	companyField, competencies      sql.NullString
	category, chef                  sql.NullString
	year, month, day                sql.NullInt64
	skills                          []sql.NullString
	extracted                       sql.NullString
	minSalary, maxSalary, avgSalary sql.NullFloat64
}

func newRowScanner() *rowScanner {
	return &rowScanner{skills: make([]sql.NullString, len(normalize.SkillColumns()))}
}

func (s *rowScanner) dest() []any {
	d := []any{
		&s.id, &s.title, &s.postal, &s.lat, &s.long, &s.created, &s.updated,
		&s.contractType, &s.contractNature, &s.expBool, &s.exp, &s.companyField,
		&s.competencies, &s.category, &s.chef, &s.year, &s.month, &s.day,
	}
	for i := range s.skills {
		d = append(d, &s.skills[i])
	}
	return append(d, &s.extracted, &s.minSalary, &s.maxSalary, &s.avgSalary)
}

func floatOrNil(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *rowScanner) row() (model.EnrichedRow, error) {
	r := model.EnrichedRow{
		ID:                s.id.String,
		Title:             s.title.String,
		PostalCode:        s.postal.String,
		Latitude:          floatOrNil(s.lat),
		Longitude:         floatOrNil(s.long),
		DateCreation:      s.created.String,
		DateActualization: s.updated.String,
		ContractType:      s.contractType.String,
		ContractNature:    s.contractNature.String,
		ExperienceBool:    s.expBool.String,
		Experience:        floatOrNil(s.exp),
		CompanyField:      s.companyField.String,
		JobCategory:       s.category.String,
		Chef:              s.chef.String,
		Year:              int(s.year.Int64),
		Month:             int(s.month.Int64),
		Day:               int(s.day.Int64),
		ExtractedDate:     s.extracted.String,
		MinSalary:         floatOrNil(s.minSalary),
		MaxSalary:         floatOrNil(s.maxSalary),
		AvgSalary:         floatOrNil(s.avgSalary),
	}
	if s.competencies.Valid && s.competencies.String != "" {
		if err := json.Unmarshal([]byte(s.competencies.String), &r.Competencies); err != nil {
			return r, fmt.Errorf("decoding competencies for %s: %w", r.ID, err)
		}
		if len(r.Competencies) == 0 {
			r.Competencies = nil
		}
	}
	r.Skills = make(model.SkillFlags, len(s.skills))
	for i, col := range normalize.SkillColumns() {
		r.Skills[col] = s.skills[i].String == "Y"
	}
	return r, nil
}
