// Package snapshot encodes enriched rows as a dated parquet file.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/amishk599/jobmarket/internal/model"
	"github.com/amishk599/jobmarket/internal/normalize"
)

const ContentType = "application/vnd.apache.parquet"

type field struct {
	name  string
	node  parquet.Node
	value func(model.EnrichedRow) parquet.Value
}

func text(s string) parquet.Value {
	if s == "" {
		return parquet.NullValue()
	}
	return parquet.ByteArrayValue([]byte(s))
}

func double(p *float64) parquet.Value {
	if p == nil {
		return parquet.NullValue()
	}
	return parquet.DoubleValue(*p)
}

func integer(v int) parquet.Value {
	if v == 0 {
		return parquet.NullValue()
	}
	return parquet.Int64Value(int64(v))
}

var (
	optString = parquet.Optional(parquet.String())
	optDouble = parquet.Optional(parquet.Leaf(parquet.DoubleType))
	optInt    = parquet.Optional(parquet.Int(64))
)

func fields() []field {
	fs := []field{
		{"id", optString, func(r model.EnrichedRow) parquet.Value { return text(r.ID) }},
		{"title", optString, func(r model.EnrichedRow) parquet.Value { return text(r.Title) }},
		{"code_postal", optString, func(r model.EnrichedRow) parquet.Value { return text(r.PostalCode) }},
		{"latitude", optDouble, func(r model.EnrichedRow) parquet.Value { return double(r.Latitude) }},
		{"longitude", optDouble, func(r model.EnrichedRow) parquet.Value { return double(r.Longitude) }},
		{"date_creation", optString, func(r model.EnrichedRow) parquet.Value { return text(r.DateCreation) }},
		{"date_actualization", optString, func(r model.EnrichedRow) parquet.Value { return text(r.DateActualization) }},
		{"contract_type", optString, func(r model.EnrichedRow) parquet.Value { return text(r.ContractType) }},
		{"contract_nature", optString, func(r model.EnrichedRow) parquet.Value { return text(r.ContractNature) }},
		{"experience_bool", optString, func(r model.EnrichedRow) parquet.Value { return text(r.ExperienceBool) }},
		{"experience", optDouble, func(r model.EnrichedRow) parquet.Value { return double(r.Experience) }},
		{"company_field", optString, func(r model.EnrichedRow) parquet.Value { return text(r.CompanyField) }},
		{"competencies", optString, func(r model.EnrichedRow) parquet.Value { return text(competencies(r)) }},
		{"job_category", optString, func(r model.EnrichedRow) parquet.Value { return text(r.JobCategory) }},
		{"chef", optString, func(r model.EnrichedRow) parquet.Value { return text(r.Chef) }},
		{"year", optInt, func(r model.EnrichedRow) parquet.Value { return integer(r.Year) }},
		{"month", optInt, func(r model.EnrichedRow) parquet.Value { return integer(r.Month) }},
		{"day", optInt, func(r model.EnrichedRow) parquet.Value { return integer(r.Day) }},
		{"extracted_date", optString, func(r model.EnrichedRow) parquet.Value { return text(r.ExtractedDate) }},
		{"min_salary", optDouble, func(r model.EnrichedRow) parquet.Value { return double(r.MinSalary) }},
		{"max_salary", optDouble, func(r model.EnrichedRow) parquet.Value { return double(r.MaxSalary) }},
		{"avg_salary", optDouble, func(r model.EnrichedRow) parquet.Value { return double(r.AvgSalary) }},
	}
	for _, col := range normalize.SkillColumns() {
		col := col
		fs = append(fs, field{col, optString, func(r model.EnrichedRow) parquet.Value {
			return text(r.Skills.Flag(col))
		}})
	}
	return fs
}

func competencies(r model.EnrichedRow) string {
	if len(r.Competencies) == 0 {
		return ""
	}
	b, err := json.Marshal(r.Competencies)
	if err != nil {
		return ""
	}
	return string(b)
}

// Schema returns the parquet schema of a snapshot. Columns are ordered by
// name.
func Schema() *parquet.Schema {
	g := parquet.Group{}
	for _, f := range fields() {
		g[f.name] = f.node
	}
	return parquet.NewSchema("jobdata", g)
}

// Encode writes rows to w as a single parquet file.
func Encode(w io.Writer, rows []model.EnrichedRow) error {
	schema := Schema()
	fs := fields()

	index := make(map[string]int, len(fs))
	for i, p := range schema.Columns() {
		index[p[0]] = i
	}

	pw := parquet.NewWriter(w, schema)
	buf := make([]parquet.Row, 0, len(rows))
	for _, r := range rows {
		row := make(parquet.Row, len(fs))
		for _, f := range fs {
			idx := index[f.name]
			v := f.value(r)
			def := 1
			if v.IsNull() {
				def = 0
			}
			row[idx] = v.Level(0, def, idx)
		}
		buf = append(buf, row)
	}

	if _, err := pw.WriteRows(buf); err != nil {
		pw.Close()
		return fmt.Errorf("writing %d snapshot rows: %w", len(rows), err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("closing snapshot writer: %w", err)
	}
	return nil
}

// Info describes an encoded snapshot.
type Info struct {
	Rows    int64
	Columns []string
}

// Inspect reads the footer of a snapshot.
func Inspect(r io.ReaderAt, size int64) (Info, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return Info{}, fmt.Errorf("opening snapshot: %w", err)
	}
	info := Info{Rows: f.NumRows()}
	for _, p := range f.Schema().Columns() {
		info.Columns = append(info.Columns, strings.Join(p, "."))
	}
	return info, nil
}

const dayLayout = "2006-01-02"

var keyRe = regexp.MustCompile(`jobdata_(full_)?(\d{4}-\d{2}-\d{2}|\d{8})\.parquet$`)

// Kind tells a per-run snapshot from a full-table export.
type Kind int

const (
	// RunSnapshot holds the rows inserted by one run.
	RunSnapshot Kind = iota
	// FullSnapshot holds every stored row.
	FullSnapshot
)

func (k Kind) String() string {
	if k == FullSnapshot {
		return "full"
	}
	return "run"
}

// Key returns the object key of the run snapshot for date, e.g.
// "exports/jobdata_2025-03-15.parquet".
func Key(prefix string, date time.Time) string {
	return join(prefix, "jobdata_"+date.Format(dayLayout)+".parquet")
}

// FullKey returns the object key of the full export for date, e.g.
// "exports/jobdata_full_2025-03-15.parquet".
func FullKey(prefix string, date time.Time) string {
	return join(prefix, "jobdata_full_"+date.Format(dayLayout)+".parquet")
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ParseKey extracts the kind and date embedded in a snapshot key. Both
// YYYY-MM-DD and YYYYMMDD are accepted.
func ParseKey(key string) (Kind, time.Time, bool) {
	m := keyRe.FindStringSubmatch(key)
	if m == nil {
		return 0, time.Time{}, false
	}
	layout := dayLayout
	if !strings.Contains(m[2], "-") {
		layout = "20060102"
	}
	t, err := time.Parse(layout, m[2])
	if err != nil {
		return 0, time.Time{}, false
	}
	kind := RunSnapshot
	if m[1] != "" {
		kind = FullSnapshot
	}
	return kind, t, true
}

// Latest returns the key of the given kind with the most recent embedded
// date. Keys without a date are ignored.
func Latest(keys []string, kind Kind) (string, bool) {
	var (
		best     string
		bestDate time.Time
		found    bool
	)
	for _, k := range keys {
		kk, d, ok := ParseKey(k)
		if !ok || kk != kind {
			continue
		}
		if !found || d.After(bestDate) {
			best, bestDate, found = k, d, true
		}
	}
	return best, found
}
