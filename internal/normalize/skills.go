package normalize

import (
	"regexp"
	"strings"

	"github.com/amishk599/jobmarket/internal/model"
)

// Skill is one entry of the closed skills taxonomy.
type Skill struct {
	Keyword string // as searched in the description, e.g. "power bi"
	Column  string // storage column name, e.g. "power_bi"

	pattern *regexp.Regexp
}

var skillKeywords = []string{
	"sql", "python", "pyspark", "azure", "aws", "gcp", "etl", "airflow", "kafka", "spark",
	"power bi", "tableau", "snowflake", "docker", "kubernetes", "git", "data warehouse",
	"hadoop", "mlops", "data lake", "bigquery", "databricks", "dbt", "mlflow",
	"java", "scala", "sas", "matlab", "power query", "looker", "apache", "hive",
	"terraform", "jenkins", "gitlab", "machine learning", "deep learning", "nlp",
	"api", "pipeline", "data governance", "erp", "ssis", "ssas", "ssrs", "ssms",
	"postgre", "mysql", "mongodb", "cloud",

	// azure components
	"synapse", "blobstorage", "azure devops", "fabric",

	// aws components
	"glue", "redshift", "s3", "lambda", "emr", "athena", "kinesis", "rds", "sagemaker",
}

// A keyword only counts as a whole word: the characters around it must not be
// letters, digits, '_' or '-'. "sas-based" therefore does not flag "sas".
const wordEdge = `[^\p{L}\p{N}_-]`

var skills = buildSkills(skillKeywords)

func buildSkills(keywords []string) []Skill {
	out := make([]Skill, 0, len(keywords))
	for _, kw := range keywords {
		parts := strings.Fields(kw)
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		expr := `(?:^|` + wordEdge + `)` + strings.Join(parts, `\s+`) + `(?:$|` + wordEdge + `)`
		out = append(out, Skill{
			Keyword: kw,
			Column:  strings.Join(strings.Fields(kw), "_"),
			pattern: regexp.MustCompile(expr),
		})
	}
	return out
}

// Skills returns the skills taxonomy in column order.
func Skills() []Skill {
	out := make([]Skill, len(skills))
	copy(out, skills)
	return out
}

// SkillColumns returns the storage column name of every skill, in order.
func SkillColumns() []string {
	cols := make([]string, len(skills))
	for i, s := range skills {
		cols[i] = s.Column
	}
	return cols
}

// ExtractSkills reports, for every skill of the taxonomy, whether its keyword
// appears as a whole word in the description (case-insensitive).
func ExtractSkills(description string) model.SkillFlags {
	lower := strings.ToLower(description)
	flags := make(model.SkillFlags, len(skills))
	for _, s := range skills {
		flags[s.Column] = lower != "" && s.pattern.MatchString(lower)
	}
	return flags
}
