package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported store driver %q (want sqlite or postgres)", driver)
}

// placeholder returns the bind marker for the n-th argument (1-based).
func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d Dialect) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

func (d Dialect) typeName(k colKind) string {
	switch k {
	case kindReal:
		if d == Postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case kindInt:
		return "INTEGER"
	}
	return "TEXT"
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func validIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}
