package dialect

import (
	"fmt"
	"strings"
)

// Dialect names accepted by the `dialect` entity attribute.
const (
	Postgres   = "postgres"
	ClickHouse = "clickhouse"
	MongoDB    = "mongodb"
)

// Names lists every recognized dialect in declaration order.
var Names = []string{Postgres, ClickHouse, MongoDB}

// Parse normalizes and validates a dialect name. Matching is case-insensitive
// and accepts the common "postgresql", "pg" and "mongo" spellings.
func Parse(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", Postgres, "postgresql", "pg":
		return Postgres, nil
	case ClickHouse:
		return ClickHouse, nil
	case MongoDB, "mongo":
		return MongoDB, nil
	default:
		return "", fmt.Errorf("dialect: unknown dialect %q (expected one of %s)", s, strings.Join(Names, ", "))
	}
}
