package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// OpenDuckDB opens a file-backed (or ":memory:") duckdb journal.
func OpenDuckDB(dataSourceName string) (*Journal, error) {
	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("unable to open duckdb %q: %w", dataSourceName, err)
	}
	return New(db, DialectDuckDB), nil
}
