package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
)

// VerifyIntegrity checks a database file for structural corruption.
// Mode "full" runs the exhaustive integrity_check, anything else the
// cheaper quick_check. A nil issue list means the file is healthy;
// a non-nil list carries the diagnostic rows SQLite reported.
func VerifyIntegrity(path, mode string) ([]string, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=2000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open read-only: %w", err)
	}
	defer func() { _ = db.Close() }()

	check := "quick_check"
	if mode == "full" {
		check = "integrity_check"
	}

	rows, err := db.Query("PRAGMA " + check)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", check, err)
	}
	defer func() { _ = rows.Close() }()

	var results []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s row: %w", check, err)
		}
		results = append(results, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read %s rows: %w", check, err)
	}

	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil, nil
	}
	if len(results) == 0 {
		return []string{"integrity check returned no rows"}, nil
	}
	return results, nil
}
