package persistence

import "strings"

// orderSpec whitelists the fields a listing may be sorted by and maps them
// to columns. Request input never reaches the ORDER BY clause directly.
type orderSpec struct {
	columns       map[string]string
	defaultColumn string
	defaultDir    string
	// tieBreaker is appended when sorting by a non-unique column
	tieBreaker string
}

var movementOrder = orderSpec{
	columns: map[string]string{
		"sequence":      "sequence",
		"movement_date": "movement_date",
		"date":          "movement_date",
		"created_at":    "created_at",
	},
	defaultColumn: "sequence",
	defaultDir:    "ASC",
	tieBreaker:    "sequence",
}

// Clause builds the ORDER BY expression for the requested field and direction.
func (s orderSpec) Clause(field, dir string) string {
	column, ok := s.columns[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		column = s.defaultColumn
	}
	direction := s.defaultDir
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "ASC":
		direction = "ASC"
	case "DESC":
		direction = "DESC"
	}
	clause := column + " " + direction
	if s.tieBreaker != "" && column != s.tieBreaker {
		clause += ", " + s.tieBreaker + " " + direction
	}
	return clause
}
