// Package session keeps results of evaluations: plain-text result files and an SQLite history.
package session

import (
	"fmt"
	"strconv"
	"time"
)

const dateLayout = "02.01.2006"

// One successful evaluation
type Record struct {
	ID    string    `json:"id,omitempty"`
	Time  time.Time `json:"time"`
	X     float64   `json:"x"`
	E     float64   `json:"e"`
	Value float64   `json:"value"`
	Terms int       `json:"terms"`
}

// Formats record as "dd.mm.yyyy, x, e, value, N"
func (r Record) FormatLine() string {
	return fmt.Sprintf("%s, %s, %s, %.12f, %d",
		r.Time.Format(dateLayout), formatFloat(r.X), formatFloat(r.E), r.Value, r.Terms)
}

// Shortest representation that reads back to the same float64
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
